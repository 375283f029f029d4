package diag

import (
	"errors"
	"strings"
	"testing"

	"filament/internal/source"
)

func span(file source.FileID, start, end uint32) source.Span {
	return source.Span{File: file, Start: start, End: end}
}

func TestCodeIDs(t *testing.T) {
	cases := map[Code]string{
		Undefined:   "BND1001",
		CannotProve: "TIM2001",
		WriteError:  "IO3002",
		Misc:        "E9000",
		Internal:    "ICE9999",
	}
	for code, want := range cases {
		if got := code.ID(); got != want {
			t.Errorf("%d: got=%s want=%s", code, got, want)
		}
	}
	if Code(4242).Title() != "Unknown error" {
		t.Fatal("unregistered codes should fall back to the unknown title")
	}
}

func TestBagLimitSortDedup(t *testing.T) {
	b := NewBag(3)
	b.Add(UndefinedName("port", "b", span(1, 9, 10)))
	b.Add(New(SevWarning, Misc, span(1, 2, 3), "w"))
	b.Add(UndefinedName("port", "a", span(1, 9, 10)))
	if b.Add(NewError(Misc, span(1, 0, 1), "dropped")) {
		t.Fatal("bag accepted a diagnostic past its limit")
	}

	b.Sort()
	if b.Items()[0].Severity != SevWarning {
		t.Fatalf("first item should be the earliest span, got %v", b.Items()[0])
	}
	b.Dedup()
	if b.Len() != 2 {
		t.Fatalf("after dedup: got=%d want=2", b.Len())
	}
	if !b.HasErrors() {
		t.Fatal("expected errors")
	}
}

func TestBagErr(t *testing.T) {
	b := NewBag(8)
	if b.Err() != nil {
		t.Fatal("empty bag must not produce an error")
	}
	b.Add(New(SevWarning, Misc, source.Unknown, "just a warning"))
	if b.Err() != nil {
		t.Fatal("warnings must not produce an error")
	}
	b.Add(NameBound("instance", "A", span(1, 5, 6), span(1, 0, 1)))
	err := b.Err()
	var de *Error
	if !errors.As(err, &de) || de.Code != AlreadyBound {
		t.Fatalf("got %v", err)
	}
	if !strings.Contains(err.Error(), "BND1002: instance `A' is already bound") {
		t.Fatalf("message %q", err.Error())
	}
	if len(de.Notes) != 1 || de.Notes[0].Msg != "previously bound here" {
		t.Fatalf("notes %v", de.Notes)
	}
}

func TestDedupReporter(t *testing.T) {
	b := NewBag(10)
	r := NewDedupReporter(BagReporter{Bag: b})
	d := UndefinedName("event", "G", span(1, 4, 5))
	r.Report(d)
	r.Report(d)
	r.Report(UndefinedName("event", "G", span(1, 8, 9)))
	if b.Len() != 2 {
		t.Fatalf("got=%d want=2", b.Len())
	}
}
