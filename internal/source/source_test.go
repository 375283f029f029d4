package source

import (
	"strings"
	"testing"
)

func TestFileSetReservesUnknown(t *testing.T) {
	fs := NewFileSet()
	if fs.Len() != 1 {
		t.Fatalf("a fresh FileSet must hold only the unknown file, got %d", fs.Len())
	}
	id := fs.AddVirtual("main.fil", []byte("comp Main<'G>() -> () {}\n"))
	if id == UnknownFile {
		t.Fatalf("real files must not reuse the unknown file id")
	}
	if latest, ok := fs.GetLatest("main.fil"); !ok || latest != id {
		t.Fatalf("GetLatest returned %d, %v", latest, ok)
	}
}

func TestFileSetResolve(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("a.fil", []byte("first\nsecond line\nthird"))
	start, end := fs.Resolve(Span{File: id, Start: 13, End: 17})
	if start.Line != 2 || start.Col != 8 {
		t.Fatalf("unexpected start: %+v", start)
	}
	if end.Line != 2 || end.Col != 12 {
		t.Fatalf("unexpected end: %+v", end)
	}
	if got := fs.Get(id).GetLine(3); got != "third" {
		t.Fatalf("unexpected line 3: %q", got)
	}
	if got := fs.Get(id).GetLine(9); got != "" {
		t.Fatalf("line past the end must be empty, got %q", got)
	}
}

func TestFileSetFormat(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("a.fil", []byte("first\nsecond line\nthird"))
	got := fs.Format(Span{File: id, Start: 13, End: 17}, "here")
	want := strings.Join([]string{
		"a.fil",
		"2 |second line",
		"  |       ^^^^ here",
	}, "\n")
	if got != want {
		t.Fatalf("unexpected format:\n%s\nwant:\n%s", got, want)
	}
	if got := fs.Format(Unknown, "generated"); got != "generated" {
		t.Fatalf("unknown span must render the message alone, got %q", got)
	}
}

func TestNormalizeCRLF(t *testing.T) {
	out, changed := normalizeCRLF([]byte("a\r\nb\rc"))
	if !changed || string(out) != "a\nb\rc" {
		t.Fatalf("unexpected normalization: %q changed=%v", out, changed)
	}
}

func TestSpanCover(t *testing.T) {
	a := Span{File: 1, Start: 4, End: 8}
	b := Span{File: 1, Start: 2, End: 6}
	if got := a.Cover(b); got.Start != 2 || got.End != 8 {
		t.Fatalf("unexpected cover: %v", got)
	}
	if got := a.Cover(Span{File: 2, Start: 0, End: 100}); got != a {
		t.Fatalf("spans of different files must not merge")
	}
	if Unknown.String() != "<unknown>" {
		t.Fatalf("unexpected unknown span string: %s", Unknown)
	}
}

func TestInternerNormalizesNames(t *testing.T) {
	in := NewInterner()
	composed := in.Intern("caf\u00e9")
	decomposed := in.Intern("cafe\u0301")
	if composed != decomposed {
		t.Fatalf("NFC-equivalent names must share an ID: %d != %d", composed, decomposed)
	}
	if s := in.MustLookup(decomposed); s != "caf\u00e9" {
		t.Fatalf("lookup must return the normalized name, got %q", s)
	}
	if in.Intern("") != NoStringID {
		t.Fatalf("the empty name is NoStringID")
	}
	if in.Len() != 2 {
		t.Fatalf("unexpected interner size: got=%d want=2", in.Len())
	}
}
