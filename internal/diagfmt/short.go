package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"filament/internal/diag"
	"filament/internal/source"
)

// Short writes one line per diagnostic:
//
//	error BND1001 path:line:col message
//
// Messages are flattened to a single line; notes are included when
// includeNotes is set.
func Short(w io.Writer, bag *diag.Bag, fs *source.FileSet, includeNotes bool) {
	for _, d := range bag.Items() {
		fmt.Fprintf(w, "%s %s %s%s\n", d.Severity.String(), d.Code.ID(), shortLoc(fs, d.Primary), flatten(d.Message))
		if !includeNotes {
			continue
		}
		for _, n := range d.Notes {
			fmt.Fprintf(w, "note %s %s%s\n", d.Code.ID(), shortLoc(fs, n.Span), flatten(n.Msg))
		}
	}
}

func shortLoc(fs *source.FileSet, sp source.Span) string {
	if fs == nil || sp.IsUnknown() {
		return ""
	}
	start, _ := fs.Resolve(sp)
	return fmt.Sprintf("%s:%d:%d ", fs.Get(sp.File).Path, start.Line, start.Col)
}

func flatten(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
