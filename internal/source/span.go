package source

import (
	"fmt"
)

// Span is a byte range in a file of a FileSet.
type Span struct {
	File  FileID
	Start uint32 // в байтах включительно
	End   uint32 // в байтах не включительно
}

// Unknown is the span of nodes that have no source, e.g. ports generated by
// a pass.
var Unknown = Span{File: UnknownFile}

// IsUnknown reports whether s points into the reserved unknown file.
func (s Span) IsUnknown() bool {
	return s.File == UnknownFile
}

func (s Span) Empty() bool {
	return s.Start == s.End
}

func (s Span) Len() uint32 {
	return s.End - s.Start
}

func (s Span) String() string {
	if s.IsUnknown() {
		return "<unknown>"
	}
	return fmt.Sprintf("%d:%d-%d", s.File, s.Start, s.End)
}

// Cover returns the smallest span containing both s and other. Spans from
// different files are not merged.
func (s Span) Cover(other Span) Span {
	if s.File != other.File {
		return s
	}
	if other.Start < s.Start {
		s.Start = other.Start
	}
	if other.End > s.End {
		s.End = other.End
	}
	return s
}
