package source

import (
	"crypto/sha256"
	"fmt"
	"os"
	"strings"

	"fortio.org/safecast"
)

// FileSet is the position table of one compilation. It is owned by the
// compilation context and passed to every stage that attaches or resolves
// spans. File 0 is reserved for the unknown position.
type FileSet struct {
	files []File
	index map[string]FileID // path -> id
}

// NewFileSet creates a FileSet holding only the unknown file.
func NewFileSet() *FileSet {
	fs := &FileSet{
		files: make([]File, 0, 4),
		index: make(map[string]FileID),
	}
	fs.files = append(fs.files, File{ID: UnknownFile, Path: "unknown", Flags: FileVirtual})
	return fs
}

// Add stores a file from normalized bytes, computes LineIdx and Hash, and returns a new FileID.
// It always creates a new FileID even if a file with the same path already exists.
func (fileSet *FileSet) Add(path string, content []byte, flags FileFlags) FileID {
	hash := sha256.Sum256(content)
	lineIdx := buildLineIndex(content)
	normalizedPath := normalizePath(path)

	lenFiles, err := safecast.Conv[uint32](len(fileSet.files))
	if err != nil {
		panic(fmt.Errorf("len files overflow: %w", err))
	}
	id := FileID(lenFiles)
	fileSet.files = append(fileSet.files, File{
		ID:      id,
		Path:    normalizedPath,
		Content: content,
		LineIdx: lineIdx,
		Hash:    hash,
		Flags:   flags,
	})
	// GetLatest sees the newest version of a path.
	fileSet.index[normalizedPath] = id
	return id
}

// Load reads a file from disk, normalizes CRLF/BOM, and calls Add.
func (fileSet *FileSet) Load(path string) (FileID, error) {
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return UnknownFile, err
	}

	content, hadBOM := removeBOM(content)
	content, hadCRLF := normalizeCRLF(content)

	flags := FileFlags(0)
	if hadBOM {
		flags |= FileHadBOM
	}
	if hadCRLF {
		flags |= FileNormalizedCRLF
	}
	return fileSet.Add(path, content, flags), nil
}

// AddVirtual adds a virtual file (stdin, test, or generated) with the FileVirtual flag.
func (fileSet *FileSet) AddVirtual(name string, content []byte) FileID {
	return fileSet.Add(name, content, FileVirtual)
}

// Get returns the file metadata for the given ID.
func (fileSet *FileSet) Get(id FileID) *File {
	if int(id) >= len(fileSet.files) {
		panic(fmt.Errorf("source: unknown file id %d", id))
	}
	return &fileSet.files[id]
}

// GetLatest returns the latest file ID for the given path, if it exists.
func (fileSet *FileSet) GetLatest(path string) (FileID, bool) {
	id, ok := fileSet.index[normalizePath(path)]
	return id, ok
}

// Len returns the number of files, including the unknown file.
func (fileSet *FileSet) Len() int {
	return len(fileSet.files)
}

// Resolve converts a span into line and column positions.
func (fileSet *FileSet) Resolve(span Span) (start, end LineCol) {
	f := fileSet.Get(span.File)
	return toLineCol(f.LineIdx, span.Start), toLineCol(f.LineIdx, span.End)
}

// Format renders span with msg under a caret mark:
//
//	path
//	3 |  x := y;
//	  |  ^ msg
//
// The unknown span renders msg alone.
func (fileSet *FileSet) Format(span Span, msg string) string {
	if span.IsUnknown() {
		return msg
	}
	f := fileSet.Get(span.File)
	start, _ := fileSet.Resolve(span)
	line := f.GetLine(start.Line)

	gutter := fmt.Sprintf("%d ", start.Line)
	col := int(start.Col) - 1
	width := max(1, min(int(span.Len()), len(line)-col))

	var sb strings.Builder
	sb.WriteString(f.Path)
	sb.WriteByte('\n')
	fmt.Fprintf(&sb, "%s|%s\n", gutter, line)
	fmt.Fprintf(&sb, "%s|%s%s %s", strings.Repeat(" ", len(gutter)), strings.Repeat(" ", col), strings.Repeat("^", width), msg)
	return sb.String()
}

// GetLine returns line lineNum (1-based) without its newline, or "" when the
// file is shorter.
func (f *File) GetLine(lineNum uint32) string {
	if lineNum == 0 {
		return ""
	}

	lenLineIdx, err := safecast.Conv[uint32](len(f.LineIdx))
	if err != nil {
		panic(fmt.Errorf("line index length overflow: %w", err))
	}
	lenContent, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		panic(fmt.Errorf("content length overflow: %w", err))
	}

	var start, end uint32
	switch {
	case lineNum == 1:
		start = 0
	case (lineNum - 2) < lenLineIdx:
		start = f.LineIdx[lineNum-2] + 1
	default:
		return ""
	}

	if (lineNum - 1) < lenLineIdx {
		end = f.LineIdx[lineNum-1]
	} else {
		end = lenContent
	}

	if start >= lenContent {
		return ""
	}
	return string(f.Content[start:min(end, lenContent)])
}
