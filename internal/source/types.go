package source

// FileID numbers a file within its FileSet. The front end assigns the same
// numbers when it serializes spans.
type FileID uint32

// UnknownFile is reserved by every FileSet for generated code.
const UnknownFile FileID = 0

// FileFlags records how a file was loaded.
type FileFlags uint8

const (
	FileVirtual FileFlags = 1 << iota // added from memory
	FileHadBOM
	FileNormalizedCRLF
)

// File is one loaded source file. LineIdx holds the offset of every newline
// in Content.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	LineIdx []uint32
	Hash    [32]byte
	Flags   FileFlags
}

// LineCol is a 1-based position.
type LineCol struct {
	Line uint32
	Col  uint32
}
