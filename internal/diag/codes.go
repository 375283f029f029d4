package diag

import "fmt"

type Code uint16

const (
	UnknownCode Code = 0

	// Name resolution
	Undefined     Code = 1001
	AlreadyBound  Code = 1002
	InstanceCycle Code = 1003

	// Timing obligations
	CannotProve Code = 2001

	// Files
	InvalidFile Code = 3001
	WriteError  Code = 3002

	Misc     Code = 9000
	Internal Code = 9999
)

var codeTitles = map[Code]string{
	UnknownCode:   "Unknown error",
	Undefined:     "Undefined name",
	AlreadyBound:  "Name already bound",
	InstanceCycle: "Recursive instantiation",
	CannotProve:   "Cannot prove timing fact",
	InvalidFile:   "Invalid input file",
	WriteError:    "Cannot write output",
	Misc:          "Error",
	Internal:      "Internal compiler error",
}

// ID returns the stable identifier used in short output, e.g. BND1001.
func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("BND%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("TIM%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("IO%04d", ic)
	case c == Internal:
		return fmt.Sprintf("ICE%04d", ic)
	default:
		return fmt.Sprintf("E%04d", ic)
	}
}

func (c Code) Title() string {
	if t, ok := codeTitles[c]; ok {
		return t
	}
	return codeTitles[UnknownCode]
}

func (c Code) String() string {
	return c.ID()
}
