package source

import (
	"slices"

	"golang.org/x/text/unicode/norm"
)

// StringID identifies an interned name.
type StringID uint32

const NoStringID StringID = 0

// Interner maps names to stable IDs. Names are NFC-normalized so that
// identifiers spelled with different Unicode compositions share an ID.
type Interner struct {
	byID  []string            // индекс -> строка (byID[0] = "" для NoStringID)
	index map[string]StringID // строка -> ID
}

func NewInterner() *Interner {
	return &Interner{
		byID:  []string{""},
		index: map[string]StringID{"": NoStringID},
	}
}

// Intern вставляет строку в иннер и возвращает её ID.
// Если строка уже есть, возвращает её ID.
func (i *Interner) Intern(s string) StringID {
	if id, ok := i.index[s]; ok {
		return id
	}
	key := norm.NFC.String(s)
	if id, ok := i.index[key]; ok {
		i.index[s] = id
		return id
	}

	id := StringID(len(i.byID)) // #nosec G115 -- names are far fewer than 2^32
	i.byID = append(i.byID, key)
	i.index[key] = id
	if key != s {
		i.index[s] = id
	}
	return id
}

// Lookup возвращает строку по ID.
// Если ID не валиден, возвращает пустую строку и false.
func (i *Interner) Lookup(id StringID) (string, bool) {
	if !i.Has(id) {
		return "", false
	}
	return i.byID[id], true
}

// MustLookup panics on an invalid ID.
func (i *Interner) MustLookup(id StringID) string {
	s, ok := i.Lookup(id)
	if !ok {
		panic("invalid string ID")
	}
	return s
}

// Has проверяет, валиден ли ID.
func (i *Interner) Has(id StringID) bool {
	return int(id) < len(i.byID)
}

// Len returns the number of names, NoStringID included.
func (i *Interner) Len() int {
	return len(i.byID)
}

// Snapshot returns a copy of all names in ID order.
func (i *Interner) Snapshot() []string {
	return slices.Clone(i.byID)
}
