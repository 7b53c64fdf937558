package conv

import (
	"sort"
	"strings"
)

// Flags is the set of conv= symbols.
type Flags uint32

const (
	ASCII Flags = 1 << iota
	EBCDIC
	IBM
	LCase
	UCase
	Swab
	Block
	Unblock
	Sync
	NoError
	NoTrunc
	FSync
	FDataSync
	Sparse
	Excl
	NoCreat
)

var flagNames = map[string]Flags{
	"ascii":     ASCII,
	"ebcdic":    EBCDIC,
	"ibm":       IBM,
	"lcase":     LCase,
	"ucase":     UCase,
	"swab":      Swab,
	"block":     Block,
	"unblock":   Unblock,
	"sync":      Sync,
	"noerror":   NoError,
	"notrunc":   NoTrunc,
	"fsync":     FSync,
	"fdatasync": FDataSync,
	"sparse":    Sparse,
	"excl":      Excl,
	"nocreat":   NoCreat,
}

// Lookup returns the flag for a conv= symbol.
func Lookup(name string) (Flags, bool) {
	f, ok := flagNames[name]
	return f, ok
}

// Names returns every conv= symbol, sorted.
func Names() []string {
	names := make([]string, 0, len(flagNames))
	for name := range flagNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether every flag in mask is set.
func (f Flags) Has(mask Flags) bool { return f&mask == mask }

// Any reports whether at least one flag in mask is set.
func (f Flags) Any(mask Flags) bool { return f&mask != 0 }

// Charset is the subset of flags that select a translation table.
const Charset = ASCII | EBCDIC | IBM | LCase | UCase

// Resizing flags change the number of bytes between input and output.
const Resizing = Block | Unblock | Sync | Swab

func (f Flags) String() string {
	if f == 0 {
		return ""
	}
	var names []string
	for name, bit := range flagNames {
		if f&bit != 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}
