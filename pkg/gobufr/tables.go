package gobufr

import (
	"github.com/meteodata/gobufr/internal/fxy"
	"github.com/meteodata/gobufr/internal/tables"
)

// Table types, aliased so callers can supply their own Resolver through
// DecodeOptions without reaching into internal packages.
type (
	// Descriptor is a packed F-X-Y descriptor code.
	Descriptor = fxy.FXY
	// Element is one Table B entry.
	Element = tables.Element
	// Sequence is one Table D entry.
	Sequence = tables.Sequence
	// Resolver resolves descriptor codes during a decode.
	Resolver = tables.Resolver
	// TableSet is an in-memory Resolver implementation.
	TableSet = tables.Set
)

// NewDescriptor builds a descriptor from its F, X and Y components.
func NewDescriptor(f, x, y uint8) Descriptor { return fxy.New(f, x, y) }

// ParseDescriptor reads the 6-digit table notation, e.g. "301001".
func ParseDescriptor(s string) (Descriptor, error) { return fxy.Parse(s) }

// NewTableSet returns an empty table set to populate with AddElement
// and AddSequence.
func NewTableSet() *TableSet { return tables.NewSet() }
