// Package fxy implements the BUFR F-X-Y descriptor code: a 16-bit value
// split into a 2-bit class (F), a 6-bit category (X) and an 8-bit index
// (Y).
package fxy

import (
	"fmt"
	"strconv"
)

// Descriptor classes.
const (
	ClassElement     = 0
	ClassReplication = 1
	ClassOperator    = 2
	ClassSequence    = 3
)

// FXY is a packed descriptor code.
type FXY uint16

// New builds a descriptor from its three components.
func New(f, x, y uint8) FXY {
	return FXY(uint16(f&0x03)<<14 | uint16(x&0x3F)<<8 | uint16(y))
}

// FromUint16 reinterprets a raw 2-byte code as read from Section 3.
func FromUint16(v uint16) FXY { return FXY(v) }

// Parse reads the 6-digit table notation, e.g. "301001" or "001001".
func Parse(s string) (FXY, error) {
	if len(s) != 6 {
		return 0, fmt.Errorf("fxy: want 6 digits, got %q", s)
	}
	f, err := strconv.Atoi(s[0:1])
	if err != nil {
		return 0, fmt.Errorf("fxy: bad F in %q: %w", s, err)
	}
	x, err := strconv.Atoi(s[1:3])
	if err != nil {
		return 0, fmt.Errorf("fxy: bad X in %q: %w", s, err)
	}
	y, err := strconv.Atoi(s[3:6])
	if err != nil {
		return 0, fmt.Errorf("fxy: bad Y in %q: %w", s, err)
	}
	if f > 3 || x > 63 || y > 255 {
		return 0, fmt.Errorf("fxy: components out of range in %q", s)
	}
	return New(uint8(f), uint8(x), uint8(y)), nil
}

// F returns the descriptor class.
func (d FXY) F() uint8 { return uint8(d >> 14) }

// X returns the category.
func (d FXY) X() uint8 { return uint8(d>>8) & 0x3F }

// Y returns the index.
func (d FXY) Y() uint8 { return uint8(d) }

func (d FXY) IsElement() bool     { return d.F() == ClassElement }
func (d FXY) IsReplication() bool { return d.F() == ClassReplication }
func (d FXY) IsOperator() bool    { return d.F() == ClassOperator }
func (d FXY) IsSequence() bool    { return d.F() == ClassSequence }

// IsClass31 reports whether this is a data-description element
// (delayed replication counts, associated field significance). Class 31
// elements are exempt from operator width/scale changes and from the
// all-ones missing convention.
func (d FXY) IsClass31() bool { return d.F() == ClassElement && d.X() == 31 }

// String renders the conventional F-XX-YYY form, e.g. "3-01-001".
func (d FXY) String() string {
	return fmt.Sprintf("%d-%02d-%03d", d.F(), d.X(), d.Y())
}
