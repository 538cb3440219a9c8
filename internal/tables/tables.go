// Package tables resolves F-X-Y descriptor codes against BUFR Table B
// (element definitions) and Table D (sequence definitions). Tables are
// loaded from WMO-format CSV files under a process-wide base directory
// and are immutable once loaded; lookups are safe for concurrent use.
package tables

import (
	"github.com/meteodata/gobufr/internal/fxy"
)

// Element is one Table B entry. Width, Scale and Reference fully
// determine the numeric domain of a decoded value.
type Element struct {
	Code      fxy.FXY
	Name      string
	Unit      string
	Scale     int
	Reference int64
	Width     int
}

// IsText reports whether the element decodes as CCITT IA5 characters
// rather than a scaled integer.
func (e Element) IsText() bool {
	switch e.Unit {
	case "CCITT IA5", "CCITT_IA5", "CCITTIA5", "Character":
		return true
	}
	return false
}

// IsCodeOrFlag reports whether the element is a code or flag table.
// These are exempt from operator scale and width changes.
func (e Element) IsCodeOrFlag() bool {
	switch e.Unit {
	case "Code table", "code table", "code-table", "Flag table", "flag table", "flag-table":
		return true
	}
	return false
}

// Sequence is one Table D entry: an ordered child descriptor chain.
type Sequence struct {
	Code  fxy.FXY
	Title string
	Chain []fxy.FXY
}

// Resolver resolves descriptor codes. Implementations must be safe for
// concurrent read-only use and must not mutate during a decode.
type Resolver interface {
	Element(code fxy.FXY) (Element, bool)
	Sequence(code fxy.FXY) (Sequence, bool)
}

// Set is an in-memory Table B/D pair.
type Set struct {
	b map[fxy.FXY]Element
	d map[fxy.FXY]Sequence
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{b: make(map[fxy.FXY]Element), d: make(map[fxy.FXY]Sequence)}
}

// AddElement inserts or replaces a Table B entry.
func (s *Set) AddElement(e Element) { s.b[e.Code] = e }

// AddSequence inserts or replaces a Table D entry.
func (s *Set) AddSequence(q Sequence) { s.d[q.Code] = q }

// Element implements Resolver.
func (s *Set) Element(code fxy.FXY) (Element, bool) {
	e, ok := s.b[code]
	return e, ok
}

// Sequence implements Resolver.
func (s *Set) Sequence(code fxy.FXY) (Sequence, bool) {
	q, ok := s.d[code]
	return q, ok
}

// Len reports the number of B and D entries.
func (s *Set) Len() (int, int) { return len(s.b), len(s.d) }

// Layered consults a local table before falling back to the master
// table. Local may be nil.
type Layered struct {
	Local  Resolver
	Master Resolver
}

// Element implements Resolver with local-first precedence.
func (l Layered) Element(code fxy.FXY) (Element, bool) {
	if l.Local != nil {
		if e, ok := l.Local.Element(code); ok {
			return e, true
		}
	}
	return l.Master.Element(code)
}

// Sequence implements Resolver with local-first precedence.
func (l Layered) Sequence(code fxy.FXY) (Sequence, bool) {
	if l.Local != nil {
		if q, ok := l.Local.Sequence(code); ok {
			return q, true
		}
	}
	return l.Master.Sequence(code)
}
