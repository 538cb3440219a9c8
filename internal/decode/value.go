package decode

import (
	"fmt"
	"math"
	"strings"
)

// Kind discriminates the variants a decoded value can take.
type Kind int

const (
	// KindNumber is a single scaled numeric value.
	KindNumber Kind = iota
	// KindText is a single CCITT IA5 string.
	KindText
	// KindMissing is the format's explicit missing marker.
	KindMissing
	// KindSequence is an ordered per-subset list of scalars, used when
	// subsets carry differing values for the same leaf.
	KindSequence
	// KindArray is a rectangular subset-by-repetition block of numeric
	// values from a replicated group. Missing entries are NaN.
	KindArray
)

// Value is the tagged variant carried by a Record.
type Value struct {
	kind Kind
	num  float64
	text string
	seq  []Value
	arr  [][]float64
}

// Number builds a numeric scalar.
func Number(v float64) Value { return Value{kind: KindNumber, num: v} }

// Text builds a textual scalar.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Missing builds the missing marker.
func Missing() Value { return Value{kind: KindMissing} }

// SequenceOf builds a per-subset sequence.
func SequenceOf(vs []Value) Value { return Value{kind: KindSequence, seq: vs} }

// ArrayOf builds a subset-by-repetition array.
func ArrayOf(rows [][]float64) Value { return Value{kind: KindArray, arr: rows} }

// Kind returns the variant discriminant.
func (v Value) Kind() Kind { return v.kind }

// IsMissing reports whether the value is the missing marker.
func (v Value) IsMissing() bool { return v.kind == KindMissing }

// Float returns the numeric payload; ok is false for other kinds.
func (v Value) Float() (float64, bool) { return v.num, v.kind == KindNumber }

// Str returns the textual payload; ok is false for other kinds.
func (v Value) Str() (string, bool) { return v.text, v.kind == KindText }

// Seq returns the per-subset scalars of a sequence value.
func (v Value) Seq() []Value { return v.seq }

// Array returns the subset-by-repetition rows of an array value.
func (v Value) Array() [][]float64 { return v.arr }

// Equal compares scalar values. Sequences and arrays never compare
// equal; they only arise after grouping.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindText:
		return v.text == o.text
	case KindMissing:
		return true
	}
	return false
}

// String renders the value for diagnostics, in the compact style the
// CLI prints.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return fmt.Sprintf("%g", v.num)
	case KindText:
		return fmt.Sprintf("%q", v.text)
	case KindMissing:
		return "MISSING"
	case KindSequence:
		parts := make([]string, 0, len(v.seq))
		for _, s := range v.seq {
			parts = append(parts, s.String())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindArray:
		var n, miss int
		min, max := math.Inf(1), math.Inf(-1)
		var sum float64
		for _, row := range v.arr {
			for _, x := range row {
				n++
				if math.IsNaN(x) {
					miss++
					continue
				}
				sum += x
				min = math.Min(min, x)
				max = math.Max(max, x)
			}
		}
		if n == miss {
			return fmt.Sprintf("[len=%d, all missing]", n)
		}
		return fmt.Sprintf("[len=%d, missing=%d, min=%.3f, max=%.3f, mean=%.3f]",
			n, miss, min, max, sum/float64(n-miss))
	}
	return "?"
}

// Record is one decoded (name, value) pair. Name is empty for unnamed
// leaves (padding, skips, character literals, associated fields).
type Record struct {
	Name  string
	Unit  string
	Value Value
}

// String renders "name : value" with the unit appended for plain
// numeric units.
func (r Record) String() string {
	name := r.Name
	if name == "" {
		name = "-"
	}
	switch r.Unit {
	case "", "CCITT IA5", "Code table", "code table", "code-table",
		"Flag table", "flag table", "flag-table":
		return fmt.Sprintf("%s : %s", name, r.Value)
	}
	return fmt.Sprintf("%s : %s %s", name, r.Value, r.Unit)
}
