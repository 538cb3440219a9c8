// Package testutil builds synthetic BUFR messages and in-memory tables
// for tests.
package testutil

import (
	"encoding/binary"

	"github.com/meteodata/gobufr/internal/fxy"
	"github.com/meteodata/gobufr/internal/tables"
)

// BitWriter packs MSB-first bit fields into a byte slice, mirroring how
// data sections are laid out on the wire.
type BitWriter struct {
	buf []byte
	pos int
}

func NewBitWriter() *BitWriter { return &BitWriter{} }

// WriteBits appends the low n bits of v, most significant first.
func (w *BitWriter) WriteBits(v uint64, n int) *BitWriter {
	for i := n - 1; i >= 0; i-- {
		if w.pos%8 == 0 {
			w.buf = append(w.buf, 0)
		}
		bit := (v >> uint(i)) & 1
		w.buf[w.pos/8] |= byte(bit << uint(7-w.pos%8))
		w.pos++
	}
	return w
}

// WriteText appends s padded with spaces to n bytes.
func (w *BitWriter) WriteText(s string, n int) *BitWriter {
	b := []byte(s)
	for len(b) < n {
		b = append(b, ' ')
	}
	for _, c := range b[:n] {
		w.WriteBits(uint64(c), 8)
	}
	return w
}

// Bytes returns the packed buffer, zero-padded to a byte boundary.
func (w *BitWriter) Bytes() []byte { return w.buf }

// MessageSpec describes a message to synthesize. Zero values produce an
// edition 3 single-subset uncompressed message.
type MessageSpec struct {
	Edition       int
	Centre        int
	Subcentre     int
	MasterVersion int
	LocalVersion  int
	Subsets       int
	Observed      bool
	Compressed    bool
	Descriptors   []fxy.FXY
	Data          []byte
	Section2      []byte
}

// BuildMessage serializes spec into a complete wire message, indicator
// through end marker, with all section lengths computed.
func BuildMessage(spec MessageSpec) []byte {
	if spec.Edition == 0 {
		spec.Edition = 3
	}
	if spec.Subsets == 0 {
		spec.Subsets = 1
	}

	s1 := buildSection1(spec)
	var s2 []byte
	if spec.Section2 != nil {
		s2 = lengthPrefixed(append([]byte{0}, spec.Section2...))
	}
	s3 := buildSection3(spec)
	s4 := lengthPrefixed(append([]byte{0}, spec.Data...))

	total := 8 + len(s1) + len(s2) + len(s3) + len(s4) + 4
	msg := make([]byte, 0, total)
	msg = append(msg, 'B', 'U', 'F', 'R')
	msg = appendU24(msg, uint32(total))
	msg = append(msg, byte(spec.Edition))
	msg = append(msg, s1...)
	msg = append(msg, s2...)
	msg = append(msg, s3...)
	msg = append(msg, s4...)
	msg = append(msg, '7', '7', '7', '7')
	return msg
}

func buildSection1(spec MessageSpec) []byte {
	var optional byte
	if spec.Section2 != nil {
		optional = 0x80
	}
	if spec.Edition >= 4 {
		body := make([]byte, 0, 19)
		body = append(body, 0) // master table
		body = appendU16(body, uint16(spec.Centre))
		body = appendU16(body, uint16(spec.Subcentre))
		body = append(body, 0, optional, 0, 0) // update seq, optional flag, category, subcategory
		body = append(body, 0)                 // local subcategory
		body = append(body, byte(spec.MasterVersion), byte(spec.LocalVersion))
		body = appendU16(body, 2024)
		body = append(body, 1, 1, 0, 0, 0) // month day hour minute second
		return lengthPrefixed(body)
	}
	body := make([]byte, 0, 14)
	body = append(body, 0) // master table
	body = append(body, byte(spec.Subcentre), byte(spec.Centre))
	body = append(body, 0, optional, 0, 0)
	body = append(body, byte(spec.MasterVersion), byte(spec.LocalVersion))
	body = append(body, 124, 1, 1, 0, 0) // yy month day hour minute
	return lengthPrefixed(body)
}

func buildSection3(spec MessageSpec) []byte {
	body := make([]byte, 0, 3+2*len(spec.Descriptors))
	body = append(body, 0)
	body = appendU16(body, uint16(spec.Subsets))
	var flags byte
	if spec.Observed {
		flags |= 0x80
	}
	if spec.Compressed {
		flags |= 0x40
	}
	body = append(body, flags)
	for _, d := range spec.Descriptors {
		body = appendU16(body, uint16(d))
	}
	return lengthPrefixed(body)
}

// lengthPrefixed prepends the 3-byte section length covering prefix and
// body.
func lengthPrefixed(body []byte) []byte {
	out := make([]byte, 0, 3+len(body))
	out = appendU24(out, uint32(3+len(body)))
	return append(out, body...)
}

func appendU16(b []byte, v uint16) []byte {
	return binary.BigEndian.AppendUint16(b, v)
}

func appendU24(b []byte, v uint32) []byte {
	return append(b, byte(v>>16), byte(v>>8), byte(v))
}

// Tables returns an in-memory resolver with a handful of entries used
// across the tests.
func Tables() *tables.Set {
	s := tables.NewSet()
	s.AddElement(tables.Element{Code: fxy.New(0, 1, 1), Name: "WMO block number", Unit: "Numeric", Width: 7})
	s.AddElement(tables.Element{Code: fxy.New(0, 1, 2), Name: "WMO station number", Unit: "Numeric", Width: 10})
	s.AddElement(tables.Element{Code: fxy.New(0, 1, 15), Name: "Station or site name", Unit: "CCITT IA5", Width: 160})
	s.AddElement(tables.Element{Code: fxy.New(0, 12, 101), Name: "Temperature/air temperature", Unit: "K", Scale: 2, Width: 16})
	s.AddElement(tables.Element{Code: fxy.New(0, 10, 4), Name: "Pressure", Unit: "Pa", Scale: -1, Width: 14})
	s.AddElement(tables.Element{Code: fxy.New(0, 5, 1), Name: "Latitude (high accuracy)", Unit: "deg", Scale: 5, Reference: -9000000, Width: 25})
	s.AddElement(tables.Element{Code: fxy.New(0, 31, 0), Name: "Short delayed descriptor replication factor", Unit: "Numeric", Width: 1})
	s.AddElement(tables.Element{Code: fxy.New(0, 31, 1), Name: "Delayed descriptor replication factor", Unit: "Numeric", Width: 8})
	s.AddElement(tables.Element{Code: fxy.New(0, 31, 21), Name: "Associated field significance", Unit: "Code table", Width: 6})
	s.AddSequence(tables.Sequence{
		Code:  fxy.New(3, 1, 1),
		Title: "WMO block and station numbers",
		Chain: []fxy.FXY{fxy.New(0, 1, 1), fxy.New(0, 1, 2)},
	})
	return s
}
