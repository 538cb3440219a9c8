// Package frame splits a raw BUFR message into its six sections and
// validates the declared section lengths against the bytes actually
// consumed. Editions 2, 3 and 4 are supported; they differ only in the
// Section 1 layout.
package frame

import (
	"encoding/binary"
	"fmt"

	"github.com/meteodata/gobufr/internal/bufrerr"
	"github.com/meteodata/gobufr/internal/fxy"
)

// Message is one framed BUFR message. Immutable once parsed; the
// section structs reference subslices of Raw.
type Message struct {
	Raw         []byte
	Edition     uint8
	TotalLength int
	S1          Section1
	S2          *Section2
	S3          Section3
	S4          Section4
}

// Section1 is the Identification section. Field widths depend on the
// edition; Year is always normalised to a full four-digit year.
type Section1 struct {
	Length             int
	MasterTable        uint8
	Centre             uint16
	Subcentre          uint16
	UpdateSequence     uint8
	HasSection2        bool
	DataCategory       uint8
	DataSubcategory    uint8
	LocalSubcategory   uint8 // edition 4 only
	MasterTableVersion uint8
	LocalTableVersion  uint8
	Year               int
	Month              uint8
	Day                uint8
	Hour               uint8
	Minute             uint8
	Second             uint8 // edition 4 only
	LocalUse           []byte
}

// Section2 is the optional originating-centre blob. The core never
// interprets its contents.
type Section2 struct {
	Length int
	Data   []byte
}

// Len returns the payload size in bytes.
func (s *Section2) Len() int { return len(s.Data) }

// IsEmpty reports whether the section carries no payload.
func (s *Section2) IsEmpty() bool { return len(s.Data) == 0 }

// Bytes returns the raw payload.
func (s *Section2) Bytes() []byte { return s.Data }

// Section3 is the Data Description section.
type Section3 struct {
	Length      int
	Subsets     int
	Observed    bool
	Compressed  bool
	Descriptors []fxy.FXY
}

// Section4 is the Data section. Data excludes the 4-byte header.
type Section4 struct {
	Length int
	Data   []byte
}

const (
	section1FixedV3 = 17 // editions 2 and 3
	section1FixedV4 = 22
)

// Parse frames a complete message starting at its "BUFR" marker. The
// input must span at least the declared total length.
func Parse(raw []byte) (*Message, error) {
	if len(raw) < 8 {
		return nil, fmt.Errorf("%w: message shorter than section 0 (%d bytes)",
			bufrerr.ErrMalformedMessage, len(raw))
	}
	if string(raw[0:4]) != "BUFR" {
		return nil, fmt.Errorf("%w: missing BUFR marker, got %q",
			bufrerr.ErrMalformedMessage, raw[0:4])
	}
	total := int(beU24(raw[4:7]))
	edition := raw[7]
	if total > len(raw) {
		return nil, fmt.Errorf("%w: declared total length %d exceeds buffer (%d bytes)",
			bufrerr.ErrLengthMismatch, total, len(raw))
	}
	if total < 8 {
		return nil, fmt.Errorf("%w: declared total length %d shorter than section 0",
			bufrerr.ErrLengthMismatch, total)
	}
	raw = raw[:total]

	msg := &Message{Raw: raw, Edition: edition, TotalLength: total}
	off := 8

	var err error
	switch edition {
	case 2, 3:
		off, err = parseSection1V3(msg, raw, off)
	case 4:
		off, err = parseSection1V4(msg, raw, off)
	default:
		return nil, fmt.Errorf("%w: unsupported BUFR edition %d",
			bufrerr.ErrMalformedMessage, edition)
	}
	if err != nil {
		return nil, err
	}

	if msg.S1.HasSection2 {
		off, err = parseSection2(msg, raw, off)
		if err != nil {
			return nil, err
		}
	}
	off, err = parseSection3(msg, raw, off)
	if err != nil {
		return nil, err
	}
	off, err = parseSection4(msg, raw, off)
	if err != nil {
		return nil, err
	}

	if off+4 > len(raw) || string(raw[off:off+4]) != "7777" {
		return nil, fmt.Errorf("%w: missing 7777 end marker", bufrerr.ErrMalformedMessage)
	}
	off += 4
	if off != total {
		return nil, fmt.Errorf("%w: sections span %d bytes, declared total %d",
			bufrerr.ErrLengthMismatch, off, total)
	}
	return msg, nil
}

// sectionHeader reads the 3-byte length of the section starting at off
// and checks it fits both the buffer and the given minimum.
func sectionHeader(raw []byte, off, minLen int, name string) (int, error) {
	if off+3 > len(raw) {
		return 0, fmt.Errorf("%w: %s header out of bounds", bufrerr.ErrMalformedMessage, name)
	}
	length := int(beU24(raw[off : off+3]))
	if length < minLen {
		return 0, fmt.Errorf("%w: %s declares %d bytes, minimum is %d",
			bufrerr.ErrLengthMismatch, name, length, minLen)
	}
	if off+length > len(raw) {
		return 0, fmt.Errorf("%w: %s declares %d bytes, only %d remain",
			bufrerr.ErrLengthMismatch, name, length, len(raw)-off)
	}
	return length, nil
}

// parseSection1V3 reads the 17-octet layout shared by editions 2 and 3.
func parseSection1V3(msg *Message, raw []byte, off int) (int, error) {
	length, err := sectionHeader(raw, off, section1FixedV3, "section 1")
	if err != nil {
		return 0, err
	}
	s := raw[off:]
	msg.S1 = Section1{
		Length:             length,
		MasterTable:        s[3],
		Subcentre:          uint16(s[4]),
		Centre:             uint16(s[5]),
		UpdateSequence:     s[6],
		HasSection2:        s[7]&0x80 != 0,
		DataCategory:       s[8],
		DataSubcategory:    s[9],
		MasterTableVersion: s[10],
		LocalTableVersion:  s[11],
		Year:               yearFromCentury(s[12]),
		Month:              s[13],
		Day:                s[14],
		Hour:               s[15],
		Minute:             s[16],
		LocalUse:           s[section1FixedV3:length],
	}
	return off + length, nil
}

// parseSection1V4 reads the 22-octet edition 4 layout: 16-bit centre
// and subcentre, split subcategories, four-digit year and seconds.
func parseSection1V4(msg *Message, raw []byte, off int) (int, error) {
	length, err := sectionHeader(raw, off, section1FixedV4, "section 1")
	if err != nil {
		return 0, err
	}
	s := raw[off:]
	msg.S1 = Section1{
		Length:             length,
		MasterTable:        s[3],
		Centre:             binary.BigEndian.Uint16(s[4:6]),
		Subcentre:          binary.BigEndian.Uint16(s[6:8]),
		UpdateSequence:     s[8],
		HasSection2:        s[9]&0x80 != 0,
		DataCategory:       s[10],
		DataSubcategory:    s[11],
		LocalSubcategory:   s[12],
		MasterTableVersion: s[13],
		LocalTableVersion:  s[14],
		Year:               int(binary.BigEndian.Uint16(s[15:17])),
		Month:              s[17],
		Day:                s[18],
		Hour:               s[19],
		Minute:             s[20],
		Second:             s[21],
		LocalUse:           s[section1FixedV4:length],
	}
	return off + length, nil
}

func parseSection2(msg *Message, raw []byte, off int) (int, error) {
	length, err := sectionHeader(raw, off, 4, "section 2")
	if err != nil {
		return 0, err
	}
	// Octet 4 is reserved; payload follows.
	msg.S2 = &Section2{Length: length, Data: raw[off+4 : off+length]}
	return off + length, nil
}

func parseSection3(msg *Message, raw []byte, off int) (int, error) {
	length, err := sectionHeader(raw, off, 7, "section 3")
	if err != nil {
		return 0, err
	}
	s := raw[off:]
	subsets := int(binary.BigEndian.Uint16(s[4:6]))
	flags := s[6]
	descBytes := s[7:length]
	// A trailing pad byte is legal when the descriptor list ends on an
	// odd octet.
	descs := make([]fxy.FXY, 0, len(descBytes)/2)
	for i := 0; i+1 < len(descBytes); i += 2 {
		descs = append(descs, fxy.FromUint16(binary.BigEndian.Uint16(descBytes[i:i+2])))
	}
	msg.S3 = Section3{
		Length:      length,
		Subsets:     subsets,
		Observed:    flags&0x80 != 0,
		Compressed:  flags&0x40 != 0,
		Descriptors: descs,
	}
	return off + length, nil
}

func parseSection4(msg *Message, raw []byte, off int) (int, error) {
	length, err := sectionHeader(raw, off, 4, "section 4")
	if err != nil {
		return 0, err
	}
	msg.S4 = Section4{Length: length, Data: raw[off+4 : off+length]}
	return off + length, nil
}

// Descriptors returns the Section 3 descriptor list.
func (m *Message) Descriptors() []fxy.FXY { return m.S3.Descriptors }

// DataBlock returns the Section 4 payload bytes.
func (m *Message) DataBlock() []byte { return m.S4.Data }

// Subsets returns the Section 3 subset count.
func (m *Message) Subsets() int { return m.S3.Subsets }

// Compressed reports the Section 3 compression flag.
func (m *Message) Compressed() bool { return m.S3.Compressed }

func yearFromCentury(yy byte) int {
	// Pre-edition-4 messages carry a year of century; 100 denotes 2000.
	return 1900 + int(yy)
}

func beU24(b []byte) uint32 {
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}
