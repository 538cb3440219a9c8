package gobufr

import (
	"fmt"
	"time"

	"github.com/meteodata/gobufr/internal/decode"
	"github.com/meteodata/gobufr/internal/frame"
	"github.com/meteodata/gobufr/internal/tables"
)

// Message is one framed message within a File.
type Message struct {
	frame  *frame.Message
	offset int
}

// Edition returns the BUFR edition (2, 3 or 4).
func (m *Message) Edition() uint8 { return m.frame.Edition }

// Offset returns the message's byte offset within the scanned stream.
func (m *Message) Offset() int { return m.offset }

// Raw returns the message's wire bytes, indicator through end marker.
func (m *Message) Raw() []byte { return m.frame.Raw }

// Centre returns the originating centre code.
func (m *Message) Centre() uint16 { return m.frame.S1.Centre }

// Subcentre returns the originating subcentre code.
func (m *Message) Subcentre() uint16 { return m.frame.S1.Subcentre }

// MasterTableVersion returns the master table version from Section 1.
func (m *Message) MasterTableVersion() uint8 { return m.frame.S1.MasterTableVersion }

// LocalTableVersion returns the local table version, 0 when none.
func (m *Message) LocalTableVersion() uint8 { return m.frame.S1.LocalTableVersion }

// DataCategory returns the Section 1 data category (Table A).
func (m *Message) DataCategory() uint8 { return m.frame.S1.DataCategory }

// Time returns the typical observation time from Section 1.
func (m *Message) Time() time.Time {
	s1 := m.frame.S1
	return time.Date(s1.Year, time.Month(s1.Month), int(s1.Day),
		int(s1.Hour), int(s1.Minute), int(s1.Second), 0, time.UTC)
}

// Section2 returns the optional local-use payload, nil when the message
// carries none.
func (m *Message) Section2() []byte {
	if m.frame.S2 == nil {
		return nil
	}
	return m.frame.S2.Bytes()
}

// Subsets returns the subset count from Section 3.
func (m *Message) Subsets() int { return m.frame.Subsets() }

// Observed reports the Section 3 observed-data flag.
func (m *Message) Observed() bool { return m.frame.S3.Observed }

// Compressed reports the Section 3 compression flag.
func (m *Message) Compressed() bool { return m.frame.Compressed() }

// DescriptorCodes renders the unexpanded Section 3 descriptor list in
// F-XX-YYY notation.
func (m *Message) DescriptorCodes() []string {
	descs := m.frame.Descriptors()
	out := make([]string, len(descs))
	for i, d := range descs {
		out[i] = d.String()
	}
	return out
}

// Decode expands and decodes the message. Tables are resolved from the
// message's Section 1 identifiers unless opts provides a resolver.
func (m *Message) Decode(opts DecodeOptions) (*ParsedMessage, error) {
	res := opts.Resolver
	if res == nil {
		r, err := tables.ForMessage(m.MasterTableVersion(), m.LocalTableVersion(),
			m.Centre(), m.Subcentre())
		if err != nil {
			return nil, err
		}
		res = r
	}
	recs, err := decode.New(res).Decode(m.frame)
	if err != nil {
		return nil, err
	}
	return &ParsedMessage{msg: m, records: recs}, nil
}

// DecodeOptions configures decoding.
type DecodeOptions struct {
	// Resolver overrides table loading, e.g. for in-memory tables.
	Resolver tables.Resolver
}

// ParsedMessage holds the decoded records of one message.
type ParsedMessage struct {
	msg     *Message
	records []Record
}

// Message returns the framed message the records came from.
func (p *ParsedMessage) Message() *Message { return p.msg }

// Len returns the number of decoded records.
func (p *ParsedMessage) Len() int { return len(p.records) }

// Records returns the decoded records in stream order.
func (p *ParsedMessage) Records() []Record { return p.records }

// At returns the i-th record. Negative indices count from the end.
func (p *ParsedMessage) At(i int) (Record, error) {
	n := len(p.records)
	j := i
	if j < 0 {
		j += n
	}
	if j < 0 || j >= n {
		return Record{}, fmt.Errorf("%w: record index %d of %d", ErrIndexOutOfRange, i, n)
	}
	return p.records[j], nil
}

// Get returns every record whose name matches exactly, in stream order.
func (p *ParsedMessage) Get(name string) []Record {
	var out []Record
	for _, r := range p.records {
		if r.Name == name {
			out = append(out, r)
		}
	}
	return out
}
