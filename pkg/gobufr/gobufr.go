// Package gobufr decodes WMO BUFR streams: framing, table-driven
// descriptor expansion and value extraction.
package gobufr

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/meteodata/gobufr/internal/bufrerr"
	"github.com/meteodata/gobufr/internal/frame"
)

// File is an ordered collection of messages scanned from one input
// stream. Bytes outside BUFR...7777 envelopes are ignored; many
// archives wrap messages in GTS bulletin headers.
type File struct {
	msgs []*Message
}

// ParseBytes scans data for BUFR messages. Gzip-compressed input is
// transparently inflated. Markers that fail to frame (stray "BUFR"
// tokens in bulletin wrapping, truncated trailing messages) are logged
// and skipped; at least one well-formed message is required.
func ParseBytes(data []byte) (*File, error) {
	if len(data) >= 2 && data[0] == 0x1F && data[1] == 0x8B {
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		defer zr.Close()
		inflated, err := io.ReadAll(zr)
		if err != nil {
			return nil, fmt.Errorf("inflate gzip stream: %w", err)
		}
		data = inflated
	}

	f := &File{}
	for off := 0; off < len(data); {
		idx := bytes.Index(data[off:], []byte("BUFR"))
		if idx < 0 {
			break
		}
		start := off + idx
		msg, err := frame.Parse(data[start:])
		if err != nil {
			logrus.WithError(err).WithField("offset", start).
				Warn("skipping unframeable BUFR marker")
			off = start + 4
			continue
		}
		f.msgs = append(f.msgs, &Message{frame: msg, offset: start})
		off = start + msg.TotalLength
	}
	if len(f.msgs) == 0 {
		return nil, fmt.Errorf("%w: no BUFR message in %d bytes of input",
			bufrerr.ErrMalformedMessage, len(data))
	}
	return f, nil
}

// ParseFile reads and scans one file.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	f, err := ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// MessageCount returns the number of scanned messages.
func (f *File) MessageCount() int { return len(f.msgs) }

// Messages returns the scanned messages in stream order.
func (f *File) Messages() []*Message { return f.msgs }

// MessageAt returns the i-th message. Negative indices count from the
// end, Python style: -1 is the last message.
func (f *File) MessageAt(i int) (*Message, error) {
	n := len(f.msgs)
	j := i
	if j < 0 {
		j += n
	}
	if j < 0 || j >= n {
		return nil, fmt.Errorf("%w: message index %d of %d", bufrerr.ErrIndexOutOfRange, i, n)
	}
	return f.msgs[j], nil
}

// DecodeAll decodes every message, isolating failures: a message that
// fails to decode is logged and skipped rather than aborting the batch.
func (f *File) DecodeAll(opts DecodeOptions) []*ParsedMessage {
	out := make([]*ParsedMessage, 0, len(f.msgs))
	for i, m := range f.msgs {
		p, err := m.Decode(opts)
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"message": i,
				"offset":  m.offset,
			}).Warn("skipping undecodable message")
			continue
		}
		out = append(out, p)
	}
	return out
}
