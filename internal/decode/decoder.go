// Package decode expands a message's descriptor list against its tables
// and turns the data section's bit stream into named records.
package decode

import (
	"github.com/meteodata/gobufr/internal/bitio"
	"github.com/meteodata/gobufr/internal/frame"
	"github.com/meteodata/gobufr/internal/tables"
)

// Decoder decodes data sections against a fixed table resolver. A
// Decoder is safe for concurrent use; all per-message state lives in
// the walker.
type Decoder struct {
	res tables.Resolver
}

func New(res tables.Resolver) *Decoder {
	return &Decoder{res: res}
}

// Decode expands and decodes every subset of msg. Uncompressed subsets
// are walked one after the other over the shared bit stream; compressed
// messages are walked once with per-subset value fan-out.
func (d *Decoder) Decode(msg *frame.Message) ([]Record, error) {
	descs := msg.Descriptors()
	n := msg.Subsets()
	if n == 0 {
		return nil, nil
	}
	r := bitio.NewReader(msg.DataBlock())

	if msg.Compressed() {
		w := newWalker(d.res, &compressedSource{r: r, n: n})
		if err := w.walk(descs); err != nil {
			return nil, err
		}
		if n == 1 {
			return renderSequential(w.leaves, 0), nil
		}
		return assembleGrouped(w.leaves, n), nil
	}

	passes := make([][]leaf, 0, n)
	for s := 0; s < n; s++ {
		w := newWalker(d.res, &plainSource{r: r})
		if err := w.walk(descs); err != nil {
			return nil, err
		}
		passes = append(passes, w.leaves)
	}
	if n == 1 {
		return renderSequential(passes[0], 0), nil
	}
	if merged, ok := mergeSubsets(passes); ok {
		return assembleGrouped(merged, n), nil
	}
	// Delayed replication made the subsets structurally ragged; render
	// each subset in sequence instead of grouping across them.
	var out []Record
	for _, leaves := range passes {
		out = append(out, renderSequential(leaves, 0)...)
	}
	return out, nil
}

// mergeSubsets fuses per-subset leaf lists into one list with fanned-out
// values, provided every subset produced the same structure.
func mergeSubsets(passes [][]leaf) ([]leaf, bool) {
	first := passes[0]
	for _, p := range passes[1:] {
		if len(p) != len(first) {
			return nil, false
		}
		for i := range p {
			if p[i].sig() != first[i].sig() {
				return nil, false
			}
		}
	}
	merged := make([]leaf, len(first))
	for i := range first {
		m := first[i]
		m.vals = make([]Value, len(passes))
		for s, p := range passes {
			m.vals[s] = p[i].vals[0]
		}
		merged[i] = m
	}
	return merged, true
}
