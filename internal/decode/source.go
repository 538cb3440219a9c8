package decode

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/meteodata/gobufr/internal/bitio"
	"github.com/meteodata/gobufr/internal/bufrerr"
)

// source yields the raw values of one leaf for every subset covered by
// the current pass: one value per call for a plain (uncompressed)
// subset stream, or the full per-subset slice for a compressed message.
// The missing flags encode the format's all-ones conventions; the
// walker overrides them for class 31 elements.
type source interface {
	readRaw(width int) (vals []uint64, miss []bool, err error)
	readText(nbytes int) (vals []string, miss []bool, err error)
}

// plainSource reads one subset sequentially.
type plainSource struct {
	r *bitio.Reader
}

func (s *plainSource) readRaw(width int) ([]uint64, []bool, error) {
	v, err := s.r.ReadBits(width)
	if err != nil {
		return nil, nil, err
	}
	return []uint64{v}, []bool{v == allOnes(width)}, nil
}

func (s *plainSource) readText(nbytes int) ([]string, []bool, error) {
	b, err := s.r.ReadBytes(nbytes)
	if err != nil {
		return nil, nil, err
	}
	return []string{decodeIA5(b)}, []bool{allOnesBytes(b)}, nil
}

// compressedSource reconstructs per-subset values from a shared base
// plus per-subset deviations.
type compressedSource struct {
	r *bitio.Reader
	n int
}

func (s *compressedSource) readRaw(width int) ([]uint64, []bool, error) {
	base, err := s.r.ReadBits(width)
	if err != nil {
		return nil, nil, err
	}
	devBits, err := s.r.ReadBits(6)
	if err != nil {
		return nil, nil, err
	}
	nb := int(devBits)
	if nb > 64 {
		return nil, nil, fmt.Errorf("%w: deviation width %d exceeds 64 bits",
			bufrerr.ErrMalformedMessage, nb)
	}
	vals := make([]uint64, s.n)
	miss := make([]bool, s.n)
	if nb == 0 {
		// All subsets share the base; the base's own all-ones pattern
		// marks every subset missing.
		baseMissing := base == allOnes(width)
		for i := range vals {
			vals[i] = base
			miss[i] = baseMissing
		}
		return vals, miss, nil
	}
	for i := 0; i < s.n; i++ {
		inc, err := s.r.ReadBits(nb)
		if err != nil {
			return nil, nil, err
		}
		if inc == allOnes(nb) {
			// Missing independently of the base.
			miss[i] = true
			vals[i] = allOnes(width)
			continue
		}
		vals[i] = base + inc
	}
	return vals, miss, nil
}

func (s *compressedSource) readText(nbytes int) ([]string, []bool, error) {
	base, err := s.r.ReadBytes(nbytes)
	if err != nil {
		return nil, nil, err
	}
	devBits, err := s.r.ReadBits(6)
	if err != nil {
		return nil, nil, err
	}
	nb := int(devBits)
	vals := make([]string, s.n)
	miss := make([]bool, s.n)
	if nb == 0 {
		baseMissing := allOnesBytes(base)
		text := decodeIA5(base)
		for i := range vals {
			vals[i] = text
			miss[i] = baseMissing
		}
		return vals, miss, nil
	}
	// Per-subset character fields of nb bytes each; the base is all
	// zeros by convention and is ignored.
	for i := 0; i < s.n; i++ {
		b, err := s.r.ReadBytes(nb)
		if err != nil {
			return nil, nil, err
		}
		vals[i] = decodeIA5(b)
		miss[i] = allOnesBytes(b)
	}
	return vals, miss, nil
}

// decodeIA5 maps a fixed-width CCITT IA5 field to a string, dropping
// right padding. IA5 is a 7-bit ASCII variant; ISO 8859-1 is a strict
// byte superset, which keeps stray high bytes representable.
func decodeIA5(b []byte) string {
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		decoded = b
	}
	return strings.TrimRight(string(decoded), " \x00")
}

func allOnesBytes(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, x := range b {
		if x != 0xFF {
			return false
		}
	}
	return true
}
