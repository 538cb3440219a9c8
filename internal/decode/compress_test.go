package decode_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meteodata/gobufr/internal/bufrerr"
	"github.com/meteodata/gobufr/internal/decode"
	"github.com/meteodata/gobufr/internal/fxy"
	"github.com/meteodata/gobufr/internal/testutil"
)

func TestCompressedSharedBase(t *testing.T) {
	w := testutil.NewBitWriter()
	w.WriteBits(5, 7) // base
	w.WriteBits(0, 6) // zero deviation width: all subsets share the base
	recs, err := buildAndDecode(t, testutil.MessageSpec{
		Subsets:     3,
		Compressed:  true,
		Descriptors: []fxy.FXY{fxy.New(0, 1, 1)},
		Data:        w.Bytes(),
	})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, 5.0, number(t, recs[0]))
}

func TestCompressedDeviations(t *testing.T) {
	w := testutil.NewBitWriter()
	w.WriteBits(5, 7) // base
	w.WriteBits(2, 6) // two deviation bits per subset
	w.WriteBits(0, 2)
	w.WriteBits(2, 2)
	recs, err := buildAndDecode(t, testutil.MessageSpec{
		Subsets:     2,
		Compressed:  true,
		Descriptors: []fxy.FXY{fxy.New(0, 1, 1)},
		Data:        w.Bytes(),
	})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, decode.KindSequence, recs[0].Value.Kind())
	seq := recs[0].Value.Seq()
	f0, _ := seq[0].Float()
	f1, _ := seq[1].Float()
	require.Equal(t, 5.0, f0)
	require.Equal(t, 7.0, f1)
}

func TestCompressedMissingIncrement(t *testing.T) {
	w := testutil.NewBitWriter()
	w.WriteBits(5, 7)
	w.WriteBits(2, 6)
	w.WriteBits(1, 2)
	w.WriteBits(3, 2) // all-ones increment marks this subset missing
	recs, err := buildAndDecode(t, testutil.MessageSpec{
		Subsets:     2,
		Compressed:  true,
		Descriptors: []fxy.FXY{fxy.New(0, 1, 1)},
		Data:        w.Bytes(),
	})
	require.NoError(t, err)
	seq := recs[0].Value.Seq()
	require.Len(t, seq, 2)
	f0, _ := seq[0].Float()
	require.Equal(t, 6.0, f0)
	require.True(t, seq[1].IsMissing())
}

func TestCompressedAllMissing(t *testing.T) {
	w := testutil.NewBitWriter()
	w.WriteBits(0x7F, 7) // all-ones base
	w.WriteBits(0, 6)
	recs, err := buildAndDecode(t, testutil.MessageSpec{
		Subsets:     2,
		Compressed:  true,
		Descriptors: []fxy.FXY{fxy.New(0, 1, 1)},
		Data:        w.Bytes(),
	})
	require.NoError(t, err)
	require.True(t, recs[0].Value.IsMissing())
}

func TestCompressedText(t *testing.T) {
	w := testutil.NewBitWriter()
	w.WriteText("", 20) // base field, ignored when deviations follow
	w.WriteBits(4, 6)   // four bytes per subset
	w.WriteText("OSLO", 4)
	w.WriteText("KIEL", 4)
	recs, err := buildAndDecode(t, testutil.MessageSpec{
		Subsets:     2,
		Compressed:  true,
		Descriptors: []fxy.FXY{fxy.New(0, 1, 15)},
		Data:        w.Bytes(),
	})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	seq := recs[0].Value.Seq()
	require.Len(t, seq, 2)
	s0, _ := seq[0].Str()
	s1, _ := seq[1].Str()
	require.Equal(t, "OSLO", s0)
	require.Equal(t, "KIEL", s1)
}

func TestCompressedReplicationArray(t *testing.T) {
	w := testutil.NewBitWriter()
	bases := []uint64{100, 200, 300}
	incs := [][]uint64{{0, 5}, {1, 2}, {0, 0}}
	for rep := 0; rep < 3; rep++ {
		w.WriteBits(bases[rep], 10)
		w.WriteBits(4, 6)
		for subset := 0; subset < 2; subset++ {
			w.WriteBits(incs[rep][subset], 4)
		}
	}
	recs, err := buildAndDecode(t, testutil.MessageSpec{
		Subsets:     2,
		Compressed:  true,
		Descriptors: []fxy.FXY{fxy.New(1, 1, 3), fxy.New(0, 1, 2)},
		Data:        w.Bytes(),
	})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, decode.KindArray, recs[0].Value.Kind())
	require.Equal(t, [][]float64{{100, 201, 300}, {105, 202, 300}}, recs[0].Value.Array())
}

func TestCompressedDelayedReplication(t *testing.T) {
	w := testutil.NewBitWriter()
	w.WriteBits(2, 8) // count base
	w.WriteBits(0, 6) // all subsets agree
	w.WriteBits(5, 7) // repetition 0
	w.WriteBits(0, 6)
	w.WriteBits(9, 7) // repetition 1
	w.WriteBits(0, 6)
	recs, err := buildAndDecode(t, testutil.MessageSpec{
		Subsets:     2,
		Compressed:  true,
		Descriptors: []fxy.FXY{fxy.New(1, 1, 0), fxy.New(0, 31, 1), fxy.New(0, 1, 1)},
		Data:        w.Bytes(),
	})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, [][]float64{{5, 9}, {5, 9}}, recs[0].Value.Array())
}

func TestCompressedDelayedCountDisagreement(t *testing.T) {
	w := testutil.NewBitWriter()
	w.WriteBits(1, 8) // count base
	w.WriteBits(1, 6) // one deviation bit per subset
	w.WriteBits(0, 1)
	w.WriteBits(1, 1) // subsets now disagree on the count
	_, err := buildAndDecode(t, testutil.MessageSpec{
		Subsets:     2,
		Compressed:  true,
		Descriptors: []fxy.FXY{fxy.New(1, 1, 0), fxy.New(0, 31, 1), fxy.New(0, 1, 1)},
		Data:        w.Bytes(),
	})
	require.ErrorIs(t, err, bufrerr.ErrMalformedMessage)
}

// The same observation encoded plain and compressed must decode to the
// same records when the message holds a single subset.
func TestCompressedEquivalenceSingleSubset(t *testing.T) {
	plain := testutil.NewBitWriter()
	plain.WriteBits(10, 7)
	plain.WriteBits(25315, 16)
	plainRecs, err := buildAndDecode(t, testutil.MessageSpec{
		Descriptors: []fxy.FXY{fxy.New(0, 1, 1), fxy.New(0, 12, 101)},
		Data:        plain.Bytes(),
	})
	require.NoError(t, err)

	comp := testutil.NewBitWriter()
	comp.WriteBits(10, 7)
	comp.WriteBits(0, 6)
	comp.WriteBits(25315, 16)
	comp.WriteBits(0, 6)
	compRecs, err := buildAndDecode(t, testutil.MessageSpec{
		Compressed:  true,
		Descriptors: []fxy.FXY{fxy.New(0, 1, 1), fxy.New(0, 12, 101)},
		Data:        comp.Bytes(),
	})
	require.NoError(t, err)

	require.Equal(t, plainRecs, compRecs)
}

// The equivalence must also hold across subsets: two subsets carrying
// partly shared, partly differing values decode to the same grouped
// records from either encoding.
func TestCompressedEquivalenceMultiSubset(t *testing.T) {
	descs := []fxy.FXY{fxy.New(0, 1, 1), fxy.New(0, 12, 101)}

	plain := testutil.NewBitWriter()
	plain.WriteBits(10, 7) // subset 0
	plain.WriteBits(25315, 16)
	plain.WriteBits(12, 7) // subset 1
	plain.WriteBits(25310, 16)
	plainRecs, err := buildAndDecode(t, testutil.MessageSpec{
		Subsets:     2,
		Descriptors: descs,
		Data:        plain.Bytes(),
	})
	require.NoError(t, err)

	comp := testutil.NewBitWriter()
	comp.WriteBits(10, 7) // block number: base + 2-bit increments
	comp.WriteBits(2, 6)
	comp.WriteBits(0, 2)
	comp.WriteBits(2, 2)
	comp.WriteBits(25310, 16) // temperature: base + 3-bit increments
	comp.WriteBits(3, 6)
	comp.WriteBits(5, 3)
	comp.WriteBits(0, 3)
	compRecs, err := buildAndDecode(t, testutil.MessageSpec{
		Subsets:     2,
		Compressed:  true,
		Descriptors: descs,
		Data:        comp.Bytes(),
	})
	require.NoError(t, err)

	require.Equal(t, plainRecs, compRecs)
	require.Len(t, compRecs, 2)
	require.Equal(t, decode.KindSequence, compRecs[0].Value.Kind())
}
