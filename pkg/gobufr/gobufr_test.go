package gobufr_test

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meteodata/gobufr/internal/fxy"
	"github.com/meteodata/gobufr/internal/testutil"
	"github.com/meteodata/gobufr/pkg/gobufr"
)

func obsMessage(block, station uint64) []byte {
	w := testutil.NewBitWriter()
	w.WriteBits(block, 7)
	w.WriteBits(station, 10)
	return testutil.BuildMessage(testutil.MessageSpec{
		Centre:        98,
		MasterVersion: 14,
		Observed:      true,
		Descriptors:   []fxy.FXY{fxy.New(3, 1, 1)},
		Data:          w.Bytes(),
	})
}

func memOpts() gobufr.DecodeOptions {
	return gobufr.DecodeOptions{Resolver: testutil.Tables()}
}

func TestParseBytesSingle(t *testing.T) {
	f, err := gobufr.ParseBytes(obsMessage(10, 384))
	require.NoError(t, err)
	require.Equal(t, 1, f.MessageCount())

	m, err := f.MessageAt(0)
	require.NoError(t, err)
	require.Equal(t, uint8(3), m.Edition())
	require.Equal(t, uint16(98), m.Centre())
	require.Equal(t, uint8(14), m.MasterTableVersion())
	require.True(t, m.Observed())
	require.Equal(t, 1, m.Subsets())
	require.Equal(t, []string{"3-01-001"}, m.DescriptorCodes())
	require.Equal(t, 2024, m.Time().Year())
}

func TestParseBytesScan(t *testing.T) {
	// GTS-style wrapping: junk before, between and after the envelopes.
	var stream []byte
	stream = append(stream, []byte("SMDL01 EDZW 261200\r\r\n")...)
	stream = append(stream, obsMessage(10, 100)...)
	stream = append(stream, []byte("\r\r\nNNNN")...)
	stream = append(stream, obsMessage(11, 200)...)
	stream = append(stream, []byte("trailing")...)

	f, err := gobufr.ParseBytes(stream)
	require.NoError(t, err)
	require.Equal(t, 2, f.MessageCount())

	first, err := f.MessageAt(0)
	require.NoError(t, err)
	last, err := f.MessageAt(-1)
	require.NoError(t, err)
	require.Less(t, first.Offset(), last.Offset())
}

func TestParseBytesGzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(obsMessage(10, 384))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	f, err := gobufr.ParseBytes(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, 1, f.MessageCount())
}

func TestParseBytesIsolatesFramingFailures(t *testing.T) {
	good := obsMessage(10, 384)

	t.Run("stray marker after", func(t *testing.T) {
		stream := append(append([]byte(nil), good...), []byte("noise BUFR noise")...)
		f, err := gobufr.ParseBytes(stream)
		require.NoError(t, err)
		require.Equal(t, 1, f.MessageCount())
	})

	t.Run("stray marker before", func(t *testing.T) {
		stream := append([]byte("BUFRxx"), good...)
		f, err := gobufr.ParseBytes(stream)
		require.NoError(t, err)
		require.Equal(t, 1, f.MessageCount())
		m, err := f.MessageAt(0)
		require.NoError(t, err)
		require.Equal(t, uint16(98), m.Centre())
	})

	t.Run("truncated trailing message", func(t *testing.T) {
		stream := append(append([]byte(nil), good...), good[:len(good)-6]...)
		f, err := gobufr.ParseBytes(stream)
		require.NoError(t, err)
		require.Equal(t, 1, f.MessageCount())
	})
}

func TestParseBytesNoMessage(t *testing.T) {
	_, err := gobufr.ParseBytes([]byte("not a bufr stream"))
	require.ErrorIs(t, err, gobufr.ErrMalformedMessage)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "obs.bufr")
	require.NoError(t, os.WriteFile(path, obsMessage(10, 384), 0o644))

	f, err := gobufr.ParseFile(path)
	require.NoError(t, err)
	require.Equal(t, 1, f.MessageCount())

	_, err = gobufr.ParseFile(filepath.Join(t.TempDir(), "absent.bufr"))
	require.Error(t, err)
}

func TestMessageAtIndexing(t *testing.T) {
	stream := append(obsMessage(1, 1), obsMessage(2, 2)...)
	f, err := gobufr.ParseBytes(stream)
	require.NoError(t, err)

	m, err := f.MessageAt(-1)
	require.NoError(t, err)
	require.Equal(t, m, f.Messages()[1])

	_, err = f.MessageAt(2)
	require.ErrorIs(t, err, gobufr.ErrIndexOutOfRange)
	_, err = f.MessageAt(-3)
	require.ErrorIs(t, err, gobufr.ErrIndexOutOfRange)
}

func TestDecode(t *testing.T) {
	f, err := gobufr.ParseBytes(obsMessage(10, 384))
	require.NoError(t, err)
	m, err := f.MessageAt(0)
	require.NoError(t, err)

	p, err := m.Decode(memOpts())
	require.NoError(t, err)
	require.Equal(t, 2, p.Len())

	rec, err := p.At(0)
	require.NoError(t, err)
	require.Equal(t, "WMO block number", rec.Name)
	v, ok := rec.Value.Float()
	require.True(t, ok)
	require.Equal(t, 10.0, v)

	rec, err = p.At(-1)
	require.NoError(t, err)
	require.Equal(t, "WMO station number", rec.Name)

	_, err = p.At(5)
	require.ErrorIs(t, err, gobufr.ErrIndexOutOfRange)

	matches := p.Get("WMO station number")
	require.Len(t, matches, 1)
	require.Empty(t, p.Get("no such element"))
}

// Tables can be supplied entirely through the public surface, without
// touching internal packages.
func TestDecodeWithCallerTables(t *testing.T) {
	set := gobufr.NewTableSet()
	set.AddElement(gobufr.Element{
		Code: gobufr.NewDescriptor(0, 1, 1), Name: "WMO block number", Unit: "Numeric", Width: 7,
	})
	set.AddElement(gobufr.Element{
		Code: gobufr.NewDescriptor(0, 1, 2), Name: "WMO station number", Unit: "Numeric", Width: 10,
	})
	seq, err := gobufr.ParseDescriptor("301001")
	require.NoError(t, err)
	set.AddSequence(gobufr.Sequence{
		Code:  seq,
		Chain: []gobufr.Descriptor{gobufr.NewDescriptor(0, 1, 1), gobufr.NewDescriptor(0, 1, 2)},
	})
	var res gobufr.Resolver = set

	f, err := gobufr.ParseBytes(obsMessage(10, 384))
	require.NoError(t, err)
	m, err := f.MessageAt(0)
	require.NoError(t, err)

	p, err := m.Decode(gobufr.DecodeOptions{Resolver: res})
	require.NoError(t, err)
	require.Equal(t, 2, p.Len())
	require.Len(t, p.Get("WMO station number"), 1)
}

func TestDecodeAllIsolation(t *testing.T) {
	good := obsMessage(10, 384)
	bad := testutil.BuildMessage(testutil.MessageSpec{
		Descriptors: []fxy.FXY{fxy.New(0, 63, 250)}, // not in any table
		Data:        []byte{0},
	})
	f, err := gobufr.ParseBytes(append(append([]byte(nil), bad...), good...))
	require.NoError(t, err)
	require.Equal(t, 2, f.MessageCount())

	parsed := f.DecodeAll(memOpts())
	require.Len(t, parsed, 1)
	require.Equal(t, 2, parsed[0].Len())
}

func TestTablesPath(t *testing.T) {
	gobufr.SetTablesPath("/srv/bufr")
	t.Cleanup(func() { gobufr.SetTablesPath("") })
	require.Equal(t, "/srv/bufr", gobufr.TablesPath())
}
