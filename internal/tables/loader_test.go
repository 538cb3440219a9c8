package tables

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meteodata/gobufr/internal/bufrerr"
	"github.com/meteodata/gobufr/internal/fxy"
)

const tableB14 = `ClassNo,ClassName_en,FXY,ElementName_en,Note_en,BUFR_Unit,BUFR_Scale,BUFR_ReferenceValue,BUFR_DataWidth_Bits
01,Identification,001001,WMO block number,,Numeric,0,0,7
01,Identification,001015,Station or site name,,CCITT IA5,0,0,160
12,Temperature,012101,Temperature/air temperature,,K,2,0,16
`

const tableD14 = `Category,CategoryOfSequences_en,FXY1,Title_en,FXY2,ElementName_en
01,Location sequences,301001,WMO block and station numbers,001001,
01,Location sequences,301001,,001002,
`

const localB2 = `FXY,ElementName_en,BUFR_Unit,BUFR_Scale,BUFR_ReferenceValue,BUFR_DataWidth_Bits
001001,Centre-specific block number,Numeric,0,0,9
`

func writeTables(t *testing.T, files map[string]string) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	SetBasePath(dir)
	t.Cleanup(func() { SetBasePath("") })
}

func TestLoadMaster(t *testing.T) {
	writeTables(t, map[string]string{
		"master/BUFR_TableB_14.csv": tableB14,
		"master/BUFR_TableD_14.csv": tableD14,
	})

	set, err := LoadMaster(14)
	require.NoError(t, err)

	b, d := set.Len()
	require.Equal(t, 3, b)
	require.Equal(t, 1, d)

	e, ok := set.Element(fxy.New(0, 12, 101))
	require.True(t, ok)
	require.Equal(t, "Temperature/air temperature", e.Name)
	require.Equal(t, "K", e.Unit)
	require.Equal(t, 2, e.Scale)
	require.Equal(t, 16, e.Width)

	q, ok := set.Sequence(fxy.New(3, 1, 1))
	require.True(t, ok)
	require.Equal(t, "WMO block and station numbers", q.Title)
	require.Equal(t, []fxy.FXY{fxy.New(0, 1, 1), fxy.New(0, 1, 2)}, q.Chain)
}

func TestLoadMasterMissing(t *testing.T) {
	writeTables(t, nil)
	_, err := LoadMaster(14)
	require.ErrorIs(t, err, bufrerr.ErrTableNotFound)
}

func TestLoadMasterWithFallback(t *testing.T) {
	writeTables(t, map[string]string{
		"master/BUFR_TableB_12.csv": tableB14,
		"master/BUFR_TableD_12.csv": tableD14,
	})

	set, used, err := LoadMasterWithFallback(14)
	require.NoError(t, err)
	require.Equal(t, 12, used)
	b, _ := set.Len()
	require.Equal(t, 3, b)
}

func TestLoadMasterWithFallbackExhausted(t *testing.T) {
	writeTables(t, nil)
	_, _, err := LoadMasterWithFallback(3)
	require.True(t, errors.Is(err, bufrerr.ErrTableNotFound))
}

func TestForMessageLayersLocal(t *testing.T) {
	// Centre 98, subcentre 1: local table key is subcentre*256+centre.
	writeTables(t, map[string]string{
		"master/BUFR_TableB_14.csv":  tableB14,
		"master/BUFR_TableD_14.csv":  tableD14,
		"local/BUFR_TableB_354_2.csv": localB2,
		"local/BUFR_TableD_354_2.csv": "FXY1,Title_en,FXY2\n",
	})

	res, err := ForMessage(14, 2, 98, 1)
	require.NoError(t, err)

	e, ok := res.Element(fxy.New(0, 1, 1))
	require.True(t, ok)
	require.Equal(t, "Centre-specific block number", e.Name)
	require.Equal(t, 9, e.Width)

	// Entries absent locally fall through to the master table.
	e, ok = res.Element(fxy.New(0, 12, 101))
	require.True(t, ok)
	require.Equal(t, "Temperature/air temperature", e.Name)
}

func TestForMessageNoLocalVersion(t *testing.T) {
	writeTables(t, map[string]string{
		"master/BUFR_TableB_14.csv": tableB14,
		"master/BUFR_TableD_14.csv": tableD14,
	})

	res, err := ForMessage(14, 0, 98, 1)
	require.NoError(t, err)
	_, ok := res.Element(fxy.New(0, 1, 1))
	require.True(t, ok)
}

func TestBasePathEnv(t *testing.T) {
	SetBasePath("")
	t.Setenv(EnvTablesPath, "/srv/bufr/tables")
	require.Equal(t, "/srv/bufr/tables", BasePath())
}
