package tables

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/meteodata/gobufr/internal/bufrerr"
	"github.com/meteodata/gobufr/internal/fxy"
)

// Table file naming mirrors the WMO distribution: one CSV per table
// type per master version, plus centre-specific local tables.
func masterFile(table string, version int) string {
	return tableFile("master", fmt.Sprintf("BUFR_Table%s_%d.csv", table, version))
}

func localFile(table string, sub uint32, version int) string {
	return tableFile("local", fmt.Sprintf("BUFR_Table%s_%d_%d.csv", table, sub, version))
}

// LoadMaster reads the master Table B and Table D for one version.
func LoadMaster(version int) (*Set, error) {
	set := NewSet()
	if err := loadB(set, masterFile("B", version)); err != nil {
		return nil, err
	}
	if err := loadD(set, masterFile("D", version)); err != nil {
		return nil, err
	}
	return set, nil
}

// LoadMasterWithFallback tries the requested master version and then
// each lower version in turn, returning the first that loads. The
// returned int is the version actually used.
func LoadMasterWithFallback(version int) (*Set, int, error) {
	for v := version; v >= 0; v-- {
		set, err := LoadMaster(v)
		if err != nil {
			continue
		}
		if v != version {
			logrus.WithFields(logrus.Fields{"requested": version, "used": v}).
				Warn("falling back to earlier master table version")
		}
		return set, v, nil
	}
	return nil, 0, fmt.Errorf("%w: no master table for version <= %d under %s",
		bufrerr.ErrTableNotFound, version, BasePath())
}

// LoadLocal reads a centre-specific local Table B and Table D. Missing
// local tables are an error; callers decide whether to require them.
func LoadLocal(centre, subcentre uint16, version int) (*Set, error) {
	sub := uint32(subcentre)*256 + uint32(centre)
	set := NewSet()
	if err := loadB(set, localFile("B", sub, version)); err != nil {
		return nil, err
	}
	if err := loadD(set, localFile("D", sub, version)); err != nil {
		return nil, err
	}
	return set, nil
}

// ForMessage assembles the resolver for a message's table identifiers:
// master tables with version fallback, layered under local tables when
// a local version is declared.
func ForMessage(masterVersion, localVersion uint8, centre, subcentre uint16) (Resolver, error) {
	master, _, err := LoadMasterWithFallback(int(masterVersion))
	if err != nil {
		return nil, err
	}
	var local Resolver
	if localVersion > 0 {
		l, err := LoadLocal(centre, subcentre, int(localVersion))
		if err != nil {
			return nil, err
		}
		local = l
	}
	return Layered{Local: local, Master: master}, nil
}

// loadB parses a WMO-format Table B CSV into the set. Required columns:
// FXY, ElementName_en, BUFR_Unit, BUFR_Scale, BUFR_ReferenceValue,
// BUFR_DataWidth_Bits.
func loadB(set *Set, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %s", bufrerr.ErrTableNotFound, path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("read table B header %s: %w", path, err)
	}
	col := columnIndex(header)
	need := []string{"FXY", "ElementName_en", "BUFR_Unit", "BUFR_Scale", "BUFR_ReferenceValue", "BUFR_DataWidth_Bits"}
	for _, c := range need {
		if _, ok := col[c]; !ok {
			return fmt.Errorf("table B %s: missing column %s", path, c)
		}
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read table B %s: %w", path, err)
		}
		code, err := fxy.Parse(field(row, col, "FXY"))
		if err != nil {
			continue // skip class headers and malformed rows
		}
		scale, err1 := strconv.Atoi(field(row, col, "BUFR_Scale"))
		ref, err2 := strconv.ParseInt(field(row, col, "BUFR_ReferenceValue"), 10, 64)
		width, err3 := strconv.Atoi(field(row, col, "BUFR_DataWidth_Bits"))
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		set.AddElement(Element{
			Code:      code,
			Name:      field(row, col, "ElementName_en"),
			Unit:      field(row, col, "BUFR_Unit"),
			Scale:     scale,
			Reference: ref,
			Width:     width,
		})
	}
}

// loadD parses a WMO-format Table D CSV. Each row contributes one child
// (FXY2) to the sequence named by FXY1; consecutive rows with the same
// FXY1 form the chain.
func loadD(set *Set, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %s", bufrerr.ErrTableNotFound, path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("read table D header %s: %w", path, err)
	}
	col := columnIndex(header)
	for _, c := range []string{"FXY1", "FXY2"} {
		if _, ok := col[c]; !ok {
			return fmt.Errorf("table D %s: missing column %s", path, c)
		}
	}

	var current *Sequence
	flush := func() {
		if current != nil {
			set.AddSequence(*current)
			current = nil
		}
	}
	for {
		row, err := r.Read()
		if err == io.EOF {
			flush()
			return nil
		}
		if err != nil {
			return fmt.Errorf("read table D %s: %w", path, err)
		}
		parent, err := fxy.Parse(field(row, col, "FXY1"))
		if err != nil {
			continue
		}
		child, err := fxy.Parse(field(row, col, "FXY2"))
		if err != nil {
			continue
		}
		if current == nil || current.Code != parent {
			flush()
			current = &Sequence{Code: parent, Title: field(row, col, "Title_en")}
		}
		current.Chain = append(current.Chain, child)
	}
}

func columnIndex(header []string) map[string]int {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	return col
}

func field(row []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}
