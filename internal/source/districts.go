package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/ahrav/go-judicatura/internal/district"
	"github.com/ahrav/go-judicatura/internal/domain"
)

const utf8BOM = "\ufeff"

// ReadDistrictTable parses a district reference CSV. Cells are typed with
// domain.InferScalar so integer identifiers compare as integers. Short
// rows leave their trailing columns null.
func ReadDistrictTable(r io.Reader) ([]string, []district.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("district table is empty")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []district.Row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read row %d: %w", line, err)
		}
		row := make(district.Row, len(header))
		for i, col := range header {
			var cell string
			if i < len(rec) {
				cell = strings.TrimSpace(rec[i])
			}
			row[col] = domain.InferScalar(cell)
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

// LoadReference reads a district CSV file and builds the indexed Reference.
func LoadReference(path string, synonyms district.ColumnSynonyms) (*district.Reference, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open district table: %w", err)
	}
	defer f.Close()

	header, rows, err := ReadDistrictTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return district.NewReference(header, rows, synonyms)
}

// LoadFeatures reads a GeoJSON FeatureCollection of district geometries.
func LoadFeatures(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read district features: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode district features %s: %w", path, err)
	}
	return fc, nil
}
