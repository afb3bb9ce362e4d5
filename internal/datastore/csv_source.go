package datastore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"wastewater-dashboard/internal/models"
)

// CSVSource reads the three tables from delimited files with a header row
type CSVSource struct {
	InterpolatedPath string
	RawPath          string
	PositivityPath   string
}

// NewCSVSource creates a CSV-backed source
func NewCSVSource(interpolatedPath, rawPath, positivityPath string) *CSVSource {
	return &CSVSource{
		InterpolatedPath: interpolatedPath,
		RawPath:          rawPath,
		PositivityPath:   positivityPath,
	}
}

func (s *CSVSource) Name() string {
	return "csv"
}

// Load parses all three files. The first failure is returned as a
// *models.DataLoadError.
func (s *CSVSource) Load(ctx context.Context) (*Tables, error) {
	interpolated, err := readWastewaterCSV(TableInterpolated, s.InterpolatedPath)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := readWastewaterCSV(TableRaw, s.RawPath)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	positivity, err := readPositivityCSV(s.PositivityPath)
	if err != nil {
		return nil, err
	}

	return &Tables{
		Interpolated: interpolated,
		Raw:          raw,
		Positivity:   positivity,
	}, nil
}

// csvTable walks a header-indexed CSV file row by row
type csvTable struct {
	source  string
	path    string
	reader  *csv.Reader
	columns map[string]int
	header  []string
}

func openCSV(source, path string, required ...string) (*csvTable, io.Closer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, &models.DataLoadError{Source: source, Path: path, Message: "cannot open file", Err: err}
	}

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		f.Close()
		if errors.Is(err, io.EOF) {
			return nil, nil, &models.DataLoadError{Source: source, Path: path, Message: "file is empty"}
		}
		return nil, nil, &models.DataLoadError{Source: source, Path: path, Line: 1, Message: "unreadable header", Err: err}
	}

	t := &csvTable{
		source:  source,
		path:    path,
		reader:  r,
		columns: make(map[string]int, len(header)),
		header:  header,
	}
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		header[i] = name
		if _, dup := t.columns[name]; !dup {
			t.columns[name] = i
		}
	}

	for _, col := range required {
		if _, ok := t.columns[col]; !ok {
			f.Close()
			return nil, nil, &models.DataLoadError{Source: source, Path: path, Line: 1, Column: col, Message: "missing required column"}
		}
	}

	return t, f, nil
}

// next returns the following record and its line number, or io.EOF
func (t *csvTable) next() ([]string, int, error) {
	record, err := t.reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, io.EOF
		}
		line := 0
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			line = parseErr.Line
		}
		return nil, line, &models.DataLoadError{Source: t.source, Path: t.path, Line: line, Message: "malformed row", Err: err}
	}
	line, _ := t.reader.FieldPos(0)
	return record, line, nil
}

func (t *csvTable) field(record []string, col string) string {
	return strings.TrimSpace(record[t.columns[col]])
}

func (t *csvTable) loadError(line int, col, message string, err error) error {
	return &models.DataLoadError{Source: t.source, Path: t.path, Line: line, Column: col, Message: message, Err: err}
}

func readWastewaterCSV(source, path string) ([]models.WastewaterRecord, error) {
	t, closer, err := openCSV(source, path, models.ColumnFacility, models.ColumnSampleDate, models.ColumnPerCapitaLoad)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	known := map[string]bool{
		models.ColumnFacility:      true,
		models.ColumnSampleDate:    true,
		models.ColumnPerCapitaLoad: true,
	}

	var records []models.WastewaterRecord
	for {
		row, line, err := t.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		facility := t.field(row, models.ColumnFacility)
		if facility == "" {
			return nil, t.loadError(line, models.ColumnFacility, "empty facility name", nil)
		}

		sampleDate, err := parseSourceDate(t.field(row, models.ColumnSampleDate))
		if err != nil {
			return nil, t.loadError(line, models.ColumnSampleDate, "unparsable date", err)
		}

		load, err := parseOptionalFloat(t.field(row, models.ColumnPerCapitaLoad))
		if err != nil {
			return nil, t.loadError(line, models.ColumnPerCapitaLoad, "unparsable number", err)
		}

		rec := models.WastewaterRecord{
			FacilityName:  facility,
			SampleDate:    sampleDate,
			PerCapitaLoad: load,
		}
		for i, name := range t.header {
			if name == "" || known[name] {
				continue
			}
			if rec.Extra == nil {
				rec.Extra = make(map[string]string, len(t.header)-len(known))
			}
			rec.Extra[name] = row[i]
		}

		records = append(records, rec)
	}

	return records, nil
}

func readPositivityCSV(path string) ([]models.PositivityRecord, error) {
	t, closer, err := openCSV(TablePositivity, path, models.ColumnPositivityDate, models.ColumnPercentPositive)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	var records []models.PositivityRecord
	for {
		row, line, err := t.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		d, err := parseSourceDate(t.field(row, models.ColumnPositivityDate))
		if err != nil {
			return nil, t.loadError(line, models.ColumnPositivityDate, "unparsable date", err)
		}

		pct, err := parseOptionalFloat(t.field(row, models.ColumnPercentPositive))
		if err != nil {
			return nil, t.loadError(line, models.ColumnPercentPositive, "unparsable number", err)
		}

		records = append(records, models.PositivityRecord{Date: d, PercentPositive: pct})
	}

	return records, nil
}

// parseSourceDate accepts YYYY-MM-DD, optionally followed by a time part
// separated by 'T' or a space. The time part is dropped.
func parseSourceDate(value string) (time.Time, error) {
	if len(value) > len(models.DateLayout) {
		if sep := value[len(models.DateLayout)]; sep == 'T' || sep == ' ' {
			value = value[:len(models.DateLayout)]
		}
	}
	t, err := time.Parse(models.DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD, got %q", value)
	}
	return t, nil
}

// parseOptionalFloat maps blank and NaN cells to nil
func parseOptionalFloat(value string) (*float64, error) {
	switch strings.ToLower(value) {
	case "", "nan", "na", "null":
		return nil, nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, err
	}
	if math.IsInf(v, 0) {
		return nil, fmt.Errorf("infinite value %q", value)
	}
	return &v, nil
}
