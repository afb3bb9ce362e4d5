package datastore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wastewater-dashboard/internal/models"
)

const (
	wastewaterHeader = "wrrf_name,sample_date,Per capita load (N1 copies per day per population),population_served\n"
	positivityHeader = "DATE,PERCENT_POSITIVE\n"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

type fixture struct {
	interpolated, raw, positivity string
}

func writeFixture(t *testing.T, f fixture) *CSVSource {
	t.Helper()
	dir := t.TempDir()
	return NewCSVSource(
		writeFile(t, dir, "interp.csv", f.interpolated),
		writeFile(t, dir, "raw.csv", f.raw),
		writeFile(t, dir, "pos.csv", f.positivity),
	)
}

func validFixture() fixture {
	return fixture{
		interpolated: wastewaterHeader +
			"Plant A,2021-01-01,5.0,1000\n" +
			"Plant B,2021-01-02 00:00:00,7.5,2000\n" +
			"Plant A,2021-01-03T00:00:00,,1000\n",
		raw: wastewaterHeader +
			"Plant A,2021-01-01,4.0,1000\n",
		positivity: positivityHeader +
			"2021-01-01,3.2\n" +
			"2021-01-02,NaN\n",
	}
}

func TestCSVSource_Load(t *testing.T) {
	src := writeFixture(t, validFixture())

	tables, err := src.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, tables.Interpolated, 3)
	require.Len(t, tables.Raw, 1)
	require.Len(t, tables.Positivity, 2)

	first := tables.Interpolated[0]
	assert.Equal(t, "Plant A", first.FacilityName)
	assert.True(t, first.SampleDate.Equal(time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.NotNil(t, first.PerCapitaLoad)
	assert.Equal(t, 5.0, *first.PerCapitaLoad)
	assert.Equal(t, map[string]string{"population_served": "1000"}, first.Extra)

	assert.True(t, tables.Interpolated[1].SampleDate.Equal(time.Date(2021, 1, 2, 0, 0, 0, 0, time.UTC)),
		"time part after a space is dropped")
	assert.Nil(t, tables.Interpolated[2].PerCapitaLoad, "blank load is nil")
	assert.Nil(t, tables.Positivity[1].PercentPositive, "NaN is nil")
}

func TestCSVSource_LoadErrors(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*fixture)
		wantSource string
		wantColumn string
		wantLine   int
	}{
		{
			name:       "missing load column",
			mutate:     func(f *fixture) { f.raw = "wrrf_name,sample_date\nPlant A,2021-01-01\n" },
			wantSource: TableRaw,
			wantColumn: models.ColumnPerCapitaLoad,
			wantLine:   1,
		},
		{
			name:       "unparsable sample date",
			mutate:     func(f *fixture) { f.interpolated = wastewaterHeader + "Plant A,01/02/2021,1,10\n" },
			wantSource: TableInterpolated,
			wantColumn: models.ColumnSampleDate,
			wantLine:   2,
		},
		{
			name:       "unparsable positivity",
			mutate:     func(f *fixture) { f.positivity = positivityHeader + "2021-01-01,3.2\n2021-01-02,high\n" },
			wantSource: TablePositivity,
			wantColumn: models.ColumnPercentPositive,
			wantLine:   3,
		},
		{
			name:       "missing positivity date column",
			mutate:     func(f *fixture) { f.positivity = "day,PERCENT_POSITIVE\n2021-01-01,1\n" },
			wantSource: TablePositivity,
			wantColumn: models.ColumnPositivityDate,
			wantLine:   1,
		},
		{
			name:       "empty file",
			mutate:     func(f *fixture) { f.positivity = "" },
			wantSource: TablePositivity,
		},
		{
			name:       "ragged row",
			mutate:     func(f *fixture) { f.interpolated = wastewaterHeader + "Plant A,2021-01-01\n" },
			wantSource: TableInterpolated,
			wantLine:   2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validFixture()
			tt.mutate(&f)
			src := writeFixture(t, f)

			_, err := src.Load(context.Background())
			require.Error(t, err)

			var loadErr *models.DataLoadError
			require.True(t, errors.As(err, &loadErr), "got %T: %v", err, err)
			assert.Equal(t, tt.wantSource, loadErr.Source)
			assert.Equal(t, tt.wantColumn, loadErr.Column)
			assert.Equal(t, tt.wantLine, loadErr.Line)
		})
	}
}

func TestCSVSource_MissingFile(t *testing.T) {
	src := NewCSVSource(filepath.Join(t.TempDir(), "nope.csv"), "raw.csv", "pos.csv")

	_, err := src.Load(context.Background())

	var loadErr *models.DataLoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, TableInterpolated, loadErr.Source)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestCSVSource_HeaderWithBOM(t *testing.T) {
	f := validFixture()
	f.positivity = "\ufeff" + f.positivity
	src := writeFixture(t, f)

	tables, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, tables.Positivity, 2)
}

func TestParseOptionalFloat(t *testing.T) {
	v, err := parseOptionalFloat("1e3")
	require.NoError(t, err)
	assert.Equal(t, 1000.0, *v)

	_, err = parseOptionalFloat("Inf")
	assert.Error(t, err)

	v, err = parseOptionalFloat("nan")
	require.NoError(t, err)
	assert.Nil(t, v)
}
