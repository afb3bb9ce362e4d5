package services

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wastewater-dashboard/internal/datastore"
	"wastewater-dashboard/internal/models"
)

func day(d int) time.Time {
	return time.Date(2021, 1, d, 0, 0, 0, 0, time.UTC)
}

func val(v float64) *float64 { return &v }

func window(from, to int) models.DateRange {
	return models.NewDateRange(day(from), day(to))
}

func ww(facility string, d int, v float64) models.WastewaterRecord {
	return models.WastewaterRecord{FacilityName: facility, SampleDate: day(d), PerCapitaLoad: val(v)}
}

func newStore(t *testing.T, interp, raw []models.WastewaterRecord, positivity []models.PositivityRecord) *datastore.Store {
	t.Helper()
	store, err := datastore.New(datastore.Tables{Interpolated: interp, Raw: raw, Positivity: positivity})
	require.NoError(t, err)
	return store
}

func positivityDays(from, to int) []models.PositivityRecord {
	var out []models.PositivityRecord
	for d := from; d <= to; d++ {
		out = append(out, models.PositivityRecord{Date: day(d), PercentPositive: val(float64(d) / 10)})
	}
	return out
}

// sampleStore has three plants sampled on days 1..10 and raw data on even days only
func sampleStore(t *testing.T) *datastore.Store {
	var interp, raw []models.WastewaterRecord
	for d := 1; d <= 10; d++ {
		for i, p := range []string{"Plant A", "Plant B", "Plant C"} {
			interp = append(interp, ww(p, d, float64(d*10+i)))
			if d%2 == 0 {
				raw = append(raw, ww(p, d, float64(d*100+i)))
			}
		}
	}
	return newStore(t, interp, raw, positivityDays(1, 10))
}

func TestBuildWastewaterChart_Example(t *testing.T) {
	store := newStore(t,
		[]models.WastewaterRecord{ww("PlantA", 1, 5.0), ww("PlantB", 2, 7.0)},
		nil,
		positivityDays(1, 2),
	)

	spec := BuildWastewaterChart(store, WastewaterQuery{
		Facilities:      []string{"PlantA"},
		UseInterpolated: true,
		Window:          window(1, 1),
	})

	assert.Equal(t, 1, spec.RowCount)
	require.Len(t, spec.Series, 1)
	assert.Equal(t, "PlantA", spec.Series[0].Name)
	require.Len(t, spec.Series[0].Points, 1)
	assert.Equal(t, day(1), spec.Series[0].Points[0].Date)
	assert.Equal(t, 5.0, *spec.Series[0].Points[0].Value)

	assert.Equal(t, WastewaterChartID, spec.ID)
	assert.Equal(t, ChartBar, spec.Kind)
	assert.Equal(t, models.ColumnSampleDate, spec.XField)
	assert.Equal(t, models.ColumnPerCapitaLoad, spec.YField)
	assert.Equal(t, models.ColumnFacility, spec.GroupField)
	assert.Equal(t, window(1, 1), spec.XRange)
}

func TestBuildWastewaterChart_RowsRespectFilters(t *testing.T) {
	store := sampleStore(t)

	tests := []struct {
		name       string
		facilities []string
		from, to   int
	}{
		{"single plant, middle window", []string{"Plant B"}, 3, 6},
		{"two plants, single day", []string{"Plant A", "Plant C"}, 5, 5},
		{"all plants, edges", []string{"Plant A", "Plant B", "Plant C"}, 1, 10},
		{"unknown plant mixed in", []string{"Plant A", "Plant Q"}, 2, 4},
	}

	for _, tt := range tests {
		for _, interpolated := range []bool{true, false} {
			t.Run(fmt.Sprintf("%s/interpolated=%v", tt.name, interpolated), func(t *testing.T) {
				w := window(tt.from, tt.to)
				spec := BuildWastewaterChart(store, WastewaterQuery{
					Facilities:      tt.facilities,
					UseInterpolated: interpolated,
					Window:          w,
				})

				total := 0
				for _, s := range spec.Series {
					assert.Contains(t, tt.facilities, s.Name)
					for _, p := range s.Points {
						assert.True(t, w.Contains(p.Date), "point %v outside %v", p.Date, w)
					}
					total += len(s.Points)
				}
				assert.Equal(t, spec.RowCount, total)

				// the filter must not drop rows that qualify
				expected := 0
				for _, r := range store.Wastewater(interpolated) {
					if w.Contains(r.SampleDate) && contains(tt.facilities, r.FacilityName) {
						expected++
					}
				}
				assert.Equal(t, expected, spec.RowCount)
			})
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestBuildWastewaterChart_EmptySelection(t *testing.T) {
	store := sampleStore(t)

	for _, facilities := range [][]string{nil, {}} {
		spec := BuildWastewaterChart(store, WastewaterQuery{
			Facilities:      facilities,
			UseInterpolated: true,
			Window:          store.ValidDateRange(),
		})
		assert.True(t, spec.Empty())
		assert.NotNil(t, spec.Series)
		assert.Len(t, spec.Series, 0)
	}
}

func TestBuildCharts_InvertedWindowIsEmpty(t *testing.T) {
	store := sampleStore(t)
	inverted := window(8, 2)

	wwSpec := BuildWastewaterChart(store, WastewaterQuery{
		Facilities:      store.Facilities(),
		UseInterpolated: true,
		Window:          inverted,
	})
	assert.Equal(t, 0, wwSpec.RowCount)
	assert.Equal(t, inverted, wwSpec.XRange)

	pos := BuildPositivityChart(store, inverted)
	assert.Equal(t, 0, pos.RowCount)
	assert.Empty(t, pos.Series)
}

func TestBuildWastewaterChart_FullRangeReturnsEveryRow(t *testing.T) {
	store := sampleStore(t)

	spec := BuildWastewaterChart(store, WastewaterQuery{
		Facilities:      store.Facilities(),
		UseInterpolated: true,
		Window:          store.ValidDateRange(),
	})

	assert.Equal(t, len(store.Wastewater(true)), spec.RowCount)
	require.Len(t, spec.Series, 3)
	assert.Equal(t, []string{"Plant A", "Plant B", "Plant C"},
		[]string{spec.Series[0].Name, spec.Series[1].Name, spec.Series[2].Name})
}

func TestBuildWastewaterChart_ToggleSwitchesTableOnly(t *testing.T) {
	store := sampleStore(t)
	q := WastewaterQuery{Facilities: []string{"Plant A"}, Window: window(1, 10)}

	q.UseInterpolated = true
	interp := BuildWastewaterChart(store, q)
	q.UseInterpolated = false
	raw := BuildWastewaterChart(store, q)

	// raw data only has even days, so counts differ
	assert.Equal(t, 10, interp.RowCount)
	assert.Equal(t, 5, raw.RowCount)
	assert.Equal(t, 200.0, *raw.Series[0].Points[0].Value)
}

func TestBuildWastewaterChart_PointsSortedByDate(t *testing.T) {
	store := newStore(t,
		[]models.WastewaterRecord{ww("Plant A", 3, 3), ww("Plant A", 1, 1), ww("Plant A", 2, 2)},
		nil,
		positivityDays(1, 3),
	)

	spec := BuildWastewaterChart(store, WastewaterQuery{Facilities: []string{"Plant A"}, UseInterpolated: true, Window: window(1, 3)})

	require.Len(t, spec.Series, 1)
	for i, p := range spec.Series[0].Points {
		assert.Equal(t, day(i+1), p.Date)
	}
}

func TestBuildPositivityChart(t *testing.T) {
	store := sampleStore(t)

	spec := BuildPositivityChart(store, window(3, 5))

	assert.Equal(t, PositivityChartID, spec.ID)
	assert.Equal(t, ChartLine, spec.Kind)
	assert.Equal(t, models.ColumnPositivityDate, spec.XField)
	assert.Equal(t, models.ColumnPercentPositive, spec.YField)
	assert.Empty(t, spec.GroupField)
	assert.Equal(t, 3, spec.RowCount)
	require.Len(t, spec.Series, 1)
	assert.Equal(t, day(3), spec.Series[0].Points[0].Date)
	assert.Equal(t, day(5), spec.Series[0].Points[2].Date)
}

func TestChartSpec_JSON(t *testing.T) {
	spec := ChartSpec{
		ID:     WastewaterChartID,
		Kind:   ChartBar,
		XRange: window(1, 2),
		Series: []Series{{Name: "Plant A", Points: []Point{{Date: day(1), Value: val(5)}, {Date: day(2)}}}},
	}

	data, err := json.Marshal(spec)
	require.NoError(t, err)

	assert.Contains(t, string(data), `"x_range":{"start":"2021-01-01","end":"2021-01-02"}`)
	assert.Contains(t, string(data), `"points":[{"x":"2021-01-01","y":5},{"x":"2021-01-02","y":null}]`)
}

func TestParseInterpolation(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{"On", true, false},
		{"off", false, false},
		{"", true, false},
		{"sideways", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseInterpolation(tt.in)
			assert.Equal(t, tt.want, got)
			if tt.wantErr {
				var interpErr *InterpolationError
				assert.ErrorAs(t, err, &interpErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResolveWindow(t *testing.T) {
	defaults := window(1, 31)

	tests := []struct {
		name         string
		start, end   string
		want         models.DateRange
		wantFailures []string
	}{
		{"both empty use defaults", "", "", defaults, nil},
		{"both valid", "2021-01-05", "2021-01-07", window(5, 7), nil},
		{"bad start falls back", "01/05/2021", "2021-01-07", window(1, 7), []string{"start_date"}},
		{"bad end falls back", "2021-01-05", "tomorrow", window(5, 31), []string{"end_date"}},
		{"both bad", "x", "y", defaults, []string{"start_date", "end_date"}},
		{"inverted is kept", "2021-01-09", "2021-01-02", window(9, 2), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, failures := ResolveWindow(defaults, tt.start, tt.end)

			assert.Equal(t, tt.want, got)
			var fields []string
			for _, f := range failures {
				fields = append(fields, f.Field)
			}
			assert.Equal(t, tt.wantFailures, fields)
		})
	}
}
