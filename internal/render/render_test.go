package render

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/xuri/excelize/v2"

	"wastewater-dashboard/internal/models"
	"wastewater-dashboard/internal/services"
)

func day(s string) time.Time {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func f(v float64) *float64 { return &v }

func sampleSpec() services.ChartSpec {
	return services.ChartSpec{
		ID:     services.WastewaterChartID,
		Title:  "Wastewater load by facility",
		Kind:   services.ChartBar,
		XField: models.ColumnSampleDate,
		YField: models.ColumnPerCapitaLoad,
		XRange: models.NewDateRange(day("2021-01-01"), day("2021-01-10")),
		Series: []services.Series{
			{Name: "Plant A", Points: []services.Point{
				{Date: day("2021-01-02"), Value: f(100)},
				{Date: day("2021-01-03"), Value: nil},
			}},
			{Name: "Plant B", Points: []services.Point{
				{Date: day("2021-01-04"), Value: f(250)},
			}},
		},
		RowCount: 3,
	}
}

func TestEChartsOption(t *testing.T) {
	opt := EChartsOption(sampleSpec())

	assert.Equal(t, GraphBackground, opt["backgroundColor"])

	xAxis := opt["xAxis"].(map[string]interface{})
	assert.Equal(t, "time", xAxis["type"])
	assert.Equal(t, "2021-01-01", xAxis["min"])
	assert.Equal(t, "2021-01-10", xAxis["max"])

	series := opt["series"].([]interface{})
	require.Len(t, series, 2)
	first := series[0].(map[string]interface{})
	assert.Equal(t, "Plant A", first["name"])
	assert.Equal(t, "bar", first["type"])

	data := first["data"].([]interface{})
	require.Len(t, data, 2)
	assert.Equal(t, []interface{}{"2021-01-02", 100.0}, data[0])
	assert.Equal(t, []interface{}{"2021-01-03", nil}, data[1])

	legend := opt["legend"].(map[string]interface{})
	assert.Equal(t, []string{"Plant A", "Plant B"}, legend["data"])

	_, err := json.Marshal(opt)
	require.NoError(t, err)
}

func TestEChartsOptionLineAndEmpty(t *testing.T) {
	spec := services.ChartSpec{
		ID:     services.PositivityChartID,
		Title:  "Positivity rate",
		Kind:   services.ChartLine,
		XRange: models.DateRange{Start: day("2021-02-01"), End: day("2021-01-01")},
		Series: []services.Series{},
	}

	opt := EChartsOption(spec)
	title := opt["title"].(map[string]interface{})
	assert.NotEmpty(t, title["subtext"])
	assert.Empty(t, opt["series"])

	xAxis := opt["xAxis"].(map[string]interface{})
	_, hasMin := xAxis["min"]
	assert.False(t, hasMin)

	spec.Series = []services.Series{{Name: "Percent positive", Points: []services.Point{{Date: day("2021-01-05"), Value: f(4.2)}}}}
	opt = EChartsOption(spec)
	line := opt["series"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "line", line["type"])
}

func TestPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PNG(&buf, sampleSpec(), 640, 320))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG\r\n\x1a\n")))
}

func TestPNGSinglePoint(t *testing.T) {
	spec := sampleSpec()
	spec.Series = spec.Series[1:]

	var buf bytes.Buffer
	require.NoError(t, PNG(&buf, spec, 0, 0))
	assert.NotZero(t, buf.Len())
}

func TestPNGSeriesFollowChartKind(t *testing.T) {
	graph, err := newGraph(sampleSpec(), 0, 0)
	require.NoError(t, err)
	require.Len(t, graph.Series, 2)
	for _, s := range graph.Series {
		assert.IsType(t, chart.HistogramSeries{}, s)
	}

	spec := sampleSpec()
	spec.Kind = services.ChartLine
	graph, err = newGraph(spec, 0, 0)
	require.NoError(t, err)
	for _, s := range graph.Series {
		assert.IsType(t, chart.TimeSeries{}, s)
	}
}

func TestPNGNegativeValuesStayInRange(t *testing.T) {
	spec := sampleSpec()
	spec.Series = []services.Series{{Name: "Plant A", Points: []services.Point{
		{Date: day("2021-01-02"), Value: f(-5)},
		{Date: day("2021-01-03"), Value: f(-5)},
	}}}

	graph, err := newGraph(spec, 0, 0)
	require.NoError(t, err)
	yRange := graph.YAxis.Range
	assert.Less(t, yRange.GetMin(), -5.0)
	assert.GreaterOrEqual(t, yRange.GetMax(), 0.0)

	var buf bytes.Buffer
	require.NoError(t, PNG(&buf, spec, 400, 300))
}

func TestValueRange(t *testing.T) {
	tests := []struct {
		name             string
		minY, maxY       float64
		wantLo, wantHigh float64
	}{
		{"positive", 0, 100, 0, 110},
		{"negative", -50, 0, -55, 5},
		{"mixed", -10, 10, -12, 12},
		{"flat zero", 0, 0, 0, 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := valueRange(tt.minY, tt.maxY)
			assert.InDelta(t, tt.wantLo, lo, 1e-9)
			assert.InDelta(t, tt.wantHigh, hi, 1e-9)
		})
	}
}

func TestPNGEmpty(t *testing.T) {
	spec := sampleSpec()
	spec.Series = []services.Series{{Name: "Plant C", Points: []services.Point{{Date: day("2021-01-02")}}}}

	var buf bytes.Buffer
	assert.ErrorIs(t, PNG(&buf, spec, 0, 0), ErrEmptyChart)
	assert.Zero(t, buf.Len())

	spec.Series = nil
	assert.ErrorIs(t, PNG(&buf, spec, 0, 0), ErrEmptyChart)
}

func TestWastewaterXLSX(t *testing.T) {
	rows := []models.WastewaterRecord{
		{FacilityName: "Plant A", SampleDate: day("2021-01-02"), PerCapitaLoad: f(100)},
		{FacilityName: "Plant A", SampleDate: day("2021-01-03")},
	}
	q := services.WastewaterQuery{
		Facilities:      []string{"Plant A"},
		UseInterpolated: false,
		Window:          models.NewDateRange(day("2021-01-01"), day("2021-01-10")),
	}

	data, err := WastewaterXLSX(rows, q)
	require.NoError(t, err)

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer wb.Close()

	got, err := wb.GetRows(DataSheet)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{models.ColumnFacility, models.ColumnSampleDate, models.ColumnPerCapitaLoad}, got[0])
	assert.Equal(t, []string{"Plant A", "2021-01-02", "100"}, got[1])
	assert.Equal(t, []string{"Plant A", "2021-01-03"}, got[2])

	meta, err := wb.GetRows(QuerySheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"interpolation", "Off"}, meta[1])
	assert.Equal(t, []string{"start_date", "2021-01-01"}, meta[2])
	assert.Equal(t, []string{"rows", "2"}, meta[4])
}

func TestWastewaterXLSXNoRows(t *testing.T) {
	data, err := WastewaterXLSX(nil, services.WastewaterQuery{})
	require.NoError(t, err)

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer wb.Close()

	got, err := wb.GetRows(DataSheet)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
