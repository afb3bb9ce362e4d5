package services

import (
	"errors"
	"sort"
	"strings"
	"time"

	"wastewater-dashboard/internal/datastore"
	"wastewater-dashboard/internal/models"
)

// WastewaterQuery holds the current widget values for the wastewater chart
type WastewaterQuery struct {
	Facilities      []string
	UseInterpolated bool
	Window          models.DateRange
}

// BuildWastewaterChart filters the interpolated or raw table to the selected
// facilities and the inclusive window, and groups the rows by facility.
// An empty selection or an inverted window yields an empty chart.
func BuildWastewaterChart(store *datastore.Store, q WastewaterQuery) ChartSpec {
	rows := FilterWastewater(store.Wastewater(q.UseInterpolated), q.Facilities, q.Window)

	return ChartSpec{
		ID:         WastewaterChartID,
		Title:      "Wastewater load by facility",
		Kind:       ChartBar,
		XField:     models.ColumnSampleDate,
		YField:     models.ColumnPerCapitaLoad,
		GroupField: models.ColumnFacility,
		XRange:     q.Window,
		Series:     groupByFacility(rows, store.Facilities()),
		RowCount:   len(rows),
	}
}

// BuildPositivityChart filters the positivity table to the inclusive window
func BuildPositivityChart(store *datastore.Store, window models.DateRange) ChartSpec {
	rows := FilterPositivity(store.Positivity(), window)

	points := make([]Point, len(rows))
	for i, r := range rows {
		points[i] = Point{Date: r.Date, Value: r.PercentPositive}
	}
	sortPoints(points)

	series := []Series{}
	if len(points) > 0 {
		series = append(series, Series{Name: "Percent positive", Points: points})
	}

	return ChartSpec{
		ID:       PositivityChartID,
		Title:    "Positivity rate",
		Kind:     ChartLine,
		XField:   models.ColumnPositivityDate,
		YField:   models.ColumnPercentPositive,
		XRange:   window,
		Series:   series,
		RowCount: len(rows),
	}
}

// FilterWastewater keeps rows inside window whose facility is in facilities
func FilterWastewater(rows []models.WastewaterRecord, facilities []string, window models.DateRange) []models.WastewaterRecord {
	out := []models.WastewaterRecord{}
	if len(facilities) == 0 || !window.Valid() {
		return out
	}

	selected := make(map[string]struct{}, len(facilities))
	for _, f := range facilities {
		selected[f] = struct{}{}
	}

	for _, r := range rows {
		if _, ok := selected[r.FacilityName]; !ok {
			continue
		}
		if !window.Contains(r.SampleDate) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// FilterPositivity keeps rows inside window
func FilterPositivity(rows []models.PositivityRecord, window models.DateRange) []models.PositivityRecord {
	out := []models.PositivityRecord{}
	if !window.Valid() {
		return out
	}
	for _, r := range rows {
		if window.Contains(r.Date) {
			out = append(out, r)
		}
	}
	return out
}

// groupByFacility orders series by the store's facility order; facilities
// unknown to the store follow in order of first appearance
func groupByFacility(rows []models.WastewaterRecord, order []string) []Series {
	rank := make(map[string]int, len(order))
	for i, name := range order {
		rank[name] = i
	}

	index := make(map[string]int)
	series := []Series{}
	for _, r := range rows {
		i, ok := index[r.FacilityName]
		if !ok {
			i = len(series)
			index[r.FacilityName] = i
			series = append(series, Series{Name: r.FacilityName})
		}
		series[i].Points = append(series[i].Points, Point{Date: r.SampleDate, Value: r.PerCapitaLoad})
	}

	sort.SliceStable(series, func(a, b int) bool {
		ra, okA := rank[series[a].Name]
		rb, okB := rank[series[b].Name]
		switch {
		case okA && okB:
			return ra < rb
		default:
			return okA && !okB
		}
	})

	for i := range series {
		sortPoints(series[i].Points)
	}
	return series
}

func sortPoints(points []Point) {
	sort.SliceStable(points, func(a, b int) bool {
		return points[a].Date.Before(points[b].Date)
	})
}

// ParseInterpolation maps the toggle value. Empty means the default "On".
// Unknown values fall back to "On" with an error for the caller to report.
func ParseInterpolation(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	default:
		return true, &InterpolationError{Value: value}
	}
}

// InterpolationError reports a toggle value other than On or Off
type InterpolationError struct {
	Value string
}

func (e *InterpolationError) Error() string {
	return `invalid interpolation "` + e.Value + `", expected On or Off`
}

// ResolveWindow parses the UI start and end dates. A missing or unparsable
// bound is replaced with the matching bound of defaults; parse failures are
// returned so the caller can log and report them.
func ResolveWindow(defaults models.DateRange, start, end string) (models.DateRange, []*models.DateParseError) {
	window := defaults
	var failures []*models.DateParseError

	parse := func(field, value string, dst *time.Time) {
		if value == "" {
			return
		}
		t, err := models.ParseDate(field, value)
		var parseErr *models.DateParseError
		if errors.As(err, &parseErr) {
			failures = append(failures, parseErr)
			return
		}
		*dst = t
	}

	parse("start_date", start, &window.Start)
	parse("end_date", end, &window.End)

	return window, failures
}
