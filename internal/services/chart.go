package services

import (
	"encoding/json"
	"time"

	"wastewater-dashboard/internal/models"
)

// ChartKind selects how the series are drawn
type ChartKind string

const (
	ChartBar  ChartKind = "bar"
	ChartLine ChartKind = "line"
)

// Chart identifiers, also used as metric labels and URL segments
const (
	WastewaterChartID = "wastewater"
	PositivityChartID = "positivity"
)

// Point is one (date, value) pair. A nil Value is a gap in the series.
type Point struct {
	Date  time.Time
	Value *float64
}

type pointJSON struct {
	X string   `json:"x"`
	Y *float64 `json:"y"`
}

// MarshalJSON renders the date in models.DateLayout
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(pointJSON{X: p.Date.Format(models.DateLayout), Y: p.Value})
}

// Series is one colored group of points
type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// ChartSpec is a renderer-independent chart description
type ChartSpec struct {
	ID         string           `json:"id"`
	Title      string           `json:"title"`
	Kind       ChartKind        `json:"kind"`
	XField     string           `json:"x_field"`
	YField     string           `json:"y_field"`
	GroupField string           `json:"group_field,omitempty"`
	XRange     models.DateRange `json:"x_range"`
	Series     []Series         `json:"series"`
	RowCount   int              `json:"row_count"`
}

// Empty reports whether no row survived the filters
func (c ChartSpec) Empty() bool {
	return c.RowCount == 0
}
