package render

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"wastewater-dashboard/internal/models"
	"wastewater-dashboard/internal/services"
)

// ErrEmptyChart is returned when there is nothing to draw
var ErrEmptyChart = errors.New("chart has no points to render")

// Default PNG size
const (
	DefaultWidth  = 1024
	DefaultHeight = 480
)

// PNG draws spec as a time series image, as bars for ChartBar and lines
// otherwise. Points with no value are skipped.
func PNG(w io.Writer, spec services.ChartSpec, width, height int) error {
	graph, err := newGraph(spec, width, height)
	if err != nil {
		return err
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("failed to render %s chart: %w", spec.ID, err)
	}
	return nil
}

func newGraph(spec services.ChartSpec, width, height int) (chart.Chart, error) {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}

	var (
		series     []chart.Series
		minT, maxT time.Time
		minY, maxY float64
	)

	for i, s := range spec.Series {
		ts := chart.TimeSeries{Name: s.Name}
		for _, p := range s.Points {
			if p.Value == nil {
				continue
			}
			ts.XValues = append(ts.XValues, p.Date)
			ts.YValues = append(ts.YValues, *p.Value)

			if minT.IsZero() || p.Date.Before(minT) {
				minT = p.Date
			}
			if maxT.IsZero() || p.Date.After(maxT) {
				maxT = p.Date
			}
			minY = math.Min(minY, *p.Value)
			maxY = math.Max(maxY, *p.Value)
		}
		if len(ts.XValues) == 0 {
			continue
		}

		color := drawing.ColorFromHex(Palette[i%len(Palette)])
		if spec.Kind == services.ChartBar {
			series = append(series, chart.HistogramSeries{
				Name: s.Name,
				Style: chart.Style{
					StrokeColor: color,
					StrokeWidth: 1,
					FillColor:   color.WithAlpha(200),
				},
				InnerSeries: ts,
			})
			continue
		}

		ts.Style = chart.Style{
			StrokeColor: color,
			StrokeWidth: 2,
			DotColor:    color,
			DotWidth:    3,
		}
		series = append(series, ts)
	}

	if len(series) == 0 {
		return chart.Chart{}, ErrEmptyChart
	}

	// go-chart rejects zero-width ranges
	if !minT.Before(maxT) {
		minT = minT.AddDate(0, 0, -1)
		maxT = maxT.AddDate(0, 0, 1)
	}
	lowY, highY := valueRange(minY, maxY)

	textColor := drawing.ColorFromHex(GraphText)
	background := drawing.ColorFromHex(GraphBackground)

	graph := chart.Chart{
		Title:      spec.Title,
		TitleStyle: chart.Style{FontSize: 14, FontColor: textColor},
		Width:      width,
		Height:     height,
		Background: chart.Style{
			FillColor: background,
			Padding:   chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		Canvas: chart.Style{FillColor: background},
		XAxis: chart.XAxis{
			Name:      spec.XField,
			NameStyle: chart.Style{FontSize: 10, FontColor: textColor},
			Style:     chart.Style{FontSize: 9, FontColor: textColor, StrokeColor: textColor},
			Range: &chart.ContinuousRange{
				Min: chart.TimeToFloat64(minT),
				Max: chart.TimeToFloat64(maxT),
			},
			ValueFormatter: formatDateValue,
		},
		YAxis: chart.YAxis{
			Name:      spec.YField,
			NameStyle: chart.Style{FontSize: 10, FontColor: textColor},
			Style:     chart.Style{FontSize: 9, FontColor: textColor, StrokeColor: textColor},
			Range:     &chart.ContinuousRange{Min: lowY, Max: highY},
		},
		Series: series,
	}
	return graph, nil
}

// valueRange pads [min, max] by a tenth of its span. Both inputs already
// include zero so bars keep their baseline.
func valueRange(minY, maxY float64) (float64, float64) {
	span := maxY - minY
	if span == 0 {
		span = 1
	}
	pad := span * 0.1
	if minY < 0 {
		minY -= pad
	}
	return minY, maxY + pad
}

func formatDateValue(v interface{}) string {
	switch tv := v.(type) {
	case time.Time:
		return tv.Format(models.DateLayout)
	case float64:
		return time.Unix(0, int64(tv)).UTC().Format(models.DateLayout)
	default:
		return ""
	}
}
