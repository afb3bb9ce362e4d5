package render

import (
	"wastewater-dashboard/internal/models"
	"wastewater-dashboard/internal/services"
)

// Dashboard colors
const (
	GraphBackground = "#082255"
	GraphLine       = "#007ACE"
	GraphText       = "#E6ECF5"
)

// Palette is the series color cycle shared by the HTML and PNG renderers
var Palette = []string{
	"#007ACE", "#FF6B35", "#4ECDC4", "#FFD166", "#EF476F",
	"#06D6A0", "#A78BFA", "#F4A261", "#90BE6D", "#F15BB5",
}

// EChartsOption converts a chart description into an ECharts option object
func EChartsOption(spec services.ChartSpec) map[string]interface{} {
	seriesType := "bar"
	if spec.Kind == services.ChartLine {
		seriesType = "line"
	}

	names := make([]string, 0, len(spec.Series))
	series := make([]interface{}, 0, len(spec.Series))
	for _, s := range spec.Series {
		data := make([]interface{}, len(s.Points))
		for i, p := range s.Points {
			var y interface{}
			if p.Value != nil {
				y = *p.Value
			}
			data[i] = []interface{}{p.Date.Format(models.DateLayout), y}
		}

		entry := map[string]interface{}{
			"name": s.Name,
			"type": seriesType,
			"data": data,
		}
		if seriesType == "line" {
			entry["showSymbol"] = false
			entry["connectNulls"] = false
			entry["lineStyle"] = map[string]interface{}{"width": 2, "color": GraphLine}
			entry["itemStyle"] = map[string]interface{}{"color": GraphLine}
		}

		names = append(names, s.Name)
		series = append(series, entry)
	}

	title := map[string]interface{}{
		"text":      spec.Title,
		"left":      "center",
		"textStyle": map[string]interface{}{"color": GraphText, "fontSize": 16},
	}
	if spec.Empty() {
		title["subtext"] = "No data for the current selection"
	}

	axisLabel := map[string]interface{}{"color": GraphText}

	xAxis := map[string]interface{}{
		"type":      "time",
		"name":      spec.XField,
		"axisLabel": axisLabel,
	}
	if spec.XRange.Valid() {
		xAxis["min"] = spec.XRange.Start.Format(models.DateLayout)
		xAxis["max"] = spec.XRange.End.Format(models.DateLayout)
	}

	return map[string]interface{}{
		"backgroundColor": GraphBackground,
		"color":           Palette,
		"title":           title,
		"tooltip":         map[string]interface{}{"trigger": "axis"},
		"legend": map[string]interface{}{
			"data":      names,
			"bottom":    0,
			"type":      "scroll",
			"textStyle": map[string]interface{}{"color": GraphText},
		},
		"grid":  map[string]interface{}{"left": "6%", "right": "4%", "bottom": "14%", "containLabel": true},
		"xAxis": xAxis,
		"yAxis": map[string]interface{}{
			"type":      "value",
			"name":      spec.YField,
			"axisLabel": axisLabel,
			"splitLine": map[string]interface{}{"lineStyle": map[string]interface{}{"color": "#1B3A6B"}},
		},
		"series": series,
	}
}
