package handlers

import (
	"html/template"
	"net/http"
	"time"

	"wastewater-dashboard/internal/models"
	"wastewater-dashboard/internal/render"
	"wastewater-dashboard/pkg/logging"
)

type dashboardPage struct {
	Facilities []string
	MinDate    string
	MaxDate    string
	Background string
}

var dashboardTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>COVID Wastewater Dashboard</title>
    <script src="https://cdn.jsdelivr.net/npm/echarts@5.5.0/dist/echarts.min.js"></script>
    <style>
        body { margin: 0; font-family: sans-serif; background: {{.Background}}; color: #E6ECF5; }
        header { padding: 12px 24px; font-size: 20px; }
        .controls { display: flex; gap: 24px; padding: 0 24px 12px; flex-wrap: wrap; align-items: flex-start; }
        .controls label { display: block; font-size: 12px; margin-bottom: 4px; }
        select[multiple] { min-width: 260px; height: 120px; }
        .chart { height: 420px; margin: 0 24px 24px; }
        #warnings { color: #FFD166; padding: 0 24px; font-size: 12px; }
        a { color: #4ECDC4; }
    </style>
</head>
<body>
    <header>COVID Wastewater Dashboard</header>
    <div class="controls">
        <div>
            <label for="facility">Facilities</label>
            <select id="facility" multiple>
                {{range .Facilities}}<option value="{{.}}" selected>{{.}}</option>
                {{end}}
            </select>
        </div>
        <div>
            <label>Interpolation</label>
            <input type="radio" name="interpolation" value="On" checked> On
            <input type="radio" name="interpolation" value="Off"> Off
        </div>
        <div>
            <label for="start_date">Date range</label>
            <input type="date" id="start_date" min="{{.MinDate}}" max="{{.MaxDate}}" value="{{.MinDate}}">
            <input type="date" id="end_date" min="{{.MinDate}}" max="{{.MaxDate}}" value="{{.MaxDate}}">
        </div>
        <div>
            <label>Downloads</label>
            <a id="export" href="#">wastewater.xlsx</a>
        </div>
    </div>
    <div id="warnings"></div>
    <div id="wastewater" class="chart"></div>
    <div id="positivity" class="chart"></div>
    <script>
        const charts = {
            wastewater: echarts.init(document.getElementById("wastewater")),
            positivity: echarts.init(document.getElementById("positivity"))
        };

        function params(withFacilities) {
            const p = new URLSearchParams();
            p.set("start_date", document.getElementById("start_date").value);
            p.set("end_date", document.getElementById("end_date").value);
            if (withFacilities) {
                const selected = Array.from(document.getElementById("facility").selectedOptions);
                if (selected.length === 0) {
                    p.append("facility", "");
                }
                selected.forEach(o => p.append("facility", o.value));
                p.set("interpolation", document.querySelector("input[name=interpolation]:checked").value);
            }
            return p;
        }

        async function refresh() {
            const ww = params(true);
            const pos = params(false);
            document.getElementById("export").href = "/api/wastewater/export.xlsx?" + ww;

            const [a, b] = await Promise.all([
                fetch("/api/charts/wastewater?" + ww).then(r => r.json()),
                fetch("/api/charts/positivity?" + pos).then(r => r.json())
            ]);
            charts.wastewater.setOption(a.option, true);
            charts.positivity.setOption(b.option, true);
            document.getElementById("warnings").textContent = a.warnings.concat(b.warnings).join("; ");
        }

        document.querySelectorAll("select, input").forEach(el => el.addEventListener("change", refresh));
        window.addEventListener("resize", () => Object.values(charts).forEach(c => c.resize()));
        refresh();
    </script>
</body>
</html>`))

// Dashboard handles GET /
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	defer h.observe("/", time.Now())

	window := h.chartService.DefaultWindow()
	page := dashboardPage{
		Facilities: h.chartService.Facilities(),
		MinDate:    window.Start.Format(models.DateLayout),
		MaxDate:    window.End.Format(models.DateLayout),
		Background: render.GraphBackground,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTemplate.Execute(w, page); err != nil {
		h.logger.Error(ctx, "[API_DASHBOARD_ERROR] Failed to render dashboard", logging.Fields{}, err)
		h.metrics.RecordAPIError("template_error", "/")
		return
	}
	h.metrics.RecordAPIRequest("/", "GET", "200")
}
