package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"wastewater-dashboard/internal/datastore"
	"wastewater-dashboard/internal/models"
	"wastewater-dashboard/internal/render"
	"wastewater-dashboard/internal/services"
	"wastewater-dashboard/pkg/logging"
	"wastewater-dashboard/pkg/metrics"
)

// PNG size limits accepted from the width and height parameters
const (
	minImageSize = 200
	maxImageSize = 4000
)

// DashboardHandler handles dashboard API endpoints
type DashboardHandler struct {
	chartService *services.ChartService
	health       datastore.HealthChecker
	logger       *logging.StructuredLogger
	metrics      *metrics.Collector
}

// NewDashboardHandler creates a new dashboard handler. health may be nil
// when the data source has no live connection.
func NewDashboardHandler(
	chartService *services.ChartService,
	health datastore.HealthChecker,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *DashboardHandler {
	return &DashboardHandler{
		chartService: chartService,
		health:       health,
		logger:       logger,
		metrics:      metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// ChartResponse carries a chart description, its ECharts option and any
// input warnings
type ChartResponse struct {
	Chart    services.ChartSpec     `json:"chart"`
	Option   map[string]interface{} `json:"option"`
	Warnings []string               `json:"warnings"`
}

// FacilitiesResponse lists the facility selector options
type FacilitiesResponse struct {
	Facilities []string `json:"facilities"`
}

// GetFacilities handles GET /api/facilities
func (h *DashboardHandler) GetFacilities(w http.ResponseWriter, r *http.Request) {
	defer h.observe("/api/facilities", time.Now())

	h.metrics.RecordAPIRequest("/api/facilities", "GET", "200")
	h.sendJSON(w, FacilitiesResponse{Facilities: h.chartService.Facilities()}, http.StatusOK)
}

// GetDateRange handles GET /api/date-range
func (h *DashboardHandler) GetDateRange(w http.ResponseWriter, r *http.Request) {
	defer h.observe("/api/date-range", time.Now())

	h.metrics.RecordAPIRequest("/api/date-range", "GET", "200")
	h.sendJSON(w, h.chartService.DefaultWindow(), http.StatusOK)
}

// GetWastewaterChart handles GET /api/charts/wastewater
func (h *DashboardHandler) GetWastewaterChart(w http.ResponseWriter, r *http.Request) {
	defer h.observe("/api/charts/wastewater", time.Now())

	q, warnings := h.parseWastewaterQuery(r)
	spec := h.chartService.WastewaterChart(r.Context(), q)

	h.metrics.RecordAPIRequest("/api/charts/wastewater", "GET", "200")
	h.sendJSON(w, newChartResponse(spec, warnings), http.StatusOK)
}

// GetPositivityChart handles GET /api/charts/positivity
func (h *DashboardHandler) GetPositivityChart(w http.ResponseWriter, r *http.Request) {
	defer h.observe("/api/charts/positivity", time.Now())

	window, warnings := h.parseWindow(r)
	spec := h.chartService.PositivityChart(r.Context(), window)

	h.metrics.RecordAPIRequest("/api/charts/positivity", "GET", "200")
	h.sendJSON(w, newChartResponse(spec, warnings), http.StatusOK)
}

// GetWastewaterPNG handles GET /api/charts/wastewater.png
func (h *DashboardHandler) GetWastewaterPNG(w http.ResponseWriter, r *http.Request) {
	defer h.observe("/api/charts/wastewater.png", time.Now())

	q, _ := h.parseWastewaterQuery(r)
	h.sendPNG(w, r, "/api/charts/wastewater.png", h.chartService.WastewaterChart(r.Context(), q))
}

// GetPositivityPNG handles GET /api/charts/positivity.png
func (h *DashboardHandler) GetPositivityPNG(w http.ResponseWriter, r *http.Request) {
	defer h.observe("/api/charts/positivity.png", time.Now())

	window, _ := h.parseWindow(r)
	h.sendPNG(w, r, "/api/charts/positivity.png", h.chartService.PositivityChart(r.Context(), window))
}

// ExportWastewater handles GET /api/wastewater/export.xlsx
func (h *DashboardHandler) ExportWastewater(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	defer h.observe("/api/wastewater/export.xlsx", time.Now())

	q, _ := h.parseWastewaterQuery(r)
	rows := h.chartService.WastewaterRows(ctx, q)

	data, err := render.WastewaterXLSX(rows, q)
	if err != nil {
		h.logger.Error(ctx, "[API_EXPORT_ERROR] Failed to build workbook", logging.Fields{
			"rows": len(rows),
		}, err)
		h.metrics.RecordAPIError("export_error", "/api/wastewater/export.xlsx")
		h.sendError(w, r, "failed to build workbook", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest("/api/wastewater/export.xlsx", "GET", "200")
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="wastewater.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// HealthCheck handles GET /health
func (h *DashboardHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	code := http.StatusOK

	if h.health != nil {
		if err := h.health.HealthCheck(ctx); err != nil {
			h.logger.Warn(ctx, "[HEALTH_CHECK_FAILED] Data source unhealthy", logging.Fields{
				"error": err.Error(),
			})
			status["status"] = "unhealthy"
			status["data_source"] = err.Error()
			code = http.StatusServiceUnavailable
		} else {
			status["data_source"] = "ok"
		}
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, code)
}

func newChartResponse(spec services.ChartSpec, warnings []string) ChartResponse {
	if warnings == nil {
		warnings = []string{}
	}
	return ChartResponse{
		Chart:    spec,
		Option:   render.EChartsOption(spec),
		Warnings: warnings,
	}
}

// parseWastewaterQuery reads the facility, interpolation and date inputs.
// A missing facility parameter selects every facility; a present but empty
// one selects none. Unknown names are kept (they match no rows) and reported.
func (h *DashboardHandler) parseWastewaterQuery(r *http.Request) (services.WastewaterQuery, []string) {
	values := r.URL.Query()
	window, warnings := h.parseWindow(r)

	var facilities []string
	if raw, ok := values["facility"]; ok {
		facilities = make([]string, 0, len(raw))
		for _, f := range raw {
			if f == "" {
				continue
			}
			if !h.chartService.HasFacility(f) {
				h.logger.Warn(r.Context(), "[INPUT_UNKNOWN_FACILITY] Facility not in the data", logging.Fields{
					"facility": f,
				})
				warnings = append(warnings, fmt.Sprintf("unknown facility %q", f))
			}
			facilities = append(facilities, f)
		}
	} else {
		facilities = h.chartService.Facilities()
	}

	useInterpolated, err := services.ParseInterpolation(values.Get("interpolation"))
	if err != nil {
		h.logger.Warn(r.Context(), "[INPUT_FALLBACK] Unknown interpolation toggle value", logging.Fields{
			"value": values.Get("interpolation"),
		})
		warnings = append(warnings, err.Error())
	}

	return services.WastewaterQuery{
		Facilities:      facilities,
		UseInterpolated: useInterpolated,
		Window:          window,
	}, warnings
}

// parseWindow resolves start_date and end_date against the valid range
func (h *DashboardHandler) parseWindow(r *http.Request) (models.DateRange, []string) {
	values := r.URL.Query()
	window, failures := services.ResolveWindow(h.chartService.DefaultWindow(), values.Get("start_date"), values.Get("end_date"))

	var warnings []string
	for _, f := range failures {
		h.metrics.RecordDateFallback(f.Field)
		h.logger.Warn(r.Context(), "[DATE_FALLBACK] Unparsable date, using default bound", logging.Fields{
			"field": f.Field,
			"value": f.Value,
		})
		warnings = append(warnings, f.Error())
	}
	return window, warnings
}

func (h *DashboardHandler) sendPNG(w http.ResponseWriter, r *http.Request, endpoint string, spec services.ChartSpec) {
	width := imageSize(r.URL.Query().Get("width"), render.DefaultWidth)
	height := imageSize(r.URL.Query().Get("height"), render.DefaultHeight)

	var buf bytes.Buffer
	if err := render.PNG(&buf, spec, width, height); err != nil {
		if errors.Is(err, render.ErrEmptyChart) {
			h.metrics.RecordAPIRequest(endpoint, "GET", "204")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.logger.Error(r.Context(), "[API_RENDER_ERROR] Failed to render chart", logging.Fields{
			"chart": spec.ID,
		}, err)
		h.metrics.RecordAPIError("render_error", endpoint)
		h.sendError(w, r, "failed to render chart", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest(endpoint, "GET", "200")
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func imageSize(value string, fallback int) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	if n < minImageSize {
		return minImageSize
	}
	if n > maxImageSize {
		return maxImageSize
	}
	return n
}

func (h *DashboardHandler) observe(endpoint string, start time.Time) {
	h.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// sendJSON sends a JSON response
func (h *DashboardHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *DashboardHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all dashboard routes
func (h *DashboardHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/", h.Dashboard).Methods("GET")
	router.HandleFunc("/api/facilities", h.GetFacilities).Methods("GET")
	router.HandleFunc("/api/date-range", h.GetDateRange).Methods("GET")
	router.HandleFunc("/api/charts/wastewater", h.GetWastewaterChart).Methods("GET")
	router.HandleFunc("/api/charts/positivity", h.GetPositivityChart).Methods("GET")
	router.HandleFunc("/api/charts/wastewater.png", h.GetWastewaterPNG).Methods("GET")
	router.HandleFunc("/api/charts/positivity.png", h.GetPositivityPNG).Methods("GET")
	router.HandleFunc("/api/wastewater/export.xlsx", h.ExportWastewater).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}
