package services

import (
	"context"
	"time"

	"wastewater-dashboard/internal/datastore"
	"wastewater-dashboard/internal/models"
	"wastewater-dashboard/pkg/logging"
	"wastewater-dashboard/pkg/metrics"
)

// ChartService builds dashboard charts from an immutable Store
type ChartService struct {
	store   *datastore.Store
	logger  *logging.ContextLogger
	metrics *metrics.Collector
}

// NewChartService creates a new chart service
func NewChartService(store *datastore.Store, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *ChartService {
	return &ChartService{
		store:   store,
		logger:  logger.WithFields(logging.Fields{"component": "chart_service"}),
		metrics: metricsCollector,
	}
}

// Facilities returns the options of the facility selector
func (s *ChartService) Facilities() []string {
	return s.store.Facilities()
}

// HasFacility reports whether name is one of the selector options
func (s *ChartService) HasFacility(name string) bool {
	return s.store.HasFacility(name)
}

// DefaultWindow returns the bounds of the date-range control
func (s *ChartService) DefaultWindow() models.DateRange {
	return s.store.ValidDateRange()
}

// WastewaterChart builds the per-facility load chart
func (s *ChartService) WastewaterChart(ctx context.Context, q WastewaterQuery) ChartSpec {
	start := time.Now()
	spec := BuildWastewaterChart(s.store, q)
	s.observe(ctx, spec, time.Since(start), logging.Fields{
		"facilities":   len(q.Facilities),
		"interpolated": q.UseInterpolated,
	})
	return spec
}

// PositivityChart builds the positivity chart
func (s *ChartService) PositivityChart(ctx context.Context, window models.DateRange) ChartSpec {
	start := time.Now()
	spec := BuildPositivityChart(s.store, window)
	s.observe(ctx, spec, time.Since(start), logging.Fields{})
	return spec
}

// WastewaterRows returns the filtered rows behind the wastewater chart
func (s *ChartService) WastewaterRows(ctx context.Context, q WastewaterQuery) []models.WastewaterRecord {
	rows := FilterWastewater(s.store.Wastewater(q.UseInterpolated), q.Facilities, q.Window)

	s.logger.Debug(ctx, "[EXPORT_ROWS] Wastewater rows filtered", logging.Fields{
		"rows":         len(rows),
		"facilities":   len(q.Facilities),
		"interpolated": q.UseInterpolated,
		"window":       q.Window.String(),
	})
	return rows
}

func (s *ChartService) observe(ctx context.Context, spec ChartSpec, duration time.Duration, fields logging.Fields) {
	s.metrics.RecordChart(spec.ID, spec.RowCount, duration)

	fields["chart"] = spec.ID
	fields["rows"] = spec.RowCount
	fields["series"] = len(spec.Series)
	fields["window"] = spec.XRange.String()
	fields["duration_us"] = duration.Microseconds()
	s.logger.Debug(ctx, "[CHART_BUILD] Chart built", fields)
}
