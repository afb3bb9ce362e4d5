package datastore

import (
	"context"
	"fmt"
	"slices"
	"time"

	"wastewater-dashboard/internal/models"
	"wastewater-dashboard/pkg/logging"
	"wastewater-dashboard/pkg/metrics"
)

// Store owns the loaded tables and the metadata derived from them.
// It is immutable after New returns and safe for concurrent readers.
type Store struct {
	interpolated []models.WastewaterRecord
	raw          []models.WastewaterRecord
	positivity   []models.PositivityRecord

	facilities     []string
	facilitySet    map[string]struct{}
	wastewaterSpan models.DateRange
	positivitySpan models.DateRange
	validRange     models.DateRange
}

// Summary describes the loaded data for logs and the inspect command
type Summary struct {
	InterpolatedRows int              `json:"interpolated_rows"`
	RawRows          int              `json:"raw_rows"`
	PositivityRows   int              `json:"positivity_rows"`
	Facilities       []string         `json:"facilities"`
	WastewaterSpan   models.DateRange `json:"wastewater_span"`
	PositivitySpan   models.DateRange `json:"positivity_span"`
	ValidDateRange   models.DateRange `json:"valid_date_range"`
}

// New derives facilities and the valid date range from tables.
// The interpolated and positivity tables must be non-empty and their date
// spans must overlap; otherwise a *models.DataLoadError is returned
// (wrapping models.ErrNoOverlap for disjoint spans).
func New(tables Tables) (*Store, error) {
	if len(tables.Interpolated) == 0 {
		return nil, &models.DataLoadError{Source: TableInterpolated, Message: "table has no rows"}
	}
	if len(tables.Positivity) == 0 {
		return nil, &models.DataLoadError{Source: TablePositivity, Message: "table has no rows"}
	}

	s := &Store{
		interpolated: slices.Clone(tables.Interpolated),
		raw:          slices.Clone(tables.Raw),
		positivity:   slices.Clone(tables.Positivity),
		facilitySet:  make(map[string]struct{}),
	}

	for _, rec := range s.interpolated {
		if _, seen := s.facilitySet[rec.FacilityName]; seen {
			continue
		}
		s.facilitySet[rec.FacilityName] = struct{}{}
		s.facilities = append(s.facilities, rec.FacilityName)
	}

	s.wastewaterSpan = spanOf(len(s.interpolated), func(i int) time.Time { return s.interpolated[i].SampleDate })
	s.positivitySpan = spanOf(len(s.positivity), func(i int) time.Time { return s.positivity[i].Date })
	s.validRange = s.wastewaterSpan.Intersect(s.positivitySpan)

	if !s.validRange.Valid() {
		return nil, &models.DataLoadError{
			Source: "date range",
			Message: fmt.Sprintf("wastewater %s and positivity %s",
				s.wastewaterSpan, s.positivitySpan),
			Err: models.ErrNoOverlap,
		}
	}

	return s, nil
}

func spanOf(n int, at func(int) time.Time) models.DateRange {
	r := models.DateRange{Start: at(0), End: at(0)}
	for i := 1; i < n; i++ {
		t := at(i)
		if t.Before(r.Start) {
			r.Start = t
		}
		if t.After(r.End) {
			r.End = t
		}
	}
	return r
}

// Load reads tables from src and builds a Store, logging and recording
// row counts on success
func Load(ctx context.Context, src Source, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) (*Store, error) {
	log := logger.WithFields(logging.Fields{
		"component": "datastore",
		"source":    src.Name(),
	})
	log.Info(ctx, "[DATA_LOAD_START] Loading source tables", logging.Fields{})

	timer := metricsCollector.NewTimer(metricsCollector.DataLoadDuration.WithLabelValues(src.Name()))

	store, err := loadFrom(ctx, src)
	if err != nil {
		metricsCollector.RecordDataLoadError(src.Name())
		log.Error(ctx, "[DATA_LOAD_ERROR] Failed to load source tables", logging.Fields{}, err)
		return nil, err
	}

	duration := timer.ObserveDuration()
	summary := store.Summary()

	metricsCollector.RecordDatasetRows(TableInterpolated, summary.InterpolatedRows)
	metricsCollector.RecordDatasetRows(TableRaw, summary.RawRows)
	metricsCollector.RecordDatasetRows(TablePositivity, summary.PositivityRows)

	log.Info(ctx, "[DATA_LOAD_COMPLETE] Source tables loaded", logging.Fields{
		"interpolated_rows": summary.InterpolatedRows,
		"raw_rows":          summary.RawRows,
		"positivity_rows":   summary.PositivityRows,
		"facilities":        len(summary.Facilities),
		"valid_date_range":  summary.ValidDateRange.String(),
		"duration_ms":       duration.Milliseconds(),
	})

	return store, nil
}

func loadFrom(ctx context.Context, src Source) (*Store, error) {
	tables, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	return New(*tables)
}

// LoadCSV loads the three files directly, without logging or metrics
func LoadCSV(ctx context.Context, interpolatedPath, rawPath, positivityPath string) (*Store, error) {
	return loadFrom(ctx, NewCSVSource(interpolatedPath, rawPath, positivityPath))
}

// Facilities returns the distinct facility names of the interpolated table
// in order of first appearance
func (s *Store) Facilities() []string {
	return slices.Clone(s.facilities)
}

// HasFacility reports whether name appears in the interpolated table
func (s *Store) HasFacility(name string) bool {
	_, ok := s.facilitySet[name]
	return ok
}

// ValidDateRange is the intersection of the wastewater and positivity spans
func (s *Store) ValidDateRange() models.DateRange {
	return s.validRange
}

// Wastewater returns a copy of the interpolated or raw table
func (s *Store) Wastewater(useInterpolated bool) []models.WastewaterRecord {
	if useInterpolated {
		return slices.Clone(s.interpolated)
	}
	return slices.Clone(s.raw)
}

// Positivity returns a copy of the positivity table
func (s *Store) Positivity() []models.PositivityRecord {
	return slices.Clone(s.positivity)
}

// Summary reports row counts and spans
func (s *Store) Summary() Summary {
	return Summary{
		InterpolatedRows: len(s.interpolated),
		RawRows:          len(s.raw),
		PositivityRows:   len(s.positivity),
		Facilities:       s.Facilities(),
		WastewaterSpan:   s.wastewaterSpan,
		PositivitySpan:   s.positivitySpan,
		ValidDateRange:   s.validRange,
	}
}
