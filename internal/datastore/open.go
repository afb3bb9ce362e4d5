package datastore

import (
	"context"
	"fmt"

	"wastewater-dashboard/internal/config"
	"wastewater-dashboard/pkg/database"
	"wastewater-dashboard/pkg/logging"
	"wastewater-dashboard/pkg/metrics"
)

// Open builds the Source selected by cfg.Data.Source. The returned close
// function releases any connection and is never nil.
func Open(ctx context.Context, cfg *config.Config, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) (Source, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Data.Source {
	case config.SourceCSV:
		return NewCSVSource(cfg.Data.InterpolatedPath, cfg.Data.RawPath, cfg.Data.PositivityPath), noop, nil

	case config.SourcePostgres:
		db, err := database.NewPostgresDB(ctx, cfg.Database.DatabaseSettings(), logger, metricsCollector)
		if err != nil {
			return nil, noop, err
		}
		src, err := NewPostgresSource(db, cfg.Data.InterpolatedTable, cfg.Data.RawTable, cfg.Data.PositivityTable)
		if err != nil {
			db.Close()
			return nil, noop, err
		}
		return src, db.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown data source %q", cfg.Data.Source)
	}
}

// OpenStore opens the configured source and loads it. On load failure the
// source is closed before returning, so callers may exit immediately.
func OpenStore(ctx context.Context, cfg *config.Config, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) (*Store, Source, func() error, error) {
	src, closeSource, err := Open(ctx, cfg, logger, metricsCollector)
	if err != nil {
		return nil, nil, closeSource, err
	}
	store, err := loadOrClose(ctx, src, closeSource, logger, metricsCollector)
	if err != nil {
		return nil, src, func() error { return nil }, err
	}
	return store, src, closeSource, nil
}

func loadOrClose(ctx context.Context, src Source, closeSource func() error, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) (*Store, error) {
	store, err := Load(ctx, src, logger, metricsCollector)
	if err != nil {
		closeSource()
		return nil, err
	}
	return store, nil
}
