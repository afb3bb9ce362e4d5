package datastore

import (
	"context"

	"wastewater-dashboard/internal/models"
)

// Table names used in logs, metrics and errors
const (
	TableInterpolated = "interpolated"
	TableRaw          = "raw"
	TablePositivity   = "positivity"
)

// Tables is the raw output of a Source before metadata is derived
type Tables struct {
	Interpolated []models.WastewaterRecord
	Raw          []models.WastewaterRecord
	Positivity   []models.PositivityRecord
}

// Source produces the three surveillance tables
type Source interface {
	Name() string
	Load(ctx context.Context) (*Tables, error)
}

// HealthChecker is implemented by sources backed by a live connection
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
