package datastore

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wastewater-dashboard/internal/config"
	"wastewater-dashboard/internal/models"
	"wastewater-dashboard/pkg/logging"
	"wastewater-dashboard/pkg/metrics"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewNopLogger()
	collector := metrics.NewCollector("test", prometheus.NewRegistry())

	cfg := &config.Config{Data: config.DataConfig{
		Source:           config.SourceCSV,
		InterpolatedPath: "i.csv",
		RawPath:          "r.csv",
		PositivityPath:   "p.csv",
	}}
	src, closeFn, err := Open(ctx, cfg, logger, collector)
	require.NoError(t, err)
	require.NotNil(t, closeFn)
	assert.NoError(t, closeFn())
	assert.IsType(t, &CSVSource{}, src)
	_, isHealth := src.(HealthChecker)
	assert.False(t, isHealth)

	cfg.Data.Source = "parquet"
	_, closeFn, err = Open(ctx, cfg, logger, collector)
	assert.Error(t, err)
	assert.NotNil(t, closeFn)
}

func TestLoadOrClose(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewNopLogger()
	collector := metrics.NewCollector("test", prometheus.NewRegistry())

	closed := 0
	closeFn := func() error { closed++; return nil }

	_, err := loadOrClose(ctx, failingSource{err: errors.New("connection reset")}, closeFn, logger, collector)
	require.Error(t, err)
	assert.Equal(t, 1, closed)

	store, err := loadOrClose(ctx, writeFixture(t, validFixture()), closeFn, logger, collector)
	require.NoError(t, err)
	assert.NotNil(t, store)
	assert.Equal(t, 1, closed)
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewNopLogger()
	collector := metrics.NewCollector("test", prometheus.NewRegistry())

	src := writeFixture(t, validFixture())
	cfg := &config.Config{Data: config.DataConfig{
		Source:           config.SourceCSV,
		InterpolatedPath: src.InterpolatedPath,
		RawPath:          src.RawPath,
		PositivityPath:   src.PositivityPath,
	}}

	store, opened, closeFn, err := OpenStore(ctx, cfg, logger, collector)
	require.NoError(t, err)
	assert.Equal(t, "csv", opened.Name())
	assert.Equal(t, []string{"Plant A", "Plant B"}, store.Facilities())
	assert.NoError(t, closeFn())

	cfg.Data.PositivityPath = src.PositivityPath + ".missing"
	_, _, closeFn, err = OpenStore(ctx, cfg, logger, collector)
	require.Error(t, err)
	require.NotNil(t, closeFn)
	var loadErr *models.DataLoadError
	assert.ErrorAs(t, err, &loadErr)
}
