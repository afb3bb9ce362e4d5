package datastore

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/lib/pq"

	"wastewater-dashboard/internal/models"
)

// Querier is the read-only slice of pkg/database.PostgresDB used here
type Querier interface {
	SelectContext(ctx context.Context, queryType string, dest interface{}, query string, args ...interface{}) error
	HealthCheck(ctx context.Context) error
}

// PostgresSource reads the three tables from Postgres. It never writes.
//
// Expected columns:
//
//	wastewater tables: wrrf_name text, sample_date date, per_capita_load double precision
//	positivity table:  date date, percent_positive double precision
type PostgresSource struct {
	db                Querier
	interpolatedTable string
	rawTable          string
	positivityTable   string
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// NewPostgresSource validates the table names and returns a source over db
func NewPostgresSource(db Querier, interpolatedTable, rawTable, positivityTable string) (*PostgresSource, error) {
	for _, name := range []string{interpolatedTable, rawTable, positivityTable} {
		if !identifierPattern.MatchString(name) {
			return nil, fmt.Errorf("invalid table name %q", name)
		}
	}
	return &PostgresSource{
		db:                db,
		interpolatedTable: interpolatedTable,
		rawTable:          rawTable,
		positivityTable:   positivityTable,
	}, nil
}

func (s *PostgresSource) Name() string {
	return "postgres"
}

// HealthCheck pings the underlying connection
func (s *PostgresSource) HealthCheck(ctx context.Context) error {
	return s.db.HealthCheck(ctx)
}

// Load selects every row of the three tables
func (s *PostgresSource) Load(ctx context.Context) (*Tables, error) {
	interpolated, err := s.selectWastewater(ctx, TableInterpolated, s.interpolatedTable)
	if err != nil {
		return nil, err
	}

	raw, err := s.selectWastewater(ctx, TableRaw, s.rawTable)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT date, percent_positive
		FROM %s
		ORDER BY date
	`, quoteTable(s.positivityTable))

	var positivity []models.PositivityRecord
	if err := s.db.SelectContext(ctx, "select_positivity", &positivity, query); err != nil {
		return nil, &models.DataLoadError{Source: TablePositivity, Path: s.positivityTable, Message: "select failed", Err: err}
	}
	for i := range positivity {
		positivity[i].Date = models.TruncateDate(positivity[i].Date)
	}

	return &Tables{
		Interpolated: interpolated,
		Raw:          raw,
		Positivity:   positivity,
	}, nil
}

func (s *PostgresSource) selectWastewater(ctx context.Context, source, table string) ([]models.WastewaterRecord, error) {
	query := fmt.Sprintf(`
		SELECT wrrf_name, sample_date, per_capita_load
		FROM %s
		ORDER BY sample_date, wrrf_name
	`, quoteTable(table))

	var records []models.WastewaterRecord
	if err := s.db.SelectContext(ctx, "select_"+source, &records, query); err != nil {
		return nil, &models.DataLoadError{Source: source, Path: table, Message: "select failed", Err: err}
	}

	for i := range records {
		if records[i].FacilityName == "" {
			return nil, &models.DataLoadError{Source: source, Path: table, Line: i + 1, Column: models.ColumnFacility, Message: "empty facility name"}
		}
		records[i].SampleDate = models.TruncateDate(records[i].SampleDate)
	}

	return records, nil
}

// quoteTable quotes each part of an optionally schema-qualified name
func quoteTable(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, ".")
}
