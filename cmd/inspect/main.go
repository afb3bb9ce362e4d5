package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"wastewater-dashboard/internal/config"
	"wastewater-dashboard/internal/datastore"
	"wastewater-dashboard/pkg/logging"
	"wastewater-dashboard/pkg/metrics"
)

func main() {
	ctx := context.Background()

	// Load configuration first so flags can override it
	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	source := flag.String("source", cfg.Data.Source, "Data source: csv or postgres")
	interpolated := flag.String("interpolated", cfg.Data.InterpolatedPath, "Interpolated wastewater CSV")
	raw := flag.String("raw", cfg.Data.RawPath, "Raw wastewater CSV")
	positivity := flag.String("positivity", cfg.Data.PositivityPath, "Test positivity CSV")
	asJSON := flag.Bool("json", false, "Print the summary as JSON")
	verbose := flag.Bool("v", false, "Log at debug level")
	flag.Parse()

	cfg.Data.Source = *source
	cfg.Data.InterpolatedPath = *interpolated
	cfg.Data.RawPath = *raw
	cfg.Data.PositivityPath = *positivity

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logLevel, _ := logging.ParseLevel(cfg.Logging.Level)
	if *verbose {
		logLevel = logging.DebugLevel
	}
	logger := logging.NewStructuredLogger("wastewater-inspect", "1.0.0", logLevel)
	logger.SetOutput(os.Stderr)

	metricsCollector := metrics.NewCollector("wastewater_inspect", prometheus.NewRegistry())

	start := time.Now()
	store, src, closeSource, err := datastore.OpenStore(ctx, cfg, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[INSPECT_ERROR] Load failed", logging.Fields{
			"data_source": cfg.Data.Source,
		}, err)
	}
	defer closeSource()
	duration := time.Since(start)

	summary := store.Summary()

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode summary: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("DATA LOAD SUMMARY")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Source:             %s\n", src.Name())
	fmt.Printf("Interpolated Rows:  %d\n", summary.InterpolatedRows)
	fmt.Printf("Raw Rows:           %d\n", summary.RawRows)
	fmt.Printf("Positivity Rows:    %d\n", summary.PositivityRows)
	fmt.Printf("Wastewater Span:    %s (%d days)\n", summary.WastewaterSpan, summary.WastewaterSpan.Days())
	fmt.Printf("Positivity Span:    %s (%d days)\n", summary.PositivitySpan, summary.PositivitySpan.Days())
	fmt.Printf("Valid Date Range:   %s (%d days)\n", summary.ValidDateRange, summary.ValidDateRange.Days())
	fmt.Printf("Duration:           %v\n", duration)

	fmt.Printf("\nFacilities (%d):\n", len(summary.Facilities))
	for _, f := range summary.Facilities {
		fmt.Printf("  - %s\n", f)
	}
}
