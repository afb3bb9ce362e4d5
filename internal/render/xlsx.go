package render

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"wastewater-dashboard/internal/models"
	"wastewater-dashboard/internal/services"
)

// Sheet names in the wastewater workbook
const (
	DataSheet  = "Wastewater"
	QuerySheet = "Query"
)

// WastewaterXLSX writes the filtered rows plus the query that produced them
func WastewaterXLSX(rows []models.WastewaterRecord, q services.WastewaterQuery) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", DataSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	header := []interface{}{models.ColumnFacility, models.ColumnSampleDate, models.ColumnPerCapitaLoad}
	if err := f.SetSheetRow(DataSheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	if err := f.SetCellStyle(DataSheet, "A1", "C1", headerStyle); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	for i, r := range rows {
		var load interface{}
		if r.PerCapitaLoad != nil {
			load = *r.PerCapitaLoad
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{r.FacilityName, r.SampleDate.Format(models.DateLayout), load}
		if err := f.SetSheetRow(DataSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	f.SetColWidth(DataSheet, "A", "A", 28)
	f.SetColWidth(DataSheet, "B", "B", 14)
	f.SetColWidth(DataSheet, "C", "C", 48)

	if _, err := f.NewSheet(QuerySheet); err != nil {
		return nil, fmt.Errorf("failed to create query sheet: %w", err)
	}

	interpolation := "Off"
	if q.UseInterpolated {
		interpolation = "On"
	}
	meta := [][]interface{}{
		{"facilities", strings.Join(q.Facilities, ", ")},
		{"interpolation", interpolation},
		{"start_date", q.Window.Start.Format(models.DateLayout)},
		{"end_date", q.Window.End.Format(models.DateLayout)},
		{"rows", len(rows)},
	}
	for i, m := range meta {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(QuerySheet, cell, &m); err != nil {
			return nil, fmt.Errorf("failed to write query sheet: %w", err)
		}
	}
	f.SetColWidth(QuerySheet, "A", "A", 16)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
