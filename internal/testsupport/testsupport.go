// Package testsupport builds deterministic row fixtures for scenario
// tests. Grounded on the teacher's excel.ExcelAdapter.Connect, which reads
// a workbook's sheet into []domain.Row via file.GetRows — used here in
// reverse to WRITE a known grid into a workbook and read it back, giving
// tests a round-trip fixture exercised through excelize rather than a
// hand-rolled in-memory literal. This package is test-only: excelize never
// appears on the production import/export path (spec §4.5 fixes the
// supported formats to TableShape/RowMappingList).
package testsupport

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/kasuganosora/datagrid/internal/model"
)

// GenerateRows deterministically builds n rows with columns {id, name,
// score, active}, suitable for sort/filter/search/validation fixtures.
func GenerateRows(n int) []model.Row {
	rows := make([]model.Row, n)
	for i := 0; i < n; i++ {
		rows[i] = model.Row{
			"id":     i + 1,
			"name":   fmt.Sprintf("row-%03d", i+1),
			"score":  float64((i * 7) % 100),
			"active": i%3 != 0,
		}
	}
	return rows
}

// RoundTripThroughWorkbook writes rows to an in-memory workbook via
// excelize, then reads the sheet back into row mappings keyed by the
// header row, giving a fixture that has actually passed through a real
// spreadsheet encoder instead of being asserted by construction.
func RoundTripThroughWorkbook(headers []string, rows []model.Row) ([]model.Row, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for col, h := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}
	for r, row := range rows {
		for col, h := range headers {
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, row[h]); err != nil {
				return nil, err
			}
		}
	}

	raw, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}

	fileHeaders := raw[0]
	out := make([]model.Row, 0, len(raw)-1)
	for _, record := range raw[1:] {
		row := make(model.Row, len(fileHeaders))
		for i, h := range fileHeaders {
			if i < len(record) {
				row[h] = coerce(record[i])
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// coerce mirrors the teacher's CSV/Excel type-inference-on-read shape at
// test scale: cells round-trip as strings, so numeric-looking cells are
// parsed back to float64 for fixtures that feed numeric sort/filter tests.
func coerce(cell string) interface{} {
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(cell); err == nil {
		return b
	}
	return cell
}
