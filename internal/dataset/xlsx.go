package dataset

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"avail-risk/internal/riskerr"
)

// Columns is the fixed long-format header expected in workbooks. Format
// detection and wide-to-long reshaping are the ingestion collaborator's job.
var Columns = []string{"entity_id", "year", "month", "turbine_count", "availability"}

// Load dispatches on the file extension: .jsonl/.json are read as JSON Lines,
// .xlsx as a long-format workbook.
func (s *Store) Load(path string) (int, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".json":
		return s.LoadJSONL(path)
	case ".xlsx":
		return s.LoadXLSX(path, "")
	default:
		return 0, riskerr.NewInput("path", "unsupported dataset format %q", filepath.Ext(path))
	}
}

// LoadXLSX reads the long-format sheet (the first sheet when sheet is empty)
// and appends its records. Blank availability cells become missing values.
func (s *Store) LoadXLSX(path, sheet string) (int, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return 0, riskerr.NewInput("sheet", "workbook %s has no sheets", path)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return 0, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return 0, riskerr.NewInput("sheet", "sheet %q is empty", sheet)
	}

	index, err := headerIndex(rows[0])
	if err != nil {
		return 0, err
	}

	records := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		r, err := parseRow(row, index)
		if err != nil {
			return 0, fmt.Errorf("row %d of sheet %q: %w", i+2, sheet, err)
		}
		records = append(records, r)
	}

	n, err := s.Append(records)
	if err != nil {
		return 0, err
	}
	log.Info().Str("path", path).Str("sheet", sheet).Int("count", n).Msg("Loaded availability records from workbook")
	return n, nil
}

// WriteXLSX writes records in the long format, one row per record.
func WriteXLSX(path string, records []Record) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range records {
		var availability any
		if v, ok := r.Value(); ok {
			availability = v
		}
		row := []any{r.EntityID, r.Year, r.Month, r.TurbineCount, availability}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	return f.SaveAs(path)
}

func headerIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range Columns {
		if _, ok := index[c]; !ok {
			return nil, riskerr.NewInput("header", "missing column %q", c)
		}
	}
	return index, nil
}

func parseRow(row []string, index map[string]int) (Record, error) {
	cell := func(name string) string {
		i := index[name]
		if i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var r Record
	var err error
	r.EntityID = cell("entity_id")
	if r.Year, err = strconv.Atoi(cell("year")); err != nil {
		return r, riskerr.NewInput("year", "not an integer: %q", cell("year"))
	}
	if r.Month, err = strconv.Atoi(cell("month")); err != nil {
		return r, riskerr.NewInput("month", "not an integer: %q", cell("month"))
	}
	if r.TurbineCount, err = strconv.Atoi(cell("turbine_count")); err != nil {
		return r, riskerr.NewInput("turbine_count", "not an integer: %q", cell("turbine_count"))
	}
	if raw := cell("availability"); raw != "" {
		v, err := strconv.ParseFloat(strings.TrimSuffix(raw, "%"), 64)
		if err != nil {
			return r, riskerr.NewInput("availability", "not a number: %q", raw)
		}
		r.Availability = &v
	}
	return r, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
