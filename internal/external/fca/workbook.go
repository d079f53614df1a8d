package fca

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/wonny/shorttracker/internal/contracts"
	"github.com/wonny/shorttracker/internal/disclosure"
)

const (
	SheetCurrent  = "current"
	SheetHistoric = "historic"
)

// ParseWorkbook reads the two disclosure sheets of the daily workbook.
// Cells are read raw so dates arrive as Excel serials.
func ParseWorkbook(r io.Reader) (*contracts.DisclosureFile, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	kinds, reportDate, err := ParseSheetNames(sheets)
	if err != nil {
		return nil, err
	}

	file := &contracts.DisclosureFile{ReportDate: reportDate}
	for i, sheet := range sheets {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		table := toTable(kinds[i], rows)
		if kinds[i] == SheetCurrent {
			file.Current = table
		} else {
			file.Historic = table
		}
	}
	return file, nil
}

// ParseSheetNames checks the workbook layout: exactly two sheets named
// "<Current|Historic> <word> <report date>" in either order, both with the
// same date.
// It returns the lower-cased first token of each sheet and the report date.
func ParseSheetNames(names []string) ([]string, time.Time, error) {
	if len(names) != 2 {
		return nil, time.Time{}, fmt.Errorf("expected two sheets, got %d", len(names))
	}

	kinds := make([]string, len(names))
	dates := make([]string, len(names))
	for i, name := range names {
		tokens := strings.Fields(name)
		if len(tokens) < 3 {
			return nil, time.Time{}, fmt.Errorf("unexpected sheet name %q", name)
		}
		kinds[i] = strings.ToLower(tokens[0])
		dates[i] = tokens[2]
	}

	if dates[0] != dates[1] {
		return nil, time.Time{}, fmt.Errorf("sheets carry different report dates %q and %q", dates[0], dates[1])
	}
	// either order
	present := map[string]bool{kinds[0]: true, kinds[1]: true}
	if !present[SheetCurrent] || !present[SheetHistoric] {
		return nil, time.Time{}, fmt.Errorf("expected sheets {%s, %s}, got %v", SheetCurrent, SheetHistoric, kinds)
	}

	reportDate, err := disclosure.ParseDate(dates[0])
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("sheet report date: %w", err)
	}
	return kinds, reportDate, nil
}

// toTable uses the first non-blank row as header
func toTable(name string, rows [][]string) contracts.RawTable {
	table := contracts.RawTable{Name: name}
	for i, row := range rows {
		if blank(row) {
			continue
		}
		table.Header = row
		table.Rows = rows[i+1:]
		break
	}
	return table
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
