package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bytes"
	"strconv"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"tracelab/internal/table"
)

const (
	XlsxPrimarySheetName = "Report"
	XlsxBriefSheetName   = "Brief"
)

const xlsxColumnWidth = 25

// xlsxSheet appends tables to one worksheet, top to bottom.
type xlsxSheet struct {
	f         *excelize.File
	name      string
	row       int
	boldStyle int
	leftStyle int
}

func newXlsxSheet(f *excelize.File, name string) *xlsxSheet {
	s := &xlsxSheet{f: f, name: name, row: 1}
	s.boldStyle, _ = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	s.leftStyle, _ = f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{Horizontal: "left"}})
	_ = f.SetColWidth(name, "A", "L", xlsxColumnWidth)
	return s
}

// writeRow writes values starting at column col of the current row, then
// advances to the next row.
func (s *xlsxSheet) writeRow(col int, style int, values ...any) {
	start, err := excelize.CoordinatesToCellName(col, s.row)
	if err == nil {
		_ = s.f.SetSheetRow(s.name, start, &values)
		end, _ := excelize.CoordinatesToCellName(col+len(values)-1, s.row)
		_ = s.f.SetCellStyle(s.name, start, end, style)
	}
	s.row++
}

func (s *xlsxSheet) writeTable(tv table.TableValues) {
	s.writeRow(1, s.boldStyle, tv.Name)
	if len(tv.Fields) == 0 || len(tv.Fields[0].Values) == 0 {
		msg := noDataFound
		if tv.NoDataFound != "" {
			msg = tv.NoDataFound
		}
		s.writeRow(1, s.leftStyle, msg)
		s.row++
		return
	}
	if tv.HasRows {
		// headings across the top, one record per row, indented by one column
		headings := make([]any, 0, len(tv.Fields))
		for _, field := range tv.Fields {
			headings = append(headings, field.Name)
		}
		s.writeRow(2, s.boldStyle, headings...)
		for i := range tv.Fields[0].Values {
			record := make([]any, 0, len(tv.Fields))
			for _, field := range tv.Fields {
				record = append(record, getValueForCell(field.Values[i]))
			}
			s.writeRow(2, s.leftStyle, record...)
		}
	} else {
		for _, field := range tv.Fields {
			var value string
			if len(field.Values) > 0 {
				value = field.Values[0]
			}
			s.writeRow(1, s.leftStyle, field.Name, getValueForCell(value))
		}
	}
	s.row++
}

// createXlsxReport writes every table to the primary sheet. Summary tables are
// also copied to a brief sheet.
func createXlsxReport(allTableValues []table.TableValues) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	_ = f.SetSheetName("Sheet1", XlsxPrimarySheetName)
	primary := newXlsxSheet(f, XlsxPrimarySheetName)
	var brief *xlsxSheet
	for _, tv := range allTableValues {
		if tv.Name == RunSummaryTableName || tv.Name == CompareSummaryTableName {
			if brief == nil {
				_, _ = f.NewSheet(XlsxBriefSheetName)
				brief = newXlsxSheet(f, XlsxBriefSheetName)
			}
			brief.writeTable(tv)
		}
		primary.writeTable(tv)
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, errors.Wrap(err, "failed to write xlsx report")
	}
	return buf.Bytes(), nil
}

// getValueForCell stores numeric text as numbers so spreadsheet formulas work.
func getValueForCell(value string) any {
	if i, err := strconv.Atoi(value); err == nil {
		return i
	}
	if v, err := strconv.ParseFloat(value, 64); err == nil {
		return v
	}
	return value
}
