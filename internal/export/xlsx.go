package export

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"inspector.onebusaway.org/internal/feed"
)

// maxSheetName is the worksheet name limit of the XLSX format.
const maxSheetName = 31

// XLSX returns a workbook with one worksheet: a header row of flat keys and
// one row per record. The reserved column is not included and missing cells
// stay blank.
func XLSX(rs *feed.RecordSet, sheet string) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet = sheetName(sheet)
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return nil, fmt.Errorf("name worksheet: %w", err)
		}
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return nil, err
	}

	columns := rs.Columns()
	header := make([]any, len(columns))
	for i, col := range columns {
		header[i] = col
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, err
	}

	for i, r := range rs.Records() {
		row := make([]any, len(columns))
		for j, col := range columns {
			if s, ok := r.Get(col); ok {
				row[j] = cellValue(s)
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return nil, err
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// sheetName drops the characters worksheet names may not contain and
// truncates to the format's limit.
func sheetName(s string) string {
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	if r := []rune(s); len(r) > maxSheetName {
		s = string(r[:maxSheetName])
	}
	if s == "" {
		return "Sheet1"
	}
	return s
}

// cellValue keeps numbers and booleans typed in the sheet.
func cellValue(s feed.Scalar) any {
	switch s.Kind() {
	case feed.KindNull:
		return nil
	case feed.KindBool:
		return s.String() == "true"
	case feed.KindNumber:
		if f, err := strconv.ParseFloat(s.String(), 64); err == nil {
			return f
		}
	}
	return s.String()
}
