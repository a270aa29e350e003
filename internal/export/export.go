// Package export renders record sets as downloadable files.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"inspector.onebusaway.org/internal/feed"
)

// Format is a download format.
type Format string

const (
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts "json", "xlsx" and "csv".
func ParseFormat(s string) (Format, bool) {
	switch Format(strings.ToLower(s)) {
	case FormatJSON:
		return FormatJSON, true
	case FormatXLSX:
		return FormatXLSX, true
	case FormatCSV:
		return FormatCSV, true
	}
	return "", false
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	}
	return "application/octet-stream"
}

// Write renders rs in format f. sheet names the XLSX worksheet.
func Write(f Format, rs *feed.RecordSet, sheet string) ([]byte, error) {
	switch f {
	case FormatJSON:
		return JSON(rs)
	case FormatXLSX:
		return XLSX(rs, sheet)
	case FormatCSV:
		return CSV(rs)
	}
	return nil, fmt.Errorf("unsupported export format %q", f)
}

// JSON returns the records' original entities as an array indented with
// four spaces. Entities are rebuilt from the reserved column, not from the
// flattened cells.
func JSON(rs *feed.RecordSet) ([]byte, error) {
	var compact bytes.Buffer
	compact.WriteByte('[')
	for i, r := range rs.Records() {
		entity, err := feed.Reconstruct(r)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		b, err := entity.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if i > 0 {
			compact.WriteByte(',')
		}
		compact.Write(b)
	}
	compact.WriteByte(']')

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "    "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// CSV writes one header row of flat keys and one row per record. Missing
// cells are empty.
func CSV(rs *feed.RecordSet) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	columns := rs.Columns()
	if err := w.Write(columns); err != nil {
		return nil, err
	}
	row := make([]string, len(columns))
	for _, r := range rs.Records() {
		for i, col := range columns {
			v, _ := r.String(col)
			row[i] = v
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FileLayout formats the fetch time in file names.
const FileLayout = "2006-01-02 15:04:05"

// FileBase names an export without its extension:
// <source>_<Vehicle_Positions|Trip_Updates>[_Filtered]_<time>, with spaces
// replaced by "_" and colons by "-".
func FileBase(source string, trips, filtered bool, fetchedAt time.Time) string {
	dataType := "Vehicle_Positions"
	if trips {
		dataType = "Trip_Updates"
	}
	var b strings.Builder
	b.WriteString(source)
	b.WriteString("_")
	b.WriteString(dataType)
	if filtered {
		b.WriteString("_Filtered")
	}
	b.WriteString("_")
	b.WriteString(fetchedAt.Format(FileLayout))
	return fileNameReplacer.Replace(b.String())
}

var fileNameReplacer = strings.NewReplacer(" ", "_", ":", "-", "/", "-", "\\", "-", `"`, "")
