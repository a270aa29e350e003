// test_helper.go holds helpers for picking values out of decoded JSON
// responses in the handler tests.
package restapi

type testingFatalf interface {
	Fatalf(format string, args ...any)
}

// collectFieldFromObjects returns the string field key of every object in
// list, e.g. the names of a source listing.
func collectFieldFromObjects(t testingFatalf, list []any, key string) (values []string) {
	for i, item := range list {
		object, ok := item.(map[string]any)
		if !ok {
			t.Fatalf("item %d is not a map[string]any", i)
		}
		value, ok := object[key]
		if !ok {
			t.Fatalf("item %d missing key %q", i, key)
		}
		s, ok := value.(string)
		if !ok {
			t.Fatalf("item %d key %q is not a string: %T", i, key, value)
		}
		values = append(values, s)
	}
	return values
}

// collectColumnFromTable returns the textual cells of column in a decoded
// table ({"columns": [...], "rows": [[...]]}). Null cells are skipped.
func collectColumnFromTable(t testingFatalf, table map[string]any, column string) (values []string) {
	columns, ok := table["columns"].([]any)
	if !ok {
		t.Fatalf("table has no columns list: %T", table["columns"])
	}
	index := -1
	for i, c := range columns {
		if c == column {
			index = i
			break
		}
	}
	if index < 0 {
		t.Fatalf("table has no column %q", column)
	}

	rows, ok := table["rows"].([]any)
	if !ok {
		t.Fatalf("table has no rows list: %T", table["rows"])
	}
	for i, row := range rows {
		cells, ok := row.([]any)
		if !ok || len(cells) != len(columns) {
			t.Fatalf("row %d is not a list of %d cells", i, len(columns))
		}
		switch v := cells[index].(type) {
		case nil:
		case string:
			values = append(values, v)
		default:
			t.Fatalf("row %d column %q is not a string: %T", i, column, v)
		}
	}
	return values
}
