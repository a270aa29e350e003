package restapi

import (
	"fmt"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type mockTestingFatalf struct {
	failed bool
	err    string
}

func (m *mockTestingFatalf) Fatalf(format string, args ...any) {
	m.failed = true
	m.err = fmt.Sprintf(format, args...)
	runtime.Goexit()
}

// expectFatal runs fn on its own goroutine so that Goexit only ends fn.
func expectFatal(t *testing.T, fn func(m *mockTestingFatalf)) *mockTestingFatalf {
	t.Helper()
	m := &mockTestingFatalf{}
	var running sync.WaitGroup
	running.Add(1)
	go func() {
		defer running.Done()
		fn(m)
	}()
	running.Wait()
	return m
}

func TestCollectFieldFromObjects(t *testing.T) {
	data := []any{
		map[string]any{"name": "lyon"},
		map[string]any{"name": "paris"},
	}
	assert.Equal(t, []string{"lyon", "paris"}, collectFieldFromObjects(t, data, "name"))
}

func TestCollectFieldFromObjectsFailures(t *testing.T) {
	tests := []struct {
		name          string
		data          []any
		expectedError string
	}{
		{
			name:          "Invalid object type in the array",
			data:          []any{map[int]any{1: "lyon"}},
			expectedError: "item 0 is not a map[string]any",
		},
		{
			name:          "Missing key from the object",
			data:          []any{map[string]any{"id": "lyon"}},
			expectedError: "item 0 missing key \"name\"",
		},
		{
			name:          "Value is not a string",
			data:          []any{map[string]any{"name": 234}},
			expectedError: "item 0 key \"name\" is not a string: int",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := expectFatal(t, func(m *mockTestingFatalf) {
				collectFieldFromObjects(m, tt.data, "name")
			})
			assert.True(t, m.failed)
			assert.Equal(t, tt.expectedError, m.err)
		})
	}
}

func TestCollectColumnFromTable(t *testing.T) {
	table := map[string]any{
		"columns": []any{"id", "vehicle_vehicle_id"},
		"rows": []any{
			[]any{"e1", "V1"},
			[]any{"e2", nil},
			[]any{"e3", "V3"},
		},
	}
	assert.Equal(t, []string{"V1", "V3"}, collectColumnFromTable(t, table, "vehicle_vehicle_id"))
}

func TestCollectColumnFromTableFailures(t *testing.T) {
	tests := []struct {
		name          string
		table         map[string]any
		expectedError string
	}{
		{
			name:          "Missing columns",
			table:         map[string]any{"rows": []any{}},
			expectedError: "table has no columns list: <nil>",
		},
		{
			name:          "Unknown column",
			table:         map[string]any{"columns": []any{"id"}, "rows": []any{}},
			expectedError: "table has no column \"route\"",
		},
		{
			name:          "Short row",
			table:         map[string]any{"columns": []any{"route"}, "rows": []any{[]any{}}},
			expectedError: "row 0 is not a list of 1 cells",
		},
		{
			name:          "Number cell",
			table:         map[string]any{"columns": []any{"route"}, "rows": []any{[]any{12.0}}},
			expectedError: "row 0 column \"route\" is not a string: float64",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := expectFatal(t, func(m *mockTestingFatalf) {
				collectColumnFromTable(m, tt.table, "route")
			})
			assert.True(t, m.failed)
			assert.Equal(t, tt.expectedError, m.err)
		})
	}
}
