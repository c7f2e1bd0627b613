package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakwood-commons/fleetgrid/pkg/grid"
)

func TestConditionsFlag(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    grid.Condition
		wantErr string
	}{
		{name: "contains", input: "name:contains:north", want: grid.Condition{Field: "name", Operator: grid.OpContains, Value: "north"}},
		{name: "operator_case_insensitive", input: "battery:GREATERTHAN:20", want: grid.Condition{Field: "battery", Operator: grid.OpGreaterThan, Value: "20"}},
		{name: "value_keeps_colons", input: "lastSeen:startsWith:2025-05-01T10:00", want: grid.Condition{Field: "lastSeen", Operator: grid.OpStartsWith, Value: "2025-05-01T10:00"}},
		{name: "unary_operator", input: "group:isEmpty", want: grid.Condition{Field: "group", Operator: grid.OpIsEmpty}},
		{name: "missing_operator", input: "name", wantErr: "expected field:operator"},
		{name: "missing_field", input: ":contains:x", wantErr: "expected field:operator"},
		{name: "unknown_operator", input: "name:like:x", wantErr: "unknown filter operator"},
		{name: "missing_value", input: "name:equals", wantErr: "needs a value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f conditionsFlag
			err := f.Set(tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []grid.Condition{tt.want}, f.Conditions())
		})
	}
}

func TestConditionsFlagLastWinsPerField(t *testing.T) {
	var f conditionsFlag
	require.NoError(t, f.Set("name:contains:a"))
	require.NoError(t, f.Set("status:equals:online"))
	require.NoError(t, f.Set("name:endsWith:z"))
	assert.Equal(t, []grid.Condition{
		{Field: "name", Operator: grid.OpEndsWith, Value: "z"},
		{Field: "status", Operator: grid.OpEquals, Value: "online"},
	}, f.Conditions())
	assert.Equal(t, "[name:endsWith:z,status:equals:online]", f.String())
	assert.Equal(t, "field:op:value", f.Type())
}

func TestValuesFlag(t *testing.T) {
	var f valuesFlag
	require.NoError(t, f.Set("status=online, offline"))
	require.NoError(t, f.Set("model=X1"))
	require.NoError(t, f.Set("status=maintenance"))
	assert.Equal(t, []grid.ValueFilter{
		{Field: "status", Values: []string{"online", "offline", "maintenance"}},
		{Field: "model", Values: []string{"X1"}},
	}, f.Filters())
	assert.Equal(t, "[status=online,offline,maintenance;model=X1]", f.String())

	for _, bad := range []string{"status", "=a", "status=", "status= , "} {
		assert.Error(t, (&valuesFlag{}).Set(bad), bad)
	}
}

func TestParseSort(t *testing.T) {
	tests := []struct {
		input   string
		want    *grid.SortState
		wantErr bool
	}{
		{input: "", want: nil},
		{input: "name", want: &grid.SortState{Field: "name", Direction: grid.Asc}},
		{input: "-battery", want: &grid.SortState{Field: "battery", Direction: grid.Desc}},
		{input: "name:DESC", want: &grid.SortState{Field: "name", Direction: grid.Desc}},
		{input: "name:ascending", want: &grid.SortState{Field: "name", Direction: grid.Asc}},
		{input: "name:sideways", wantErr: true},
		{input: ":asc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseSort(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNarrowOptions(t *testing.T) {
	opts := []grid.FilterOption{
		{Value: "online", Count: 3},
		{Value: "offline", Count: 2},
		{Value: "m", Label: "Maintenance", Count: 1},
	}
	assert.Len(t, narrowOptions(opts, "", 0), 3)
	assert.Equal(t, []grid.FilterOption{{Value: "m", Label: "Maintenance", Count: 1}}, narrowOptions(opts, "MAINT", 0))
	assert.Equal(t, opts[:2], narrowOptions(opts, "", 2))
	assert.Len(t, opts, 3)
}

func TestParseFormats(t *testing.T) {
	got, err := parseFormats([]string{"CSV", "pdf", "csv"}, "xlsx")
	require.NoError(t, err)
	assert.Equal(t, []grid.ExportFormat{grid.FormatCSV, grid.FormatPDF}, got)

	got, err = parseFormats(nil, "xlsx")
	require.NoError(t, err)
	assert.Equal(t, []grid.ExportFormat{grid.FormatXLSX}, got)

	_, err = parseFormats([]string{"docx"}, "csv")
	assert.Error(t, err)
}
