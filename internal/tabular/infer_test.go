package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func column(values ...string) ([]string, [][]string) {
	headers := []string{"col"}
	rows := make([][]string, 0, len(values))
	for _, v := range values {
		rows = append(rows, []string{v})
	}
	return headers, rows
}

func TestInferEmailColumn(t *testing.T) {
	headers, rows := column("a@example.org", "b@example.org", "c@example.org")
	info := InferTypes(headers, rows)["col"]
	assert.Equal(t, TypeEmail, info.Type)
	assert.InDelta(t, 1.0, info.Confidence, 1e-6)
	assert.False(t, info.Nullable)
}

func TestInferNumberColumn(t *testing.T) {
	headers, rows := column("12.50", "3", "1,200.00")
	info := InferTypes(headers, rows)["col"]
	assert.Equal(t, TypeNumber, info.Type)
}

func TestInferBooleanColumn(t *testing.T) {
	headers, rows := column("Yes", "no", "TRUE", "false")
	info := InferTypes(headers, rows)["col"]
	assert.Equal(t, TypeBoolean, info.Type)
}

func TestInferPhoneColumnWithLeadingZeros(t *testing.T) {
	// Leading-zero digit runs must not be read as numbers.
	headers, rows := column("07700 900123", "07700 900456", "020 7946 0812")
	info := InferTypes(headers, rows)["col"]
	assert.Equal(t, TypePhone, info.Type)
}

func TestInferDateColumnWithFormat(t *testing.T) {
	headers, rows := column("2024-01-15", "2024-02-18", "2023-12-01")
	info := InferTypes(headers, rows)["col"]
	require.Equal(t, TypeDate, info.Type)
	assert.Equal(t, "2006-01-02", info.Format)
}

func TestInferDateFormatSlashed(t *testing.T) {
	headers, rows := column("15/01/2024", "18/02/2024", "31/12/2023")
	info := InferTypes(headers, rows)["col"]
	require.Equal(t, TypeDate, info.Type)
	assert.Equal(t, "02/01/2006", info.Format)
}

func TestInferDefaultsToString(t *testing.T) {
	headers, rows := column("alpha", "beta", "gamma")
	info := InferTypes(headers, rows)["col"]
	assert.Equal(t, TypeString, info.Type)
	assert.InDelta(t, 1.0, info.Confidence, 1e-6)
}

func TestInferMixedColumn(t *testing.T) {
	// 3 of 5 numeric: above the mixed floor, below the match threshold.
	headers, rows := column("1.5", "2.5", "3.5", "alpha", "beta")
	info := InferTypes(headers, rows)["col"]
	assert.Equal(t, TypeMixed, info.Type)
	assert.InDelta(t, 0.6, info.Confidence, 1e-6)
}

func TestInferNullable(t *testing.T) {
	headers, rows := column("1", "", "3")
	info := InferTypes(headers, rows)["col"]
	assert.True(t, info.Nullable)
	assert.Equal(t, TypeNumber, info.Type)
}

func TestInferThresholdIsExclusive(t *testing.T) {
	// Exactly 4 of 5 = 0.8 does not exceed the threshold.
	headers, rows := column("1", "2", "3", "4", "x")
	info := InferTypes(headers, rows)["col"]
	assert.Equal(t, TypeMixed, info.Type)
}

func TestInferIdempotent(t *testing.T) {
	headers := []string{"Name", "DBS No", "Issued", "Valid"}
	rows := [][]string{
		{"Jane Doe", "123456789012", "2024-01-15", "Yes"},
		{"John Smith", "987654321098", "2024-02-18", "No"},
		{"Ada Byron", "555566667777", "2024-03-20", "Yes"},
	}

	first := InferTypes(headers, rows)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, InferTypes(headers, rows))
	}
}

func TestInferExamplesDeduplicated(t *testing.T) {
	headers, rows := column("a", "a", "b", "c", "d")
	info := InferTypes(headers, rows)["col"]
	assert.Equal(t, []string{"a", "b", "c"}, info.Examples)
}
