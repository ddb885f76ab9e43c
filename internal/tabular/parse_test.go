package tabular

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHeadersAndRows(t *testing.T) {
	data := []byte("Name,Email,Amount\nJane Doe,jane@example.org,50.00\nJohn Smith,john@example.org,125.00\n")

	res, err := Parse(data, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "Email", "Amount"}, res.Headers)
	assert.Equal(t, 2, res.RowCount)
	assert.Len(t, res.Rows, 2)

	// headers.length equals the key count of the first record
	rec := res.Record(0)
	assert.Len(t, rec, len(res.Headers))
	assert.Equal(t, "Jane Doe", rec["Name"])
	assert.Equal(t, "jane@example.org", rec["Email"])
}

func TestParseCustomDelimiter(t *testing.T) {
	data := []byte("a\tb\n1\t2\n")
	res, err := Parse(data, '\t')
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, res.Headers)
	assert.Equal(t, 1, res.RowCount)
}

func TestParseEmptyInput(t *testing.T) {
	_, err := Parse([]byte("   \n"), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header")
}

func TestParseBlankHeaderRow(t *testing.T) {
	_, err := Parse([]byte(",,\na,b,c\n"), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "headers")
}

func TestParseOversizedRow(t *testing.T) {
	big := strings.Repeat("x", MaxRowBytes+1)
	_, err := Parse([]byte("col\n"+big+"\n"), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "size ceiling")
}

func TestParseRaggedRowsPadded(t *testing.T) {
	data := []byte("a,b,c\n1,2\n")
	res, err := Parse(data, 0)
	require.NoError(t, err)
	rec := res.Record(0)
	assert.Equal(t, "", rec["c"])
}

func TestParseSampleRowsCapped(t *testing.T) {
	var b strings.Builder
	b.WriteString("n\n")
	for i := 0; i < 20; i++ {
		b.WriteString("1\n")
	}
	res, err := Parse([]byte(b.String()), 0)
	require.NoError(t, err)
	assert.Len(t, res.SampleRows, 5)
	assert.Equal(t, 20, res.RowCount)
}

func TestParseHeaderOnly(t *testing.T) {
	res, err := Parse([]byte("a,b\n"), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, res.RowCount)
	assert.Empty(t, res.SampleRows)
}
