package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteExcel(t *testing.T) {
	var buf bytes.Buffer
	err := WriteExcel(&buf, Table{
		Title:   "revenue",
		Headers: []string{"Month", "Revenue"},
		Rows: [][]interface{}{
			{"2026-01", 1200.5},
			{"2026-02", 300.0},
		},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("revenue")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Month", "Revenue"}, rows[0])
	assert.Equal(t, "2026-01", rows[1][0])
	assert.Equal(t, "1200.5", rows[1][1])
}
