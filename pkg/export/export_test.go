package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	ds := Dataset{Title: "Events", Headers: []string{"ID", "Title", "Date"}}
	ds.AddRow("1", "Sports Day, Field", "2024-06-01")
	ds.AddRow("2", "Exam")
	return ds
}

func TestCSVRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ID,Title,Date", lines[0])
	assert.Equal(t, `1,"Sports Day, Field",2024-06-01`, lines[1])
	assert.Equal(t, "2,Exam,", lines[2])
}

func TestCSVRejectsRaggedRows(t *testing.T) {
	ds := Dataset{Headers: []string{"a", "b"}, Rows: [][]string{{"1"}}}
	_, err := NewCSVExporter().Render(ds)
	assert.Error(t, err)

	_, err = NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFRender(t *testing.T) {
	ds := sampleDataset()
	for i := 0; i < 80; i++ {
		ds.AddRow("x", strings.Repeat("long title ", 10), "2024-06-01")
	}
	out, err := NewPDFExporter().Render(ds)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestColumnWidthsFillPage(t *testing.T) {
	widths := columnWidths(sampleDataset(), 190)
	var sum float64
	for _, w := range widths {
		sum += w
	}
	assert.InDelta(t, 190, sum, 0.001)
	assert.Greater(t, widths[1], widths[0])
}
