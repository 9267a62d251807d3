package export

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	table := Table{Headers: []string{"day", "time_slot", "subject"}}
	table.AddRow("monday", "09:00-10:00", "Algorithms, Part I")
	table.AddRow("tuesday", "10:15-11:15")

	out, err := NewCSVExporter().Render(table)
	require.NoError(t, err)
	assert.Equal(t, "day,time_slot,subject\nmonday,09:00-10:00,\"Algorithms, Part I\"\ntuesday,10:15-11:15,\n", string(out))

	_, err = NewCSVExporter().Render(Table{})
	assert.Error(t, err)

	_, err = NewCSVExporter().Render(Table{Headers: []string{"day"}, Rows: [][]string{{"monday", "extra"}}})
	assert.Error(t, err)
}

func TestPDFExporterRenderGrid(t *testing.T) {
	grid := Grid{Title: "CSE 2A", Columns: []string{"monday", "tuesday"}}
	for i := 0; i < 40; i++ {
		grid.Rows = append(grid.Rows, GridRow{
			Label: fmt.Sprintf("slot %d", i),
			Cells: []string{"Algorithms\nDr. Ada\nHall 1", ""},
		})
	}

	out, err := NewPDFExporter().RenderGrid(grid)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	_, err = NewPDFExporter().RenderGrid(Grid{})
	assert.Error(t, err)
}
