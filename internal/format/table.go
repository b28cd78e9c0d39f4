package format

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Tabular is implemented by command payloads that have a table rendering.
type Tabular interface {
	Table() (headers []string, rows [][]string)
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// WriteTable renders a Tabular value, or the Data of an Envelope holding one.
func WriteTable(w io.Writer, v any) error {
	if env, ok := v.(Envelope); ok {
		v = env.Data
	}
	tv, ok := v.(Tabular)
	if !ok {
		return fmt.Errorf("table output is not available for this command")
	}
	headers, rows := tv.Table()
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
