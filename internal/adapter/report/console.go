package report

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Italic(true).MarginTop(1)
	headerStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	categoryStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	countStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11")).Padding(0, 1)
)

// ConsoleTable renders the summary as a bordered terminal table.
func ConsoleTable(title string, summary []Count) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("Category", "Count").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0:
				return categoryStyle
			default:
				return countStyle
			}
		})
	for _, c := range summary {
		t.Row(c.Name, strconv.Itoa(c.Value))
	}
	return lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), t.Render())
}
