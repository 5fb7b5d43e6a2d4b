package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/uvmigrate/pkg/pipeline"
)

// printSummary renders the migration result as a bordered table.
func printSummary(result *pipeline.Result, elapsed time.Duration) {
	rows := [][]string{
		{"Format", result.Format},
		{"Main", fmt.Sprintf("%d", result.Stats.MainCount)},
		{"Dev", fmt.Sprintf("%d", result.Stats.DevCount)},
	}
	if result.Stats.GroupCount > 0 {
		rows = append(rows, []string{"Groups", fmt.Sprintf("%d", result.Stats.GroupCount)})
	}
	if result.Stats.IndexCount > 0 {
		rows = append(rows, []string{"Indexes", fmt.Sprintf("%d", result.Stats.IndexCount)})
	}
	if result.Stats.GitSourceCount > 0 {
		rows = append(rows, []string{"Git sources", fmt.Sprintf("%d", result.Stats.GitSourceCount)})
	}
	rows = append(rows,
		[]string{"Files tracked", fmt.Sprintf("%d", result.Stats.FilesTracked)},
		[]string{"Elapsed", elapsed.Round(time.Millisecond).String()},
		[]string{"Run ID", result.RunID.String()},
	)

	labelStyle := lipgloss.NewStyle().Foreground(colorGray).Padding(0, 1)
	valueStyle := lipgloss.NewStyle().Foreground(colorWhite).Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return labelStyle
			}
			return valueStyle
		})

	fmt.Println(t.Render())
}
