package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/poiesic/rentmatch/core"
	"github.com/poiesic/rentmatch/match"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().
			Padding(0, 1)

	scoreStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Align(lipgloss.Right)

	saleStyle = lipgloss.NewStyle().
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))
)

// renderResult formats the sale, its matches as a table and a summary line.
func renderResult(sale *core.Listing, result *match.Result) string {
	var b strings.Builder

	if sale != nil {
		b.WriteString(saleStyle.Render(saleLine(sale)))
		b.WriteString("\n")
	}

	if len(result.Matches) > 0 {
		rows := make([][]string, len(result.Matches))
		for i, m := range result.Matches {
			rows[i] = []string{
				strconv.Itoa(i + 1),
				strconv.Itoa(m.FinalScore),
				formatScore(m.TextScore),
				formatScore(m.ImageScore),
				formatScore(m.StructuredScore),
				m.RentalID,
				m.Platform,
				m.URL,
			}
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("#", "SCORE", "TEXT", "IMAGE", "STRUCT", "RENTAL", "PLATFORM", "URL").
			Rows(rows...).
			StyleFunc(func(row, col int) lipgloss.Style {
				switch {
				case row == table.HeaderRow:
					return headerStyle
				case col == 1:
					return scoreStyle
				}
				return cellStyle
			})
		b.WriteString(t.String())
		b.WriteString("\n")
	}

	b.WriteString(dimStyle.Render(summary(result)))
	return b.String()
}

func saleLine(sale *core.Listing) string {
	title := sale.Title
	if title == "" {
		title = sale.ID
	}
	parts := []string{title}
	if sale.Location != "" {
		parts = append(parts, sale.Location)
	}
	parts = append(parts,
		"price "+strconv.FormatFloat(sale.Price, 'f', -1, 64),
		"rooms "+strconv.FormatFloat(sale.Rooms, 'f', -1, 64))
	return strings.Join(parts, " | ")
}

func summary(result *match.Result) string {
	parts := []string{
		result.Outcome().String(),
		fmt.Sprintf("%d candidates", result.Candidates),
	}
	if result.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", result.Skipped))
	}
	if result.Abandoned > 0 {
		parts = append(parts, fmt.Sprintf("%d abandoned", result.Abandoned))
	}
	if result.Partial {
		parts = append(parts, "partial")
	}
	parts = append(parts, result.Elapsed.Round(time.Millisecond).String())
	return strings.Join(parts, ", ")
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
