package tui

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"
)

var countLevels = []string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

var severityBarStyles = map[string]lipgloss.Style{
	"TRACE":   lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Background(lipgloss.Color("240")),
	"DEBUG":   lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Background(lipgloss.Color("244")),
	"INFO":    lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Background(lipgloss.Color("39")),
	"WARN":    lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Background(lipgloss.Color("208")),
	"ERROR":   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Background(lipgloss.Color("196")),
	"FATAL":   lipgloss.NewStyle().Foreground(lipgloss.Color("201")).Background(lipgloss.Color("201")),
	"UNKNOWN": lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Background(lipgloss.Color("250")),
}

// renderCounts draws one bar per severity with a legend on the right.
func renderCounts(counts map[string]int, width, height int) string {
	title := chartTitleStyle.Render("Counts")
	total := 0
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, title, helpStyle.Render("No records yet"))
	}

	legendWidth := 18
	chartWidth := width - legendWidth - 2
	if chartWidth < 12 {
		chartWidth = 12
	}
	chartHeight := height - 1
	if chartHeight < 3 {
		chartHeight = 3
	}

	barWidth := chartWidth/len(countLevels) - 1
	if barWidth < 1 {
		barWidth = 1
	}
	bc := barchart.New(chartWidth, chartHeight,
		barchart.WithBarGap(1),
		barchart.WithBarWidth(barWidth),
		barchart.WithNoAxis(),
	)
	for _, level := range countLevels {
		n := counts[level]
		style := severityBarStyles[level]
		if n == 0 {
			style = severityBarStyles["UNKNOWN"]
		}
		bc.Push(barchart.BarData{
			Label:  "",
			Values: []barchart.BarValue{{Name: level, Value: float64(n), Style: style}},
		})
	}
	bc.Draw()

	var legend []string
	for i := len(countLevels) - 1; i >= 0; i-- {
		level := countLevels[i]
		swatch := lipgloss.NewStyle().Foreground(severityColor(level)).Render("■")
		legend = append(legend, fmt.Sprintf("%s %-5s %6d", swatch, level, counts[level]))
	}
	legend = append(legend, fmt.Sprintf("  %-5s %6d", "TOTAL", total))

	body := lipgloss.JoinHorizontal(lipgloss.Top, bc.View(), "  ", strings.Join(legend, "\n"))
	return lipgloss.JoinVertical(lipgloss.Left, title, body)
}
