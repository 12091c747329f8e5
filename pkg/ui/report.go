package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vulndesk/vulndesk/pkg/models"
)

// FormatFindingLine formats a single finding in nuclei-style
// Output: [severity] [scope] title (CWE-nnn)
func FormatFindingLine(severity, title string, cwe int) string {
	var parts []string

	sevStyle := SeverityStyle(severity)
	parts = append(parts, BracketStyle.Render("[")+sevStyle.Render(strings.ToLower(severity))+BracketStyle.Render("]"))

	parts = append(parts, StatValueStyle.Render(truncateString(title, 80)))

	if cwe > 0 {
		parts = append(parts, StatLabelStyle.Render(fmt.Sprintf("(CWE-%d)", cwe)))
	}

	return strings.Join(parts, " ")
}

// FormatReportLine formats a report row for listings
// Output: [status] [scope] #id name (format)
func FormatReportLine(id int64, name, scope, status, format string) string {
	var parts []string

	parts = append(parts, BracketStyle.Render("[")+StatusStyle(status).Render(strings.ToLower(status))+BracketStyle.Render("]"))
	parts = append(parts, BracketStyle.Render("[")+ScopeStyle.Render(scope)+BracketStyle.Render("]"))
	parts = append(parts, StatValueStyle.Render(fmt.Sprintf("#%d %s", id, name)))
	if format != "" {
		parts = append(parts, StatLabelStyle.Render("("+format+")"))
	}

	return strings.Join(parts, " ")
}

// ReportSummary holds the data printed after a report finishes.
type ReportSummary struct {
	Name       string
	Scope      string
	Format     string
	Status     string
	File       string
	Findings   int
	BySeverity map[string]int
	Duration   time.Duration
}

// PrintReportSummary prints a summary box once a report is done.
func PrintReportSummary(s ReportSummary) {
	fmt.Println()
	PrintSection("Report Summary")
	fmt.Println()

	fmt.Printf("  %s %s\n",
		ConfigLabelStyle.Render("Report:"),
		StatValueStyle.Render(s.Name),
	)
	fmt.Printf("  %s %s\n",
		ConfigLabelStyle.Render("Scope:"),
		ScopeStyle.Render(s.Scope),
	)
	if s.Format != "" {
		fmt.Printf("  %s %s\n",
			ConfigLabelStyle.Render("Format:"),
			ConfigValueStyle.Render(s.Format),
		)
	}

	fmt.Println()

	// Results box - simple fixed-width ASCII layout
	boxWidth := 50
	border := "+" + strings.Repeat("-", boxWidth-2) + "+"

	printRow := func(label string, value string, valueStyle lipgloss.Style) {
		const labelW = 18
		const totalInner = 46

		labelPadded := label
		for len(labelPadded) < labelW {
			labelPadded += " "
		}

		valueW := totalInner - labelW
		valuePadded := value
		for len([]rune(valuePadded)) < valueW {
			valuePadded += " "
		}

		fmt.Printf("  |  %s%s|\n",
			StatLabelStyle.Render(labelPadded),
			valueStyle.Render(valuePadded),
		)
	}

	fmt.Println(BracketStyle.Render("  " + border))
	printRow("Findings:", fmt.Sprintf("%d", s.Findings), StatValueStyle)
	fmt.Println(BracketStyle.Render("  " + border))

	for _, sev := range models.Severities() {
		name := string(sev)
		count := s.BySeverity[name]
		style := lipgloss.NewStyle().Bold(true).Foreground(severityColor(name))
		printRow(name+":", fmt.Sprintf("%d", count), style)
	}

	fmt.Println(BracketStyle.Render("  " + border))
	printRow("Status:", s.Status, StatusStyle(s.Status))
	if s.Duration > 0 {
		printRow("Duration:", formatElapsed(s.Duration), StatValueStyle)
	}
	fmt.Println(BracketStyle.Render("  " + border))

	if s.File != "" {
		fmt.Println()
		fmt.Printf("  %s %s\n",
			ConfigLabelStyle.Render("File:"),
			URLStyle.Render(s.File),
		)
	}
	fmt.Println()
}

// severityColor maps a severity name to its palette color.
func severityColor(severity string) lipgloss.Color {
	switch severity {
	case "Critical":
		return Critical
	case "High":
		return High
	case "Medium":
		return Medium
	case "Low":
		return Low
	case "Info", "Informational":
		return Info
	}
	return Muted
}

// formatElapsed formats a duration in a human-readable way
func formatElapsed(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm%ds", mins, secs)
}

// truncateString truncates a string with ellipsis
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
