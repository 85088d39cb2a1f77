package controller

import (
	"bytes"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	"github.com/olekukonko/tablewriter"
	m "tcoracle.dev/pkg/tcoracle/internal/model"
)

// palette decorates the pieces of a rendered example. The plain palette
// leaves text untouched.
type palette struct {
	title     func(string) string
	faint     func(string) string
	correct   func(string) string
	incorrect func(string) string
	uncertain func(string) string
}

func identity(s string) string { return s }

var plainPalette = palette{
	title:     identity,
	faint:     identity,
	correct:   identity,
	incorrect: identity,
	uncertain: identity,
}

func (p palette) outcome(o m.Outcome) string {
	switch o {
	case m.Correct:
		return p.correct("✓")
	case m.Incorrect:
		return p.incorrect("✗")
	default:
		return p.uncertain("?")
	}
}

func formatExample(index, total int, r m.ResultEntry, p palette) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", p.title(fmt.Sprintf("[%d/%d] %s", index, total, r.Filename)))
	fmt.Fprintf(&b, "  Level reached: %d\n", r.LevelReached)
	fmt.Fprintf(&b, "  Bugs found: L1=%d, L2=%d, L3=%d\n", len(r.Level1Bugs), len(r.Level2Bugs), len(r.Level3Bugs))

	if r.LevelReached >= 2 {
		fmt.Fprintf(&b, "  Coverage: %.1f%% → %.1f%%\n", r.CoverageBefore, r.CoverageAfter)
	}

	if r.LevelReached >= 3 {
		fmt.Fprintf(&b, "  Mutations: %d/%d killed\n", r.MutationsKilled, r.MutationsTested)
	}

	for _, name := range slices.Sorted(maps.Keys(r.Verdicts)) {
		v := r.Verdicts[name]
		fmt.Fprintf(&b, "  %s %s: %s %s\n", p.outcome(v.Outcome), name, v.Outcome, p.faint(fmt.Sprintf("(%.2f)", v.Confidence)))
	}

	return b.String()
}

func formatBugs(r m.ResultEntry, p palette) string {
	var b strings.Builder

	levels := [][]m.BugEntry{r.Level1Bugs, r.Level2Bugs, r.Level3Bugs}
	for i, bugs := range levels {
		for _, bug := range bugs {
			fmt.Fprintf(&b, "    L%d line %d %s %s\n", i+1, bug.Line, bug.Type, p.faint("["+string(bug.Source)+"]"))
			fmt.Fprintf(&b, "       %s\n", bug.Msg)
		}
	}

	return b.String()
}

func renderSummaryTable(report m.Report) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Checker", "Correct", "Incorrect", "Uncertain", "Accuracy"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_CENTER, tablewriter.ALIGN_RIGHT,
	})

	for _, name := range slices.Sorted(maps.Keys(report.Summary)) {
		s := report.Summary[name]
		table.Append([]string{
			name,
			fmt.Sprintf("%d", s.Correct),
			fmt.Sprintf("%d", s.Incorrect),
			fmt.Sprintf("%d", s.Uncertain),
			formatAccuracy(s),
		})
	}

	table.Render()

	return tableBuffer.String()
}

// formatAccuracy is the share of decided verdicts that were correct.
func formatAccuracy(s m.CheckerSummary) string {
	decided := s.Correct + s.Incorrect
	if decided == 0 {
		return "-"
	}

	return fmt.Sprintf("%.1f%%", float64(s.Correct)/float64(decided)*100)
}

func formatSummary(report m.Report, killRate float64, p palette) string {
	var b strings.Builder

	fmt.Fprintf(&b, "\n%s\n", p.title(fmt.Sprintf("Evaluated %d example(s), max level %d", len(report.Results), report.MaxLevel)))

	for level := 1; level <= 3; level++ {
		fmt.Fprintf(&b, "  Level %d: %d example(s)\n", level, report.LevelDistribution[level])
	}

	l1, l2, l3 := 0, 0, 0
	for _, r := range report.Results {
		l1 += len(r.Level1Bugs)
		l2 += len(r.Level2Bugs)
		l3 += len(r.Level3Bugs)
	}

	fmt.Fprintf(&b, "  Proven bugs: L1=%d, L2=%d, L3=%d\n", l1, l2, l3)
	fmt.Fprintf(&b, "  Mutation kill rate: %.1f%%\n", killRate*100)

	if len(report.Skipped) > 0 {
		fmt.Fprintf(&b, "  Skipped: %s\n", p.faint(strings.Join(report.Skipped, ", ")))
	}

	if len(report.Summary) > 0 {
		fmt.Fprintf(&b, "\n%s", renderSummaryTable(report))
	}

	return b.String()
}

func formatReport(report m.Report, p palette) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", p.faint(fmt.Sprintf("run %s, %s", report.RunID, report.GeneratedAt.Format("2006-01-02 15:04:05"))))

	for i, r := range report.Results {
		b.WriteString(formatExample(i+1, len(report.Results), r, p))
		b.WriteString(formatBugs(r, p))
	}

	b.WriteString(formatSummary(report, reportKillRate(report), p))

	return b.String()
}

func reportKillRate(report m.Report) float64 {
	tested, killed := 0, 0
	for _, r := range report.Results {
		tested += r.MutationsTested
		killed += r.MutationsKilled
	}

	if tested == 0 {
		return 0
	}

	return float64(killed) / float64(tested)
}

func renderManifestTable(manifest m.Manifest) string {
	var tableBuffer bytes.Buffer

	checkers := manifest.Checkers()

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader(append([]string{"File"}, checkers...))
	table.SetBorder(false)
	table.SetCenterSeparator("")

	for _, entry := range manifest.Results {
		row := []string{filepath.Base(entry.Filename)}
		for _, c := range checkers {
			row = append(row, formatOutputSize(entry.Outputs[c]))
		}

		table.Append(row)
	}

	table.SetFooter(append([]string{fmt.Sprintf("Total Files %d", len(manifest.Results))}, make([]string, len(checkers))...))
	table.Render()

	return tableBuffer.String()
}

func formatOutputSize(output string) string {
	if output == "" {
		return "-"
	}

	lines := strings.Count(strings.TrimRight(output, "\n"), "\n") + 1

	return fmt.Sprintf("%d line(s)", lines)
}
