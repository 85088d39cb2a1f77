package controller

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
	m "tcoracle.dev/pkg/tcoracle/internal/model"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	faintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	correctStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	incorrectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	uncertainStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

var styledPalette = palette{
	title:     func(s string) string { return titleStyle.Render(s) },
	faint:     func(s string) string { return faintStyle.Render(s) },
	correct:   func(s string) string { return correctStyle.Render(s) },
	incorrect: func(s string) string { return incorrectStyle.Render(s) },
	uncertain: func(s string) string { return uncertainStyle.Render(s) },
}

// TUI implements UI with styled progress output and a Bubble Tea pager for reports.
type TUI struct {
	output io.Writer
	mu     sync.Mutex
}

// NewTUI creates a new TUI.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output}
}

// Start initializes the UI.
func (p *TUI) Start(ctx context.Context, _ ...StartOption) error {
	return ctx.Err()
}

// Close finalizes the UI.
func (p *TUI) Close(context.Context) {}

// Wait is a no-op; the pager blocks inside DisplayReport.
func (p *TUI) Wait(context.Context) {}

// DisplayRunInfo prints what is about to be evaluated.
func (p *TUI) DisplayRunInfo(ctx context.Context, info RunInfo) {
	if ctx.Err() != nil {
		return
	}

	p.print(renderHeader())
	p.print(fmt.Sprintf("  %d example(s) from %s, max level %d, %d worker(s)\n",
		info.Examples, info.Manifest, info.MaxLevel, info.Parallel))

	if len(info.Checkers) > 0 {
		p.print(faintStyle.Render("  checkers: "+strings.Join(info.Checkers, ", ")) + "\n")
	}

	if info.Resumed > 0 {
		p.print(faintStyle.Render(fmt.Sprintf("  resuming %d journaled example(s)", info.Resumed)) + "\n")
	}

	p.print("\n")
}

// DisplayExampleResult prints the progress block of one evaluated example.
func (p *TUI) DisplayExampleResult(ctx context.Context, index, total int, result m.ResultEntry) {
	if ctx.Err() != nil {
		return
	}

	p.print(formatExample(index, total, result, styledPalette))
}

// DisplaySkipped prints a notice for an example whose source could not be read.
func (p *TUI) DisplaySkipped(ctx context.Context, filename string, err error) {
	if ctx.Err() != nil {
		return
	}

	p.print(faintStyle.Render(fmt.Sprintf("skipping %s: %v", filename, err)) + "\n")
}

// DisplaySummary prints the level distribution and the per-checker table.
func (p *TUI) DisplaySummary(ctx context.Context, report m.Report, killRate float64) {
	if ctx.Err() != nil {
		return
	}

	p.print(formatSummary(report, killRate, styledPalette))
}

// DisplayManifest prints the analyzer outputs collected by a check run.
func (p *TUI) DisplayManifest(ctx context.Context, manifest m.Manifest, path m.Path) {
	if ctx.Err() != nil {
		return
	}

	p.print(renderHeader())
	p.print(renderManifestTable(manifest))
	p.print(faintStyle.Render(fmt.Sprintf("manifest written to %s", path)) + "\n")
}

// DisplayReport shows a saved report, paging it when it does not fit the terminal.
func (p *TUI) DisplayReport(ctx context.Context, report m.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	model := newReportModel(renderHeader() + formatReport(report, styledPalette))

	// Get initial terminal size
	if f, ok := p.output.(*os.File); ok {
		width, height, err := term.GetSize(f.Fd())
		if err == nil {
			model.height = height
			model.width = width
		}
	}

	// If the report is small, just print and exit
	if !model.needsPagination() {
		_, err := fmt.Fprint(p.output, model.content)
		return err
	}

	program := tea.NewProgram(model, tea.WithOutput(p.output), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return err
	}

	return nil
}

func (p *TUI) print(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, _ = fmt.Fprint(p.output, s)
}

func renderHeader() string {
	var b strings.Builder

	b.WriteString("╔════════════════════════════════════════════════════════════════╗\n")
	b.WriteString("║              tcoracle - Tiered Type-Checker Oracle             ║\n")
	b.WriteString("╚════════════════════════════════════════════════════════════════╝\n\n")

	return b.String()
}

// footerHeight is the number of lines below the viewport.
const footerHeight = 2

// reportModel is the Bubble Tea pager over a rendered report.
type reportModel struct {
	content  string
	viewport viewport.Model
	ready    bool
	height   int
	width    int
	quitting bool
}

func newReportModel(content string) reportModel {
	return reportModel{content: content}
}

func (rm reportModel) Init() tea.Cmd {
	return nil
}

func (rm reportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		rm.height = msg.Height
		rm.width = msg.Width

		if !rm.ready {
			rm.viewport = viewport.New(msg.Width, msg.Height-footerHeight)
			rm.viewport.SetContent(rm.content)
			rm.ready = true
		} else {
			rm.viewport.Width = msg.Width
			rm.viewport.Height = msg.Height - footerHeight
		}

		return rm, nil

	case tea.KeyMsg:
		return rm.handleKeyPress(msg)
	}

	return rm, nil
}

//nolint:exhaustive // Remaining keys are handled by the viewport key map.
func (rm reportModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		rm.quitting = true
		return rm, tea.Quit
	}

	switch msg.String() {
	case "q":
		rm.quitting = true
		return rm, tea.Quit

	case "g", "home":
		rm.viewport.GotoTop()
		return rm, nil

	case "G", "end":
		rm.viewport.GotoBottom()
		return rm, nil
	}

	var cmd tea.Cmd

	rm.viewport, cmd = rm.viewport.Update(msg)

	return rm, cmd
}

// needsPagination returns true if the report is too tall for the terminal.
func (rm reportModel) needsPagination() bool {
	if rm.height <= 0 {
		return false
	}

	lines := strings.Count(rm.content, "\n") + 1

	return lines > rm.height-footerHeight
}

func (rm reportModel) View() string {
	if rm.quitting {
		return ""
	}

	if !rm.ready {
		return "Loading report..."
	}

	footer := faintStyle.Render(fmt.Sprintf(" %3.f%%  ↑/k up  ↓/j down  g top  G bottom  q quit", rm.viewport.ScrollPercent()*100))

	return rm.viewport.View() + "\n\n" + footer
}
