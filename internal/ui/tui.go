package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	coierrors "github.com/Aman-CERP/orderindex/internal/errors"
	"github.com/Aman-CERP/orderindex/internal/reindex"
)

// TUIRenderer provides a rich terminal UI using bubbletea.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	program *tea.Program
	model   *reindexModel
	started bool
	done    chan struct{}
}

// NewTUIRenderer creates a TUI renderer.
// Returns an error if the output is not a TTY.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("output is not a TTY")
	}

	model := newReindexModel(cfg.Title, cfg.OnInterrupt)
	if cfg.NoColor || DetectNoColor() {
		model.styles = NoColorStyles()
	}

	return &TUIRenderer{
		cfg:   cfg,
		model: model,
		done:  make(chan struct{}),
	}, nil
}

// Start implements Renderer.
func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return nil
	}

	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}

	r.program = tea.NewProgram(r.model, opts...)
	r.started = true

	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()

	return nil
}

// Update implements Renderer.
func (r *TUIRenderer) Update(snap reindex.ProgressSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.program != nil {
		r.program.Send(snapshotMsg(snap))
	}
}

// Complete implements Renderer.
func (r *TUIRenderer) Complete(snap reindex.ProgressSnapshot, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.program != nil {
		r.program.Send(completeMsg{snap: snap, err: err})
	}
}

// Stop implements Renderer. It waits briefly for the final frame.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	program := r.program
	r.mu.Unlock()

	if program == nil {
		return nil
	}

	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		program.Quit()
		select {
		case <-r.done:
		case <-time.After(2 * time.Second):
		}
	}
	return nil
}

// Message types for bubbletea
type snapshotMsg reindex.ProgressSnapshot

type completeMsg struct {
	snap reindex.ProgressSnapshot
	err  error
}

// reindexModel is the bubbletea model for reindex progress.
type reindexModel struct {
	title       string
	onInterrupt func()
	snap        reindex.ProgressSnapshot
	width       int
	quitting    bool
	complete    bool
	err         error
	spinner     spinner.Model
	progressBar progress.Model
	styles      Styles
}

func newReindexModel(title string, onInterrupt func()) *reindexModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent))

	p := progress.New(
		progress.WithSolidFill(ColorAccent),
		progress.WithWidth(50),
		progress.WithoutPercentage(),
	)

	return &reindexModel{
		title:       title,
		onInterrupt: onInterrupt,
		snap:        reindex.ProgressSnapshot{Status: string(reindex.StatusIdle)},
		spinner:     s,
		progressBar: p,
		styles:      DefaultStyles(),
		width:       80,
	}
}

// Init implements tea.Model.
func (m *reindexModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m *reindexModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if !m.complete && m.onInterrupt != nil {
				m.onInterrupt()
			}
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progressBar.Width = msg.Width - 20
		if m.progressBar.Width < 20 {
			m.progressBar.Width = 20
		}

	case snapshotMsg:
		m.snap = reindex.ProgressSnapshot(msg)
		return m, nil

	case completeMsg:
		m.complete = true
		m.snap = msg.snap
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model.
func (m *reindexModel) View() string {
	if m.complete {
		return m.renderComplete()
	}
	if m.quitting {
		return "Stopping after the current record...\n"
	}

	contentWidth := m.width - 4
	if contentWidth < 40 {
		contentWidth = 40
	}

	sections := []string{
		m.renderProgress(),
		m.styles.Border.Render(strings.Repeat("─", contentWidth)),
		m.renderCounts(),
	}

	title := "Order Index Rebuild"
	if m.title != "" {
		title += " • " + m.title
	}
	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorDarkGray)).
		Padding(0, 1).
		Width(contentWidth)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Header.Render(title),
		panel.Render(strings.Join(sections, "\n")),
	) + "\n" + m.styles.Dim.Render("q to stop") + "\n"
}

func (m *reindexModel) renderProgress() string {
	if m.snap.BatchesTotal == 0 {
		return fmt.Sprintf("%s %s", m.spinner.View(), m.styles.Dim.Render("Counting records..."))
	}

	bar := m.progressBar.ViewAs(m.snap.ProgressPct / 100)
	pct := m.styles.Active.Render(fmt.Sprintf("%3.0f%%", m.snap.ProgressPct))
	line := m.styles.Label.Render(fmt.Sprintf("%s %d / %d batches", m.spinner.View(), m.snap.BatchesDone, m.snap.BatchesTotal))
	return fmt.Sprintf("%s  %s\n%s", bar, pct, line)
}

func (m *reindexModel) renderCounts() string {
	parts := []string{
		m.styles.Label.Render(fmt.Sprintf("Records: %d / %d", m.snap.RecordsDone, m.snap.RecordsTotal)),
	}
	if m.snap.RecordsFailed > 0 {
		parts = append(parts, m.styles.Warning.Render(fmt.Sprintf("⚠ %d failed", m.snap.RecordsFailed)))
	}
	parts = append(parts, m.styles.Label.Render("Elapsed: "+formatDuration(time.Duration(m.snap.ElapsedSeconds)*time.Second)))
	if eta := estimateRemaining(m.snap); eta > 0 {
		parts = append(parts, m.styles.Label.Render("ETA: "+formatDuration(eta)))
	}
	return strings.Join(parts, m.styles.Dim.Render("  •  "))
}

func (m *reindexModel) renderComplete() string {
	var lines []string
	switch {
	case errors.Is(m.err, coierrors.ErrBulkAborted):
		lines = append(lines, m.styles.Warning.Render("⚠ Reindex aborted"),
			m.styles.Label.Render("Rerun with --resume to continue."))
	case m.err != nil:
		lines = append(lines, m.styles.Error.Render("✗ Reindex failed"), m.err.Error())
	default:
		lines = append(lines, m.styles.Success.Render("✓ Reindex complete"))
	}
	lines = append(lines, "",
		fmt.Sprintf("%s %d / %d", m.styles.Label.Render("Batches: "), m.snap.BatchesDone, m.snap.BatchesTotal),
		fmt.Sprintf("%s %d", m.styles.Label.Render("Records: "), m.snap.RecordsDone),
		fmt.Sprintf("%s %s", m.styles.Label.Render("Duration:"), formatDuration(time.Duration(m.snap.ElapsedSeconds)*time.Second)),
	)
	if m.snap.RecordsFailed > 0 {
		lines = append(lines, m.styles.Warning.Render(fmt.Sprintf("⚠ %d records failed, see the log", m.snap.RecordsFailed)))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(ColorDarkGray)).
		Padding(1, 2).
		Render(strings.Join(lines, "\n")) + "\n"
}

// estimateRemaining extrapolates from the elapsed time and batch fraction.
func estimateRemaining(snap reindex.ProgressSnapshot) time.Duration {
	if snap.ProgressPct <= 0 || snap.ProgressPct >= 100 || snap.ElapsedSeconds <= 0 {
		return 0
	}
	elapsed := float64(snap.ElapsedSeconds)
	total := elapsed * 100 / snap.ProgressPct
	return time.Duration(total-elapsed) * time.Second
}

var _ Renderer = (*TUIRenderer)(nil)
