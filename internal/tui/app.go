package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/jfmyers9/playwait/internal/scenario"
	"github.com/jfmyers9/playwait/internal/simplayer"
	"github.com/jfmyers9/playwait/pkg/playwait"
	"github.com/rivo/tview"
)

const maxRecentEvents = 8

// Config holds TUI configuration options
type Config struct {
	RefreshRate time.Duration // How often to refresh the display
	Title       string        // Scenario name shown in the header
}

// DefaultConfig returns the default TUI configuration
func DefaultConfig() Config {
	return Config{
		RefreshRate: 100 * time.Millisecond,
	}
}

// RecentEvent stores a player signal for the events panel
type RecentEvent struct {
	Event     playwait.Event
	MediaTime time.Duration
	At        time.Time
}

// App is the TUI application for watching a simulated player while a
// scenario drives it
type App struct {
	app        *tview.Application
	nowPlaying *tview.TextView
	progress   *tview.TextView
	status     *tview.TextView
	steps      *tview.TextView
	events     *tview.TextView

	// Configuration
	config Config

	// Adapter for the play/pause toggle
	helpers *playwait.Helpers

	// mu guards state written by player handlers and the scenario runner
	// and read by the refresh ticker
	mu sync.Mutex

	snapshot    simplayer.Snapshot
	results     []scenario.StepResult
	totalSteps  int
	timeUpdates int
	finished    bool
	runErr      error

	// Ring buffer for recent events (avoids allocation on every signal)
	recentBuf   [maxRecentEvents]RecentEvent
	recentCount int // total events added (recentCount % maxRecentEvents = next write index)

	// Last-rendered content for change detection
	lastNowPlaying string
	lastProgress   string
	lastSteps      string
	lastEvents     string

	// Cached progress bar width to stabilize change detection.
	// Updated only when GetInnerRect returns a positive value.
	lastBarWidth int

	cancelFunc context.CancelFunc
}

// New creates a new TUI application with default config
func New() *App {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a new TUI application with the given config
func NewWithConfig(cfg Config) *App {
	a := &App{
		app:    tview.NewApplication(),
		config: cfg,
	}
	a.setupUI()
	return a
}

// SetHelpers sets the adapter used by the play/pause key
func (a *App) SetHelpers(h *playwait.Helpers) {
	a.helpers = h
}

// SetTotalSteps sets the number of steps shown as pending
func (a *App) SetTotalSteps(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalSteps = n
}

// setupUI creates the UI layout
func (a *App) setupUI() {
	title := " Player "
	if a.config.Title != "" {
		title = fmt.Sprintf(" %s ", a.config.Title)
	}

	a.nowPlaying = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.nowPlaying.SetBorder(true).
		SetTitle(title).
		SetTitleAlign(tview.AlignLeft)

	a.progress = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.progress.SetBorder(true)

	a.steps = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.steps.SetBorder(true).
		SetTitle(" Steps ").
		SetTitleAlign(tview.AlignLeft)

	a.events = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.events.SetBorder(true).
		SetTitle(" Events ").
		SetTitleAlign(tview.AlignLeft)

	a.status = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText("[gray]q:quit  space:play/pause[-]")

	bottomRow := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(a.steps, 0, 1, false).
		AddItem(a.events, 0, 1, false)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.nowPlaying, 0, 2, false).
		AddItem(a.progress, 3, 1, false).
		AddItem(bottomRow, maxRecentEvents+2, 1, false).
		AddItem(a.status, 1, 1, false)

	a.app.SetInputCapture(a.handleKeyEvent)

	a.app.SetRoot(flex, true)
}

// handleKeyEvent processes keyboard input
func (a *App) handleKeyEvent(event *tcell.EventKey) *tcell.EventKey {
	switch event.Rune() {
	case 'q', 'Q':
		a.Stop()
		return nil
	case ' ':
		a.togglePlayback()
		return nil
	}
	return event
}

// togglePlayback issues play or pause without waiting for the result, so
// the UI never blocks on the player
func (a *App) togglePlayback() {
	if a.helpers == nil {
		return
	}
	if a.helpers.Player().Paused() {
		a.helpers.Play()
	} else {
		a.helpers.Pause()
	}
}

// Watch subscribes the events panel to every player event on e and
// returns a function removing the subscriptions
func (a *App) Watch(e playwait.Emitter, position func() time.Duration) func() {
	ids := make(map[playwait.Event]playwait.ListenerID, len(playwait.PlayerEvents))
	for _, ev := range playwait.PlayerEvents {
		ids[ev] = e.On(ev, func(ev playwait.Event) {
			var at time.Duration
			if position != nil {
				at = position()
			}
			a.RecordEvent(ev, at)
		})
	}

	return func() {
		for ev, id := range ids {
			e.Off(ev, id)
		}
	}
}

// RecordEvent adds a signal to the events panel. Time updates are counted
// rather than listed.
func (a *App) RecordEvent(e playwait.Event, mediaTime time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if e == playwait.EventTimeUpdate {
		a.timeUpdates++
		return
	}

	idx := a.recentCount % maxRecentEvents
	a.recentBuf[idx] = RecentEvent{Event: e, MediaTime: mediaTime, At: time.Now()}
	a.recentCount++
}

// StepDone records a finished scenario step
func (a *App) StepDone(_ context.Context, r scenario.StepResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.results = append(a.results, r)
}

// Finish marks the scenario complete
func (a *App) Finish(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.finished = true
	a.runErr = err
}

// Run starts the TUI, polling snapshot at the refresh rate until ctx is
// done or the user quits
func (a *App) Run(ctx context.Context, snapshot func() simplayer.Snapshot) error {
	ctx, a.cancelFunc = context.WithCancel(ctx)

	go a.handleUpdates(ctx, snapshot)

	if err := a.app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}

// handleUpdates is the single source of redraws
func (a *App) handleUpdates(ctx context.Context, snapshot func() simplayer.Snapshot) {
	refreshRate := a.config.RefreshRate
	if refreshRate <= 0 {
		refreshRate = DefaultConfig().RefreshRate
	}
	ticker := time.NewTicker(refreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.app.Stop()
			return
		case <-ticker.C:
			if snapshot != nil {
				s := snapshot()
				a.mu.Lock()
				a.snapshot = s
				a.mu.Unlock()
			}
			a.refresh()
		}
	}
}

// getRecentEvents returns recent events in most-recent-first order.
// Must be called with a.mu held.
func (a *App) getRecentEvents() []RecentEvent {
	n := a.recentCount
	if n > maxRecentEvents {
		n = maxRecentEvents
	}
	result := make([]RecentEvent, n)
	for i := 0; i < n; i++ {
		// Walk backwards from the most recently written slot
		idx := (a.recentCount - 1 - i) % maxRecentEvents
		result[i] = a.recentBuf[idx]
	}
	return result
}

// refresh updates all UI components
func (a *App) refresh() {
	a.app.QueueUpdateDraw(func() {
		a.mu.Lock()
		defer a.mu.Unlock()

		a.updateNowPlaying()
		a.updateProgress()
		a.updateSteps()
		a.updateEvents()
	})
}

// updateNowPlaying updates the player panel
func (a *App) updateNowPlaying() {
	text := renderNowPlaying(a.snapshot)
	if text != a.lastNowPlaying {
		a.lastNowPlaying = text
		a.nowPlaying.SetText(text)
	}
}

// updateProgress updates the progress bar
func (a *App) updateProgress() {
	var text string

	s := a.snapshot
	if s.Source.Src != "" {
		_, _, width, _ := a.progress.GetInnerRect()
		barWidth := width - 14 // Account for time display
		if barWidth > 0 {
			a.lastBarWidth = barWidth
		}
		if a.lastBarWidth < 10 {
			a.lastBarWidth = 10
		}

		progressBar := buildProgressBar(s.Position, s.Duration, a.lastBarWidth)
		text = fmt.Sprintf("%s %s %s", formatDuration(s.Position), progressBar, formatDuration(s.Duration))
	}

	if text != a.lastProgress {
		a.lastProgress = text
		a.progress.SetText(text)
	}
}

// updateSteps updates the scenario step panel
func (a *App) updateSteps() {
	text := renderSteps(a.results, a.totalSteps, a.finished, a.runErr)
	if text != a.lastSteps {
		a.lastSteps = text
		a.steps.SetText(text)
	}
}

// updateEvents updates the recent events panel
func (a *App) updateEvents() {
	var sb strings.Builder

	events := a.getRecentEvents()
	if len(events) == 0 {
		sb.WriteString("[gray]No events[-]")
	} else {
		for i, e := range events {
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(fmt.Sprintf("[gray]%s[-] [white]%s[-]", formatDuration(e.MediaTime), e.Event))
		}
	}
	if a.timeUpdates > 0 {
		sb.WriteString(fmt.Sprintf("\n[gray]timeupdate x%d[-]", a.timeUpdates))
	}

	text := sb.String()
	if text != a.lastEvents {
		a.lastEvents = text
		a.events.SetText(text)
	}
}

// Stop stops the TUI application
func (a *App) Stop() {
	if a.cancelFunc != nil {
		a.cancelFunc()
	}
	a.app.Stop()
}

// renderNowPlaying formats the player panel
func renderNowPlaying(s simplayer.Snapshot) string {
	if s.Source.Src == "" {
		if !s.Ready {
			return "\n\n[gray]Waiting for player[-]"
		}
		return "\n\n[gray]No source[-]"
	}

	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("[white::b]%s[-:-:-]\n", tview.Escape(s.Source.Src)))
	if s.Poster != "" {
		sb.WriteString(fmt.Sprintf("[gray]poster %s[-]\n", tview.Escape(s.Poster)))
	}

	volume := fmt.Sprintf("vol %.0f%%", s.Volume*100)
	if s.Muted {
		volume = "muted"
	}
	sb.WriteString(fmt.Sprintf("[yellow]%s[-]", volume))

	sb.WriteString(fmt.Sprintf("\n\n%s", stateIcon(s)))
	return sb.String()
}

// stateIcon returns the play state indicator
func stateIcon(s simplayer.Snapshot) string {
	switch {
	case s.Ended:
		return "[gray]■ ended[-]"
	case !s.Loaded:
		return "[gray]⋯ loading[-]"
	case s.Paused:
		return "[yellow]⏸[-]"
	default:
		return "[green]▶[-]"
	}
}

// renderSteps formats step results followed by a summary line
func renderSteps(results []scenario.StepResult, total int, finished bool, runErr error) string {
	var sb strings.Builder

	for _, r := range results {
		if r.Passed() {
			sb.WriteString("[green]✓[-] ")
		} else {
			sb.WriteString("[red]✗[-] ")
		}
		sb.WriteString(fmt.Sprintf("%d %s [gray]%s[-]\n", r.Index, r.Op, r.Elapsed.Round(time.Millisecond)))
	}

	switch {
	case finished && runErr != nil:
		sb.WriteString(fmt.Sprintf("[red]failed: %s[-]", tview.Escape(runErr.Error())))
	case finished:
		sb.WriteString("[green]passed[-]")
	default:
		sb.WriteString(fmt.Sprintf("[gray]running %d/%d[-]", len(results), total))
	}

	return sb.String()
}

// buildProgressBar creates a text-based progress bar
func buildProgressBar(position, duration time.Duration, width int) string {
	if duration == 0 || width <= 0 {
		return strings.Repeat("-", width)
	}

	progress := float64(position) / float64(duration)
	if progress > 1 {
		progress = 1
	}
	if progress < 0 {
		progress = 0
	}

	filled := int(progress * float64(width))
	empty := width - filled

	bar := "[green]" + strings.Repeat("█", filled) + "[-]" +
		"[gray]" + strings.Repeat("░", empty) + "[-]"

	return bar
}

// formatDuration formats a duration as MM:SS.t, with hours when needed.
// Scenario media is short, so tenths are kept.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	tenths := int(d.Milliseconds()/100) % 10

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d.%d", hours, minutes, seconds, tenths)
	}
	return fmt.Sprintf("%02d:%02d.%d", minutes, seconds, tenths)
}

// Verify App implements scenario.StepSink at compile time.
var _ scenario.StepSink = (*App)(nil)
