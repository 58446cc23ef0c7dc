package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	tea "github.com/charmbracelet/bubbletea"

	"livetrans/internal/domain"
	"livetrans/internal/export"
)

// Backend is the session surface the TUI drives.
type Backend interface {
	Connect(ctx context.Context, credential string) error
	Disconnect()
	SetMuted(muted bool)
	Status() domain.Status
	Transcript() []domain.TranscriptSegment
	Analyses() []domain.AnalysisRecord
	FinalSummary(ctx context.Context) (string, error)
}

// PanelFocus tracks which panel has keyboard focus.
type PanelFocus int

const (
	FocusTranscript PanelFocus = iota
	FocusAnalyses
)

// Options carry static session info for the header and exports.
type Options struct {
	Credential string
	ModelName  string
	Language   string
}

// Model is the root bubbletea model.
type Model struct {
	backend Backend
	opts    Options

	state      domain.ConnState
	statusMsg  string
	muted      bool
	level      float64
	connecting bool

	segments    []domain.TranscriptSegment
	analyses    []domain.AnalysisRecord
	summary     string
	summarizing bool
	exporting   bool
	notice      string

	errorMessage   string
	errorTransient bool

	focusedPanel     PanelFocus
	width            int
	height           int
	transcriptScroll int
	transcriptLive   bool
	analysisScroll   int
}

// New creates the root model over a backend.
func New(backend Backend, opts Options) Model {
	status := backend.Status()
	return Model{
		backend:        backend,
		opts:           opts,
		state:          status.State,
		muted:          status.Muted,
		transcriptLive: true,
		focusedPanel:   FocusTranscript,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func connectCmd(backend Backend, credential string) tea.Cmd {
	return func() tea.Msg {
		return connectResultMsg{Err: backend.Connect(context.Background(), credential)}
	}
}

func disconnectCmd(backend Backend) tea.Cmd {
	return func() tea.Msg {
		backend.Disconnect()
		return disconnectDoneMsg{}
	}
}

func summaryCmd(backend Backend) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		text, err := backend.FinalSummary(ctx)
		return summaryResultMsg{Text: text, Err: err}
	}
}

func exportCmd(backend Backend, opts Options, summary string) tea.Cmd {
	return func() tea.Msg {
		path := export.DefaultPath(time.Now())
		err := export.WriteFile(path, export.Document{
			Meta: export.Metadata{
				Title:     "Session Transcript",
				Model:     opts.ModelName,
				Language:  opts.Language,
				Generated: time.Now(),
			},
			Segments: backend.Transcript(),
			Analyses: backend.Analyses(),
			Summary:  summary,
		})
		return exportResultMsg{Path: path, Err: err}
	}
}

func clearTransientErrorCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return clearTransientErrorMsg{}
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case ConnStateMsg:
		m.state = msg.State
		m.statusMsg = msg.Message
		switch msg.State {
		case domain.ConnStateConnected:
			// A new session starts from a clean slate; the backend has
			// already reset its transcript and analysis log.
			m.connecting = false
			m.errorMessage = ""
			m.summary = ""
			m.notice = ""
			m.analyses = nil
			m.analysisScroll = 0
			m.segments = m.backend.Transcript()
			m.transcriptLive = true
			m.transcriptScroll = 0
		case domain.ConnStateIdle, domain.ConnStateError:
			m.connecting = false
			m.level = 0
		}
		return m, nil

	case TranscriptMsg:
		// The backend snapshot is authoritative for ordering and the
		// in-place partial slot rewrites.
		m.segments = m.backend.Transcript()
		if m.transcriptLive {
			m.scrollToBottom()
		}
		return m, nil

	case AnalysisMsg:
		m.analyses = append(m.analyses, msg.Record)
		m.analysisScroll = 0
		return m, nil

	case LevelMsg:
		m.level = msg.Level
		return m, nil

	case SessionErrorMsg:
		m.errorMessage = msg.Detail
		if msg.Code == domain.ErrorCodeAnalysis || msg.Code == domain.ErrorCodePlayback {
			m.errorTransient = true
			return m, clearTransientErrorCmd()
		}
		m.errorTransient = false
		return m, nil

	case connectResultMsg:
		m.connecting = false
		// Failures arrive through SessionErrorMsg as well; nothing extra
		// to surface here.
		return m, nil

	case disconnectDoneMsg:
		m.segments = m.backend.Transcript()
		return m, nil

	case summaryResultMsg:
		m.summarizing = false
		if msg.Err != nil {
			m.errorMessage = msg.Err.Error()
			m.errorTransient = true
			return m, clearTransientErrorCmd()
		}
		m.summary = msg.Text
		m.focusedPanel = FocusAnalyses
		return m, nil

	case exportResultMsg:
		m.exporting = false
		if msg.Err != nil {
			m.errorMessage = msg.Err.Error()
			m.errorTransient = true
			return m, clearTransientErrorCmd()
		}
		m.notice = "Exported to " + msg.Path
		return m, nil

	case clearTransientErrorMsg:
		if m.errorTransient {
			m.errorMessage = ""
			m.errorTransient = false
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case keyQuit, keyQuitUpper, keyCtrlC:
		m.backend.Disconnect()
		return m, tea.Quit

	case keySpace:
		if m.connecting {
			return m, nil
		}
		if m.state == domain.ConnStateConnected {
			return m, disconnectCmd(m.backend)
		}
		m.connecting = true
		m.errorMessage = ""
		return m, connectCmd(m.backend, m.opts.Credential)

	case keyMute, keyMuteUpper:
		m.muted = !m.muted
		m.backend.SetMuted(m.muted)
		return m, nil

	case keySummary:
		if m.summarizing || len(m.segments) == 0 {
			return m, nil
		}
		m.summarizing = true
		return m, summaryCmd(m.backend)

	case keyExport:
		if m.exporting || len(m.segments) == 0 {
			return m, nil
		}
		m.exporting = true
		return m, exportCmd(m.backend, m.opts, m.summary)

	case keyTab:
		if m.focusedPanel == FocusTranscript {
			m.focusedPanel = FocusAnalyses
		} else {
			m.focusedPanel = FocusTranscript
		}
		return m, nil

	case keyUp:
		if m.focusedPanel == FocusTranscript {
			m.transcriptLive = false
			if m.transcriptScroll > 0 {
				m.transcriptScroll--
			}
		} else if m.analysisScroll > 0 {
			m.analysisScroll--
		}
		return m, nil

	case keyDown:
		if m.focusedPanel == FocusTranscript {
			maxScroll := m.maxTranscriptScroll()
			m.transcriptScroll++
			if m.transcriptScroll >= maxScroll {
				m.transcriptScroll = maxScroll
				m.transcriptLive = true
			}
		} else {
			m.analysisScroll++
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) scrollToBottom() {
	m.transcriptScroll = m.maxTranscriptScroll()
}

func (m Model) maxTranscriptScroll() int {
	total := len(m.segments)
	visible := m.contentHeight()
	if total <= visible {
		return 0
	}
	return total - visible
}

func (m Model) contentHeight() int {
	if m.height == 0 {
		return 20
	}
	// header(1) + status(1) + dividers(2) + error/notice(1) + footer(1)
	reserved := 7
	if v := m.height - reserved; v > 5 {
		return v
	}
	return 5
}

func (m Model) transcriptPanelWidth() int {
	if m.width == 0 {
		return 60
	}
	w := m.width * 55 / 100
	if w < 30 {
		w = 30
	}
	return w
}

func (m Model) analysisPanelWidth() int {
	if m.width == 0 {
		return 40
	}
	w := m.width - m.transcriptPanelWidth() - 1
	if w < 20 {
		w = 20
	}
	return w
}

func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	sections := []string{
		m.renderHeader(),
		m.renderStatusBar(),
		dividerStyle.Render(strings.Repeat("─", m.width)),
		m.renderMainContent(),
		dividerStyle.Render(strings.Repeat("─", m.width)),
	}
	if m.errorMessage != "" {
		sections = append(sections, errorStyle.Render("Error: ")+errorTextStyle.Render(m.errorMessage))
	} else if m.notice != "" {
		sections = append(sections, dimStyle.Render(m.notice))
	}
	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := titleStyle.Render("LIVETRANS")
	var modelInfo string
	if m.opts.ModelName != "" {
		modelInfo = dimStyle.Render(" — " + m.opts.ModelName)
	}
	var lang string
	if m.opts.Language != "" {
		lang = dimStyle.Render(" [" + m.opts.Language + "]")
	}
	return title + modelInfo + lang
}

func (m Model) renderStatusBar() string {
	var dot string
	switch m.state {
	case domain.ConnStateConnected:
		dot = liveDotStyle.Render("● LIVE")
	case domain.ConnStateConnecting:
		dot = connectingDotStyle.Render("◌ CONNECTING")
	case domain.ConnStateError:
		dot = errorStyle.Render("✖ ERROR")
	default:
		dot = idleDotStyle.Render("○ IDLE")
	}
	if m.connecting && m.state != domain.ConnStateConnecting {
		dot = connectingDotStyle.Render("◌ CONNECTING")
	}

	var levels string
	if m.state == domain.ConnStateConnected {
		levels = "  " + renderLevelMeter(m.level)
	}

	var muted string
	if m.muted {
		muted = "  " + mutedBadgeStyle.Render("MUTED")
	}

	var working string
	if m.summarizing {
		working = "  " + dimStyle.Render("summarizing…")
	}

	return dot + levels + muted + working
}

func renderLevelMeter(level float64) string {
	const barLen = 10
	// Mean amplitude rarely exceeds 0.3 on speech; stretch for visibility.
	filled := int(level * 3 * barLen)
	if filled > barLen {
		filled = barLen
	}

	var bar string
	for i := 0; i < barLen; i++ {
		if i < filled {
			if float64(i)/barLen > 0.7 {
				bar += levelHotStyle.Render("█")
			} else {
				bar += levelOnStyle.Render("█")
			}
		} else {
			bar += levelOffStyle.Render("░")
		}
	}
	return sourceLabelStyle.Render("MIC") + " " + bar
}

func (m Model) renderMainContent() string {
	leftW := m.transcriptPanelWidth()
	rightW := m.analysisPanelWidth()
	contentH := m.contentHeight()

	left := strings.Split(m.renderTranscriptPanel(leftW, contentH), "\n")
	right := strings.Split(m.renderAnalysisPanel(rightW, contentH), "\n")
	divider := dividerStyle.Render("│")

	rows := make([]string, 0, contentH)
	for i := 0; i < contentH; i++ {
		var l, r string
		if i < len(left) {
			l = left[i]
		}
		if i < len(right) {
			r = right[i]
		}
		rows = append(rows, padRight(l, leftW)+divider+r)
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderTranscriptPanel(width, height int) string {
	badge := liveBadgeStyle.Render(" LIVE")
	if !m.transcriptLive {
		badge = scrollBadgeStyle.Render(" SCROLL")
	}
	header := panelTitleStyle.Render("TRANSCRIPT") + badge
	if m.focusedPanel == FocusTranscript {
		header = panelTitleActiveStyle.Render("TRANSCRIPT") + badge
	}

	lines := []string{header}
	contentHeight := height - 1

	if len(m.segments) == 0 {
		lines = append(lines, "")
		switch m.state {
		case domain.ConnStateConnected:
			lines = append(lines, dimStyle.Render("  Listening…"))
		default:
			lines = append(lines, dimStyle.Render("  Press Space to start a session"))
		}
	} else {
		prefixWidth := 19 // "  [HH:MM:SS] SRC "
		textWidth := width - prefixWidth - 2
		if textWidth < 10 {
			textWidth = 10
		}
		indent := strings.Repeat(" ", prefixWidth)

		var display []string
		for _, segment := range m.segments {
			ts := timestampStyle.Render(time.UnixMilli(segment.TimestampMs).Format("[15:04:05]"))
			label := sourceLabelStyle.Render("[SRC] ")
			if segment.Speaker == domain.SpeakerModel {
				label = translatorLabelStyle.Render("[TRN] ")
			}
			text := segment.Text
			style := lipgloss.NewStyle()
			if segment.IsPartial {
				text += "▌"
				style = partialTextStyle
			}
			wrapped := wrapText(text, textWidth)
			display = append(display, ts+" "+label+style.Render(wrapped[0]))
			for _, wl := range wrapped[1:] {
				display = append(display, indent+style.Render(wl))
			}
		}

		start := m.transcriptScroll
		if m.transcriptLive && len(display) > contentHeight {
			start = len(display) - contentHeight
		}
		if start < 0 {
			start = 0
		}
		end := start + contentHeight
		if end > len(display) {
			end = len(display)
		}
		for i := start; i < end; i++ {
			lines = append(lines, "  "+display[i])
		}
	}

	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines[:height], "\n")
}

func (m Model) renderAnalysisPanel(width, height int) string {
	title := fmt.Sprintf("ANALYSES (%d)", len(m.analyses))
	header := panelTitleStyle.Render(title)
	if m.focusedPanel == FocusAnalyses {
		header = panelTitleActiveStyle.Render(title)
	}

	lines := []string{header}
	textWidth := width - 4
	if textWidth < 10 {
		textWidth = 10
	}

	if m.summary != "" {
		lines = append(lines, panelTitleStyle.Render("  FINAL SUMMARY"))
		for _, wl := range wrapText(m.summary, textWidth) {
			lines = append(lines, "  "+wl)
		}
		lines = append(lines, "")
	}

	if len(m.analyses) == 0 && m.summary == "" {
		lines = append(lines, dimStyle.Render("  No analyses yet"))
		lines = append(lines, dimStyle.Render("  They appear every few minutes"))
	} else {
		// Newest record first.
		for i := len(m.analyses) - 1; i >= 0; i-- {
			record := m.analyses[i]
			lines = append(lines, panelTitleStyle.Render("  "+record.TimeRange))
			for _, wl := range wrapText(record.Content, textWidth) {
				lines = append(lines, "  "+wl)
			}
			lines = append(lines, "")
		}
	}

	contentHeight := height - 1
	body := lines[1:]
	start := m.analysisScroll
	if start > len(body)-1 {
		start = len(body) - 1
	}
	if start < 0 {
		start = 0
	}
	end := start + contentHeight
	if end > len(body) {
		end = len(body)
	}

	out := append([]string{lines[0]}, body[start:end]...)
	for len(out) < height {
		out = append(out, "")
	}
	return strings.Join(out[:height], "\n")
}

func (m Model) renderFooter() string {
	var parts []string
	if m.state == domain.ConnStateConnected {
		parts = append(parts, footerKeyStyle.Render("Space")+footerDescStyle.Render(" Stop"))
	} else {
		parts = append(parts, footerKeyStyle.Render("Space")+footerDescStyle.Render(" Start"))
	}
	parts = append(parts,
		footerKeyStyle.Render("m")+footerDescStyle.Render(" Mute"),
		footerKeyStyle.Render("s")+footerDescStyle.Render(" Summary"),
		footerKeyStyle.Render("e")+footerDescStyle.Render(" Export"),
		footerKeyStyle.Render("Tab")+footerDescStyle.Render(" Focus"),
		footerKeyStyle.Render("↑↓")+footerDescStyle.Render(" Scroll"),
		footerKeyStyle.Render("q")+footerDescStyle.Render(" Quit"),
	)
	return strings.Join(parts, "  ")
}

// Helpers

func padRight(s string, width int) string {
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		var current string
		for _, word := range strings.Fields(paragraph) {
			for _, piece := range breakWord(word, width) {
				switch {
				case current == "":
					current = piece
				case lipgloss.Width(current)+1+lipgloss.Width(piece) <= width:
					current += " " + piece
				default:
					lines = append(lines, current)
					current = piece
				}
			}
		}
		lines = append(lines, current)
	}
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}

// breakWord hard-splits a word wider than one line. Translated output is
// often unspaced CJK text, so one "word" can be a whole sentence of
// double-width runes; splitting counts display cells, not bytes.
func breakWord(word string, width int) []string {
	if lipgloss.Width(word) <= width {
		return []string{word}
	}
	var pieces []string
	var piece strings.Builder
	cells := 0
	for _, r := range word {
		w := lipgloss.Width(string(r))
		if piece.Len() > 0 && cells+w > width {
			pieces = append(pieces, piece.String())
			piece.Reset()
			cells = 0
		}
		piece.WriteRune(r)
		cells += w
	}
	if piece.Len() > 0 {
		pieces = append(pieces, piece.String())
	}
	return pieces
}
