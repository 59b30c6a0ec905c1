package tui

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/cj3636/gblame/internal/blame"
	"github.com/cj3636/gblame/internal/commit"
	"github.com/cj3636/gblame/internal/config"
	"github.com/cj3636/gblame/internal/diff"
	"github.com/cj3636/gblame/internal/export"
	"github.com/cj3636/gblame/internal/gutter"
)

// fetchMsg asks Update to (re)start the blame at revision.
type fetchMsg struct {
	revision   string
	keepCursor bool
}

type copiedMsg struct {
	id  commit.ID
	err error
}

// notes collects notifications fired by the blame source and by commits
// while a runMsg callback executes. Update consumes them afterwards.
type notes struct {
	blameDone bool
	blameErr  error
	logReady  bool
}

// Options configure a Model.
type Options struct {
	Config *config.Config
	Source *blame.Source
	Target Target
	// Clipboard receives OSC52 sequences. Defaults to stdout.
	Clipboard io.Writer
}

// Model represents the application state
type Model struct {
	cfg     *config.Config
	styles  *Styles
	keys    keyMap
	help    help.Model
	spinner spinner.Model

	src      *blame.Source
	target   Target
	revision string
	// path and relPath name the file blamed last. They differ from target
	// after following a rename into a parent commit.
	path    string
	relPath string
	notes    *notes
	watched  map[*commit.Commit]func()

	viewport Viewport
	cursor   int
	width    int
	height   int
	showHelp bool

	// panel is the commit shown in the details panel.
	panel *commit.Commit
	// parentOf is the commit whose first parent is blamed once its log
	// data arrives.
	parentOf *commit.Commit

	prevTexts  []string
	prevCursor int

	status    string
	clipboard io.Writer
}

// Viewport controls the visible portion of the blame
type Viewport struct {
	offset int // Current scroll position
	height int // Available height for content
}

// NewModel creates a new TUI model. The source must dispatch its callbacks
// through a ProgramDispatcher attached to the program running the model.
func NewModel(opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	styles := createStyles(cfg.Theme, cfg.Spacing.LineNumberWidth)

	n := &notes{}
	opts.Source.OnCompleted(func(err error) {
		n.blameDone = true
		n.blameErr = err
	})

	h := help.New()
	h.ShowAll = true

	clip := opts.Clipboard
	if clip == nil {
		clip = os.Stdout
	}

	return Model{
		cfg:       cfg,
		styles:    styles,
		keys:      newKeyMap(cfg.Keybindings),
		help:      h,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.help)),
		src:       opts.Source,
		target:    opts.Target,
		revision:  opts.Target.Revision,
		path:      opts.Target.Path,
		relPath:   opts.Target.RelPath,
		notes:     n,
		watched:   make(map[*commit.Commit]func()),
		viewport:  Viewport{offset: 0, height: 20},
		clipboard: clip,
	}
}

func fetchCmd(revision string, keepCursor bool) tea.Cmd {
	return func() tea.Msg {
		return fetchMsg{revision: revision, keepCursor: keepCursor}
	}
}

// Init starts the first blame.
func (m Model) Init() tea.Cmd {
	return fetchCmd(m.revision, false)
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runMsg:
		msg.fn()
		cmd := m.consumeNotes()
		return m, cmd

	case fetchMsg:
		cmd := m.startFetch(msg.revision, msg.keepCursor)
		return m, cmd

	case copiedMsg:
		if msg.err != nil {
			m.status = "Copy failed: " + msg.err.Error()
		} else {
			m.status = "Copied " + msg.id.Short()
		}

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.updateViewportHeight()
		m.ensureVisible()
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""

	var cmd tea.Cmd
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.src.Close()
		return *m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		// Close the commit panel if opening help
		if m.showHelp {
			m.panel = nil
		}
		m.updateViewportHeight()
	case key.Matches(msg, m.keys.ClosePanel):
		m.panel = nil
		m.showHelp = false
		m.updateViewportHeight()
	case key.Matches(msg, m.keys.ToggleAuthor):
		m.cfg.ShowAuthor = !m.cfg.ShowAuthor
	case key.Matches(msg, m.keys.ToggleLineNumbers):
		m.cfg.ShowLineNo = !m.cfg.ShowLineNo
	case key.Matches(msg, m.keys.ShowCommit):
		cmd = m.showCommit()
	case key.Matches(msg, m.keys.BlameParent):
		cmd = m.blameParent()
	case key.Matches(msg, m.keys.Reload):
		cmd = m.startFetch(m.revision, true)
	case key.Matches(msg, m.keys.CopyCommit):
		cmd = m.copyCommit()
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.PageDown):
		m.moveCursor(max(1, m.viewport.height/2))
	case key.Matches(msg, m.keys.PageUp):
		m.moveCursor(-max(1, m.viewport.height/2))
	case key.Matches(msg, m.keys.Top):
		m.moveCursor(-m.src.LineCount())
	case key.Matches(msg, m.keys.Bottom):
		m.moveCursor(m.src.LineCount())
	case key.Matches(msg, m.keys.NextCommit):
		m.jumpCommit(1)
	case key.Matches(msg, m.keys.PrevCommit):
		m.jumpCommit(-1)
	}

	return *m, cmd
}

// startFetch blames revision. With keepCursor the cursor follows its line
// into the new result.
func (m *Model) startFetch(revision string, keepCursor bool) tea.Cmd {
	if keepCursor && m.src.LineCount() > 0 {
		m.prevTexts = lineTexts(m.src)
		m.prevCursor = m.cursor
	} else {
		m.prevTexts = nil
		m.cursor = 0
		m.viewport.offset = 0
	}

	m.revision = revision
	m.notes.blameDone = false
	if err := m.src.Fetch(m.path, revision); err != nil {
		m.prevTexts = nil
		return nil
	}
	return m.spinner.Tick
}

// consumeNotes applies notifications recorded by callbacks.
func (m *Model) consumeNotes() tea.Cmd {
	var cmd tea.Cmd

	if m.notes.blameDone {
		m.notes.blameDone = false
		if m.notes.blameErr == nil && m.prevTexts != nil {
			m.cursor = diff.MapLine(m.prevTexts, lineTexts(m.src), m.prevCursor)
		}
		m.prevTexts = nil
		m.clampCursor()
		m.ensureVisible()
	}

	if m.notes.logReady {
		m.notes.logReady = false
		for c, unsub := range m.watched {
			if c.HasLogData() {
				unsub()
				delete(m.watched, c)
			}
		}
		cmd = m.followParent()
	}

	return cmd
}

func (m *Model) busy() bool {
	if m.src.Loading() {
		return true
	}
	if m.panel != nil && m.panel.Fetching() {
		return true
	}
	return m.parentOf != nil
}

// requestLog starts loading the log data of c and subscribes to its
// arrival.
func (m *Model) requestLog(c *commit.Commit) tea.Cmd {
	if c.IsUncommitted() || c.HasLogData() {
		return nil
	}

	if _, ok := m.watched[c]; !ok {
		n := m.notes
		m.watched[c] = c.OnLogData(func() { n.logReady = true })
	}
	if err := c.FetchLogData(); err != nil {
		m.status = err.Error()
		m.watched[c]()
		delete(m.watched, c)
		return nil
	}
	return m.spinner.Tick
}

func (m *Model) showCommit() tea.Cmd {
	c := m.selected()
	if c == nil {
		return nil
	}
	m.panel = c
	m.showHelp = false
	m.updateViewportHeight()
	return m.requestLog(c)
}

func (m *Model) blameParent() tea.Cmd {
	c := m.selected()
	if c == nil {
		return nil
	}
	if c.IsUncommitted() {
		m.status = "Line is not committed yet"
		return nil
	}

	m.parentOf = c
	if c.HasLogData() {
		return m.followParent()
	}
	if cmd := m.requestLog(c); cmd != nil {
		return cmd
	}
	m.parentOf = nil
	return nil
}

// followParent blames the first parent of parentOf once it is known.
func (m *Model) followParent() tea.Cmd {
	c := m.parentOf
	if c == nil || !c.HasLogData() {
		return nil
	}
	m.parentOf = nil

	parents := c.Parents()
	if len(parents) == 0 {
		m.status = fmt.Sprintf("No parent commit for %s", c.ID().Short())
		return nil
	}
	// The file may have been renamed by c; porcelain records the name it
	// had there, relative to the repository root.
	if name, ok := c.Property("filename"); ok && name != "" {
		m.path = filepath.Join(m.src.Repo(), filepath.FromSlash(name))
		m.relPath = name
	}
	return m.startFetch(string(parents[0].ID()), true)
}

func (m *Model) copyCommit() tea.Cmd {
	c := m.selected()
	if c == nil || c.IsUncommitted() {
		return nil
	}
	id, w := c.ID(), m.clipboard
	return func() tea.Msg {
		return copiedMsg{id: id, err: export.CopyToClipboard(string(id), w)}
	}
}

func (m Model) selected() *commit.Commit {
	if m.cursor < 0 || m.cursor >= m.src.LineCount() {
		return nil
	}
	return m.src.Line(m.cursor).Commit
}

func lineTexts(src *blame.Source) []string {
	texts := make([]string, src.LineCount())
	for i := range texts {
		texts[i] = src.Line(i).Text
	}
	return texts
}

// View renders the UI
func (m Model) View() string {
	var sections []string

	sections = append(sections, m.renderTitle())
	sections = append(sections, m.renderBlame())

	// Bottom panel (commit details or help) - shown below main view
	if m.panel != nil {
		sections = append(sections, m.renderCommitPanel())
	} else if m.showHelp {
		sections = append(sections, m.renderHelpPanel())
	}

	sections = append(sections, m.renderStatusBar())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderTitle renders the title bar
func (m Model) renderTitle() string {
	rev := m.revision
	if rev == "" {
		rev = "working copy"
	} else if commit.ValidID(rev) {
		rev = commit.ID(rev).Short()
	}

	title := fmt.Sprintf("gblame: %s @ %s", m.relPath, rev)
	if m.src.Loading() {
		title += " " + m.spinner.View()
	}
	return m.styles.title.Render(title)
}

// renderBlame renders the visible lines
func (m Model) renderBlame() string {
	if err := m.src.Err(); err != nil {
		return m.styles.errorText.Render("Error: " + err.Error())
	}

	n := m.src.LineCount()
	if n == 0 {
		if m.src.Loading() {
			return m.spinner.View() + m.styles.help.Render(" Loading blame…")
		}
		return m.styles.text.Render("No lines to show.")
	}

	start := m.viewport.offset
	end := min(start+m.viewport.height, n)
	if start >= end {
		start = max(0, n-m.viewport.height)
		end = n
	}

	width := m.gutterWidth()
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		lines = append(lines, m.renderLine(i, i == start, width))
	}
	return strings.Join(lines, "\n")
}

func (m Model) gutterOptions() gutter.Options {
	return gutter.Options{
		ShowAuthor:  m.cfg.ShowAuthor,
		AuthorWidth: m.cfg.Spacing.AuthorWidth,
		DateFormat:  m.cfg.DateFormat,
	}
}

func (m Model) gutterWidth() int {
	w := gutter.HashWidth
	if m.cfg.ShowAuthor {
		w += 1 + m.cfg.Spacing.AuthorWidth
		if m.cfg.DateFormat != "" {
			w += 1 + runewidth.StringWidth(time.Unix(0, 0).UTC().Format(m.cfg.DateFormat))
		}
	}
	return w
}

// renderLine renders line i. The gutter is labelled on the first line of
// each run of lines from one commit, and on the first visible line.
func (m Model) renderLine(i int, firstVisible bool, gutterW int) string {
	l := m.src.Line(i)
	start := firstVisible || i == 0 || m.src.Line(i-1).Commit != l.Commit

	cell := gutter.For(l, m.gutterOptions())
	label := ""
	if start {
		label = cell.String()
	}

	bg := gutter.HashColor(l.Commit.ID())
	gs := lipgloss.NewStyle().
		Background(lipgloss.Color(bg.Hex())).
		Foreground(lipgloss.Color(gutter.TextColor(bg).Hex()))
	if cell.Uncommitted {
		gs = gs.Italic(true)
	}

	parts := []string{gs.Render(gutter.Fit(label, gutterW)), " "}
	used := gutterW + 1

	if m.cfg.ShowLineNo {
		parts = append(parts, m.styles.lineNumber.Render(strconv.Itoa(l.FinalLine)), " ")
		used += m.cfg.Spacing.LineNumberWidth + 1
	}

	text := gutter.ExpandTabs(gutter.DisplayText(l.Text), m.cfg.TabSize)
	if m.width > 0 {
		textW := max(1, m.width-used)
		text = runewidth.Truncate(text, textW, "…")
		if i == m.cursor {
			text = runewidth.FillRight(text, textW)
		}
	}

	style := m.styles.text
	if i == m.cursor {
		style = m.styles.selected
	}
	parts = append(parts, style.Render(text))

	return strings.Join(parts, "")
}

// renderStatusBar renders the status bar
func (m Model) renderStatusBar() string {
	pos := "-"
	if n := m.src.LineCount(); n > 0 {
		pos = fmt.Sprintf("%d/%d", m.cursor+1, n)
	}

	info := ""
	if c := m.selected(); c != nil {
		if c.IsUncommitted() {
			info = "Not committed yet"
		} else {
			info = c.ID().Short()
			if s := c.Summary(); s != "" {
				info += " " + s
			}
		}
	}

	status := fmt.Sprintf("Line %s | %s", pos, info)
	if m.status != "" {
		status += " | " + m.status
	}
	status += " | " + m.help.ShortHelpView(m.keys.ShortHelp())

	if m.width > 0 {
		return m.styles.statusBar.Width(m.width).MaxWidth(m.width).MaxHeight(1).Render(status)
	}
	return m.styles.statusBar.Render(status)
}

// renderHelpPanel renders the help panel below the main view
func (m Model) renderHelpPanel() string {
	style := m.styles.panel
	if m.width > 2 {
		style = style.Width(m.width - 2)
	}
	return style.Render(m.help.FullHelpView(m.keys.FullHelp()))
}

func (m Model) helpPanelHeight() int {
	return lipgloss.Height(m.renderHelpPanel())
}

// Scroll functions
func (m *Model) moveCursor(delta int) {
	m.cursor += delta
	m.clampCursor()
	m.ensureVisible()
}

// jumpCommit moves the cursor to the start of the next (dir > 0) or
// previous run of lines belonging to a different commit.
func (m *Model) jumpCommit(dir int) {
	n := m.src.LineCount()
	if n == 0 {
		return
	}

	cur := m.src.Line(m.cursor).Commit
	i := m.cursor
	for i >= 0 && i < n && m.src.Line(i).Commit == cur {
		i += dir
	}
	if i < 0 || i >= n {
		return
	}
	if dir < 0 {
		// Go to the top of the run just reached.
		target := m.src.Line(i).Commit
		for i > 0 && m.src.Line(i-1).Commit == target {
			i--
		}
	}
	m.cursor = i
	m.ensureVisible()
}

func (m *Model) clampCursor() {
	n := m.src.LineCount()
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// ensureVisible scrolls so the cursor is inside the viewport.
func (m *Model) ensureVisible() {
	if m.cursor < m.viewport.offset {
		m.viewport.offset = m.cursor
	}
	if m.cursor >= m.viewport.offset+m.viewport.height {
		m.viewport.offset = m.cursor - m.viewport.height + 1
	}
	maxOffset := max(0, m.src.LineCount()-m.viewport.height)
	if m.viewport.offset > maxOffset {
		m.viewport.offset = maxOffset
	}
	if m.viewport.offset < 0 {
		m.viewport.offset = 0
	}
}

// updateViewportHeight calculates and sets the viewport height based on screen size and active panels
func (m *Model) updateViewportHeight() {
	// Base height: total - title bar - status bar
	baseHeight := m.height - 2

	if m.panel != nil {
		baseHeight -= m.cfg.Spacing.PanelHeight
	} else if m.showHelp {
		baseHeight -= m.helpPanelHeight()
	}

	// Ensure minimum height
	if baseHeight < 3 {
		baseHeight = 3
	}

	m.viewport.height = baseHeight
}
