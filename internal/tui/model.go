// pattern: Imperative Shell

// Package tui is the interactive project explorer.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"gasview/internal/gas"
	"gasview/internal/logging"
)

// Service loads the data the tree is built from.
type Service interface {
	Projects(ctx context.Context) ([]gas.Project, error)
	Deployments(ctx context.Context, projectID string) ([]gas.DisplayDeployment, error)
	Clone(ctx context.Context, project gas.Project, destDir string) (string, error)
}

// Desktop performs host side effects.
type Desktop interface {
	Copy(text string) error
	OpenURL(url string) error
	OpenEditor(editor, dir string) error
}

// Options configures the model.
type Options struct {
	Theme       string
	Editor      string
	DownloadDir string
	// Source names where projects come from, shown in the header.
	Source  string
	Timeout time.Duration
}

// StatusLevel is the kind of message shown in the status bar.
type StatusLevel int

const (
	StatusInfo StatusLevel = iota
	StatusLoading
	StatusSuccess
	StatusError
)

type promptMode int

const (
	promptNone promptMode = iota
	promptDownloadDir
	promptOpenEditor
)

const (
	maxLogEntries     = 500
	logBatchSize      = 100
	statusClearDelay  = 3 * time.Second
	doubleCtrlCWindow = 500 * time.Millisecond
)

// logScopes are the log panel filters in cycling order. "" shows everything.
var logScopes = []string{"", "explorer", "script", "clasp", "desktop", "tui", "app", "cli"}

// Model represents the TUI application state.
type Model struct {
	width  int
	height int
	styles *Styles
	keys   KeyMap
	opts   Options

	svc     Service
	desktop Desktop
	logger  *logging.ScopedLogger
	logCh   <-chan logging.LogEntry

	projects        []gas.Project
	states          map[string]projectState
	expanded        map[string]bool
	treeItems       []TreeItem
	selectedIdx     int
	scrollOffset    int
	loadingProjects bool
	cloning         bool

	statusLevel   StatusLevel
	statusMessage string
	statusSeq     int
	statusSpinner spinner.Model
	err           error

	detailPanelOpen bool
	detailViewport  viewport.Model
	detailReady     bool

	logPanelOpen bool
	logViewport  viewport.Model
	logReady     bool
	logEntries   []logging.LogEntry
	logFilter    int

	prompt        promptMode
	input         textinput.Model
	promptProject gas.Project
	downloadedDir string

	lastCtrlCTime time.Time
}

// NewModel creates the explorer model. logCh feeds the log panel and may be nil.
func NewModel(svc Service, desktop Desktop, opts Options, logProvider logging.LoggerProvider, logCh <-chan logging.LogEntry) Model {
	logger := logging.NopLogger()
	if logProvider != nil {
		logger = logProvider.For("tui")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	styles := NewStyles(opts.Theme)
	s.Style = styles.AccentStyle()

	input := textinput.New()
	input.Prompt = ""
	input.CharLimit = 1024

	logger.Debug("tui model created", "theme", opts.Theme, "source", opts.Source)

	return Model{
		styles:          styles,
		keys:            DefaultKeyMap(),
		opts:            opts,
		svc:             svc,
		desktop:         desktop,
		logger:          logger,
		logCh:           logCh,
		states:          make(map[string]projectState),
		expanded:        make(map[string]bool),
		loadingProjects: true,
		statusLevel:     StatusLoading,
		statusMessage:   "Loading projects...",
		statusSpinner:   s,
		input:           input,
	}
}

// Init returns the initial command to run.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadProjects(), m.statusSpinner.Tick}
	if m.logCh != nil {
		cmds = append(cmds, consumeLogEntries(m.logCh))
	}
	return tea.Batch(cmds...)
}

// Message types for async operations.
type projectsLoadedMsg struct {
	projects []gas.Project
	err      error
}

type deploymentsLoadedMsg struct {
	projectID   string
	deployments []gas.DisplayDeployment
	err         error
}

type cloneDoneMsg struct {
	project gas.Project
	dir     string
	err     error
}

// actionDoneMsg reports a finished desktop side effect.
type actionDoneMsg struct {
	success string
	failure string
	err     error
}

// logEntriesMsg delivers log entries from the logging channel.
type logEntriesMsg struct {
	entries []logging.LogEntry
}

// clearStatusMsg clears the status bar if nothing replaced it since.
type clearStatusMsg struct {
	seq int
}

// CredentialsChangedMsg is sent when the clasp credentials file changes.
// The tree is rebuilt from scratch.
type CredentialsChangedMsg struct{}

func (m Model) loadProjects() tea.Cmd {
	svc, timeout := m.svc, m.opts.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		projects, err := svc.Projects(ctx)
		return projectsLoadedMsg{projects: projects, err: err}
	}
}

func (m Model) loadDeployments(projectID string) tea.Cmd {
	svc, timeout := m.svc, m.opts.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		deployments, err := svc.Deployments(ctx, projectID)
		return deploymentsLoadedMsg{projectID: projectID, deployments: deployments, err: err}
	}
}

func (m Model) cloneProject(project gas.Project, destDir string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		dir, err := svc.Clone(context.Background(), project, destDir)
		return cloneDoneMsg{project: project, dir: dir, err: err}
	}
}

// runAction wraps a desktop side effect in a command.
func runAction(fn func() error, success, failure string) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{success: success, failure: failure, err: fn()}
	}
}

// consumeLogEntries blocks for the next entry and batches whatever else is queued.
func consumeLogEntries(ch <-chan logging.LogEntry) tea.Cmd {
	return func() tea.Msg {
		first, ok := <-ch
		if !ok {
			return nil
		}
		entries := append([]logging.LogEntry{first}, logging.Drain(ch, logBatchSize)...)
		return logEntriesMsg{entries: entries}
	}
}

func clearStatusAfter(seq int, d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return clearStatusMsg{seq: seq}
	})
}

// setStatus replaces the status bar message. Success messages clear
// themselves after a delay.
func (m *Model) setStatus(level StatusLevel, message string) tea.Cmd {
	m.statusSeq++
	m.statusLevel = level
	m.statusMessage = message
	if level != StatusError {
		m.err = nil
	}
	switch level {
	case StatusSuccess:
		return clearStatusAfter(m.statusSeq, statusClearDelay)
	case StatusLoading:
		return m.statusSpinner.Tick
	}
	return nil
}

// setError shows err in the status bar and logs it.
func (m *Model) setError(message string, err error) {
	m.statusSeq++
	m.statusLevel = StatusError
	m.statusMessage = message + ": " + err.Error()
	m.err = err
	m.logger.Error(message, "error", err)
}

func (m *Model) clearStatus() {
	m.statusSeq++
	m.statusLevel = StatusInfo
	m.statusMessage = ""
	m.err = nil
}

// busy reports whether any load or clone is still in flight.
func (m Model) busy() bool {
	if m.loadingProjects || m.cloning {
		return true
	}
	for _, st := range m.states {
		if st.Loading {
			return true
		}
	}
	return false
}

// rebuildTree recomputes visible rows and keeps the selection on the same
// row when it still exists.
func (m *Model) rebuildTree() {
	var selectedKey string
	if item, ok := m.selectedItem(); ok {
		selectedKey = item.Key()
	}

	m.treeItems = BuildTree(m.projects, m.states, m.expanded)

	if idx := indexOfKey(m.treeItems, selectedKey); idx >= 0 {
		m.selectedIdx = idx
	}
	m.clampSelection()
	m.updateDetailViewportContent()
}

func (m *Model) clampSelection() {
	if m.selectedIdx >= len(m.treeItems) {
		m.selectedIdx = len(m.treeItems) - 1
	}
	if m.selectedIdx < 0 {
		m.selectedIdx = 0
	}
	m.ensureVisible()
}

// ensureVisible scrolls the tree so the selected row is on screen.
func (m *Model) ensureVisible() {
	height := ComputeLayout(m.width, m.height, m.logPanelOpen, m.detailPanelOpen, m.prompt != promptNone).TreeBodyHeight()
	if m.selectedIdx < m.scrollOffset {
		m.scrollOffset = m.selectedIdx
	}
	if m.selectedIdx >= m.scrollOffset+height {
		m.scrollOffset = m.selectedIdx - height + 1
	}
	if m.scrollOffset < 0 {
		m.scrollOffset = 0
	}
}

func (m Model) selectedItem() (TreeItem, bool) {
	if m.selectedIdx < 0 || m.selectedIdx >= len(m.treeItems) {
		return TreeItem{}, false
	}
	return m.treeItems[m.selectedIdx], true
}

func (m *Model) addLogEntry(entry logging.LogEntry) {
	m.logEntries = append(m.logEntries, entry)
	if len(m.logEntries) > maxLogEntries {
		m.logEntries = m.logEntries[len(m.logEntries)-maxLogEntries:]
	}
}

// visibleLogEntries returns the entries that pass the current scope filter.
func (m Model) visibleLogEntries() []logging.LogEntry {
	scope := logScopes[m.logFilter]
	if scope == "" {
		return m.logEntries
	}
	var out []logging.LogEntry
	for _, e := range m.logEntries {
		if e.MatchesScope(scope) {
			out = append(out, e)
		}
	}
	return out
}
