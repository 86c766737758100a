// pattern: Imperative Shell

package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"gasview/internal/gas"
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizePanels()
		m.ensureVisible()
		return m, nil

	case spinner.TickMsg:
		if m.statusLevel != StatusLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.statusSpinner, cmd = m.statusSpinner.Update(msg)
		return m, cmd

	case projectsLoadedMsg:
		return m.handleProjectsLoaded(msg)

	case deploymentsLoadedMsg:
		return m.handleDeploymentsLoaded(msg)

	case cloneDoneMsg:
		m.cloning = false
		if msg.err != nil {
			m.setError("Download failed", msg.err)
			return m, nil
		}
		m.logger.Info("project downloaded", "project", msg.project.ID, "dir", msg.dir)
		cmd := m.setStatus(StatusSuccess, "Downloaded to "+msg.dir)
		if strings.TrimSpace(m.opts.Editor) == "" {
			return m, cmd
		}
		m.downloadedDir = msg.dir
		m.openPrompt(promptOpenEditor, msg.project)
		return m, cmd

	case actionDoneMsg:
		if msg.err != nil {
			m.setError(msg.failure, msg.err)
			return m, nil
		}
		return m, m.setStatus(StatusSuccess, msg.success)

	case CredentialsChangedMsg:
		m.logger.Info("credentials changed, reloading")
		return m, m.refresh("Credentials changed, reloading...")

	case logEntriesMsg:
		for _, entry := range msg.entries {
			m.addLogEntry(entry)
		}
		if m.logPanelOpen && m.logReady {
			m.updateLogViewportContent()
		}
		if m.logCh != nil {
			return m, consumeLogEntries(m.logCh)
		}
		return m, nil

	case clearStatusMsg:
		if msg.seq == m.statusSeq && m.statusLevel != StatusError && m.statusLevel != StatusLoading {
			m.clearStatus()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleProjectsLoaded(msg projectsLoadedMsg) (tea.Model, tea.Cmd) {
	m.loadingProjects = false
	if msg.err != nil {
		m.setError("Failed to load projects", msg.err)
		m.rebuildTree()
		return m, nil
	}

	m.projects = msg.projects
	m.states = make(map[string]projectState, len(msg.projects))
	m.logger.Info("projects loaded", "count", len(msg.projects))

	// Reload every expanded project so the tree comes back as it was.
	var cmds []tea.Cmd
	for _, p := range m.projects {
		if m.expanded[projectKey(p.ID)] {
			m.states[p.ID] = projectState{Loading: true}
			cmds = append(cmds, m.loadDeployments(p.ID))
		}
	}
	m.rebuildTree()

	if len(cmds) > 0 {
		cmds = append(cmds, m.setStatus(StatusLoading, "Loading deployments..."))
		return m, tea.Batch(cmds...)
	}
	return m, m.setStatus(StatusSuccess, fmt.Sprintf("Loaded %d projects", len(m.projects)))
}

func (m Model) handleDeploymentsLoaded(msg deploymentsLoadedMsg) (tea.Model, tea.Cmd) {
	name := msg.projectID
	for _, p := range m.projects {
		if p.ID == msg.projectID {
			name = p.Name
			break
		}
	}

	if msg.err != nil {
		m.states[msg.projectID] = projectState{Err: msg.err}
		m.rebuildTree()
		m.setError("Failed to load deployments for "+name, msg.err)
		return m, nil
	}

	m.states[msg.projectID] = projectState{Loaded: true, Deployments: msg.deployments}
	m.rebuildTree()

	if m.busy() || m.statusLevel == StatusError {
		return m, nil
	}
	return m, m.setStatus(StatusSuccess, fmt.Sprintf("%s: %d deployments", name, len(msg.deployments)))
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Handle quit shortcuts first (ctrl+d always, ctrl+c double-press)
	if msg.Type == tea.KeyCtrlD {
		m.logger.Debug("quit via ctrl+d")
		return m, tea.Quit
	}
	if msg.Type == tea.KeyCtrlC {
		now := time.Now()
		if !m.lastCtrlCTime.IsZero() && now.Sub(m.lastCtrlCTime) <= doubleCtrlCWindow {
			m.logger.Debug("quit via double ctrl+c")
			return m, tea.Quit
		}
		m.lastCtrlCTime = now
		m.setStatus(StatusInfo, "ctrl+c ctrl+c to quit")
		return m, clearStatusAfter(m.statusSeq, doubleCtrlCWindow)
	}

	if m.prompt != promptNone {
		return m.handlePromptKey(msg)
	}

	// Clear error with Escape
	if key.Matches(msg, m.keys.ClearErr) && m.statusLevel == StatusError {
		m.clearStatus()
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		m.moveSelection(-1)
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.moveSelection(1)
		return m, nil

	case key.Matches(msg, m.keys.Top):
		m.moveSelection(-len(m.treeItems))
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.moveSelection(len(m.treeItems))
		return m, nil

	case key.Matches(msg, m.keys.Expand):
		return m.expandSelected()

	case key.Matches(msg, m.keys.Collapse):
		m.collapseSelected()
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		if item, ok := m.selectedItem(); ok && item.Expanded {
			m.collapseSelected()
			return m, nil
		}
		return m.expandSelected()

	case key.Matches(msg, m.keys.Refresh):
		return m, m.refresh("Refreshing...")

	case key.Matches(msg, m.keys.CopyID):
		return m, m.copyID()

	case key.Matches(msg, m.keys.CopyRef):
		return m, m.copyReference()

	case key.Matches(msg, m.keys.Open):
		item, ok := m.selectedItem()
		if !ok {
			return m, nil
		}
		url := item.Project.URL
		return m, runAction(func() error { return m.desktop.OpenURL(url) }, "Opened "+url, "Failed to open browser")

	case key.Matches(msg, m.keys.Download):
		item, ok := m.selectedItem()
		if !ok || m.cloning {
			return m, nil
		}
		m.input.SetValue(m.opts.DownloadDir)
		m.input.CursorEnd()
		m.openPrompt(promptDownloadDir, item.Project)
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Detail):
		m.detailPanelOpen = !m.detailPanelOpen
		m.resizePanels()
		return m, nil

	case key.Matches(msg, m.keys.Logs):
		m.logPanelOpen = !m.logPanelOpen
		m.resizePanels()
		m.ensureVisible()
		return m, nil

	case key.Matches(msg, m.keys.LogFilter) && m.logPanelOpen:
		m.logFilter = (m.logFilter + 1) % len(logScopes)
		m.updateLogViewportContent()
		return m, nil
	}

	if m.logPanelOpen && m.logReady {
		var cmd tea.Cmd
		m.logViewport, cmd = m.logViewport.Update(msg)
		return m, cmd
	}
	return m, nil
}

// refresh discards every loaded tree and reloads projects.
func (m *Model) refresh(message string) tea.Cmd {
	m.loadingProjects = true
	return tea.Batch(m.loadProjects(), m.setStatus(StatusLoading, message))
}

func (m *Model) moveSelection(delta int) {
	if len(m.treeItems) == 0 {
		return
	}
	m.selectedIdx += delta
	m.clampSelection()
	m.updateDetailViewportContent()
}

// expandSelected opens the selected row, loading a project's deployments the
// first time it is opened.
func (m Model) expandSelected() (tea.Model, tea.Cmd) {
	item, ok := m.selectedItem()
	if !ok || !item.Expandable || item.Expanded {
		return m, nil
	}

	switch item.Type {
	case TreeItemProject:
		m.expanded[projectKey(item.Project.ID)] = true
		st := m.states[item.Project.ID]
		if st.Loaded || st.Loading {
			m.rebuildTree()
			return m, nil
		}
		m.states[item.Project.ID] = projectState{Loading: true}
		m.rebuildTree()
		m.logger.Debug("loading deployments", "project", item.Project.ID)
		return m, tea.Batch(
			m.loadDeployments(item.Project.ID),
			m.setStatus(StatusLoading, "Loading deployments for "+item.Project.Name+"..."),
		)

	case TreeItemDeployment:
		m.expanded[deploymentKey(item.Project.ID, item.Deployment.Deployment.DeploymentID())] = true
		m.rebuildTree()
	}
	return m, nil
}

// collapseSelected closes the selected row, or moves to its parent when the
// row is not open.
func (m *Model) collapseSelected() {
	item, ok := m.selectedItem()
	if !ok {
		return
	}
	if item.Expanded {
		switch item.Type {
		case TreeItemProject:
			delete(m.expanded, projectKey(item.Project.ID))
		case TreeItemDeployment:
			delete(m.expanded, deploymentKey(item.Project.ID, item.Deployment.Deployment.DeploymentID()))
		}
		m.rebuildTree()
		return
	}
	if parent := parentIndex(m.treeItems, m.selectedIdx); parent >= 0 {
		m.selectedIdx = parent
		m.clampSelection()
		m.updateDetailViewportContent()
	}
}

func (m Model) copyID() tea.Cmd {
	item, ok := m.selectedItem()
	if !ok {
		return nil
	}
	switch item.Type {
	case TreeItemProject:
		id := item.Project.ID
		return runAction(func() error { return m.desktop.Copy(id) }, "Copied project ID", "Failed to copy project ID")
	case TreeItemDeployment:
		id := item.Deployment.Deployment.DeploymentID()
		return runAction(func() error { return m.desktop.Copy(id) }, "Copied deployment ID", "Failed to copy deployment ID")
	}
	return nil
}

func (m Model) copyReference() tea.Cmd {
	item, ok := m.selectedItem()
	if !ok {
		return nil
	}
	sel, ok := item.Selection()
	if !ok {
		return nil
	}
	text := gas.FormatLibraryReference(item.Project, sel).JSON()
	return runAction(func() error { return m.desktop.Copy(text) }, "Copied library reference", "Failed to copy library reference")
}

func (m *Model) openPrompt(mode promptMode, project gas.Project) {
	m.prompt = mode
	m.promptProject = project
	m.resizePanels()
	m.ensureVisible()
}

func (m *Model) closePrompt() {
	m.prompt = promptNone
	m.input.Blur()
	m.downloadedDir = ""
	m.resizePanels()
	m.ensureVisible()
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.prompt {
	case promptDownloadDir:
		switch msg.Type {
		case tea.KeyEscape:
			m.closePrompt()
			return m, nil
		case tea.KeyEnter:
			dest := strings.TrimSpace(m.input.Value())
			if dest == "" {
				dest = "."
			}
			project := m.promptProject
			m.closePrompt()
			m.cloning = true
			m.logger.Info("downloading project", "project", project.ID, "dest", dest)
			return m, tea.Batch(
				m.cloneProject(project, dest),
				m.setStatus(StatusLoading, "Downloading "+project.Name+"..."),
			)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case promptOpenEditor:
		switch {
		case key.Matches(msg, m.keys.PromptYes):
			dir, editor := m.downloadedDir, m.opts.Editor
			m.closePrompt()
			return m, runAction(func() error { return m.desktop.OpenEditor(editor, dir) }, "Opened "+dir, "Failed to open editor")
		case key.Matches(msg, m.keys.PromptNo):
			m.closePrompt()
		}
	}
	return m, nil
}

// resizePanels sizes the log and detail viewports to the current layout.
func (m *Model) resizePanels() {
	layout := ComputeLayout(m.width, m.height, m.logPanelOpen, m.detailPanelOpen, m.prompt != promptNone)

	if m.logPanelOpen {
		h := max(layout.Logs.Height-1, 1)
		if !m.logReady {
			m.logViewport = viewport.New(layout.Logs.Width, h)
			m.logReady = true
		} else {
			m.logViewport.Width = layout.Logs.Width
			m.logViewport.Height = h
		}
		m.updateLogViewportContent()
	}

	if m.detailPanelOpen {
		// Account for panel header and left padding
		w := max(layout.Detail.Width-2, 1)
		h := max(layout.Detail.Height-1, 1)
		if !m.detailReady {
			m.detailViewport = viewport.New(w, h)
			m.detailReady = true
		} else {
			m.detailViewport.Width = w
			m.detailViewport.Height = h
		}
		m.updateDetailViewportContent()
	}
}

func (m *Model) updateLogViewportContent() {
	if !m.logReady {
		return
	}
	entries := m.visibleLogEntries()
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, m.renderLogEntry(entry))
	}
	m.logViewport.SetContent(strings.Join(lines, "\n"))
	m.logViewport.GotoBottom()
}

func (m *Model) updateDetailViewportContent() {
	if !m.detailReady {
		return
	}
	m.detailViewport.SetContent(m.detailContent())
	m.detailViewport.GotoTop()
}
