// pattern: Imperative Shell

package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"gasview/internal/gas"
	"gasview/internal/logging"
)

// View renders the TUI.
func (m Model) View() string {
	if m.width == 0 {
		return ""
	}

	layout := ComputeLayout(m.width, m.height, m.logPanelOpen, m.detailPanelOpen, m.prompt != promptNone)

	title := m.styles.TitleStyle().Render("Apps Script Projects")
	subtitle := m.styles.SubtitleStyle().Render(m.renderSubtitle())
	header := lipgloss.NewStyle().Width(layout.Header.Width).Render(lipgloss.JoinVertical(lipgloss.Left, title, subtitle))

	content := m.renderTree(layout)
	if m.detailPanelOpen {
		content = lipgloss.JoinHorizontal(lipgloss.Top, content, m.renderDetailPanel(layout))
	}

	parts := []string{header, content}

	if m.logPanelOpen {
		separator := m.styles.SeparatorStyle().
			Width(layout.Separator.Width).
			Render(strings.Repeat("─", layout.Separator.Width))
		parts = append(parts, separator, m.renderLogPanel(layout))
	}

	if m.prompt != promptNone {
		parts = append(parts, m.renderPrompt(layout.Prompt.Width))
	}

	statusBar := lipgloss.NewStyle().Width(layout.StatusBar.Width).Render(m.renderStatusBar(layout.StatusBar.Width))
	parts = append(parts, statusBar)

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) renderSubtitle() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("%d projects", len(m.projects)))
	if m.opts.Source != "" {
		parts = append(parts, "source: "+m.opts.Source)
	}
	return strings.Join(parts, " • ")
}

// renderTree renders the visible window of tree rows.
func (m Model) renderTree(layout Layout) string {
	headerStyle := m.styles.PanelHeaderFocusedStyle()
	header := headerStyle.Width(layout.Tree.Width).Render(" Projects")
	bodyHeight := layout.TreeBodyHeight()

	if len(m.treeItems) == 0 {
		msg := "No projects found."
		if m.loadingProjects {
			msg = "Loading projects..."
		}
		body := lipgloss.NewStyle().
			Width(layout.Tree.Width).
			Height(bodyHeight).
			Padding(0, 1).
			Render(m.styles.InfoStyle().Render(msg))
		return lipgloss.JoinVertical(lipgloss.Left, header, body)
	}

	end := min(m.scrollOffset+bodyHeight, len(m.treeItems))
	var lines []string
	for i := m.scrollOffset; i < end; i++ {
		lines = append(lines, m.renderTreeItem(m.treeItems[i], i == m.selectedIdx, layout.Tree.Width))
	}

	body := lipgloss.NewStyle().
		Width(layout.Tree.Width).
		Height(bodyHeight).
		Render(strings.Join(lines, "\n"))

	return lipgloss.JoinVertical(lipgloss.Left, header, body)
}

// renderTreeItem renders one row, truncated to width.
func (m Model) renderTreeItem(item TreeItem, selected bool, width int) string {
	cursor := "  "
	if selected {
		cursor = "> "
	}

	glyph := "  "
	if item.Expandable {
		glyph = "▸ "
		if item.Expanded {
			glyph = "▾ "
		}
	}

	prefix := cursor + strings.Repeat("  ", item.Depth) + glyph
	room := width - lipgloss.Width(prefix)
	if room < 1 {
		room = 1
	}
	label := ansi.Truncate(item.Label(), room, "…")

	var style lipgloss.Style
	switch item.Type {
	case TreeItemProject:
		style = m.styles.ProjectStyle()
	case TreeItemDeployment:
		if gas.IsHead(item.Deployment.Deployment) {
			style = m.styles.HeadStyle()
		} else {
			style = m.styles.PinnedStyle()
		}
	case TreeItemVersion:
		style = m.styles.VersionStyle()
	default:
		style = m.styles.DimStyle()
		if item.IsError {
			style = m.styles.ErrorStyle()
		}
	}

	line := prefix + style.Render(label)
	if selected {
		return m.styles.SelectedStyle().Width(width).Render(line)
	}
	return line
}

func (m Model) renderDetailPanel(layout Layout) string {
	header := m.styles.PanelHeaderUnfocusedStyle().Width(layout.Detail.Width).Render(" Details")

	var body string
	if m.detailReady {
		body = m.detailViewport.View()
	} else {
		body = m.detailContent()
	}
	body = lipgloss.NewStyle().
		Width(layout.Detail.Width).
		Height(max(layout.Detail.Height-1, 1)).
		PaddingLeft(1).
		Render(body)

	return lipgloss.JoinVertical(lipgloss.Left, header, body)
}

// detailContent describes the selected row.
func (m Model) detailContent() string {
	item, ok := m.selectedItem()
	if !ok {
		return m.styles.InfoStyle().Render("Nothing selected")
	}

	field := func(label, value string) string {
		return m.styles.DimStyle().Render(label+": ") + m.styles.InfoStyle().Render(value)
	}

	var lines []string
	switch item.Type {
	case TreeItemProject:
		lines = append(lines,
			m.styles.ProjectStyle().Render(item.Project.Name),
			"",
			field("ID", item.Project.ID),
			field("URL", item.Project.URL),
		)
		if st, ok := m.states[item.Project.ID]; ok && st.Loaded {
			lines = append(lines, field("Deployments", strconv.Itoa(len(st.Deployments))))
		}

	case TreeItemDeployment:
		d := item.Deployment.Deployment
		lines = append(lines,
			m.styles.AccentStyle().Render("Deployment "+d.VersionIdentity()),
			"",
			field("ID", d.DeploymentID()),
		)
		if desc := gas.DeploymentDescription(d); desc != "" {
			lines = append(lines, field("Description", desc))
		}
		if gas.IsHead(d) {
			lines = append(lines, field("Undeployed versions", strconv.Itoa(len(item.Deployment.Versions))))
		}

	case TreeItemVersion:
		lines = append(lines,
			m.styles.AccentStyle().Render("Version "+strconv.Itoa(item.Version.VersionNumber)),
			"",
		)
		if item.Version.Description != "" {
			lines = append(lines, field("Description", item.Version.Description))
		}
		lines = append(lines, field("Status", "not deployed"))

	default:
		lines = append(lines, item.Notice)
	}

	if sel, ok := item.Selection(); ok {
		lines = append(lines, "", m.styles.DimStyle().Render("Library reference (y to copy):"))
		lines = append(lines, gas.FormatLibraryReference(item.Project, sel).JSON())
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderPrompt(width int) string {
	var text string
	switch m.prompt {
	case promptDownloadDir:
		text = m.styles.AccentStyle().Render("Download "+m.promptProject.Name+" to: ") + m.input.View()
	case promptOpenEditor:
		text = m.styles.AccentStyle().Render(fmt.Sprintf("Open %s with %s? ", m.downloadedDir, m.opts.Editor)) +
			m.styles.HelpStyle().Render("(y/n)")
	}
	return lipgloss.NewStyle().Width(width).Render(text)
}

// renderStatusBar renders the status bar with operation feedback and help.
func (m Model) renderStatusBar(width int) string {
	var statusIcon string
	var messageStyle lipgloss.Style

	switch m.statusLevel {
	case StatusLoading:
		statusIcon = m.statusSpinner.View()
		messageStyle = m.styles.InfoStatusStyle()
	case StatusSuccess:
		statusIcon = m.styles.SuccessStyle().Render("✓")
		messageStyle = m.styles.SuccessStyle()
	case StatusError:
		statusIcon = m.styles.ErrorStyle().Render("✗")
		messageStyle = m.styles.ErrorStyle()
	default: // StatusInfo
		messageStyle = m.styles.InfoStatusStyle()
	}

	var statusText string
	if statusIcon != "" {
		statusText = statusIcon + " " + messageStyle.Render(m.statusMessage)
	} else if m.statusMessage != "" {
		statusText = messageStyle.Render(m.statusMessage)
	}

	if m.statusLevel == StatusError && m.err != nil {
		statusText += m.styles.HelpStyle().Render(" (esc to clear)")
	}

	help := m.renderContextualHelp()

	statusWidth := lipgloss.Width(statusText)
	helpWidth := lipgloss.Width(help)
	spacerWidth := width - statusWidth - helpWidth - 2 // 2 for padding

	// Drop help before the status message when space is short.
	if spacerWidth < 1 {
		help = ""
		spacerWidth = 1
	}

	return lipgloss.JoinHorizontal(lipgloss.Bottom,
		statusText,
		strings.Repeat(" ", spacerWidth),
		help,
	)
}

// renderContextualHelp returns help text for the selected row.
func (m Model) renderContextualHelp() string {
	k := m.keys
	var help string
	switch {
	case m.prompt == promptDownloadDir:
		help = "enter: download • esc: cancel"
	case m.prompt == promptOpenEditor:
		help = helpLine(k.PromptYes, k.PromptNo)
	default:
		item, ok := m.selectedItem()
		switch {
		case !ok:
			help = helpLine(k.Refresh, k.Logs, k.Quit)
		case item.Type == TreeItemProject:
			help = helpLine(k.Toggle, k.CopyID, k.Open, k.Download, k.Refresh, k.Detail, k.Logs)
		case item.Type == TreeItemDeployment:
			help = helpLine(k.Toggle, k.CopyID, k.CopyRef, k.Refresh, k.Detail, k.Logs)
		case item.Type == TreeItemVersion:
			help = helpLine(k.CopyRef, k.Collapse, k.Refresh, k.Detail, k.Logs)
		default:
			help = helpLine(k.Collapse, k.Refresh, k.Logs)
		}
		if m.logPanelOpen {
			help += " • " + helpLine(k.LogFilter)
		}
	}
	return m.styles.HelpStyle().Render(help)
}

// renderLogEntry formats a single log entry for display.
func (m Model) renderLogEntry(entry logging.LogEntry) string {
	ts := m.styles.LogTimestampStyle().Render(entry.Timestamp.Format("15:04:05"))

	var level string
	switch entry.Level {
	case "DEBUG":
		level = m.styles.LogDebugStyle().Render("DEBUG")
	case "INFO":
		level = m.styles.LogInfoStyle().Render("INFO")
	case "WARN":
		level = m.styles.LogWarnStyle().Render("WARN")
	case "ERROR":
		level = m.styles.LogErrorStyle().Render("ERROR")
	default:
		level = m.styles.LogInfoStyle().Render(entry.Level)
	}

	scope := m.styles.LogScopeStyle().Render("[" + entry.Scope + "]")

	return fmt.Sprintf("%s %s %s %s", ts, level, scope, entry.Message)
}

func (m Model) renderLogPanel(layout Layout) string {
	entries := m.visibleLogEntries()
	title := fmt.Sprintf(" Logs (%d)", len(entries))
	if scope := logScopes[m.logFilter]; scope != "" {
		title = fmt.Sprintf(" Logs [%s] (%d)", scope, len(entries))
	}
	header := m.styles.PanelHeaderUnfocusedStyle().
		Width(layout.Logs.Width).
		Render(title)

	if m.logReady {
		return lipgloss.JoinVertical(lipgloss.Left, header, m.logViewport.View())
	}

	var lines []string
	for _, entry := range entries {
		lines = append(lines, m.renderLogEntry(entry))
	}
	if len(lines) == 0 {
		lines = []string{m.styles.InfoStyle().Render("No log entries")}
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.NewStyle().
			Width(layout.Logs.Width).
			Height(max(layout.Logs.Height-1, 1)).
			Render(strings.Join(lines, "\n")),
	)
}
