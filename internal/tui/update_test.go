package tui

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"gasview/internal/gas"
	"gasview/internal/logging"
)

type fakeService struct {
	projects    []gas.Project
	deployments map[string][]gas.DisplayDeployment
	err         error
	cloned      []string
}

func (f *fakeService) Projects(ctx context.Context) ([]gas.Project, error) {
	return f.projects, f.err
}

func (f *fakeService) Deployments(ctx context.Context, projectID string) ([]gas.DisplayDeployment, error) {
	return f.deployments[projectID], f.err
}

func (f *fakeService) Clone(ctx context.Context, project gas.Project, destDir string) (string, error) {
	f.cloned = append(f.cloned, destDir)
	return destDir + "/" + project.Name, f.err
}

type fakeDesktop struct {
	copied []string
	opened []string
	edited [][2]string
	err    error
}

func (f *fakeDesktop) Copy(text string) error {
	f.copied = append(f.copied, text)
	return f.err
}

func (f *fakeDesktop) OpenURL(url string) error {
	f.opened = append(f.opened, url)
	return f.err
}

func (f *fakeDesktop) OpenEditor(editor, dir string) error {
	f.edited = append(f.edited, [2]string{editor, dir})
	return f.err
}

func newTestModel(t *testing.T) (Model, *fakeService, *fakeDesktop) {
	t.Helper()
	svc := &fakeService{
		projects: []gas.Project{
			gas.NewProject("p1", "3-My-App @v1"),
			gas.NewProject("p2", "Other"),
		},
		deployments: map[string][]gas.DisplayDeployment{"p1": sampleDeployments()},
	}
	desk := &fakeDesktop{}
	m := NewModel(svc, desk, Options{Theme: "mocha", Editor: "code", DownloadDir: "/tmp/dl", Source: "clasp"}, nil, nil)

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = updated.(Model)
	return m, svc, desk
}

func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// loadedModel returns a model with projects loaded and p1 expanded.
func loadedModel(t *testing.T) (Model, *fakeService, *fakeDesktop) {
	t.Helper()
	m, svc, desk := newTestModel(t)
	m, _ = send(t, m, m.loadProjects()())
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRight})
	m, _ = send(t, m, m.loadDeployments("p1")())
	return m, svc, desk
}

func selectRow(t *testing.T, m Model, typ TreeItemType, match func(TreeItem) bool) Model {
	t.Helper()
	for i, item := range m.treeItems {
		if item.Type == typ && (match == nil || match(item)) {
			m.selectedIdx = i
			return m
		}
	}
	t.Fatalf("no row of type %v in %+v", typ, m.treeItems)
	return m
}

func TestNewModel_StartsLoading(t *testing.T) {
	m, _, _ := newTestModel(t)

	if m.statusLevel != StatusLoading {
		t.Errorf("statusLevel = %v, want StatusLoading", m.statusLevel)
	}
	if !m.loadingProjects {
		t.Error("loadingProjects should be true before the first load")
	}
	if m.Init() == nil {
		t.Error("Init should return a command")
	}
}

func TestProjectsLoaded_BuildsTree(t *testing.T) {
	m, _, _ := newTestModel(t)

	m, cmd := send(t, m, m.loadProjects()())

	if len(m.treeItems) != 2 {
		t.Fatalf("got %d rows, want 2", len(m.treeItems))
	}
	if m.loadingProjects {
		t.Error("loadingProjects should be false after load")
	}
	if m.statusLevel != StatusSuccess || !strings.Contains(m.statusMessage, "2 projects") {
		t.Errorf("status = %v %q", m.statusLevel, m.statusMessage)
	}
	if cmd == nil {
		t.Error("success status should schedule a clear")
	}
}

func TestProjectsLoaded_Error(t *testing.T) {
	m, svc, _ := newTestModel(t)
	svc.err = errors.New("clasp authentication failed (try `clasp login`)")

	m, _ = send(t, m, m.loadProjects()())

	if m.statusLevel != StatusError {
		t.Fatalf("statusLevel = %v, want StatusError", m.statusLevel)
	}
	if !strings.Contains(m.statusMessage, "clasp login") {
		t.Errorf("statusMessage = %q", m.statusMessage)
	}

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEscape})
	if m.statusLevel != StatusInfo || m.err != nil {
		t.Error("esc should clear the error")
	}
}

func TestExpandProject_LoadsDeploymentsLazily(t *testing.T) {
	m, _, _ := newTestModel(t)
	m, _ = send(t, m, m.loadProjects()())

	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyRight})

	if cmd == nil {
		t.Fatal("expanding an unloaded project should return a load command")
	}
	if !m.states["p1"].Loading {
		t.Error("project state should be loading")
	}
	if m.treeItems[1].Type != TreeItemNotice {
		t.Errorf("row 1 = %+v, want loading notice", m.treeItems[1])
	}

	msg := m.loadDeployments("p1")()
	loaded, ok := msg.(deploymentsLoadedMsg)
	if !ok {
		t.Fatalf("load command returned %T", msg)
	}
	m, _ = send(t, m, loaded)

	want := []TreeItemType{TreeItemProject, TreeItemDeployment, TreeItemDeployment, TreeItemProject}
	if !equalTypes(types(m.treeItems), want) {
		t.Fatalf("rows = %v, want %v", types(m.treeItems), want)
	}
	if m.statusLevel != StatusSuccess {
		t.Errorf("statusLevel = %v, want StatusSuccess", m.statusLevel)
	}
}

func TestExpandProject_AlreadyLoadedDoesNotRefetch(t *testing.T) {
	m, _, _ := loadedModel(t)

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyLeft}) // collapse p1
	if m.treeItems[1].Type != TreeItemProject {
		t.Fatalf("p1 should be collapsed, rows = %v", types(m.treeItems))
	}

	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if cmd != nil {
		t.Error("re-expanding a loaded project should not refetch")
	}
	if len(m.treeItems) != 4 {
		t.Errorf("got %d rows, want 4", len(m.treeItems))
	}
}

func TestExpandHead_ShowsUndeployedVersions(t *testing.T) {
	m, _, _ := loadedModel(t)
	m = selectRow(t, m, TreeItemDeployment, func(i TreeItem) bool { return gas.IsHead(i.Deployment.Deployment) })

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	var versions []int
	for _, item := range m.treeItems {
		if item.Type == TreeItemVersion {
			versions = append(versions, item.Version.VersionNumber)
		}
	}
	if len(versions) != 2 || versions[0] != 3 || versions[1] != 2 {
		t.Errorf("version rows = %v, want [3 2]", versions)
	}

	// Enter again collapses
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	for _, item := range m.treeItems {
		if item.Type == TreeItemVersion {
			t.Fatal("versions still visible after collapse")
		}
	}
}

func TestCollapse_OnVersionMovesToParent(t *testing.T) {
	m, _, _ := loadedModel(t)
	m = selectRow(t, m, TreeItemDeployment, func(i TreeItem) bool { return gas.IsHead(i.Deployment.Deployment) })
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRight})
	m = selectRow(t, m, TreeItemVersion, nil)

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyLeft})

	item, _ := m.selectedItem()
	if item.Type != TreeItemDeployment || !gas.IsHead(item.Deployment.Deployment) {
		t.Errorf("selected = %+v, want head deployment", item)
	}
}

func TestDeploymentsLoaded_Error(t *testing.T) {
	m, _, _ := newTestModel(t)
	m, _ = send(t, m, m.loadProjects()())
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRight})

	m, _ = send(t, m, deploymentsLoadedMsg{projectID: "p1", err: errors.New("fetch failed: deployments: status 403")})

	if m.statusLevel != StatusError {
		t.Errorf("statusLevel = %v, want StatusError", m.statusLevel)
	}
	if !m.treeItems[1].IsError {
		t.Errorf("row 1 = %+v, want error notice", m.treeItems[1])
	}
	if !strings.Contains(m.statusMessage, "3-My-App @v1") {
		t.Errorf("statusMessage = %q, want project name", m.statusMessage)
	}
}

func TestCopyID(t *testing.T) {
	m, _, desk := loadedModel(t)

	m.selectedIdx = 0
	_, cmd := send(t, m, runes("c"))
	if cmd == nil {
		t.Fatal("copy should return a command")
	}
	done, ok := cmd().(actionDoneMsg)
	if !ok || done.err != nil {
		t.Fatalf("unexpected result %#v", done)
	}

	m = selectRow(t, m, TreeItemDeployment, func(i TreeItem) bool { return !gas.IsHead(i.Deployment.Deployment) })
	_, cmd = send(t, m, runes("c"))
	cmd()

	if len(desk.copied) != 2 || desk.copied[0] != "p1" || desk.copied[1] != "AKv1" {
		t.Errorf("copied = %v, want [p1 AKv1]", desk.copied)
	}
}

func TestCopyReference(t *testing.T) {
	m, _, desk := loadedModel(t)
	m = selectRow(t, m, TreeItemDeployment, func(i TreeItem) bool { return gas.IsHead(i.Deployment.Deployment) })

	_, cmd := send(t, m, runes("y"))
	if cmd == nil {
		t.Fatal("copy reference should return a command")
	}
	cmd()

	if len(desk.copied) != 1 {
		t.Fatalf("copied = %v", desk.copied)
	}
	var ref gas.LibraryReference
	if err := json.Unmarshal([]byte(desk.copied[0]), &ref); err != nil {
		t.Fatalf("clipboard text is not JSON: %v", err)
	}
	want := gas.LibraryReference{LibraryID: "p1", DevelopmentMode: true, Version: "0", UserSymbol: "MyAppv1"}
	if ref != want {
		t.Errorf("reference = %+v, want %+v", ref, want)
	}
}

func TestCopyReference_OnProjectIsNoop(t *testing.T) {
	m, _, _ := loadedModel(t)
	m.selectedIdx = 0

	_, cmd := send(t, m, runes("y"))
	if cmd != nil {
		t.Error("project rows have no library reference")
	}
}

func TestActionDone_Failure(t *testing.T) {
	m, _, _ := newTestModel(t)

	m, _ = send(t, m, actionDoneMsg{failure: "Failed to copy project ID", err: errors.New("no clipboard utility")})

	if m.statusLevel != StatusError || !strings.Contains(m.statusMessage, "no clipboard utility") {
		t.Errorf("status = %v %q", m.statusLevel, m.statusMessage)
	}
}

func TestOpenURL(t *testing.T) {
	m, _, desk := loadedModel(t)
	m.selectedIdx = 0

	_, cmd := send(t, m, runes("o"))
	cmd()

	if len(desk.opened) != 1 || desk.opened[0] != "https://script.google.com/d/p1/edit" {
		t.Errorf("opened = %v", desk.opened)
	}
}

func TestRefresh_ReloadsExpandedProjects(t *testing.T) {
	m, _, _ := loadedModel(t)

	m, cmd := send(t, m, runes("r"))
	if cmd == nil || !m.loadingProjects || m.statusLevel != StatusLoading {
		t.Fatal("refresh should start loading projects")
	}

	m, cmd = send(t, m, m.loadProjects()())
	if cmd == nil {
		t.Fatal("expanded project should be reloaded")
	}
	if !m.states["p1"].Loading {
		t.Error("p1 should be loading again after refresh")
	}
	if m.states["p2"].Loading || m.states["p2"].Loaded {
		t.Error("collapsed p2 should not be loaded")
	}
}

func TestCredentialsChanged_Refreshes(t *testing.T) {
	m, _, _ := loadedModel(t)

	m, cmd := send(t, m, CredentialsChangedMsg{})

	if cmd == nil || !m.loadingProjects {
		t.Error("credential change should reload projects")
	}
}

func TestDownloadFlow(t *testing.T) {
	m, svc, desk := loadedModel(t)
	m.selectedIdx = 0

	m, _ = send(t, m, runes("d"))
	if m.prompt != promptDownloadDir {
		t.Fatalf("prompt = %v, want download prompt", m.prompt)
	}
	if m.input.Value() != "/tmp/dl" {
		t.Errorf("input = %q, want configured download dir", m.input.Value())
	}

	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.prompt != promptNone || !m.cloning || cmd == nil {
		t.Fatal("enter should close the prompt and start cloning")
	}

	done := m.cloneProject(m.projects[0], "/tmp/dl")()
	m, _ = send(t, m, done)
	if len(svc.cloned) != 1 || svc.cloned[0] != "/tmp/dl" {
		t.Errorf("cloned = %v", svc.cloned)
	}
	if m.cloning {
		t.Error("cloning should be false after completion")
	}
	if m.prompt != promptOpenEditor {
		t.Fatalf("prompt = %v, want editor prompt", m.prompt)
	}
	if !strings.Contains(m.View(), "Open /tmp/dl/3-My-App @v1 with code?") {
		t.Error("editor prompt not rendered")
	}

	m, cmd = send(t, m, runes("y"))
	if m.prompt != promptNone || cmd == nil {
		t.Fatal("y should close the prompt and open the editor")
	}
	cmd()
	if len(desk.edited) != 1 || desk.edited[0] != [2]string{"code", "/tmp/dl/3-My-App @v1"} {
		t.Errorf("edited = %v", desk.edited)
	}
}

func TestDownloadPrompt_EscCancels(t *testing.T) {
	m, svc, _ := loadedModel(t)
	m.selectedIdx = 0

	m, _ = send(t, m, runes("d"))
	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyEscape})

	if m.prompt != promptNone || m.cloning || cmd != nil {
		t.Error("esc should cancel the download")
	}
	if len(svc.cloned) != 0 {
		t.Error("nothing should be cloned")
	}
}

func TestCloneDone_NoEditorSkipsPrompt(t *testing.T) {
	m, _, _ := loadedModel(t)
	m.opts.Editor = ""

	m, _ = send(t, m, cloneDoneMsg{project: m.projects[0], dir: "/tmp/x"})

	if m.prompt != promptNone {
		t.Error("no editor configured, prompt should stay closed")
	}
	if m.statusLevel != StatusSuccess {
		t.Errorf("statusLevel = %v, want StatusSuccess", m.statusLevel)
	}
}

func TestCloneDone_Error(t *testing.T) {
	m, _, _ := loadedModel(t)

	m, _ = send(t, m, cloneDoneMsg{project: m.projects[0], err: errors.New("clone failed: destination already exists")})

	if m.statusLevel != StatusError || m.prompt != promptNone {
		t.Errorf("status = %v prompt = %v", m.statusLevel, m.prompt)
	}
}

func TestDoubleCtrlC_Quits(t *testing.T) {
	m, _, _ := newTestModel(t)

	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("first ctrl+c should schedule the hint clear")
	}
	if m.statusMessage != "ctrl+c ctrl+c to quit" {
		t.Errorf("statusMessage = %q", m.statusMessage)
	}

	_, cmd = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("second ctrl+c should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("second ctrl+c should return tea.Quit")
	}
}

func TestClearStatus_IgnoresStaleSequence(t *testing.T) {
	m, _, _ := newTestModel(t)
	m.setStatus(StatusSuccess, "first")
	stale := m.statusSeq
	m.setStatus(StatusSuccess, "second")

	m, _ = send(t, m, clearStatusMsg{seq: stale})
	if m.statusMessage != "second" {
		t.Errorf("stale clear removed %q", m.statusMessage)
	}

	m, _ = send(t, m, clearStatusMsg{seq: m.statusSeq})
	if m.statusMessage != "" {
		t.Errorf("statusMessage = %q, want cleared", m.statusMessage)
	}
}

func TestLogPanelToggle(t *testing.T) {
	for _, k := range []string{"l", "L"} {
		t.Run(k, func(t *testing.T) {
			m, _, _ := newTestModel(t)

			m, _ = send(t, m, runes(k))
			if !m.logPanelOpen || !m.logReady {
				t.Fatal("log panel should open")
			}
			m, _ = send(t, m, runes(k))
			if m.logPanelOpen {
				t.Fatal("log panel should close")
			}
		})
	}
}

func TestLogEntries_AppendAndCap(t *testing.T) {
	m, _, _ := newTestModel(t)
	m, _ = send(t, m, runes("l"))

	entries := make([]logging.LogEntry, maxLogEntries+10)
	for i := range entries {
		entries[i] = logging.LogEntry{Timestamp: time.Now(), Level: "INFO", Scope: "script", Message: "fetched"}
	}
	entries[len(entries)-1].Message = "last entry"

	m, _ = send(t, m, logEntriesMsg{entries: entries})

	if len(m.logEntries) != maxLogEntries {
		t.Errorf("kept %d entries, want %d", len(m.logEntries), maxLogEntries)
	}
	if !strings.Contains(m.View(), "last entry") {
		t.Error("log panel should scroll to the newest entry")
	}
}

func TestLogEntries_ContinuesConsuming(t *testing.T) {
	lm := logging.NewTestLogManager(10)
	defer lm.Close()

	m := NewModel(&fakeService{}, &fakeDesktop{}, Options{}, lm, lm.Channel())
	lm.For("script").Info("fetched deployments")

	msg := consumeLogEntries(lm.Channel())()
	batch, ok := msg.(logEntriesMsg)
	if !ok || len(batch.entries) == 0 {
		t.Fatalf("consumeLogEntries returned %#v", msg)
	}

	_, cmd := send(t, m, batch)
	if cmd == nil {
		t.Error("model should keep consuming log entries")
	}
}

func TestDetailPanel(t *testing.T) {
	m, _, _ := loadedModel(t)
	m = selectRow(t, m, TreeItemDeployment, func(i TreeItem) bool { return !gas.IsHead(i.Deployment.Deployment) })

	m, _ = send(t, m, runes("i"))
	if !m.detailPanelOpen {
		t.Fatal("detail panel should open")
	}

	content := m.detailContent()
	for _, want := range []string{"Deployment @1", "AKv1", "first", `"developmentMode": false`, `"version": "1"`} {
		if !strings.Contains(content, want) {
			t.Errorf("detail content missing %q:\n%s", want, content)
		}
	}
}

func TestNavigation_Clamps(t *testing.T) {
	m, _, _ := loadedModel(t)

	m, _ = send(t, m, runes("G"))
	if m.selectedIdx != len(m.treeItems)-1 {
		t.Errorf("selectedIdx = %d, want last row", m.selectedIdx)
	}
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyDown})
	if m.selectedIdx != len(m.treeItems)-1 {
		t.Errorf("selectedIdx = %d, should stay on last row", m.selectedIdx)
	}
	m, _ = send(t, m, runes("g"))
	if m.selectedIdx != 0 {
		t.Errorf("selectedIdx = %d, want 0", m.selectedIdx)
	}
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyUp})
	if m.selectedIdx != 0 {
		t.Errorf("selectedIdx = %d, should stay on first row", m.selectedIdx)
	}
}

func TestSelection_SurvivesRebuild(t *testing.T) {
	m, _, _ := loadedModel(t)
	m = selectRow(t, m, TreeItemProject, func(i TreeItem) bool { return i.Project.ID == "p2" })

	// Collapsing p1 from elsewhere shifts rows; selection should follow p2.
	delete(m.expanded, projectKey("p1"))
	m.rebuildTree()

	item, _ := m.selectedItem()
	if item.Project.ID != "p2" {
		t.Errorf("selected %q, want p2", item.Project.ID)
	}
}

func TestLogFilter_CyclesScopes(t *testing.T) {
	m, _, _ := newTestModel(t)
	m, _ = send(t, m, runes("l"))
	m, _ = send(t, m, logEntriesMsg{entries: []logging.LogEntry{
		{Level: "INFO", Scope: "explorer", Message: "reconciled"},
		{Level: "INFO", Scope: "clasp", Message: "clasp list"},
	}})

	if got := len(m.visibleLogEntries()); got != 2 {
		t.Fatalf("unfiltered entries = %d, want 2", got)
	}

	m, _ = send(t, m, runes("f"))
	visible := m.visibleLogEntries()
	if len(visible) != 1 || visible[0].Scope != "explorer" {
		t.Errorf("explorer filter = %+v", visible)
	}
	if !strings.Contains(m.View(), "Logs [explorer] (1)") {
		t.Error("filter should be shown in the log header")
	}

	for range len(logScopes) - 1 {
		m, _ = send(t, m, runes("f"))
	}
	if m.logFilter != 0 {
		t.Errorf("logFilter = %d, want wrap to 0", m.logFilter)
	}
}

func TestLogFilter_IncludesDesktopScope(t *testing.T) {
	m, _, _ := newTestModel(t)
	m, _ = send(t, m, runes("l"))
	m, _ = send(t, m, logEntriesMsg{entries: []logging.LogEntry{
		{Level: "INFO", Scope: "desktop", Message: "opened url"},
		{Level: "INFO", Scope: "tui", Message: "tui model created"},
	}})

	for m.logFilter == 0 || logScopes[m.logFilter] != "desktop" {
		m, _ = send(t, m, runes("f"))
		if m.logFilter == 0 {
			t.Fatal("desktop is not among the log filters")
		}
	}

	visible := m.visibleLogEntries()
	if len(visible) != 1 || visible[0].Message != "opened url" {
		t.Errorf("desktop filter = %+v", visible)
	}
}
