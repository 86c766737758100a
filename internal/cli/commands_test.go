// pattern: Imperative Shell
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"gasview/internal/clasp"
	"gasview/internal/explorer"
	"gasview/internal/gas"
)

type fakeBackend struct {
	projects    []gas.Project
	deployments []gas.DisplayDeployment
	undeployed  []gas.Version
	err         error
	cloneDest   string
}

func (f *fakeBackend) Projects(ctx context.Context) ([]gas.Project, error) {
	return f.projects, f.err
}

func (f *fakeBackend) FindProject(ctx context.Context, projectID string) (gas.Project, error) {
	if f.err != nil {
		return gas.Project{}, f.err
	}
	for _, p := range f.projects {
		if p.ID == projectID {
			return p, nil
		}
	}
	return gas.Project{}, explorer.ErrUnknownProject
}

func (f *fakeBackend) Deployments(ctx context.Context, projectID string) ([]gas.DisplayDeployment, error) {
	return f.deployments, f.err
}

func (f *fakeBackend) Undeployed(ctx context.Context, projectID string) ([]gas.Version, error) {
	return f.undeployed, f.err
}

func (f *fakeBackend) Tree(ctx context.Context, project gas.Project) (gas.ProjectTree, error) {
	if f.err != nil {
		return gas.ProjectTree{}, f.err
	}
	return gas.ProjectTree{Project: project, Deployments: f.deployments}, nil
}

func (f *fakeBackend) Clone(ctx context.Context, project gas.Project, destDir string) (string, error) {
	f.cloneDest = destDir
	return filepath.Join(destDir, project.Name), nil
}

type testHarness struct {
	app      *App
	stdout   *bytes.Buffer
	stderr   *bytes.Buffer
	exitCode int
	copied   string
}

func newHarness(t *testing.T, backend *fakeBackend, mutate func(*Options)) *testHarness {
	t.Helper()
	h := &testHarness{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}, exitCode: -1}
	opts := Options{
		Version: "1.2.3",
		DataDir: t.TempDir(),
		Timeout: time.Minute,
		Connect: func(context.Context) (Backend, error) { return backend, nil },
		Credentials: func() (*clasp.Credentials, error) {
			return nil, clasp.ErrNotLoggedIn
		},
		Copy:     func(text string) error { h.copied = text; return nil },
		Stdout:   h.stdout,
		Stderr:   h.stderr,
		ExitFunc: func(code int) { h.exitCode = code },
	}
	if mutate != nil {
		mutate(&opts)
	}
	h.app = BuildApp(opts)
	return h
}

func sampleBackend() *fakeBackend {
	head := gas.HeadDeployment{ID: "AKhead", ProjectID: "p1"}
	pinned := gas.PinnedDeployment{ID: "AKv2", ProjectID: "p1", VersionNumber: 2, Description: "prod"}
	return &fakeBackend{
		projects: []gas.Project{gas.NewProject("p1", "3-My-App @v1")},
		deployments: gas.Reconcile(
			[]gas.Deployment{pinned, head},
			[]gas.Version{{ProjectID: "p1", VersionNumber: 3}, {ProjectID: "p1", VersionNumber: 2}},
		),
		undeployed: []gas.Version{{ProjectID: "p1", VersionNumber: 3}},
	}
}

func TestBuildApp_VersionCommand_PrintsVersion(t *testing.T) {
	h := newHarness(t, &fakeBackend{}, nil)

	h.app.Execute([]string{"version"})

	if h.stdout.String() != "1.2.3\n" {
		t.Errorf("version command output = %q, want \"1.2.3\\n\"", h.stdout.String())
	}
}

func TestBuildApp_NoArgs_ReturnsTrueForTUI(t *testing.T) {
	h := newHarness(t, &fakeBackend{}, nil)
	if !h.app.Execute(nil) {
		t.Error("Execute(nil) returned false, want true")
	}
}

func TestProjectsCommand(t *testing.T) {
	h := newHarness(t, sampleBackend(), nil)

	h.app.Execute([]string{"projects"})

	var got []gas.Project
	if err := json.Unmarshal(h.stdout.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, h.stdout.String())
	}
	if len(got) != 1 || got[0].ID != "p1" || got[0].URL != "https://script.google.com/d/p1/edit" {
		t.Errorf("projects = %+v", got)
	}
}

func TestProjectsCommand_EmptyIsArray(t *testing.T) {
	h := newHarness(t, &fakeBackend{}, nil)

	h.app.Execute([]string{"projects"})

	if strings.TrimSpace(h.stdout.String()) != "[]" {
		t.Errorf("output = %q, want []", h.stdout.String())
	}
}

func TestDeploymentsCommand(t *testing.T) {
	h := newHarness(t, sampleBackend(), nil)

	h.app.Execute([]string{"deployments", "p1"})

	var got []map[string]any
	if err := json.Unmarshal(h.stdout.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, h.stdout.String())
	}
	if len(got) != 2 {
		t.Fatalf("got %d deployments, want 2", len(got))
	}
	if got[0]["versionIdentity"] != "@2" || got[0]["expandable"] != false {
		t.Errorf("pinned node = %v", got[0])
	}
	if got[1]["versionIdentity"] != "@HEAD" || got[1]["expandable"] != true {
		t.Errorf("head node = %v", got[1])
	}
	versions, _ := got[1]["versions"].([]any)
	if len(versions) != 1 {
		t.Errorf("head versions = %v, want one undeployed version", got[1]["versions"])
	}
}

func TestDeploymentsCommand_RequiresProjectID(t *testing.T) {
	h := newHarness(t, sampleBackend(), nil)

	h.app.Execute([]string{"deployments"})

	if h.exitCode != 1 {
		t.Errorf("exit code = %d, want 1", h.exitCode)
	}
}

func TestVersionsCommand(t *testing.T) {
	h := newHarness(t, sampleBackend(), nil)

	h.app.Execute([]string{"versions", "p1"})

	var got []gas.Version
	if err := json.Unmarshal(h.stdout.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if len(got) != 1 || got[0].VersionNumber != 3 {
		t.Errorf("versions = %+v", got)
	}
}

func TestReferenceCommand(t *testing.T) {
	tests := []struct {
		identity string
		devMode  bool
		version  string
	}{
		{"@HEAD", true, "0"},
		{"@2", false, "2"},
		{"3", false, "3"},
	}
	for _, tt := range tests {
		t.Run(tt.identity, func(t *testing.T) {
			h := newHarness(t, sampleBackend(), nil)

			h.app.Execute([]string{"reference", "p1", tt.identity})

			var ref gas.LibraryReference
			if err := json.Unmarshal(h.stdout.Bytes(), &ref); err != nil {
				t.Fatalf("invalid JSON output: %v\n%s", err, h.stdout.String())
			}
			want := gas.LibraryReference{
				LibraryID:       "p1",
				DevelopmentMode: tt.devMode,
				Version:         tt.version,
				UserSymbol:      "MyAppv1",
			}
			if ref != want {
				t.Errorf("reference = %+v, want %+v", ref, want)
			}
			if h.copied != "" {
				t.Error("clipboard written without --copy")
			}
		})
	}
}

func TestReferenceCommand_Copy(t *testing.T) {
	h := newHarness(t, sampleBackend(), nil)

	h.app.Execute([]string{"reference", "p1", "@HEAD", "--copy"})

	if h.copied == "" {
		t.Fatal("reference was not copied")
	}
	if strings.TrimSpace(h.stdout.String()) != h.copied {
		t.Errorf("printed and copied text differ:\n%s\n%s", h.stdout.String(), h.copied)
	}
}

func TestReferenceCommand_InvalidIdentity(t *testing.T) {
	h := newHarness(t, sampleBackend(), nil)

	h.app.Execute([]string{"reference", "p1", "@latest"})

	if h.exitCode != 1 {
		t.Errorf("exit code = %d, want 1", h.exitCode)
	}
	if !strings.Contains(h.stderr.String(), "invalid version identity") {
		t.Errorf("stderr = %q", h.stderr.String())
	}
}

func TestReferenceCommand_UnknownVersion(t *testing.T) {
	h := newHarness(t, sampleBackend(), nil)

	h.app.Execute([]string{"reference", "p1", "@9"})

	if h.exitCode != 1 {
		t.Errorf("exit code = %d, want 1", h.exitCode)
	}
}

func TestReferenceCommand_UnknownProject(t *testing.T) {
	h := newHarness(t, sampleBackend(), nil)

	h.app.Execute([]string{"reference", "nope", "@HEAD"})

	if h.exitCode != 1 {
		t.Errorf("exit code = %d, want 1", h.exitCode)
	}
	if !strings.Contains(h.stderr.String(), "unknown project") {
		t.Errorf("stderr = %q", h.stderr.String())
	}
}

func TestCloneCommand(t *testing.T) {
	backend := sampleBackend()
	h := newHarness(t, backend, func(o *Options) { o.DownloadDir = "/downloads" })

	h.app.Execute([]string{"clone", "p1"})
	if backend.cloneDest != "/downloads" {
		t.Errorf("clone dest = %q, want configured download dir", backend.cloneDest)
	}

	h.app.Execute([]string{"clone", "p1", "/elsewhere"})
	if backend.cloneDest != "/elsewhere" {
		t.Errorf("clone dest = %q, want explicit dest", backend.cloneDest)
	}
	if !strings.Contains(h.stdout.String(), filepath.Join("/elsewhere", "3-My-App @v1")) {
		t.Errorf("stdout = %q", h.stdout.String())
	}
}

func TestCloneCommand_DefaultsToWorkingDirectory(t *testing.T) {
	backend := sampleBackend()
	h := newHarness(t, backend, nil)

	h.app.Execute([]string{"clone", "p1"})

	if backend.cloneDest != "." {
		t.Errorf("clone dest = %q, want .", backend.cloneDest)
	}
}

func TestBackendErrors_AreReported(t *testing.T) {
	backend := &fakeBackend{err: errors.New("boom")}
	h := newHarness(t, backend, nil)

	h.app.Execute([]string{"projects"})

	if h.exitCode != 1 {
		t.Errorf("exit code = %d, want 1", h.exitCode)
	}
	if h.stderr.String() != "error: boom\n" {
		t.Errorf("stderr = %q", h.stderr.String())
	}
}

func TestCleanupCommand(t *testing.T) {
	h := newHarness(t, &fakeBackend{}, nil)
	h.app.Execute([]string{"cleanup"})
	if !strings.Contains(h.stdout.String(), "Nothing to clean up.") {
		t.Errorf("stdout = %q", h.stdout.String())
	}

	dataDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dataDir, "gasview.lock"), nil, 0600); err != nil {
		t.Fatal(err)
	}
	h = newHarness(t, &fakeBackend{}, func(o *Options) { o.DataDir = dataDir })
	h.app.Execute([]string{"cleanup"})
	if !strings.Contains(h.stdout.String(), "removed ") {
		t.Errorf("stdout = %q", h.stdout.String())
	}
}

func TestAuthStatusCommand(t *testing.T) {
	expiry := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	h := newHarness(t, &fakeBackend{}, func(o *Options) {
		o.Credentials = func() (*clasp.Credentials, error) {
			return &clasp.Credentials{
				Path:         "/home/u/.clasprc.json",
				Layout:       clasp.LayoutLegacy,
				ClientID:     "cid",
				ClientSecret: "secret",
				Token:        &oauth2.Token{AccessToken: "at", RefreshToken: "rt", Expiry: expiry},
			}, nil
		}
	})

	h.app.Execute([]string{"auth", "status"})

	out := h.stdout.String()
	if strings.Contains(out, "secret") || strings.Contains(out, "\"at\"") {
		t.Errorf("auth status leaks secrets: %s", out)
	}
	var got AuthStatus
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if got.Path != "/home/u/.clasprc.json" || !got.HasRefreshToken || got.Expiry == nil || !got.Expiry.Equal(expiry) {
		t.Errorf("status = %+v", got)
	}
}

func TestAuthStatusCommand_NotLoggedIn_ExitsCode2(t *testing.T) {
	h := newHarness(t, &fakeBackend{}, nil)

	h.app.Execute([]string{"auth", "status"})

	if h.exitCode != 2 {
		t.Errorf("exit code = %d, want 2", h.exitCode)
	}
	if !strings.Contains(h.stderr.String(), "clasp login") {
		t.Errorf("stderr = %q", h.stderr.String())
	}
}

func TestTreeCommand(t *testing.T) {
	h := newHarness(t, sampleBackend(), nil)

	h.app.Execute([]string{"tree", "p1"})

	var got struct {
		Project     gas.Project      `json:"project"`
		Deployments []map[string]any `json:"deployments"`
	}
	if err := json.Unmarshal(h.stdout.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, h.stdout.String())
	}
	if got.Project.ID != "p1" || got.Project.Name != "3-My-App @v1" {
		t.Errorf("project = %+v", got.Project)
	}
	if len(got.Deployments) != 2 || got.Deployments[1]["versionIdentity"] != "@HEAD" {
		t.Errorf("deployments = %v", got.Deployments)
	}
}

func TestTreeCommand_UnknownProject(t *testing.T) {
	h := newHarness(t, sampleBackend(), nil)

	h.app.Execute([]string{"tree", "nope"})

	if h.exitCode != 1 {
		t.Errorf("exit code = %d, want 1", h.exitCode)
	}
	if !strings.Contains(h.stderr.String(), "unknown project") {
		t.Errorf("stderr = %q", h.stderr.String())
	}
}
