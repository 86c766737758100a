// pattern: Imperative Shell

package clasp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"gasview/internal/gas"
	"gasview/internal/logging"
)

var (
	// ErrCloneFailed is returned when `clasp clone` exits unsuccessfully.
	ErrCloneFailed = errors.New("clasp clone failed")
	// ErrDestinationExists is returned when the clone target directory already exists.
	ErrDestinationExists = errors.New("destination already exists")
	// ErrListFailed is returned when `clasp list` exits unsuccessfully.
	ErrListFailed = errors.New("clasp list failed")
)

// CommandExecutor runs a command and returns its stdout.
type CommandExecutor func(ctx context.Context, name string, args ...string) (string, error)

// Client wraps the clasp command-line tool.
type Client struct {
	executable string
	exec       CommandExecutor
	logger     *logging.ScopedLogger
}

// NewClient creates a Client running the clasp binary at executable.
func NewClient(executable string, logProvider logging.LoggerProvider) *Client {
	return NewClientWithExecutor(executable, defaultExecutor, logProvider)
}

// NewClientWithExecutor creates a Client with a custom executor for testing.
func NewClientWithExecutor(executable string, exec CommandExecutor, logProvider logging.LoggerProvider) *Client {
	logger := logging.NopLogger()
	if logProvider != nil {
		logger = logProvider.For("clasp")
	}
	return &Client{executable: executable, exec: exec, logger: logger}
}

func defaultExecutor(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return "", fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return "", err
	}
	return stdout.String(), nil
}

// Executable returns the clasp binary path in use.
func (c *Client) Executable() string {
	return c.executable
}

// ListProjects returns the script projects visible to the logged-in account.
func (c *Client) ListProjects(ctx context.Context) ([]gas.Project, error) {
	output, err := c.exec(ctx, c.executable, "list", "--noShorten")
	if err != nil {
		c.logger.Error("list projects failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrListFailed, err)
	}

	projects := ParseProjectList(output)
	c.logger.Debug("listed projects", "count", len(projects))
	return projects, nil
}

// ProjectDir returns the directory a project is cloned into under destDir.
func ProjectDir(destDir string, project gas.Project) string {
	name := strings.NewReplacer("/", "_", `\`, "_").Replace(project.Name)
	if name == "" || name == "." || name == ".." {
		name = project.ID
	}
	return filepath.Join(destDir, name)
}

// Clone downloads a project's source into <destDir>/<project name> and
// returns that directory. The directory must not already exist; it is
// removed again if the clone fails.
func (c *Client) Clone(ctx context.Context, project gas.Project, destDir string) (string, error) {
	dir := ProjectDir(destDir, project)
	logger := c.logger.With("project", project.ID, "dir", dir)

	if _, err := os.Stat(dir); err == nil {
		return "", fmt.Errorf("%w: %s", ErrDestinationExists, dir)
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("create %s: %w", destDir, err)
	}
	if err := os.Mkdir(dir, 0755); err != nil {
		if os.IsExist(err) {
			return "", fmt.Errorf("%w: %s", ErrDestinationExists, dir)
		}
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	logger.Info("cloning project")
	if _, err := c.exec(ctx, c.executable, "clone", project.ID, "--rootDir", dir); err != nil {
		_ = os.RemoveAll(dir)
		logger.Error("clone failed", "error", err)
		return "", fmt.Errorf("%w: %w", ErrCloneFailed, err)
	}

	logger.Info("clone finished")
	return dir, nil
}
