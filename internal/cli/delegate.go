// pattern: Imperative Shell
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gasview/internal/clasp"
	"gasview/internal/config"
	"gasview/internal/gas"
)

// Backend is what one-shot commands need from the explorer.
type Backend interface {
	Projects(ctx context.Context) ([]gas.Project, error)
	FindProject(ctx context.Context, projectID string) (gas.Project, error)
	Deployments(ctx context.Context, projectID string) ([]gas.DisplayDeployment, error)
	Undeployed(ctx context.Context, projectID string) ([]gas.Version, error)
	Tree(ctx context.Context, project gas.Project) (gas.ProjectTree, error)
	Clone(ctx context.Context, project gas.Project, destDir string) (string, error)
}

// BackendFactory builds a Backend. It fails when clasp is missing or the
// user is not logged in.
type BackendFactory func(ctx context.Context) (Backend, error)

// Delegate connects to the Google backend and runs a command against it.
// It handles error classification (setup vs other errors) and exit codes.
type Delegate struct {
	// Connect builds the backend.
	Connect BackendFactory

	// Timeout bounds the whole command. Zero means no timeout.
	Timeout time.Duration

	// ExitFunc is called to exit the process. Defaults to os.Exit.
	// Overridable for testing.
	ExitFunc func(int)

	// Stderr is where error messages are written. Defaults to os.Stderr.
	// Overridable for testing.
	Stderr io.Writer
}

// IsSetupError reports whether err means clasp is missing or not logged in.
func IsSetupError(err error) bool {
	return errors.Is(err, config.ErrClaspNotFound) || errors.Is(err, clasp.ErrNotLoggedIn)
}

// Run connects and invokes fn with the backend.
//
// Exit codes:
// - 2: clasp missing or not logged in
// - 1: any other error
// - 0: success (fn returned nil)
func (d *Delegate) Run(fn func(ctx context.Context, b Backend) error) {
	if d.ExitFunc == nil {
		d.ExitFunc = os.Exit
	}
	if d.Stderr == nil {
		d.Stderr = os.Stderr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	backend, err := d.Connect(ctx)
	if err == nil {
		err = fn(ctx, backend)
	}
	if err != nil {
		fmt.Fprintf(d.Stderr, "error: %v\n", err)
		if IsSetupError(err) {
			d.ExitFunc(2)
		} else {
			d.ExitFunc(1)
		}
	}
}

// WriteJSON writes v as indented JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
