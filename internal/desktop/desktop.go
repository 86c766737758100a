// pattern: Imperative Shell

// Package desktop talks to the user's desktop: clipboard, browser, editor.
package desktop

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/atotto/clipboard"

	"gasview/internal/logging"
)

var (
	// ErrNoEditor is returned when no editor command is configured.
	ErrNoEditor = errors.New("no editor configured")
	// ErrUnsupportedPlatform is returned when there is no known URL opener.
	ErrUnsupportedPlatform = errors.New("opening URLs is not supported on this platform")
)

// StartFunc launches a process without waiting for it.
type StartFunc func(name string, args ...string) error

// WriteFunc places text on the clipboard.
type WriteFunc func(text string) error

func defaultStart(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// Desktop wraps the side effects the TUI triggers on the host.
type Desktop struct {
	goos   string
	start  StartFunc
	write  WriteFunc
	logger *logging.ScopedLogger
}

// New creates a Desktop bound to the host platform.
func New(logProvider logging.LoggerProvider) *Desktop {
	return NewWith(runtime.GOOS, defaultStart, clipboard.WriteAll, logProvider)
}

// NewWith creates a Desktop with injected platform and side effects.
func NewWith(goos string, start StartFunc, write WriteFunc, logProvider logging.LoggerProvider) *Desktop {
	logger := logging.NopLogger()
	if logProvider != nil {
		logger = logProvider.For("desktop")
	}
	return &Desktop{goos: goos, start: start, write: write, logger: logger}
}

// Copy writes text to the system clipboard.
func (d *Desktop) Copy(text string) error {
	if err := d.write(text); err != nil {
		d.logger.Warn("clipboard write failed", "error", err)
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	d.logger.Debug("copied to clipboard", "bytes", len(text))
	return nil
}

// OpenURL opens url in the default browser.
func (d *Desktop) OpenURL(url string) error {
	name, args, ok := openerFor(d.goos)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedPlatform, d.goos)
	}
	if err := d.start(name, append(args, url)...); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	d.logger.Info("opened url", "url", url)
	return nil
}

// OpenEditor launches editor on dir. The editor value may carry its own
// arguments, e.g. "code -n".
func (d *Desktop) OpenEditor(editor, dir string) error {
	fields := strings.Fields(editor)
	if len(fields) == 0 {
		return ErrNoEditor
	}
	args := append(fields[1:], dir)
	if err := d.start(fields[0], args...); err != nil {
		return fmt.Errorf("failed to start %s: %w", fields[0], err)
	}
	d.logger.Info("opened editor", "editor", fields[0], "dir", dir)
	return nil
}

func openerFor(goos string) (string, []string, bool) {
	switch goos {
	case "darwin":
		return "open", nil, true
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler"}, true
	case "linux", "freebsd", "openbsd", "netbsd":
		return "xdg-open", nil, true
	default:
		return "", nil, false
	}
}
