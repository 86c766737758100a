// pattern: Imperative Shell
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"gasview/internal/clasp"
	"gasview/internal/gas"
	"gasview/internal/instance"
)

// Options carries the process-level wiring the commands depend on.
type Options struct {
	Version string
	// DataDir holds the instance lock and scratch directory.
	DataDir string
	// DownloadDir is the default clone destination.
	DownloadDir string
	// Timeout bounds listing commands. Clone is not bounded.
	Timeout time.Duration

	Connect     BackendFactory
	Credentials func() (*clasp.Credentials, error)
	Copy        func(text string) error

	Stdout   io.Writer
	Stderr   io.Writer
	ExitFunc func(int)
}

func (o *Options) defaults() {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	if o.ExitFunc == nil {
		o.ExitFunc = os.Exit
	}
}

func (o *Options) delegate(timeout time.Duration) *Delegate {
	return &Delegate{
		Connect:  o.Connect,
		Timeout:  timeout,
		ExitFunc: o.ExitFunc,
		Stderr:   o.Stderr,
	}
}

// BuildApp creates and configures the CLI application with all commands and groups.
func BuildApp(opts Options) *App {
	opts.defaults()

	app := NewApp(opts.Version)
	app.Stderr = opts.Stderr
	app.ExitFunc = opts.ExitFunc

	app.AddCommand(&Command{
		Name:    "projects",
		Summary: "List Apps Script projects as JSON",
		Usage:   "Usage: gasview projects",
		Run: func(args []string) error {
			opts.delegate(opts.Timeout).Run(func(ctx context.Context, b Backend) error {
				projects, err := b.Projects(ctx)
				if err != nil {
					return err
				}
				if projects == nil {
					projects = []gas.Project{}
				}
				return WriteJSON(opts.Stdout, projects)
			})
			return nil
		},
	})

	app.AddCommand(&Command{
		Name:    "deployments",
		Summary: "Show a project's deployments with undeployed versions under @HEAD",
		Usage:   "Usage: gasview deployments <project-id>",
		Run: func(args []string) error {
			if len(args) != 1 {
				return errors.New("expected exactly one project id")
			}
			opts.delegate(opts.Timeout).Run(func(ctx context.Context, b Backend) error {
				deployments, err := b.Deployments(ctx, args[0])
				if err != nil {
					return err
				}
				return WriteJSON(opts.Stdout, deployments)
			})
			return nil
		},
	})

	app.AddCommand(&Command{
		Name:    "tree",
		Summary: "Show a project with its reconciled deployments",
		Usage:   "Usage: gasview tree <project-id>",
		Run: func(args []string) error {
			if len(args) != 1 {
				return errors.New("expected exactly one project id")
			}
			opts.delegate(opts.Timeout).Run(func(ctx context.Context, b Backend) error {
				project, err := b.FindProject(ctx, args[0])
				if err != nil {
					return err
				}
				tree, err := b.Tree(ctx, project)
				if err != nil {
					return err
				}
				return WriteJSON(opts.Stdout, tree)
			})
			return nil
		},
	})

	app.AddCommand(&Command{
		Name:    "versions",
		Summary: "List versions no pinned deployment references",
		Usage:   "Usage: gasview versions <project-id>",
		Run: func(args []string) error {
			if len(args) != 1 {
				return errors.New("expected exactly one project id")
			}
			opts.delegate(opts.Timeout).Run(func(ctx context.Context, b Backend) error {
				versions, err := b.Undeployed(ctx, args[0])
				if err != nil {
					return err
				}
				return WriteJSON(opts.Stdout, versions)
			})
			return nil
		},
	})

	app.AddCommand(&Command{
		Name:    "reference",
		Summary: "Print the library reference for a deployment or version",
		Usage:   "Usage: gasview reference <project-id> <@HEAD|@N|N> [--copy]",
		Run: func(args []string) error {
			fs := flag.NewFlagSet("reference", flag.ContinueOnError)
			fs.SetOutput(io.Discard)
			copyRef := fs.Bool("copy", false, "also copy the reference to the clipboard")
			if err := fs.Parse(args); err != nil {
				return err
			}
			if fs.NArg() != 2 {
				return errors.New("expected a project id and a version identity")
			}
			projectID, identity := fs.Arg(0), fs.Arg(1)
			if _, _, err := gas.ParseVersionIdentity(identity); err != nil {
				return err
			}

			opts.delegate(opts.Timeout).Run(func(ctx context.Context, b Backend) error {
				project, err := b.FindProject(ctx, projectID)
				if err != nil {
					return err
				}
				deployments, err := b.Deployments(ctx, projectID)
				if err != nil {
					return err
				}
				sel, err := gas.ResolveSelection(deployments, identity)
				if err != nil {
					return err
				}
				text := gas.FormatLibraryReference(project, sel).JSON()
				if *copyRef && opts.Copy != nil {
					if err := opts.Copy(text); err != nil {
						return err
					}
				}
				_, err = fmt.Fprintln(opts.Stdout, text)
				return err
			})
			return nil
		},
	})

	app.AddCommand(&Command{
		Name:    "clone",
		Summary: "Download a project's source with clasp",
		Usage:   "Usage: gasview clone <project-id> [dest-dir]",
		Run: func(args []string) error {
			if len(args) < 1 || len(args) > 2 {
				return errors.New("expected a project id and an optional destination")
			}
			dest := opts.DownloadDir
			if len(args) == 2 {
				dest = args[1]
			}
			if dest == "" {
				dest = "."
			}

			opts.delegate(0).Run(func(ctx context.Context, b Backend) error {
				project, err := b.FindProject(ctx, args[0])
				if err != nil {
					return err
				}
				dir, err := b.Clone(ctx, project, dest)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(opts.Stdout, dir)
				return err
			})
			return nil
		},
	})

	app.AddCommand(&Command{
		Name:    "cleanup",
		Summary: "Remove the stale lock and scratch directory of a crashed instance",
		Usage:   "Usage: gasview cleanup",
		Run: func(args []string) error {
			removed, err := instance.Cleanup(opts.DataDir)
			if err != nil {
				fmt.Fprintf(opts.Stderr, "error: %v\n", err)
				opts.ExitFunc(1)
				return nil
			}
			if len(removed) == 0 {
				fmt.Fprintln(opts.Stdout, "Nothing to clean up.")
				return nil
			}
			for _, p := range removed {
				fmt.Fprintf(opts.Stdout, "removed %s\n", p)
			}
			return nil
		},
	})

	app.AddCommand(&Command{
		Name:    "version",
		Summary: "Print version and exit",
		Usage:   "Usage: gasview version",
		Run: func(args []string) error {
			fmt.Fprintln(opts.Stdout, opts.Version)
			return nil
		},
	})

	authGroup := app.AddGroup("auth", "Inspect clasp credentials")
	registerAuthCommands(authGroup, &opts)

	return app
}

// AuthStatus is the JSON shape of `auth status`.
type AuthStatus struct {
	Path            string     `json:"path"`
	Layout          string     `json:"layout"`
	ClientID        string     `json:"clientId,omitempty"`
	HasRefreshToken bool       `json:"hasRefreshToken"`
	Expiry          *time.Time `json:"expiry,omitempty"`
}

// NewAuthStatus summarizes credentials without exposing secrets.
func NewAuthStatus(creds *clasp.Credentials) AuthStatus {
	status := AuthStatus{
		Path:     creds.Path,
		Layout:   creds.Layout,
		ClientID: creds.ClientID,
	}
	if creds.Token != nil {
		status.HasRefreshToken = creds.Token.RefreshToken != ""
		if !creds.Token.Expiry.IsZero() {
			expiry := creds.Token.Expiry
			status.Expiry = &expiry
		}
	}
	return status
}

func registerAuthCommands(group *Group, opts *Options) {
	group.AddCommand(&Command{
		Name:    "status",
		Summary: "Show which clasp credentials are in use",
		Usage:   "Usage: gasview auth status",
		Run: func(args []string) error {
			creds, err := opts.Credentials()
			if err != nil {
				fmt.Fprintf(opts.Stderr, "error: %v\n", err)
				if IsSetupError(err) {
					opts.ExitFunc(2)
				} else {
					opts.ExitFunc(1)
				}
				return nil
			}
			return WriteJSON(opts.Stdout, NewAuthStatus(creds))
		},
	})
}
