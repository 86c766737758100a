// pattern: Imperative Shell

// Package script fetches deployments and versions from the Apps Script API
// and script projects from the Drive API.
package script

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	scriptapi "google.golang.org/api/script/v1"

	"gasview/internal/gas"
	"gasview/internal/logging"
)

// ErrFetchFailed wraps every listing failure from the Google APIs.
var ErrFetchFailed = errors.New("fetch failed")

// scriptMimeType is the Drive MIME type of standalone Apps Script projects.
const scriptMimeType = "application/vnd.google-apps.script"

// DefaultPageSize is used when Options.PageSize is not positive.
const DefaultPageSize = 50

// Options configures a Client.
type Options struct {
	PageSize int
	// ClientOptions are appended after the token source, so tests can
	// override the endpoint and HTTP client.
	ClientOptions []option.ClientOption
}

// Client lists script resources. Every List* call pages through all results.
type Client struct {
	scripts  *scriptapi.Service
	files    *drive.Service
	pageSize int64
	logger   *logging.ScopedLogger
}

// NewClient creates API services authenticated by ts. A nil ts means the
// ClientOptions must supply authentication (or disable it).
func NewClient(ctx context.Context, ts oauth2.TokenSource, opts Options, logProvider logging.LoggerProvider) (*Client, error) {
	var clientOpts []option.ClientOption
	if ts != nil {
		clientOpts = append(clientOpts, option.WithTokenSource(ts))
	}
	clientOpts = append(clientOpts, opts.ClientOptions...)

	scripts, err := scriptapi.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create apps script service: %w", err)
	}
	files, err := drive.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	logger := logging.NopLogger()
	if logProvider != nil {
		logger = logProvider.For("script")
	}

	return &Client{
		scripts:  scripts,
		files:    files,
		pageSize: int64(pageSize),
		logger:   logger,
	}, nil
}

// FetchDeployments returns all deployments of a project in API order.
func (c *Client) FetchDeployments(ctx context.Context, projectID string) ([]gas.Deployment, error) {
	var deployments []gas.Deployment
	call := c.scripts.Projects.Deployments.List(projectID).PageSize(c.pageSize)
	err := call.Pages(ctx, func(page *scriptapi.ListDeploymentsResponse) error {
		for _, d := range page.Deployments {
			if d == nil {
				continue
			}
			deployments = append(deployments, toDeployment(projectID, d))
		}
		return nil
	})
	if err != nil {
		return nil, c.fetchError("list deployments", projectID, err)
	}

	c.logger.Debug("listed deployments", "project", projectID, "count", len(deployments))
	return deployments, nil
}

// FetchVersions returns all versions of a project in API order.
func (c *Client) FetchVersions(ctx context.Context, projectID string) ([]gas.Version, error) {
	var versions []gas.Version
	call := c.scripts.Projects.Versions.List(projectID).PageSize(c.pageSize)
	err := call.Pages(ctx, func(page *scriptapi.ListVersionsResponse) error {
		for _, v := range page.Versions {
			if v == nil {
				continue
			}
			if version, ok := toVersion(projectID, v); ok {
				versions = append(versions, version)
			}
		}
		return nil
	})
	if err != nil {
		return nil, c.fetchError("list versions", projectID, err)
	}

	c.logger.Debug("listed versions", "project", projectID, "count", len(versions))
	return versions, nil
}

// ListProjects returns the standalone script projects in the user's Drive
// that are not trashed.
func (c *Client) ListProjects(ctx context.Context) ([]gas.Project, error) {
	var projects []gas.Project
	call := c.files.Files.List().
		Q(fmt.Sprintf("mimeType=%q and trashed=false", scriptMimeType)).
		PageSize(c.pageSize).
		Fields("nextPageToken, files(id, name)")
	err := call.Pages(ctx, func(page *drive.FileList) error {
		for _, f := range page.Files {
			if f == nil || f.Id == "" {
				continue
			}
			projects = append(projects, gas.NewProject(f.Id, f.Name))
		}
		return nil
	})
	if err != nil {
		return nil, c.fetchError("list projects", "", err)
	}

	c.logger.Debug("listed drive projects", "count", len(projects))
	return projects, nil
}

func (c *Client) fetchError(op, projectID string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		c.logger.Error(op+" failed", "project", projectID, "status", apiErr.Code, "error", apiErr.Message)
		return fmt.Errorf("%w: %s: status %d: %s", ErrFetchFailed, op, apiErr.Code, apiErr.Message)
	}
	c.logger.Error(op+" failed", "project", projectID, "error", err)
	return fmt.Errorf("%w: %s: %w", ErrFetchFailed, op, err)
}
