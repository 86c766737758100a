// pattern: Imperative Shell

// Package explorer composes the project, deployment and version sources
// into reconciled project trees.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"gasview/internal/gas"
	"gasview/internal/logging"
)

// ErrUnknownProject is returned when a project id is not in the listing.
var ErrUnknownProject = errors.New("unknown project")

// ListingService fetches the deployments and versions of a project.
// Implementations page through all results.
type ListingService interface {
	FetchDeployments(ctx context.Context, projectID string) ([]gas.Deployment, error)
	FetchVersions(ctx context.Context, projectID string) ([]gas.Version, error)
}

// ProjectLister lists the available script projects.
type ProjectLister interface {
	ListProjects(ctx context.Context) ([]gas.Project, error)
}

// Cloner downloads a project's source into a local directory.
type Cloner interface {
	Clone(ctx context.Context, project gas.Project, destDir string) (string, error)
}

// Explorer loads projects and reconciled deployment trees.
type Explorer struct {
	listing  ListingService
	projects ProjectLister
	cloner   Cloner
	logger   *logging.ScopedLogger
}

// New creates an Explorer.
func New(listing ListingService, projects ProjectLister, cloner Cloner, logProvider logging.LoggerProvider) *Explorer {
	logger := logging.NopLogger()
	if logProvider != nil {
		logger = logProvider.For("explorer")
	}
	return &Explorer{
		listing:  listing,
		projects: projects,
		cloner:   cloner,
		logger:   logger,
	}
}

// Projects lists all projects.
func (e *Explorer) Projects(ctx context.Context) ([]gas.Project, error) {
	projects, err := e.projects.ListProjects(ctx)
	if err != nil {
		return nil, err
	}
	e.logger.Info("loaded projects", "count", len(projects))
	return projects, nil
}

// FindProject looks up a project by id in the listing.
func (e *Explorer) FindProject(ctx context.Context, projectID string) (gas.Project, error) {
	projects, err := e.Projects(ctx)
	if err != nil {
		return gas.Project{}, err
	}
	for _, p := range projects {
		if p.ID == projectID {
			return p, nil
		}
	}
	return gas.Project{}, fmt.Errorf("%w: %s", ErrUnknownProject, projectID)
}

// fetch loads a project's deployments and versions concurrently. Versions
// are ordered newest first.
func (e *Explorer) fetch(ctx context.Context, projectID string) ([]gas.Deployment, []gas.Version, error) {
	var (
		deployments []gas.Deployment
		versions    []gas.Version
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		deployments, err = e.listing.FetchDeployments(gctx, projectID)
		return err
	})
	g.Go(func() error {
		var err error
		versions, err = e.listing.FetchVersions(gctx, projectID)
		return err
	})
	if err := g.Wait(); err != nil {
		e.logger.Warn("load deployments failed", "project", projectID, "error", err)
		return nil, nil, err
	}

	SortNewestFirst(versions)
	return deployments, versions, nil
}

// Deployments fetches a project's deployments and versions and reconciles
// them.
func (e *Explorer) Deployments(ctx context.Context, projectID string) ([]gas.DisplayDeployment, error) {
	deployments, versions, err := e.fetch(ctx, projectID)
	if err != nil {
		return nil, err
	}
	reconciled := gas.Reconcile(deployments, versions)
	e.logger.Debug("reconciled deployments",
		"project", projectID,
		"deployments", len(reconciled),
		"versions", len(versions))
	return reconciled, nil
}

// Undeployed returns the versions no pinned deployment references, newest
// first. Unlike the head children it does not depend on a head existing.
func (e *Explorer) Undeployed(ctx context.Context, projectID string) ([]gas.Version, error) {
	deployments, versions, err := e.fetch(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return gas.UndeployedVersions(deployments, versions), nil
}

// Tree loads the reconciled hierarchy for one project.
func (e *Explorer) Tree(ctx context.Context, project gas.Project) (gas.ProjectTree, error) {
	deployments, err := e.Deployments(ctx, project.ID)
	if err != nil {
		return gas.ProjectTree{}, err
	}
	return gas.ProjectTree{Project: project, Deployments: deployments}, nil
}

// Clone downloads a project into destDir and returns the project directory.
func (e *Explorer) Clone(ctx context.Context, project gas.Project, destDir string) (string, error) {
	return e.cloner.Clone(ctx, project, destDir)
}

// SortNewestFirst orders versions by descending version number in place.
func SortNewestFirst(versions []gas.Version) {
	slices.SortStableFunc(versions, func(a, b gas.Version) int {
		return b.VersionNumber - a.VersionNumber
	})
}
