// pattern: Functional Core

package tui

import (
	"fmt"
	"strings"

	"gasview/internal/gas"
)

// TreeItemType identifies what a tree row shows.
type TreeItemType int

const (
	TreeItemProject TreeItemType = iota
	TreeItemDeployment
	TreeItemVersion
	TreeItemNotice // loading, empty or error line under a project
)

// TreeItem is one visible row of the project tree.
type TreeItem struct {
	Type       TreeItemType
	Depth      int
	Project    gas.Project
	Deployment gas.DisplayDeployment
	Version    gas.Version
	Notice     string
	IsError    bool
	Expanded   bool
	Expandable bool
}

// Key identifies the row across rebuilds.
func (i TreeItem) Key() string {
	switch i.Type {
	case TreeItemProject:
		return projectKey(i.Project.ID)
	case TreeItemDeployment:
		return deploymentKey(i.Project.ID, i.Deployment.Deployment.DeploymentID())
	case TreeItemVersion:
		return fmt.Sprintf("v:%s/%s/%d", i.Project.ID, i.Deployment.Deployment.DeploymentID(), i.Version.VersionNumber)
	default:
		return "n:" + i.Project.ID
	}
}

func projectKey(projectID string) string {
	return "p:" + projectID
}

func deploymentKey(projectID, deploymentID string) string {
	return "d:" + projectID + "/" + deploymentID
}

// Label is the plain text of the row, without indentation or styling.
func (i TreeItem) Label() string {
	switch i.Type {
	case TreeItemProject:
		return i.Project.Name
	case TreeItemDeployment:
		d := i.Deployment.Deployment
		parts := []string{d.VersionIdentity()}
		if desc := gas.DeploymentDescription(d); desc != "" {
			parts = append(parts, desc)
		}
		parts = append(parts, d.DeploymentID())
		return strings.Join(parts, "  ")
	case TreeItemVersion:
		if i.Version.Description != "" {
			return i.Version.Label() + "  " + i.Version.Description
		}
		return i.Version.Label()
	default:
		return i.Notice
	}
}

// Selection returns what a library reference for this row refers to.
func (i TreeItem) Selection() (gas.Selection, bool) {
	switch i.Type {
	case TreeItemDeployment:
		sel, ok := i.Deployment.Deployment.(gas.Selection)
		return sel, ok
	case TreeItemVersion:
		return i.Version, true
	default:
		return nil, false
	}
}

// projectState is the load state of one project's deployments.
type projectState struct {
	Loading     bool
	Loaded      bool
	Deployments []gas.DisplayDeployment
	Err         error
}

// BuildTree flattens projects and their loaded deployments into visible rows.
// expanded holds the keys of expanded projects and deployments.
func BuildTree(projects []gas.Project, states map[string]projectState, expanded map[string]bool) []TreeItem {
	var items []TreeItem
	for _, p := range projects {
		open := expanded[projectKey(p.ID)]
		items = append(items, TreeItem{
			Type:       TreeItemProject,
			Project:    p,
			Expanded:   open,
			Expandable: true,
		})
		if !open {
			continue
		}

		st := states[p.ID]
		switch {
		case st.Loading:
			items = append(items, TreeItem{Type: TreeItemNotice, Depth: 1, Project: p, Notice: "loading deployments..."})
			continue
		case st.Err != nil:
			items = append(items, TreeItem{Type: TreeItemNotice, Depth: 1, Project: p, Notice: st.Err.Error(), IsError: true})
			continue
		case !st.Loaded:
			continue
		case len(st.Deployments) == 0:
			items = append(items, TreeItem{Type: TreeItemNotice, Depth: 1, Project: p, Notice: "no deployments"})
			continue
		}

		for _, d := range st.Deployments {
			dOpen := d.Expandable && expanded[deploymentKey(p.ID, d.Deployment.DeploymentID())]
			items = append(items, TreeItem{
				Type:       TreeItemDeployment,
				Depth:      1,
				Project:    p,
				Deployment: d,
				Expanded:   dOpen,
				Expandable: d.Expandable,
			})
			if !dOpen {
				continue
			}
			for _, v := range d.Versions {
				items = append(items, TreeItem{
					Type:       TreeItemVersion,
					Depth:      2,
					Project:    p,
					Deployment: d,
					Version:    v,
				})
			}
		}
	}
	return items
}

// indexOfKey returns the row index with the given key, or -1.
func indexOfKey(items []TreeItem, key string) int {
	for i, item := range items {
		if item.Key() == key {
			return i
		}
	}
	return -1
}

// parentIndex returns the index of the row one level up from idx, or -1.
func parentIndex(items []TreeItem, idx int) int {
	if idx < 0 || idx >= len(items) {
		return -1
	}
	depth := items[idx].Depth
	for i := idx - 1; i >= 0; i-- {
		if items[i].Depth < depth {
			return i
		}
	}
	return -1
}
