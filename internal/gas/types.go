// pattern: Functional Core

// Package gas models Google Apps Script projects, versions and deployments,
// and reconciles deployments against versions for display.
package gas

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// HeadIdentity is the version identity of the live, undeployed state of a project.
const HeadIdentity = "@HEAD"

// Project identifies a script project.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ProjectURL returns the editor URL for a script id.
func ProjectURL(id string) string {
	return fmt.Sprintf("https://script.google.com/d/%s/edit", id)
}

// NewProject builds a Project with its editor URL derived from the id.
func NewProject(id, name string) Project {
	return Project{ID: id, Name: name, URL: ProjectURL(id)}
}

// Version is an immutable numbered snapshot of a project's source.
type Version struct {
	ProjectID     string `json:"projectId"`
	VersionNumber int    `json:"versionNumber"`
	Description   string `json:"description,omitempty"`
}

// Label returns the display label, e.g. "v12".
func (v Version) Label() string {
	return "v" + strconv.Itoa(v.VersionNumber)
}

func (Version) selection() {}

// Deployment is either a HeadDeployment or a PinnedDeployment.
// The interface is sealed; use a type switch over both variants.
type Deployment interface {
	DeploymentID() string
	ScriptID() string
	VersionIdentity() string
	deployment()
}

// HeadDeployment represents the editable, undeployed state of a project.
type HeadDeployment struct {
	ID        string
	ProjectID string
}

func (d HeadDeployment) DeploymentID() string    { return d.ID }
func (d HeadDeployment) ScriptID() string        { return d.ProjectID }
func (d HeadDeployment) VersionIdentity() string { return HeadIdentity }
func (HeadDeployment) deployment()               {}
func (HeadDeployment) selection()                {}

// PinnedDeployment is bound to a specific version snapshot.
type PinnedDeployment struct {
	ID            string
	ProjectID     string
	Description   string
	VersionNumber int
}

func (d PinnedDeployment) DeploymentID() string { return d.ID }
func (d PinnedDeployment) ScriptID() string     { return d.ProjectID }
func (d PinnedDeployment) VersionIdentity() string {
	return "@" + strconv.Itoa(d.VersionNumber)
}
func (PinnedDeployment) deployment() {}
func (PinnedDeployment) selection()  {}

// asDeployment returns the value variant of d, dereferencing pointers to
// either variant. ok is false for nil interfaces and nil pointers.
func asDeployment(d Deployment) (Deployment, bool) {
	switch dep := d.(type) {
	case HeadDeployment:
		return dep, true
	case PinnedDeployment:
		return dep, true
	case *HeadDeployment:
		if dep != nil {
			return *dep, true
		}
	case *PinnedDeployment:
		if dep != nil {
			return *dep, true
		}
	}
	return nil, false
}

// asSelection is asDeployment for selections, which may also be versions.
func asSelection(s Selection) (Selection, bool) {
	switch sel := s.(type) {
	case HeadDeployment:
		return sel, true
	case PinnedDeployment:
		return sel, true
	case Version:
		return sel, true
	case *HeadDeployment:
		if sel != nil {
			return *sel, true
		}
	case *PinnedDeployment:
		if sel != nil {
			return *sel, true
		}
	case *Version:
		if sel != nil {
			return *sel, true
		}
	}
	return nil, false
}

// IsHead reports whether d is a head deployment.
func IsHead(d Deployment) bool {
	dep, _ := asDeployment(d)
	_, ok := dep.(HeadDeployment)
	return ok
}

// DeploymentDescription returns the description of a pinned deployment, or "".
func DeploymentDescription(d Deployment) string {
	dep, _ := asDeployment(d)
	if p, ok := dep.(PinnedDeployment); ok {
		return p.Description
	}
	return ""
}

// DisplayDeployment is a deployment annotated with the versions shown beneath it.
// Only head deployments carry versions.
type DisplayDeployment struct {
	Deployment Deployment
	Versions   []Version
	Expandable bool
}

// deploymentJSON is the wire shape of a DisplayDeployment.
type deploymentJSON struct {
	ID              string    `json:"id"`
	ProjectID       string    `json:"projectId"`
	VersionIdentity string    `json:"versionIdentity"`
	VersionNumber   int       `json:"versionNumber,omitempty"`
	Description     string    `json:"description,omitempty"`
	Head            bool      `json:"head"`
	Expandable      bool      `json:"expandable"`
	Versions        []Version `json:"versions"`
}

// MarshalJSON renders the deployment with its derived identity.
func (d DisplayDeployment) MarshalJSON() ([]byte, error) {
	out := deploymentJSON{
		Expandable: d.Expandable,
		Versions:   d.Versions,
	}
	if out.Versions == nil {
		out.Versions = []Version{}
	}
	dep, _ := asDeployment(d.Deployment)
	switch dep := dep.(type) {
	case HeadDeployment:
		out.ID = dep.ID
		out.ProjectID = dep.ProjectID
		out.VersionIdentity = dep.VersionIdentity()
		out.Head = true
	case PinnedDeployment:
		out.ID = dep.ID
		out.ProjectID = dep.ProjectID
		out.VersionIdentity = dep.VersionIdentity()
		out.VersionNumber = dep.VersionNumber
		out.Description = dep.Description
	}
	return json.Marshal(out)
}

// ProjectTree is the root of the reconciled hierarchy for one project.
type ProjectTree struct {
	Project     Project             `json:"project"`
	Deployments []DisplayDeployment `json:"deployments"`
}
