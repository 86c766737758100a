// pattern: Functional Core

package script

import (
	scriptapi "google.golang.org/api/script/v1"

	"gasview/internal/gas"
)

// toDeployment maps an API deployment to the domain sum type. A deployment
// without a version number is the head deployment.
func toDeployment(projectID string, d *scriptapi.Deployment) gas.Deployment {
	scriptID := projectID
	var versionNumber int64
	var description string
	if cfg := d.DeploymentConfig; cfg != nil {
		if cfg.ScriptId != "" {
			scriptID = cfg.ScriptId
		}
		versionNumber = cfg.VersionNumber
		description = cfg.Description
	}

	if versionNumber <= 0 {
		return gas.HeadDeployment{ID: d.DeploymentId, ProjectID: scriptID}
	}
	return gas.PinnedDeployment{
		ID:            d.DeploymentId,
		ProjectID:     scriptID,
		Description:   description,
		VersionNumber: int(versionNumber),
	}
}

func toVersion(projectID string, v *scriptapi.Version) (gas.Version, bool) {
	if v.VersionNumber <= 0 {
		return gas.Version{}, false
	}
	scriptID := v.ScriptId
	if scriptID == "" {
		scriptID = projectID
	}
	return gas.Version{
		ProjectID:     scriptID,
		VersionNumber: int(v.VersionNumber),
		Description:   v.Description,
	}, true
}
