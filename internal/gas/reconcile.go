// pattern: Functional Core

package gas

// UndeployedVersions returns the versions not referenced by any pinned
// deployment, in the order they appear in versions. Pinned version numbers
// that have no matching version are ignored.
func UndeployedVersions(deployments []Deployment, versions []Version) []Version {
	deployed := make(map[int]struct{}, len(deployments))
	for _, d := range deployments {
		dep, _ := asDeployment(d)
		if p, ok := dep.(PinnedDeployment); ok {
			deployed[p.VersionNumber] = struct{}{}
		}
	}

	undeployed := make([]Version, 0, len(versions))
	for _, v := range versions {
		if _, ok := deployed[v.VersionNumber]; ok {
			continue
		}
		undeployed = append(undeployed, v)
	}
	return undeployed
}

// Reconcile annotates deployments for display. Every head deployment gets the
// undeployed versions as children and is expandable when there are any;
// pinned deployments never have children. Input order is preserved, pointer
// variants are stored by value and nil entries are skipped.
//
// When more than one head deployment is present each receives the same full
// list of undeployed versions.
func Reconcile(deployments []Deployment, versions []Version) []DisplayDeployment {
	undeployed := UndeployedVersions(deployments, versions)

	out := make([]DisplayDeployment, 0, len(deployments))
	for _, d := range deployments {
		dep, ok := asDeployment(d)
		if !ok {
			continue
		}
		switch dep := dep.(type) {
		case HeadDeployment:
			out = append(out, DisplayDeployment{
				Deployment: dep,
				Versions:   undeployed,
				Expandable: len(undeployed) > 0,
			})
		case PinnedDeployment:
			out = append(out, DisplayDeployment{
				Deployment: dep,
				Versions:   []Version{},
			})
		}
	}
	return out
}
