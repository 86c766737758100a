// pattern: Functional Core

package gas

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseVersionIdentity parses "@HEAD", "HEAD", "@N" or "N". It returns
// head=true for the head identity, otherwise the positive version number.
func ParseVersionIdentity(s string) (head bool, version int, err error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "@")
	if strings.EqualFold(trimmed, "HEAD") {
		return true, 0, nil
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil || n <= 0 {
		return false, 0, fmt.Errorf("invalid version identity %q: want @HEAD or a positive version number", s)
	}
	return false, n, nil
}

// ResolveSelection finds what identity refers to among a project's reconciled
// deployments. A pinned deployment wins over an undeployed version with the
// same number.
func ResolveSelection(deployments []DisplayDeployment, identity string) (Selection, error) {
	head, n, err := ParseVersionIdentity(identity)
	if err != nil {
		return nil, err
	}

	for _, d := range deployments {
		dep, _ := asDeployment(d.Deployment)
		switch dep := dep.(type) {
		case HeadDeployment:
			if head {
				return dep, nil
			}
		case PinnedDeployment:
			if !head && dep.VersionNumber == n {
				return dep, nil
			}
		}
	}

	if !head {
		for _, d := range deployments {
			for _, v := range d.Versions {
				if v.VersionNumber == n {
					return v, nil
				}
			}
		}
	}
	return nil, fmt.Errorf("no deployment or undeployed version matches %q", identity)
}
