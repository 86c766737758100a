// pattern: Functional Core

package clasp

import (
	"bufio"
	"regexp"
	"strings"

	"gasview/internal/gas"
)

var projectURLPattern = regexp.MustCompile(`https?://script\.google\.com/d/([^/\s]+)/edit`)

// IDFromURL extracts the script id from a project editor URL.
func IDFromURL(url string) (string, bool) {
	m := projectURLPattern.FindStringSubmatch(url)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ParseProjectList parses `clasp list --noShorten` output. Each project line
// has the form "<name> - <url>"; lines without a project URL (headers,
// blank lines, spinners) are skipped.
func ParseProjectList(output string) []gas.Project {
	var projects []gas.Project

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		loc := projectURLPattern.FindStringSubmatchIndex(line)
		if loc == nil {
			continue
		}

		name := strings.TrimSpace(line[:loc[0]])
		name = strings.TrimSpace(strings.TrimSuffix(name, "-"))
		if name == "" {
			continue
		}
		url := line[loc[0]:loc[1]]
		id, ok := IDFromURL(url)
		if !ok {
			continue
		}
		projects = append(projects, gas.Project{
			ID:   id,
			Name: name,
			URL:  url,
		})
	}

	return projects
}
