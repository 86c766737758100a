// pattern: Functional Core

package gas

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"unicode"
)

// Selection is what a library reference can point at: a HeadDeployment,
// a PinnedDeployment or an undeployed Version.
type Selection interface {
	selection()
}

// LibraryReference is the descriptor pasted into another project's manifest
// to import a project as a library.
type LibraryReference struct {
	LibraryID       string `json:"libraryId"`
	DevelopmentMode bool   `json:"developmentMode"`
	Version         string `json:"version"`
	UserSymbol      string `json:"userSymbol"`
}

// FormatLibraryReference builds the library reference for a selection within project.
func FormatLibraryReference(project Project, sel Selection) LibraryReference {
	ref := LibraryReference{
		LibraryID:  project.ID,
		UserSymbol: UserSymbol(project.Name),
	}

	canonical, ok := asSelection(sel)
	if !ok {
		// No selection refers to the head.
		canonical = HeadDeployment{}
	}
	switch s := canonical.(type) {
	case HeadDeployment:
		ref.DevelopmentMode = true
		ref.Version = "0"
	case PinnedDeployment:
		ref.Version = strconv.Itoa(s.VersionNumber)
	case Version:
		ref.Version = strconv.Itoa(s.VersionNumber)
	}
	return ref
}

// UserSymbol derives an identifier-like symbol from a project name: leading
// decimal digits are stripped, then '-', '@' and whitespace are removed.
// The result is not guaranteed to be a valid or unique identifier.
func UserSymbol(name string) string {
	name = strings.TrimLeft(name, "0123456789")
	return strings.Map(func(r rune) rune {
		if r == '-' || r == '@' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, name)
}

// JSON renders the reference as indented JSON for the clipboard.
func (r LibraryReference) JSON() string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return ""
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
