// pkg/vcpkg/status.go
package vcpkg

import (
	"bufio"
	"io"
	"strings"
)

// StatusEntry is one paragraph of installed/vcpkg/status
type StatusEntry struct {
	Package      string
	Version      string
	PortVersion  string
	Architecture string // the triplet
	Feature      string // set on feature paragraphs
	Status       string // e.g. "install ok installed"
}

// Installed reports whether the paragraph describes an installed port
func (e *StatusEntry) Installed() bool {
	return strings.HasSuffix(e.Status, " installed")
}

// ParseStatus parses the Debian-control-style status database vcpkg keeps
func ParseStatus(r io.Reader) ([]*StatusEntry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var entries []*StatusEntry
	current := &StatusEntry{}

	flush := func() {
		if current.Package != "" {
			entries = append(entries, current)
		}
		current = &StatusEntry{}
	}

	for scanner.Scan() {
		line := scanner.Text()

		// Empty line ends a paragraph
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}

		// Continuation lines only occur in descriptions
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			continue
		}

		field, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.TrimSpace(field) {
		case "Package":
			current.Package = value
		case "Version":
			current.Version = value
		case "Port-Version":
			current.PortVersion = value
		case "Architecture":
			current.Architecture = value
		case "Feature":
			current.Feature = value
		case "Status":
			current.Status = value
		}
	}
	flush()

	return entries, scanner.Err()
}

// Find returns the installed core paragraph of port for triplet
func Find(entries []*StatusEntry, port, triplet string) *StatusEntry {
	var found *StatusEntry
	for _, e := range entries {
		if e.Package != port || e.Architecture != triplet || e.Feature != "" {
			continue
		}
		// Later paragraphs supersede earlier ones
		if e.Installed() {
			found = e
		} else {
			found = nil
		}
	}
	return found
}
