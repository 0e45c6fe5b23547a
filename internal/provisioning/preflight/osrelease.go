package preflight

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// OSRelease holds the os-release fields the pipeline uses.
type OSRelease struct {
	ID        string
	VersionID string
	Codename  string
}

// ParseOSRelease parses the KEY=value format of os-release(5). Values may be
// single or double quoted; comments and blank lines are ignored.
func ParseOSRelease(r io.Reader) (OSRelease, error) {
	var rel OSRelease
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		value = unquote(strings.TrimSpace(value))
		switch strings.TrimSpace(key) {
		case "ID":
			rel.ID = strings.ToLower(value)
		case "VERSION_ID":
			rel.VersionID = value
		case "VERSION_CODENAME":
			rel.Codename = value
		}
	}
	if err := scanner.Err(); err != nil {
		return OSRelease{}, err
	}
	return rel, nil
}

// ReadOSRelease reads and parses the os-release file at path.
func ReadOSRelease(path string) (OSRelease, error) {
	// #nosec G304 - path comes from configuration
	f, err := os.Open(path)
	if err != nil {
		return OSRelease{}, fmt.Errorf("failed to read OS release metadata: %w", err)
	}
	defer func() { _ = f.Close() }()

	rel, err := ParseOSRelease(f)
	if err != nil {
		return OSRelease{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return rel, nil
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}
