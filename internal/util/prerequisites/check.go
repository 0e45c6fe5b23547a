// Package prerequisites checks for host tools on PATH.
package prerequisites

import (
	"fmt"
	"strings"

	"github.com/hostforge/hostforge/internal/config"
)

// Tool represents a host binary that a stage relies on.
type Tool struct {
	// Name is the binary name to look for in PATH.
	Name string

	// Package is the system package that provides the binary.
	Package string

	// Required indicates if this tool is mandatory.
	Required bool

	// Description explains what the tool is used for.
	Description string
}

// FromConfig converts configured helper tools. All of them are required.
func FromConfig(tools []config.Tool) []Tool {
	out := make([]Tool, 0, len(tools))
	for _, t := range tools {
		pkg := t.Package
		if pkg == "" {
			pkg = t.Name
		}
		out = append(out, Tool{Name: t.Name, Package: pkg, Required: true})
	}
	return out
}

// LookPathFunc resolves a binary name on PATH.
type LookPathFunc func(name string) (string, error)

// CheckResult contains the result of checking a single tool.
type CheckResult struct {
	Tool  Tool
	Found bool
	Path  string
}

// CheckResults contains the results of checking multiple tools.
type CheckResults struct {
	Results []CheckResult
	Missing []Tool
}

// HasErrors returns true if any required tools are missing.
func (r *CheckResults) HasErrors() bool {
	for _, tool := range r.Missing {
		if tool.Required {
			return true
		}
	}
	return false
}

// Error returns an error if any required tools are missing.
func (r *CheckResults) Error() error {
	var missing []string
	for _, tool := range r.Missing {
		if tool.Required {
			missing = append(missing, fmt.Sprintf("%s (package %s)", tool.Name, tool.Package))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
}

// Check verifies that the specified tools are available.
func Check(lookPath LookPathFunc, tools []Tool) *CheckResults {
	results := &CheckResults{}

	for _, tool := range tools {
		result := CheckResult{Tool: tool}

		if path, err := lookPath(tool.Name); err == nil {
			result.Found = true
			result.Path = path
		} else {
			results.Missing = append(results.Missing, tool)
		}

		results.Results = append(results.Results, result)
	}

	return results
}
