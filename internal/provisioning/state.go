package provisioning

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// HostProfile is what the precondition stage learned about the host.
// It is read once and not modified afterwards.
type HostProfile struct {
	ID        string
	VersionID string
	Version   *semver.Version
	Codename  string
	CPUFlags  map[string]struct{}
}

// HasFlag reports whether the CPU advertises flag.
func (h *HostProfile) HasFlag(flag string) bool {
	_, ok := h.CPUFlags[flag]
	return ok
}

func (h *HostProfile) String() string {
	s := fmt.Sprintf("%s %s", h.ID, h.VersionID)
	if h.Codename != "" {
		s += fmt.Sprintf(" (%s)", h.Codename)
	}
	return s
}

// InstallTarget is computed by the artifact stage.
type InstallTarget struct {
	Root      string
	Arch      string
	BundleURL string
}

// RuntimeEnvironment is the isolated interpreter built by the runtime stage.
type RuntimeEnvironment struct {
	Root    string
	VenvDir string
	Python  string
}

// Handoff describes the process that replaces hostforge once the pipeline
// completes.
type Handoff struct {
	Path string
	Args []string
	Dir  string
	Env  []string
}

// State holds the shared results of provisioning phases.
// It is progressively populated as each phase completes and is passed
// to subsequent phases that need earlier results.
type State struct {
	RunID string

	Host       *HostProfile        // populated by preflight
	DBSkipped  bool                // database engine was already present
	Target     *InstallTarget      // populated by artifact
	Runtime    *RuntimeEnvironment // populated by runtime
	AliasAdded bool                // populated by shell
	Handoff    *Handoff            // populated by launch
}

// NewState creates an empty provisioning state.
func NewState(runID string) *State {
	return &State{RunID: runID}
}
