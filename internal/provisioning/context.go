package provisioning

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/hostforge/hostforge/internal/config"
	"github.com/hostforge/hostforge/internal/platform/system"
)

// Context wraps all dependencies and state needed for a provisioning phase.
type Context struct {
	context.Context
	Config   *config.Config
	State    *State
	Runner   system.Runner
	Observer Observer
	Log      logr.Logger
}

// NewContext creates a new provisioning context.
func NewContext(
	ctx context.Context,
	cfg *config.Config,
	runID string,
	runner system.Runner,
	observer Observer,
	log logr.Logger,
) *Context {
	return &Context{
		Context:  ctx,
		Config:   cfg,
		State:    NewState(runID),
		Runner:   runner,
		Observer: observer,
		Log:      log,
	}
}
