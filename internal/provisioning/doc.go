// Package provisioning provides the shared types and the orchestrator of the
// host provisioning pipeline.
//
// # Subpackages
//
//   - preflight/: privilege, OS and CPU checks
//   - packages/: system packages and the database engine
//   - artifact/: install root replacement, bundle and geo data downloads
//   - runtime/: isolated Python environment
//   - shell/: operator shell alias
//   - launch/: entry point handoff
//
// # Core Types
//
// Context carries configuration, state, the command runner and the observer.
// Phase binds a provisioning step to its Stage in the state machine.
// Pipeline runs phases strictly in Stage order and stops at the first
// failure, which it reports as a *StageError carrying the stage, the step
// and the FailureKind.
package provisioning
