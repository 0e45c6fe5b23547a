// Package system provides the host primitives the provisioning stages are
// built on: running external commands, resolving binaries on PATH, reading
// the machine type, and replacing the current process.
//
// Stages depend on the [Runner] interface so tests can substitute the
// recording fake from package systemtest.
package system
