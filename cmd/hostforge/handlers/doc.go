// Package handlers implements the business logic for CLI commands.
//
// Each handler loads configuration, wires the provisioning stages to their
// collaborators (command runner, download sources, journal, metrics) and
// runs them. Command parsing lives in the commands package.
package handlers
