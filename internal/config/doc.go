// Package config defines the configuration model used by every provisioning
// stage.
//
// The [Config] struct describes the target host layout: the install root,
// the supported distributions, the system package set, the database engine
// repository, the artifact sources, the runtime environment, the shell alias
// and the launcher entry point. [Default] returns a fully populated
// configuration; [Load] overlays a YAML or TOML file on top of it.
//
// Timeouts and retry counts are read from the environment by [LoadTimeouts].
package config
