// Package packages installs system dependencies through apt.
//
// It implements two pipeline stages. SYSTEM_DEPS refreshes the package index
// and installs the configured package set in a single batch. DB_ENGINE
// registers the database vendor repository (signing key, source line),
// installs the engine package and enables its service. DB_ENGINE is guarded
// by a presence check on the engine binary, so a rerun performs no work.
package packages
