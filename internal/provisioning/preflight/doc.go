// Package preflight implements the PRECONDITIONS stage: it verifies the
// process runs as root, that the operating system is a supported
// distribution at or above its minimum version, and that the CPU advertises
// one of the required instruction-set extensions.
//
// All checks are reads. Versions are compared in-process, so no helper is
// installed; a codename missing from os-release is asked from lsb_release
// only when it is already on PATH.
package preflight
