// Package runtime implements the RUNTIME_ENV stage: a Python virtual
// environment inside the install root with the bundle's requirements
// installed into it.
//
// Activation is scoped. The environment variables that activate the venv
// are attached to the commands of this stage only and are never written to
// the hostforge process environment.
package runtime
