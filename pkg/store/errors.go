package store

import (
	"errors"
	"fmt"
)

// ErrInstallFailed is returned when the bundled index could not be installed
// or opened. It is fatal for the lookup feature.
var ErrInstallFailed = errors.New("dictionary install failed")

// Install phases reported by InstallError.
const (
	PhaseCopy     = "copy"
	PhaseValidate = "validate"
	PhaseRename   = "rename"
	PhaseOpen     = "open"
)

// InstallError carries the phase and path of a failed installation.
type InstallError struct {
	Phase string
	Path  string
	Err   error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("install %s (%s): %v", e.Path, e.Phase, e.Err)
}

func (e *InstallError) Unwrap() error {
	return e.Err
}

func (e *InstallError) Is(target error) bool {
	return target == ErrInstallFailed
}

func newInstallError(phase, path string, err error) *InstallError {
	return &InstallError{Phase: phase, Path: path, Err: err}
}
