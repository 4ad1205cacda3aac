package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidScheme      = errors.New("invalid scheme")
	ErrMissingCredentials = errors.New("missing critical keys (uuid or pbk)")
	ErrMalformedStructure = errors.New("malformed link structure")

	ErrConfigurationMissing        = errors.New("configuration missing")
	ErrEngineStartFailure          = errors.New("engine start failure")
	ErrInterfaceAcquisitionFailure = errors.New("capture interface acquisition failure")
	ErrEngineNotReady              = errors.New("engine did not become ready")
	ErrTunnelBusy                  = errors.New("tunnel is already running")
)

// StageError represents an error that occurred at a named stage of parsing
// or of the tunnel lifecycle.
type StageError struct {
	Stage   string // The stage where the error occurred
	Message string // Human-readable error message
	Err     error  // Original error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func NewStageError(stage, message string, err error) error {
	return &StageError{
		Stage:   stage,
		Message: message,
		Err:     err,
	}
}
