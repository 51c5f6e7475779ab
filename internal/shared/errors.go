package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")
	ErrNotSupported   = fmt.Errorf("not supported")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Engine errors
	ErrEngineUnavailable = fmt.Errorf("engine unavailable")
	ErrRequestFailed     = fmt.Errorf("engine request failed")
	ErrDisconnected      = fmt.Errorf("engine connection closed")
	ErrTimeout           = fmt.Errorf("operation timed out")

	// Task errors
	ErrTaskNotFound    = fmt.Errorf("task not found")
	ErrTaskRunning     = fmt.Errorf("task is downloading")
	ErrNotConvertible  = fmt.Errorf("task cannot be converted")
	ErrEmptySelection  = fmt.Errorf("no tasks selected")
	ErrManifestInvalid = fmt.Errorf("invalid manifest")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
