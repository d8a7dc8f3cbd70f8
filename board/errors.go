// ABOUTME: Sentinel errors and field validation errors for board operations
// ABOUTME: Callers match them with errors.Is and errors.As
package board

import (
	"errors"
	"fmt"
)

var (
	ErrPipelineNotFound = errors.New("pipeline not found")
	ErrDealNotFound     = errors.New("deal not found")
	ErrStageNotFound    = errors.New("stage not found")
	ErrNoActivePipeline = errors.New("no active pipeline")
	ErrMoveInFlight     = errors.New("deal is already being moved")
	ErrNoContact        = errors.New("deal has no contact")
	ErrNoContactEmail   = errors.New("contact has no email address")
	ErrNoEmailAccount   = errors.New("no email account available")
)

// ValidationError is a local input check that failed before any remote call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
