// internal/services/errors.go
package services

import (
	"errors"
	"strings"
)

// Submission prerequisite messages. These strings are surfaced to owners
// verbatim and asserted in client code; keep them stable.
const (
	MsgIdentityNotVerified = "Owner identity must be verified first"
	MsgNoVerifiedContact   = "At least one contact method (email or phone) must be verified"
	MsgNoPhotos            = "At least one photo is required"
	MsgNoPrimaryPhoto      = "At least one primary photo is required"
	MsgNoDocuments         = "At least one property document is required"
)

// ErrInvalidState is returned when an operation is attempted on an entity
// whose current state does not allow it.
var ErrInvalidState = errors.New("invalid state for this operation")

// ValidationErrors carries every failed precondition of an operation, not
// just the first one, so an owner can fix everything in a single pass.
type ValidationErrors struct {
	Messages []string
}

func (e *ValidationErrors) Error() string {
	return strings.Join(e.Messages, "; ")
}

// NewValidationError wraps a single message.
func NewValidationError(message string) *ValidationErrors {
	return &ValidationErrors{Messages: []string{message}}
}

// AsValidationErrors unwraps err into a *ValidationErrors if possible.
func AsValidationErrors(err error) (*ValidationErrors, bool) {
	var ve *ValidationErrors
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
