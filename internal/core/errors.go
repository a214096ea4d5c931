package core

import (
	"fmt"
	"time"
)

// Reasons carried by the typed errors below.
const (
	ReasonMissingText       = "missing text"
	ReasonTextTooLong       = "text too long"
	ReasonUnsupportedFormat = "unsupported format"
	ReasonInvalidReference  = "invalid reference audio"
	ReasonReferenceTooLarge = "reference audio too large"
	ReasonMissingSpeakerRef = "missing speaker reference"
	ReasonNoDefaultVoice    = "no default voice"
	ReasonVoiceStoreDown    = "voice store unavailable"
	ReasonInvalidField      = "invalid field"
)

// ValidationError reports bad or missing input. It is always caller-caused.
type ValidationError struct {
	Reason string
	Field  string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s (%s)", e.Reason, e.Field)
	}

	return "validation error: " + e.Reason
}

// NewValidationError creates a ValidationError for the given reason.
func NewValidationError(reason string) *ValidationError {
	return &ValidationError{Reason: reason, Field: ""}
}

// ResolutionError reports that no viable voice could be determined.
type ResolutionError struct {
	Reason  string
	Persona string
	Err     error
}

func (e *ResolutionError) Error() string {
	msg := "resolution error: " + e.Reason
	if e.Persona != "" {
		msg += fmt.Sprintf(" (persona %q)", e.Persona)
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// SynthesisError reports that the engine ran but failed. It carries the
// engine's diagnostic output.
type SynthesisError struct {
	Engine     string
	Diagnostic string
	Err        error
}

func (e *SynthesisError) Error() string {
	msg := "synthesis error"
	if e.Engine != "" {
		msg += " (" + e.Engine + ")"
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	if e.Diagnostic != "" {
		msg += " - output: " + e.Diagnostic
	}

	return msg
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// TimeoutError reports that the engine exceeded its time bound.
type TimeoutError struct {
	Engine string
	Limit  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout error: engine %s exceeded %s", e.Engine, e.Limit)
}
