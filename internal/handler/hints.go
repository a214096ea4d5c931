package handler

import (
	"errors"
	"fmt"

	"github.com/book-expert/tts-handler/internal/core"
)

// HintOptions feed the limits quoted in hints.
type HintOptions struct {
	MaxTextLength     int
	MaxReferenceBytes int
}

const (
	hintMissingText       = "provide a non-empty \"text\" field"
	hintTextTooLong       = "split the text into requests of at most %d characters"
	hintUnsupportedFormat = "format must be \"wav\" or \"mp3\""
	hintInvalidReference  = "reference_audio_base64 must be standard base64 audio"
	hintReferenceTooLarge = "reference audio must be at most %d bytes"
	hintInvalidField      = "field %q must be a string"
	hintMissingSpeakerRef = "upload the persona's reference audio to the voice store, named {persona_slug}.wav"
	hintNoDefaultVoice    = "set default_voice in the persona table"
	hintVoiceStoreDown    = "the voice store could not be reached; retry later"
	hintSynthesis         = "the synthesis engine failed"
	hintTimeout           = "the engine exceeded %s; shorten the text or raise handler.timeout_seconds"
)

// hintFor returns a remediation hint for err, or "" when none applies.
func hintFor(err error, opts HintOptions) string {
	var (
		validationErr *core.ValidationError
		resolutionErr *core.ResolutionError
		synthErr      *core.SynthesisError
		timeoutErr    *core.TimeoutError
	)

	switch {
	case errors.As(err, &validationErr):
		return validationHint(validationErr, opts)
	case errors.As(err, &resolutionErr):
		return resolutionHint(resolutionErr)
	case errors.As(err, &timeoutErr):
		return fmt.Sprintf(hintTimeout, timeoutErr.Limit)
	case errors.As(err, &synthErr):
		if synthErr.Diagnostic != "" {
			return hintSynthesis + ": " + synthErr.Diagnostic
		}

		return hintSynthesis
	default:
		return ""
	}
}

func validationHint(err *core.ValidationError, opts HintOptions) string {
	switch err.Reason {
	case core.ReasonMissingText:
		return hintMissingText
	case core.ReasonTextTooLong:
		return fmt.Sprintf(hintTextTooLong, opts.MaxTextLength)
	case core.ReasonUnsupportedFormat:
		return hintUnsupportedFormat
	case core.ReasonInvalidReference:
		return hintInvalidReference
	case core.ReasonReferenceTooLarge:
		return fmt.Sprintf(hintReferenceTooLarge, opts.MaxReferenceBytes)
	default:
		if err.Field != "" {
			return fmt.Sprintf(hintInvalidField, err.Field)
		}

		return ""
	}
}

func resolutionHint(err *core.ResolutionError) string {
	switch err.Reason {
	case core.ReasonMissingSpeakerRef:
		return hintMissingSpeakerRef
	case core.ReasonNoDefaultVoice:
		return hintNoDefaultVoice
	case core.ReasonVoiceStoreDown:
		return hintVoiceStoreDown
	default:
		return ""
	}
}
