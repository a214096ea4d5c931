// Package request turns a raw job input mapping into a validated core.Request.
package request

import (
	"encoding/base64"
	"strings"

	"github.com/book-expert/tts-handler/internal/core"
	"github.com/book-expert/tts-handler/internal/persona"
	"github.com/book-expert/tts-handler/internal/tts/audio"
	"github.com/book-expert/tts-handler/internal/tts/text"
)

// Input field names. The first name of each alias list is canonical.
var (
	fieldText          = []string{"text"}
	fieldLanguage      = []string{"language"}
	fieldPersona       = []string{"persona_slug", "faculty_slug", "faculty_id", "persona"}
	fieldVoice         = []string{"voice"}
	fieldVoiceCategory = []string{"voice_category"}
	fieldReference     = []string{"reference_audio_base64", "speaker_wav_base64"}
	fieldFormat        = []string{"format"}
)

const dataURIMarker = ";base64,"

// Options bound and default the accepted input.
type Options struct {
	MaxTextLength     int
	MaxReferenceBytes int
	DefaultLanguage   string
	DefaultFormat     string
}

// Validator is the input validator. It has no side effects.
type Validator struct {
	opts       Options
	normalizer *text.Normalizer
}

// NewValidator creates a Validator with the given options.
func NewValidator(opts Options) *Validator {
	return &Validator{
		opts:       opts,
		normalizer: text.NewNormalizer(),
	}
}

// Parse validates raw and returns the request it describes.
func (v *Validator) Parse(raw map[string]any) (core.Request, error) {
	var req core.Request

	rawText, err := stringField(raw, fieldText)
	if err != nil {
		return req, err
	}

	// The bound applies to the text as submitted, before normalization
	// shrinks it.
	if v.opts.MaxTextLength > 0 && text.Length(rawText) > v.opts.MaxTextLength {
		return req, core.NewValidationError(core.ReasonTextTooLong)
	}

	req.Text = v.normalizer.Normalize(rawText)
	if req.Text == "" {
		return req, core.NewValidationError(core.ReasonMissingText)
	}

	err = v.parseSelectors(raw, &req)
	if err != nil {
		return req, err
	}

	err = v.parseFormat(raw, &req)
	if err != nil {
		return req, err
	}

	err = v.parseReference(raw, &req)
	if err != nil {
		return req, err
	}

	return req, nil
}

func (v *Validator) parseSelectors(raw map[string]any, req *core.Request) error {
	slug, err := stringField(raw, fieldPersona)
	if err != nil {
		return err
	}

	req.PersonaSlug = persona.NormalizeKey(slug)

	voice, err := stringField(raw, fieldVoice)
	if err != nil {
		return err
	}

	req.Voice = strings.TrimSpace(voice)

	category, err := stringField(raw, fieldVoiceCategory)
	if err != nil {
		return err
	}

	req.VoiceCategory = persona.NormalizeKey(category)

	language, err := stringField(raw, fieldLanguage)
	if err != nil {
		return err
	}

	req.Language = persona.NormalizeLanguage(language)
	req.LanguageExplicit = req.Language != ""

	if !req.LanguageExplicit {
		req.Language = persona.NormalizeLanguage(v.opts.DefaultLanguage)
	}

	return nil
}

func (v *Validator) parseFormat(raw map[string]any, req *core.Request) error {
	value, err := stringField(raw, fieldFormat)
	if err != nil {
		return err
	}

	if strings.TrimSpace(value) == "" {
		value = v.opts.DefaultFormat
	}

	format, err := audio.ParseOutputFormat(value)
	if err != nil {
		return &core.ValidationError{Reason: core.ReasonUnsupportedFormat, Field: value}
	}

	req.Format = string(format)

	return nil
}

func (v *Validator) parseReference(raw map[string]any, req *core.Request) error {
	encoded, err := stringField(raw, fieldReference)
	if err != nil {
		return err
	}

	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil
	}

	if idx := strings.Index(encoded, dataURIMarker); idx >= 0 {
		encoded = encoded[idx+len(dataURIMarker):]
	}

	if v.opts.MaxReferenceBytes > 0 && base64.StdEncoding.DecodedLen(len(encoded)) > v.opts.MaxReferenceBytes+2 {
		return core.NewValidationError(core.ReasonReferenceTooLarge)
	}

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(decoded) == 0 {
		return core.NewValidationError(core.ReasonInvalidReference)
	}

	if v.opts.MaxReferenceBytes > 0 && len(decoded) > v.opts.MaxReferenceBytes {
		return core.NewValidationError(core.ReasonReferenceTooLarge)
	}

	req.ReferenceAudio = decoded

	return nil
}

// stringField returns the first present alias of names. A present value that
// is not a string is a validation error; null counts as absent.
func stringField(raw map[string]any, names []string) (string, error) {
	for _, name := range names {
		value, ok := raw[name]
		if !ok || value == nil {
			continue
		}

		str, isString := value.(string)
		if !isString {
			return "", &core.ValidationError{Reason: core.ReasonInvalidField, Field: name}
		}

		return str, nil
	}

	return "", nil
}
