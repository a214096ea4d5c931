// Package voice decides which voice and language a request is synthesized with.
//
// Resolution order, first applicable rule wins:
//
//  1. reference audio carried by the request
//  2. an explicit voice identifier
//  3. a known persona (its voice, its category, or its reference file)
//  4. an unknown persona with an available voice category
//  5. the table default
//
// A persona whose reference file is missing from the voice store fails the
// request; it is never replaced by another voice.
package voice

import (
	"context"

	"github.com/book-expert/tts-handler/internal/core"
	"github.com/book-expert/tts-handler/internal/persona"
	"github.com/book-expert/tts-handler/internal/tts/ttsutils"
)

// Resolver implements the voice resolution policy. It is safe for concurrent
// use because the table is immutable and the store is only read.
type Resolver struct {
	table      *persona.Table
	store      core.VoiceStore
	extensions []string
}

// NewResolver creates a Resolver. extensions lists the reference file
// extensions tried, in order, for personas cloned from the voice store.
func NewResolver(table *persona.Table, store core.VoiceStore, extensions []string) *Resolver {
	return &Resolver{
		table:      table,
		store:      store,
		extensions: extensions,
	}
}

// Resolve returns the synthesis parameters for req.
func (r *Resolver) Resolve(ctx context.Context, req core.Request) (core.ResolvedParams, error) {
	params := core.ResolvedParams{
		Voice:     "",
		Reference: nil,
		Language:  "",
		Format:    req.Format,
		Persona:   req.PersonaSlug,
		Source:    "",
	}

	entry, known := r.lookup(req.PersonaSlug)

	switch {
	case req.HasReference():
		params.Source = core.SourceReference
		params.Reference = &core.Reference{Inline: req.ReferenceAudio, StoreKey: ""}
		params.Language = r.referenceLanguage(req, entry, known)

		return params, nil

	case req.Voice != "":
		params.Source = core.SourceExplicit
		params.Voice = req.Voice
		params.Language = r.requestLanguage(req)

		return params, nil

	case known:
		return r.resolvePersona(ctx, params, entry)

	default:
		return r.resolveFallback(req, params)
	}
}

func (r *Resolver) lookup(slug string) (persona.Entry, bool) {
	if slug == "" {
		return persona.Entry{}, false
	}

	return r.table.Lookup(slug)
}

// referenceLanguage prefers the explicit language, then the persona's, then
// the default.
func (r *Resolver) referenceLanguage(req core.Request, entry persona.Entry, known bool) string {
	if req.LanguageExplicit {
		return req.Language
	}

	if known {
		if language := r.personaLanguage(entry); language != "" {
			return language
		}
	}

	return r.requestLanguage(req)
}

func (r *Resolver) requestLanguage(req core.Request) string {
	if req.LanguageExplicit || r.table.Defaults().Language == "" {
		return req.Language
	}

	return r.table.Defaults().Language
}

func (r *Resolver) personaLanguage(entry persona.Entry) string {
	if entry.Language != "" {
		return entry.Language
	}

	if entry.Category != "" {
		if category, ok := r.table.Category(entry.Category); ok && category.Language != "" {
			return category.Language
		}
	}

	return r.table.Defaults().Language
}

func (r *Resolver) resolvePersona(
	ctx context.Context,
	params core.ResolvedParams,
	entry persona.Entry,
) (core.ResolvedParams, error) {
	params.Persona = entry.Slug
	params.Language = r.personaLanguage(entry)

	if entry.Reference {
		key, err := r.findReference(ctx, entry.Slug)
		if err != nil {
			return core.ResolvedParams{}, err
		}

		params.Source = core.SourceReference
		params.Reference = &core.Reference{Inline: nil, StoreKey: key}
		params.Voice = entry.Voice

		return params, nil
	}

	if entry.Voice != "" {
		params.Source = core.SourcePersona
		params.Voice = entry.Voice

		return params, nil
	}

	// Table construction guarantees the category exists.
	category, _ := r.table.Category(entry.Category)
	params.Source = core.SourceCategory
	params.Voice = category.Voice

	return params, nil
}

func (r *Resolver) resolveFallback(req core.Request, params core.ResolvedParams) (core.ResolvedParams, error) {
	if req.PersonaSlug != "" {
		name := req.VoiceCategory
		if name == "" {
			name = r.table.Defaults().FallbackCategory
		}

		if category, ok := r.table.Category(name); ok && name != "" {
			params.Source = core.SourceCategory
			params.Voice = category.Voice
			params.Language = category.Language

			if req.LanguageExplicit || params.Language == "" {
				params.Language = r.requestLanguage(req)
			}

			return params, nil
		}
	}

	defaults := r.table.Defaults()
	if defaults.Voice == "" {
		return core.ResolvedParams{}, &core.ResolutionError{
			Reason:  core.ReasonNoDefaultVoice,
			Persona: req.PersonaSlug,
			Err:     nil,
		}
	}

	params.Source = core.SourceDefault
	params.Voice = defaults.Voice
	params.Language = r.requestLanguage(req)

	return params, nil
}

// findReference returns the store key of the persona's reference audio, trying
// each configured extension in order.
func (r *Resolver) findReference(ctx context.Context, slug string) (string, error) {
	if r.store == nil {
		return "", &core.ResolutionError{Reason: core.ReasonMissingSpeakerRef, Persona: slug, Err: nil}
	}

	for _, extension := range r.extensions {
		key := ttsutils.ReferenceKey(slug, extension)

		exists, err := r.store.Exists(ctx, key)
		if err != nil {
			return "", &core.ResolutionError{Reason: core.ReasonVoiceStoreDown, Persona: slug, Err: err}
		}

		if exists {
			return key, nil
		}
	}

	return "", &core.ResolutionError{Reason: core.ReasonMissingSpeakerRef, Persona: slug, Err: nil}
}
