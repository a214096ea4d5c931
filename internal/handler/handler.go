// Package handler runs one job through validation, voice resolution and
// synthesis, and converts every outcome into a Response.
package handler

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-handler/internal/core"
	"github.com/book-expert/tts-handler/internal/metrics"
	"github.com/book-expert/tts-handler/internal/request"
)

// Messages used when no typed error applies.
const (
	errInternal      = "internal error"
	hintInternal     = "the handler failed unexpectedly; check the service logs"
	errCanceled      = "request canceled"
	durationDecimals = 100
)

// Resolver selects the voice for a validated request.
type Resolver interface {
	Resolve(ctx context.Context, req core.Request) (core.ResolvedParams, error)
}

// Synthesizer produces audio for resolved parameters.
type Synthesizer interface {
	Synthesize(ctx context.Context, params core.ResolvedParams, text string) (*core.SynthesisResult, error)
	Timeout() time.Duration
}

// Response is the mapping returned to the hosting runtime. Exactly one of
// AudioBase64 and Error is set.
type Response struct {
	AudioBase64     string   `json:"audio_base64,omitempty"`
	Format          string   `json:"format,omitempty"`
	Language        string   `json:"language,omitempty"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
	Voice           string   `json:"voice,omitempty"`
	Persona         string   `json:"persona,omitempty"`
	Error           string   `json:"error,omitempty"`
	Hint            string   `json:"hint,omitempty"`
}

// Failed reports whether the response carries an error.
func (r Response) Failed() bool {
	return r.Error != ""
}

// Handler is the request boundary. It never returns an error and never panics.
type Handler struct {
	validator   *request.Validator
	resolver    Resolver
	synthesizer Synthesizer
	metrics     *metrics.Metrics
	hints       HintOptions
	log         *logger.Logger
}

// New creates a Handler.
func New(
	validator *request.Validator,
	resolver Resolver,
	synthesizer Synthesizer,
	m *metrics.Metrics,
	hints HintOptions,
	log *logger.Logger,
) *Handler {
	return &Handler{
		validator:   validator,
		resolver:    resolver,
		synthesizer: synthesizer,
		metrics:     m,
		hints:       hints,
		log:         log,
	}
}

// Handle processes one raw job input.
func (h *Handler) Handle(ctx context.Context, raw map[string]any) (resp Response) {
	start := time.Now()
	jobOutcome := metrics.OutcomeInternal

	defer func() {
		if recovered := recover(); recovered != nil {
			h.log.Error("Recovered from panic while handling job: %v", recovered)

			resp = Response{Error: errInternal, Hint: hintInternal}
			jobOutcome = metrics.OutcomeInternal
		}

		h.metrics.ObserveJob(jobOutcome, time.Since(start))
	}()

	resp, jobOutcome = h.handle(ctx, raw)

	return resp
}

func (h *Handler) handle(ctx context.Context, raw map[string]any) (Response, string) {
	req, err := h.validator.Parse(raw)
	if err != nil {
		return h.fail(err)
	}

	if req.HasReference() {
		h.metrics.ObserveReference(len(req.ReferenceAudio))
	}

	params, err := h.resolver.Resolve(ctx, req)
	if err != nil {
		return h.fail(err)
	}

	h.metrics.ObserveResolution(string(params.Source))

	synthStart := time.Now()

	result, err := h.synthesizer.Synthesize(ctx, params, req.Text)
	if err != nil {
		return h.fail(err)
	}

	h.metrics.ObserveSynthesis(string(params.Source), time.Since(synthStart), result.DurationSeconds)

	h.log.Info("Job succeeded: voice=%q persona=%q source=%s language=%s format=%s",
		params.Voice, params.Persona, params.Source, params.Language, result.Format)

	return success(params, result), metrics.OutcomeSuccess
}

func success(params core.ResolvedParams, result *core.SynthesisResult) Response {
	resp := Response{
		AudioBase64: base64.StdEncoding.EncodeToString(result.Audio),
		Format:      result.Format,
		Language:    params.Language,
		Voice:       params.Voice,
		Persona:     params.Persona,
	}

	if result.DurationSeconds > 0 {
		rounded := math.Round(result.DurationSeconds*durationDecimals) / durationDecimals
		resp.DurationSeconds = &rounded
	}

	return resp
}

func (h *Handler) fail(err error) (Response, string) {
	resp := Response{Error: err.Error(), Hint: hintFor(err, h.hints)}
	jobOutcome := outcomeOf(err)

	switch {
	case errors.Is(err, context.Canceled):
		resp.Error = errCanceled
		h.log.Warn("Job canceled: %v", err)
	case jobOutcome == metrics.OutcomeInternal:
		resp.Error = fmt.Sprintf("%s: %v", errInternal, err)
		h.log.Error("Job failed with unexpected error: %v", err)
	default:
		h.log.Warn("Job failed: %v", err)
	}

	return resp, jobOutcome
}

func outcomeOf(err error) string {
	var (
		validationErr *core.ValidationError
		resolutionErr *core.ResolutionError
		synthErr      *core.SynthesisError
		timeoutErr    *core.TimeoutError
	)

	switch {
	case errors.As(err, &validationErr):
		return metrics.OutcomeValidation
	case errors.As(err, &resolutionErr):
		return metrics.OutcomeResolution
	case errors.As(err, &timeoutErr):
		return metrics.OutcomeTimeout
	case errors.As(err, &synthErr):
		return metrics.OutcomeSynthesis
	default:
		return metrics.OutcomeInternal
	}
}

// Timeout is the synthesis ceiling; callers add their own margin on top.
func (h *Handler) Timeout() time.Duration {
	return h.synthesizer.Timeout()
}
