package tts

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-handler/internal/config"
	"github.com/book-expert/tts-handler/internal/core"
)

const (
	// HealthCheckTimeout defines the timeout for health check operations.
	HealthCheckTimeout = 10 * time.Second

	httpEngineName = "http"
)

// Log formats.
const (
	errFmtHealthCheckFailed = "TTS service health check failed: %w"
	logFmtServiceHealthy    = "TTS service at %s is healthy"
	logFmtGeneratedAudio    = "Generated audio: %s (%d bytes)"
)

// HTTPEngine implements core.Engine against a standalone TTS HTTP service.
type HTTPEngine struct {
	client      *HTTPClient
	temperature float64
	logger      *logger.Logger
}

// NewHTTPEngine creates an HTTP-based TTS engine and verifies the service is
// reachable before it is handed out.
func NewHTTPEngine(
	ctx context.Context,
	cfg config.EngineConfig,
	timeout time.Duration,
	log *logger.Logger,
) (*HTTPEngine, error) {
	if cfg.ServiceURL == "" {
		return nil, config.ErrEngineURLEmpty
	}

	engine := NewHTTPEngineWithClient(NewHTTPClient(cfg.ServiceURL, timeout), cfg.Temperature, log)

	healthCtx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()

	err := engine.client.HealthCheck(healthCtx)
	if err != nil {
		return nil, fmt.Errorf(errFmtHealthCheckFailed, err)
	}

	log.Info(logFmtServiceHealthy, cfg.ServiceURL)

	return engine, nil
}

// NewHTTPEngineWithClient creates an HTTP-based TTS engine with a custom client.
func NewHTTPEngineWithClient(client *HTTPClient, temperature float64, log *logger.Logger) *HTTPEngine {
	return &HTTPEngine{
		client:      client,
		temperature: temperature,
		logger:      log,
	}
}

// Name identifies the engine in errors and metrics.
func (e *HTTPEngine) Name() string {
	return httpEngineName
}

// Synthesize posts one job to the service and writes the audio to job.OutputPath.
func (e *HTTPEngine) Synthesize(ctx context.Context, job core.EngineJob) error {
	req := TTSRequest{
		Text:             job.Text,
		Voice:            job.Voice,
		SpeakerWAVBase64: "",
		Language:         job.Language,
		Format:           job.Format,
		Temperature:      e.temperature,
	}

	if job.ReferencePath != "" {
		reference, err := os.ReadFile(job.ReferencePath)
		if err != nil {
			return fmt.Errorf("failed to read staged reference audio: %w", err)
		}

		req.Voice = ""
		req.SpeakerWAVBase64 = base64.StdEncoding.EncodeToString(reference)
	}

	audioData, err := e.client.GenerateSpeech(ctx, req)
	if err != nil {
		var serviceErr *ServiceError
		if errors.As(err, &serviceErr) {
			return &core.SynthesisError{Engine: e.Name(), Diagnostic: serviceErr.Detail, Err: err}
		}

		if ctx.Err() != nil {
			return fmt.Errorf("failed to generate speech: %w", ctx.Err())
		}

		return &core.SynthesisError{Engine: e.Name(), Diagnostic: "", Err: err}
	}

	writeErr := os.WriteFile(job.OutputPath, audioData, filePermissions)
	if writeErr != nil {
		return fmt.Errorf("failed to write audio file: %w", writeErr)
	}

	e.logger.Info(logFmtGeneratedAudio, job.OutputPath, len(audioData))

	return nil
}
