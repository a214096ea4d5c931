package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// API endpoints and paths.
const (
	apiGenerateSpeech = "/v1/generate/speech"
	apiHealth         = "/health"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
	contentTypeWAV    = "audio/wav"
	contentTypeMPEG   = "audio/mpeg"
)

// Default values.
const (
	defaultTemperature = 0.75
	defaultLanguage    = "en"
	defaultFormat      = "wav"
)

// Error messages.
const (
	errTextCannotBeEmpty     = "text cannot be empty"
	errUnexpectedContentType = "unexpected content type"
	errReceivedEmptyAudio    = "received empty audio data"
	errFmtContentType        = "%w: expected audio, got %s"
)

var (
	// ErrTextCannotBeEmpty is returned when a request has no text.
	ErrTextCannotBeEmpty = errors.New(errTextCannotBeEmpty)
	// ErrReceivedEmptyAudio is returned when the service answers with no audio.
	ErrReceivedEmptyAudio = errors.New(errReceivedEmptyAudio)
	// ErrUnexpectedContentType is returned when the service answers with a non-audio body.
	ErrUnexpectedContentType = errors.New(errUnexpectedContentType)
)

// HTTPClient represents a client for the standalone TTS HTTP service.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
}

// TTSRequest defines the JSON payload structure for TTS generation requests.
type TTSRequest struct {
	// Text contains the input text to convert to speech.
	Text string `json:"text"`

	// Voice selects a built-in voice. Ignored when SpeakerWAVBase64 is set.
	Voice string `json:"voice,omitempty"`

	// SpeakerWAVBase64 carries reference audio for voice cloning.
	SpeakerWAVBase64 string `json:"speaker_wav_base64,omitempty"`

	// Language specifies the target language code (e.g., "en", "fr").
	Language string `json:"language"`

	// Format is the requested container, "wav" or "mp3".
	Format string `json:"format"`

	// Temperature controls randomness in speech generation.
	Temperature float64 `json:"temperature"`
}

// TTSErrorResponse represents a structured error response from the TTS service.
type TTSErrorResponse struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
}

// ServiceError is a non-OK answer from the TTS service.
type ServiceError struct {
	Status    string
	Detail    string
	ErrorCode string
}

func (e *ServiceError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("TTS service error (%s): %s (code: %s)", e.Status, e.Detail, e.ErrorCode)
	}

	return fmt.Sprintf("TTS service returned non-OK status: %s, body: %s", e.Status, e.Detail)
}

// NewHTTPClient creates and configures an HTTP client for the TTS service.
// The baseURL should include the protocol and port (e.g., "http://localhost:8000").
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GenerateSpeech sends a TTS generation request and returns the raw audio data.
func (c *HTTPClient) GenerateSpeech(ctx context.Context, req TTSRequest) ([]byte, error) {
	if req.Text == "" {
		return nil, ErrTextCannotBeEmpty
	}

	if req.Temperature == 0 {
		req.Temperature = defaultTemperature
	}

	if req.Language == "" {
		req.Language = defaultLanguage
	}

	if req.Format == "" {
		req.Format = defaultFormat
	}

	requestBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+apiGenerateSpeech,
		bytes.NewReader(requestBody),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, contentTypeWAV+", "+contentTypeMPEG)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to TTS service at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	contentType := resp.Header.Get(headerContentType)
	if !strings.HasPrefix(contentType, "audio/") {
		return nil, fmt.Errorf(errFmtContentType, ErrUnexpectedContentType, contentType)
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}

	if len(audioData) == 0 {
		return nil, ErrReceivedEmptyAudio
	}

	return audioData, nil
}

// HealthCheck verifies that the TTS service is running and operational.
func (c *HTTPClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apiHealth, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed for service at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %s", resp.Status)
	}

	return nil
}

// parseErrorResponse decodes a structured JSON error from the service,
// falling back to the raw body so diagnostics are preserved.
func (c *HTTPClient) parseErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var errorResp TTSErrorResponse

	err := parseJSON(body, &errorResp)
	if err == nil && errorResp.Detail != "" {
		return &ServiceError{Status: resp.Status, Detail: errorResp.Detail, ErrorCode: errorResp.ErrorCode}
	}

	return &ServiceError{Status: resp.Status, Detail: strings.TrimSpace(string(body)), ErrorCode: ""}
}
