package tts_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/book-expert/tts-handler/internal/config"
	"github.com/book-expert/tts-handler/internal/core"
	"github.com/book-expert/tts-handler/internal/tts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeService mimics the standalone TTS HTTP service.
type fakeService struct {
	t        *testing.T
	healthy  bool
	status   int
	body     string
	received chan tts.TTSRequest
}

func (f *fakeService) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	switch request.URL.Path {
	case "/health":
		if !f.healthy {
			writer.WriteHeader(http.StatusServiceUnavailable)

			return
		}

		writer.WriteHeader(http.StatusOK)
	case "/v1/generate/speech":
		var req tts.TTSRequest

		assert.NoError(f.t, json.NewDecoder(request.Body).Decode(&req))

		if f.received != nil {
			f.received <- req
		}

		if f.status != http.StatusOK {
			writer.WriteHeader(f.status)
			_, _ = writer.Write([]byte(f.body))

			return
		}

		writer.Header().Set("Content-Type", "audio/wav")
		_, _ = writer.Write([]byte(f.body))
	default:
		writer.WriteHeader(http.StatusNotFound)
	}
}

func newHTTPEngine(t *testing.T, service *fakeService) *tts.HTTPEngine {
	t.Helper()

	server := httptest.NewServer(service)
	t.Cleanup(server.Close)

	engine, err := tts.NewHTTPEngine(context.Background(), config.EngineConfig{
		Kind:        config.EngineHTTP,
		ServiceURL:  server.URL,
		Temperature: 0.7,
	}, 5*time.Second, newTestLogger(t))
	require.NoError(t, err)

	return engine
}

func TestNewHTTPEngine_HealthCheckFails(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(&fakeService{t: t, healthy: false})
	defer server.Close()

	_, err := tts.NewHTTPEngine(context.Background(), config.EngineConfig{
		Kind:       config.EngineHTTP,
		ServiceURL: server.URL,
	}, time.Second, newTestLogger(t))
	require.Error(t, err)

	_, err = tts.NewHTTPEngine(context.Background(), config.EngineConfig{Kind: config.EngineHTTP}, time.Second, newTestLogger(t))
	require.ErrorIs(t, err, config.ErrEngineURLEmpty)
}

func TestHTTPEngine_Synthesize_Voice(t *testing.T) {
	t.Parallel()

	service := &fakeService{t: t, healthy: true, status: http.StatusOK, body: "RIFF....WAVE", received: make(chan tts.TTSRequest, 1)}
	engine := newHTTPEngine(t, service)
	outputPath := filepath.Join(t.TempDir(), "output.wav")

	err := engine.Synthesize(context.Background(), core.EngineJob{
		Text:       "Hello world",
		Voice:      "en-US-AriaNeural",
		Language:   "en",
		Format:     "wav",
		OutputPath: outputPath,
	})
	require.NoError(t, err)

	req := <-service.received
	assert.Equal(t, "Hello world", req.Text)
	assert.Equal(t, "en-US-AriaNeural", req.Voice)
	assert.Empty(t, req.SpeakerWAVBase64)
	assert.InEpsilon(t, 0.7, req.Temperature, 1e-9)

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.Equal(t, "RIFF....WAVE", string(data))
}

func TestHTTPEngine_Synthesize_Reference(t *testing.T) {
	t.Parallel()

	service := &fakeService{t: t, healthy: true, status: http.StatusOK, body: "RIFF", received: make(chan tts.TTSRequest, 1)}
	engine := newHTTPEngine(t, service)

	dir := t.TempDir()
	referencePath := filepath.Join(dir, "reference.wav")
	require.NoError(t, os.WriteFile(referencePath, []byte("RIFF-sample"), 0o600))

	err := engine.Synthesize(context.Background(), core.EngineJob{
		Text:          "Bonjour",
		Voice:         "ignored",
		Language:      "fr",
		Format:        "wav",
		ReferencePath: referencePath,
		OutputPath:    filepath.Join(dir, "output.wav"),
	})
	require.NoError(t, err)

	req := <-service.received
	assert.Empty(t, req.Voice)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("RIFF-sample")), req.SpeakerWAVBase64)
}

func TestHTTPEngine_Synthesize_ServiceError(t *testing.T) {
	t.Parallel()

	service := &fakeService{
		t:       t,
		healthy: true,
		status:  http.StatusInternalServerError,
		body:    `{"detail":"model not loaded","error_code":"MODEL_NOT_LOADED"}`,
	}
	engine := newHTTPEngine(t, service)

	err := engine.Synthesize(context.Background(), core.EngineJob{
		Text:       "Hello",
		OutputPath: filepath.Join(t.TempDir(), "output.wav"),
	})

	var synthErr *core.SynthesisError
	require.ErrorAs(t, err, &synthErr)
	assert.Equal(t, "http", synthErr.Engine)
	assert.Equal(t, "model not loaded", synthErr.Diagnostic)
}
