package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test constants.
const (
	testHelloWorld                = "Hello, world!"
	testWAVHeaderMinimal          = "RIFF....WAVE"
	testErrMsgInvalidSpeakerAudio = "Invalid speaker reference audio"
	testErrCodeInvalidSpeaker     = "INVALID_SPEAKER_AUDIO"
)

func TestHTTPClient_GenerateSpeech_Success(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, http.MethodPost, request.Method)
		assert.Equal(t, apiGenerateSpeech, request.URL.Path)
		assert.Equal(t, contentTypeJSON, request.Header.Get(headerContentType))
		assert.Contains(t, request.Header.Get(headerAccept), contentTypeWAV)

		var req TTSRequest

		assert.NoError(t, json.NewDecoder(request.Body).Decode(&req))
		assert.Equal(t, testHelloWorld, req.Text)
		assert.Equal(t, "en-US-AriaNeural", req.Voice)
		assert.Empty(t, req.SpeakerWAVBase64)
		assert.InEpsilon(t, 0.8, req.Temperature, 1e-9)
		assert.Equal(t, "en", req.Language)
		assert.Equal(t, "wav", req.Format)

		writer.Header().Set(headerContentType, contentTypeWAV)
		_, _ = writer.Write([]byte(testWAVHeaderMinimal))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, 5*time.Second)

	audioData, err := client.GenerateSpeech(context.Background(), TTSRequest{
		Text:             testHelloWorld,
		Voice:            "en-US-AriaNeural",
		SpeakerWAVBase64: "",
		Language:         "",
		Format:           "",
		Temperature:      0.8,
	})
	require.NoError(t, err)
	assert.Equal(t, []byte(testWAVHeaderMinimal), audioData)
}

func TestHTTPClient_GenerateSpeech_SendsReference(t *testing.T) {
	t.Parallel()

	reference := []byte("RIFF-reference")

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		var req TTSRequest

		assert.NoError(t, json.NewDecoder(request.Body).Decode(&req))

		decoded, err := base64.StdEncoding.DecodeString(req.SpeakerWAVBase64)
		assert.NoError(t, err)
		assert.Equal(t, reference, decoded)
		assert.Empty(t, req.Voice)

		writer.Header().Set(headerContentType, contentTypeMPEG)
		_, _ = writer.Write([]byte("ID3"))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, 5*time.Second)

	audioData, err := client.GenerateSpeech(context.Background(), TTSRequest{
		Text:             testHelloWorld,
		Voice:            "",
		SpeakerWAVBase64: base64.StdEncoding.EncodeToString(reference),
		Language:         "fr",
		Format:           "mp3",
		Temperature:      0,
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("ID3"), audioData)
}

func TestHTTPClient_GenerateSpeech_EmptyText(t *testing.T) {
	t.Parallel()

	client := NewHTTPClient("http://127.0.0.1:1", time.Second)

	_, err := client.GenerateSpeech(context.Background(), TTSRequest{})
	require.ErrorIs(t, err, ErrTextCannotBeEmpty)
}

func TestHTTPClient_GenerateSpeech_ErrorResponses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		status     int
		body       string
		wantDetail string
		wantCode   string
	}{
		{
			name:       "structured error",
			status:     http.StatusBadRequest,
			body:       `{"detail":"` + testErrMsgInvalidSpeakerAudio + `","error_code":"` + testErrCodeInvalidSpeaker + `"}`,
			wantDetail: testErrMsgInvalidSpeakerAudio,
			wantCode:   testErrCodeInvalidSpeaker,
		},
		{
			name:       "raw body",
			status:     http.StatusInternalServerError,
			body:       "CUDA out of memory\n",
			wantDetail: "CUDA out of memory",
			wantCode:   "",
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
				writer.WriteHeader(testCase.status)
				_, _ = writer.Write([]byte(testCase.body))
			}))
			defer server.Close()

			client := NewHTTPClient(server.URL, 5*time.Second)

			_, err := client.GenerateSpeech(context.Background(), TTSRequest{Text: testHelloWorld})

			var serviceErr *ServiceError
			require.ErrorAs(t, err, &serviceErr)
			assert.Equal(t, testCase.wantDetail, serviceErr.Detail)
			assert.Equal(t, testCase.wantCode, serviceErr.ErrorCode)
		})
	}
}

func TestHTTPClient_GenerateSpeech_WrongContentType(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.Header().Set(headerContentType, contentTypeJSON)
		_, _ = writer.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, 5*time.Second)

	_, err := client.GenerateSpeech(context.Background(), TTSRequest{Text: testHelloWorld})
	require.ErrorIs(t, err, ErrUnexpectedContentType)
	assert.Contains(t, err.Error(), "expected audio, got "+contentTypeJSON)
}

func TestHTTPClient_GenerateSpeech_EmptyAudio(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.Header().Set(headerContentType, contentTypeWAV)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, 5*time.Second)

	_, err := client.GenerateSpeech(context.Background(), TTSRequest{Text: testHelloWorld})
	require.ErrorIs(t, err, ErrReceivedEmptyAudio)
}

func TestHTTPClient_HealthCheck(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, http.MethodGet, request.Method)

		if request.URL.Path != apiHealth {
			writer.WriteHeader(http.StatusNotFound)

			return
		}

		writer.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	require.NoError(t, NewHTTPClient(server.URL+"/", 5*time.Second).HealthCheck(context.Background()))
}

func TestHTTPClient_HealthCheck_Unreachable(t *testing.T) {
	t.Parallel()

	client := NewHTTPClient("http://127.0.0.1:1", 500*time.Millisecond)
	require.Error(t, client.HealthCheck(context.Background()))
}

func TestHTTPClient_Timeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		<-release
		writer.Header().Set(headerContentType, contentTypeWAV)
		_, _ = writer.Write([]byte(testWAVHeaderMinimal))
	}))
	defer server.Close()
	defer close(release)

	client := NewHTTPClient(server.URL, 100*time.Millisecond)

	_, err := client.GenerateSpeech(context.Background(), TTSRequest{Text: testHelloWorld})
	require.Error(t, err)
}
