// Package tts_test tests the synthesis engines and the invoker.
package tts_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-handler/internal/config"
	"github.com/book-expert/tts-handler/internal/core"
	"github.com/book-expert/tts-handler/internal/tts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scripts run by /bin/sh. Positional parameters start at $1 after the "sh" $0 placeholder.
const (
	scriptWriteOutput = `out="$1"; shift; printf 'RIFF %s' "$*" > "$out"`
	scriptStdout      = `printf 'audio:%s' "$1"`
	scriptFail        = `echo 'model exploded' >&2; exit 3`
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "test.log")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = log.Close()
	})

	return log
}

func shellEngine(t *testing.T, script string, args []string, voiceArgs, referenceArgs []string) *tts.CLIEngine {
	t.Helper()

	engine, err := tts.NewCLIEngine(config.EngineConfig{
		Kind:          config.EngineCLI,
		Binary:        "sh",
		Args:          append([]string{"-c", script, "sh"}, args...),
		VoiceArgs:     voiceArgs,
		ReferenceArgs: referenceArgs,
	}, newTestLogger(t))
	require.NoError(t, err)

	return engine
}

func TestNewCLIEngine_Errors(t *testing.T) {
	t.Parallel()

	_, err := tts.NewCLIEngine(config.EngineConfig{Kind: config.EngineCLI}, newTestLogger(t))
	require.ErrorIs(t, err, config.ErrEngineBinaryEmpty)

	_, err = tts.NewCLIEngine(config.EngineConfig{
		Kind:   config.EngineCLI,
		Binary: "definitely-not-a-tts-binary-on-this-host",
	}, newTestLogger(t))
	require.ErrorIs(t, err, tts.ErrBinaryNotFound)
}

func TestCLIEngine_Synthesize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		voiceArgs     []string
		referenceArgs []string
		job           core.EngineJob
		want          string
	}{
		{
			name:          "voice args appended when a voice is set",
			voiceArgs:     []string{"--voice", "{voice}"},
			referenceArgs: []string{"--speaker", "{reference}"},
			job:           core.EngineJob{Text: "Hello world", Voice: "en-US-AriaNeural", Language: "en", Format: "wav"},
			want:          "RIFF --text Hello world --lang en --voice en-US-AriaNeural",
		},
		{
			name:          "reference args replace voice args",
			voiceArgs:     []string{"--voice", "{voice}"},
			referenceArgs: []string{"--speaker", "{reference}"},
			job: core.EngineJob{
				Text:          "Bonjour",
				Voice:         "",
				Language:      "fr",
				Format:        "wav",
				ReferencePath: "/staging/reference.wav",
			},
			want: "RIFF --text Bonjour --lang fr --speaker /staging/reference.wav",
		},
		{
			name:          "no optional args without voice",
			voiceArgs:     []string{"--voice", "{voice}"},
			referenceArgs: nil,
			job:           core.EngineJob{Text: "Hi", Language: "de", Format: "wav"},
			want:          "RIFF --text Hi --lang de",
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			engine := shellEngine(t, scriptWriteOutput,
				[]string{"{output}", "--text", "{text}", "--lang", "{language}"},
				testCase.voiceArgs, testCase.referenceArgs)

			job := testCase.job
			job.OutputPath = filepath.Join(t.TempDir(), "output.wav")

			require.NoError(t, engine.Synthesize(context.Background(), job))

			data, err := os.ReadFile(job.OutputPath)
			require.NoError(t, err)
			assert.Equal(t, testCase.want, string(data))
		})
	}
}

func TestCLIEngine_Synthesize_Stdout(t *testing.T) {
	t.Parallel()

	engine := shellEngine(t, scriptStdout, []string{"{text}"}, nil, nil)
	outputPath := filepath.Join(t.TempDir(), "output.wav")

	err := engine.Synthesize(context.Background(), core.EngineJob{Text: "hello", OutputPath: outputPath})
	require.NoError(t, err)

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.Equal(t, "audio:hello", string(data))
}

func TestCLIEngine_Synthesize_FailureCarriesDiagnostic(t *testing.T) {
	t.Parallel()

	engine := shellEngine(t, scriptFail, []string{"{output}"}, nil, nil)

	err := engine.Synthesize(context.Background(), core.EngineJob{
		Text:       "hello",
		OutputPath: filepath.Join(t.TempDir(), "output.wav"),
	})

	var synthErr *core.SynthesisError
	require.ErrorAs(t, err, &synthErr)
	assert.Equal(t, "sh", synthErr.Engine)
	assert.Equal(t, "model exploded", synthErr.Diagnostic)
}

func TestCLIEngine_Synthesize_CloningWithoutReferenceArgs(t *testing.T) {
	t.Parallel()

	engine := shellEngine(t, scriptWriteOutput, []string{"{output}"}, []string{"--voice", "{voice}"}, nil)

	err := engine.Synthesize(context.Background(), core.EngineJob{
		Text:          "hello",
		ReferencePath: "/staging/reference.wav",
		OutputPath:    filepath.Join(t.TempDir(), "output.wav"),
	})
	require.ErrorIs(t, err, tts.ErrCloningUnsupported)

	var synthErr *core.SynthesisError
	require.ErrorAs(t, err, &synthErr)
}
