// Package tts implements the synthesis invoker: engine strategies behind
// core.Engine, a lazily built engine handle and per-request staging.
package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-handler/internal/config"
	"github.com/book-expert/tts-handler/internal/core"
)

// Argument placeholders expanded for every job.
const (
	placeholderText      = "{text}"
	placeholderVoice     = "{voice}"
	placeholderLanguage  = "{language}"
	placeholderReference = "{reference}"
	placeholderOutput    = "{output}"
	placeholderFormat    = "{format}"
)

const (
	// DefaultWaitDelay bounds how long a killed engine may hold its output pipes.
	DefaultWaitDelay = 2 * time.Second

	maxDiagnosticBytes = 4096
	filePermissions    = 0o600
)

var (
	// ErrCloningUnsupported is returned when reference audio is staged but the
	// engine has no reference_args to pass it with.
	ErrCloningUnsupported = errors.New("engine has no reference arguments configured for voice cloning")
	// ErrBinaryNotFound is returned when the engine binary cannot be located.
	ErrBinaryNotFound = errors.New("engine binary not found")
)

// CLIEngine implements core.Engine by running an external synthesis binary.
// Arguments are passed as discrete argv entries; no shell is involved.
type CLIEngine struct {
	binary        string
	args          []string
	voiceArgs     []string
	referenceArgs []string
	waitDelay     time.Duration
	log           *logger.Logger
}

// NewCLIEngine resolves the configured binary and returns an engine for it.
func NewCLIEngine(cfg config.EngineConfig, log *logger.Logger) (*CLIEngine, error) {
	if cfg.Binary == "" {
		return nil, config.ErrEngineBinaryEmpty
	}

	binary, err := exec.LookPath(cfg.Binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBinaryNotFound, cfg.Binary, err)
	}

	return &CLIEngine{
		binary:        binary,
		args:          cfg.Args,
		voiceArgs:     cfg.VoiceArgs,
		referenceArgs: cfg.ReferenceArgs,
		waitDelay:     DefaultWaitDelay,
		log:           log,
	}, nil
}

// Name returns the binary's base name.
func (e *CLIEngine) Name() string {
	return filepath.Base(e.binary)
}

// Synthesize runs the binary for one job. When no argument references
// {output}, the engine's stdout is taken as the audio.
func (e *CLIEngine) Synthesize(ctx context.Context, job core.EngineJob) error {
	args, err := e.buildArgs(job)
	if err != nil {
		return err
	}

	// #nosec G204 -- binary comes from configuration and arguments are passed without a shell
	cmd := exec.CommandContext(ctx, e.binary, args...)
	cmd.WaitDelay = e.waitDelay

	if referencesOutput(e.args, e.voiceArgs, e.referenceArgs) {
		output, runErr := cmd.CombinedOutput()
		if runErr != nil {
			return e.failure(runErr, output)
		}

		return nil
	}

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr != nil {
		return e.failure(runErr, stderr.Bytes())
	}

	writeErr := os.WriteFile(job.OutputPath, stdout.Bytes(), filePermissions)
	if writeErr != nil {
		return fmt.Errorf("failed to write engine stdout to '%s': %w", job.OutputPath, writeErr)
	}

	return nil
}

func (e *CLIEngine) buildArgs(job core.EngineJob) ([]string, error) {
	replacer := strings.NewReplacer(
		placeholderText, job.Text,
		placeholderVoice, job.Voice,
		placeholderLanguage, job.Language,
		placeholderReference, job.ReferencePath,
		placeholderOutput, job.OutputPath,
		placeholderFormat, job.Format,
	)

	args := expand(replacer, e.args)

	switch {
	case job.ReferencePath != "":
		if len(e.referenceArgs) == 0 {
			return nil, &core.SynthesisError{Engine: e.Name(), Diagnostic: "", Err: ErrCloningUnsupported}
		}

		args = append(args, expand(replacer, e.referenceArgs)...)
	case job.Voice != "":
		args = append(args, expand(replacer, e.voiceArgs)...)
	}

	return args, nil
}

func (e *CLIEngine) failure(runErr error, output []byte) error {
	diagnostic := truncateDiagnostic(output)
	e.log.Error("%s execution failed: %v - output: %s", e.Name(), runErr, diagnostic)

	return &core.SynthesisError{Engine: e.Name(), Diagnostic: diagnostic, Err: runErr}
}

func expand(replacer *strings.Replacer, templates []string) []string {
	expanded := make([]string, 0, len(templates))
	for _, template := range templates {
		expanded = append(expanded, replacer.Replace(template))
	}

	return expanded
}

func referencesOutput(groups ...[]string) bool {
	for _, group := range groups {
		for _, arg := range group {
			if strings.Contains(arg, placeholderOutput) {
				return true
			}
		}
	}

	return false
}

// truncateDiagnostic keeps the tail of the engine output, where errors usually are.
func truncateDiagnostic(output []byte) string {
	trimmed := strings.TrimSpace(string(output))
	if len(trimmed) <= maxDiagnosticBytes {
		return trimmed
	}

	return "..." + trimmed[len(trimmed)-maxDiagnosticBytes:]
}
