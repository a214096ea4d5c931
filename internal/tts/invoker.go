package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-handler/internal/core"
	"github.com/book-expert/tts-handler/internal/tts/audio"
	"github.com/book-expert/tts-handler/internal/tts/ttsutils"
)

// DefaultTimeout is the synthesis ceiling when none is configured.
const DefaultTimeout = 60 * time.Second

const (
	stagingPattern     = "tts-job-*"
	referenceBaseName  = "reference"
	outputBaseName     = "output"
	diagEngineInit     = "engine initialization failed"
	diagNoAudio        = "engine produced no audio"
	logFmtSynthesized  = "Synthesized %s of %s audio with %s (source %s)"
	logFmtStagingClean = "Failed to remove staging directory '%s': %v"
)

// ErrEmptyReference is returned when the staged reference would be empty.
var ErrEmptyReference = errors.New("reference audio is empty")

// InvokerOptions tune the synthesis invoker.
type InvokerOptions struct {
	Timeout     time.Duration
	StagingDir  string
	Assumptions audio.Assumptions
}

// Invoker runs one resolved request through the engine.
type Invoker struct {
	handle *EngineHandle
	store  core.VoiceStore
	opts   InvokerOptions
	log    *logger.Logger
}

// NewInvoker creates an Invoker. store may be nil when no persona uses
// stored reference audio.
func NewInvoker(handle *EngineHandle, store core.VoiceStore, opts InvokerOptions, log *logger.Logger) *Invoker {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	return &Invoker{handle: handle, store: store, opts: opts, log: log}
}

// Timeout returns the synthesis ceiling in effect.
func (i *Invoker) Timeout() time.Duration {
	return i.opts.Timeout
}

// Synthesize stages the inputs, runs the engine under the timeout and returns
// the produced audio. The staging directory is removed on every return path.
func (i *Invoker) Synthesize(
	ctx context.Context,
	params core.ResolvedParams,
	text string,
) (*core.SynthesisResult, error) {
	format, err := audio.ParseOutputFormat(params.Format)
	if err != nil {
		return nil, &core.ValidationError{Reason: core.ReasonUnsupportedFormat, Field: params.Format}
	}

	engine, err := i.handle.Get(ctx)
	if err != nil {
		return nil, &core.SynthesisError{Engine: "", Diagnostic: diagEngineInit, Err: err}
	}

	stagingDir, err := i.createStagingDir()
	if err != nil {
		return nil, err
	}

	defer func() {
		removeErr := os.RemoveAll(stagingDir)
		if removeErr != nil {
			i.log.Warn(logFmtStagingClean, stagingDir, removeErr)
		}
	}()

	job := core.EngineJob{
		Text:          text,
		Voice:         params.Voice,
		Language:      params.Language,
		Format:        string(format),
		ReferencePath: "",
		OutputPath:    filepath.Join(stagingDir, outputBaseName+"."+format.Extension()),
	}

	if params.Reference != nil {
		job.ReferencePath, err = i.stageReference(ctx, stagingDir, params)
		if err != nil {
			return nil, err
		}

		job.Voice = ""
	}

	audioData, err := i.run(ctx, engine, job)
	if err != nil {
		return nil, err
	}

	duration, exact := audio.EstimateDuration(audioData, format, i.opts.Assumptions)

	i.log.Info(logFmtSynthesized,
		ttsutils.FormatDuration(duration),
		ttsutils.FormatFileSize(int64(len(audioData))),
		engine.Name(),
		params.Source,
	)

	return &core.SynthesisResult{
		Audio:           audioData,
		Format:          string(format),
		DurationSeconds: duration,
		DurationExact:   exact,
	}, nil
}

func (i *Invoker) run(ctx context.Context, engine core.Engine, job core.EngineJob) ([]byte, error) {
	runCtx, cancel := context.WithTimeout(ctx, i.opts.Timeout)
	defer cancel()

	err := engine.Synthesize(runCtx, job)
	if err != nil {
		return nil, i.classify(ctx, runCtx, engine, err)
	}

	audioData, err := os.ReadFile(job.OutputPath)
	if err != nil || len(audioData) == 0 {
		return nil, &core.SynthesisError{Engine: engine.Name(), Diagnostic: diagNoAudio, Err: err}
	}

	return audioData, nil
}

// classify turns an engine error into the error taxonomy. A deadline on the
// run context always wins over whatever the engine reported.
func (i *Invoker) classify(parent, runCtx context.Context, engine core.Engine, err error) error {
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return &core.TimeoutError{Engine: engine.Name(), Limit: i.opts.Timeout}
	}

	if parent.Err() != nil {
		return fmt.Errorf("synthesis canceled: %w", parent.Err())
	}

	var synthErr *core.SynthesisError
	if errors.As(err, &synthErr) {
		return synthErr
	}

	return &core.SynthesisError{Engine: engine.Name(), Diagnostic: "", Err: err}
}

func (i *Invoker) createStagingDir() (string, error) {
	root := ttsutils.StagingRoot(i.opts.StagingDir)

	err := ttsutils.EnsureDir(root)
	if err != nil {
		return "", fmt.Errorf("failed to prepare staging root: %w", err)
	}

	dir, err := os.MkdirTemp(root, stagingPattern)
	if err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}

	return dir, nil
}

// stageReference writes the reference audio into stagingDir, naming it after
// the detected container so engines that sniff by extension accept it.
func (i *Invoker) stageReference(ctx context.Context, stagingDir string, params core.ResolvedParams) (string, error) {
	data := params.Reference.Inline

	if params.Reference.StoreKey != "" {
		if i.store == nil {
			return "", &core.ResolutionError{Reason: core.ReasonMissingSpeakerRef, Persona: params.Persona, Err: nil}
		}

		downloaded, err := i.store.Download(ctx, params.Reference.StoreKey)
		if err != nil {
			return "", &core.ResolutionError{Reason: core.ReasonVoiceStoreDown, Persona: params.Persona, Err: err}
		}

		data = downloaded
	}

	if len(data) == 0 {
		return "", &core.ResolutionError{
			Reason:  core.ReasonMissingSpeakerRef,
			Persona: params.Persona,
			Err:     ErrEmptyReference,
		}
	}

	extension := audio.FormatWAV.Extension()
	if detected, ok := audio.DetectFormat(data); ok {
		extension = detected.Extension()
	}

	path := filepath.Join(stagingDir, referenceBaseName+"."+extension)

	err := os.WriteFile(path, data, filePermissions)
	if err != nil {
		return "", fmt.Errorf("failed to stage reference audio: %w", err)
	}

	return path, nil
}
