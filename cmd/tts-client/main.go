// Command tts-client submits one job to the tts-handler over NATS and writes
// the returned audio to a file.
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/tts-handler/internal/tts"
	"github.com/book-expert/tts-handler/internal/tts/ttsutils"
	"github.com/book-expert/tts-handler/internal/worker"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Flag names.
const (
	flagText       = "text"
	flagPersona    = "persona"
	flagVoice      = "voice"
	flagLanguage   = "language"
	flagReference  = "reference"
	flagFormat     = "format"
	flagOutput     = "output"
	flagURL        = "url"
	flagSubject    = "subject"
	flagTimeout    = "timeout"
	flagHealth     = "health"
	flagServiceURL = "service-url"
)

// Flag descriptions.
const (
	flagTextDesc       = "Text to convert to speech"
	flagPersonaDesc    = "Persona slug whose voice to use"
	flagVoiceDesc      = "Explicit engine voice identifier"
	flagLanguageDesc   = "Language code, e.g. en or fr"
	flagReferenceDesc  = "Audio file to clone the voice from"
	flagFormatDesc     = "Output format: wav or mp3"
	flagOutputDesc     = "Output file path (defaults to output.<format>)"
	flagURLDesc        = "NATS server URL"
	flagSubjectDesc    = "Job subject the handler listens on"
	flagTimeoutDesc    = "How long to wait for the handler's reply"
	flagHealthDesc     = "Check the standalone TTS HTTP service health and exit"
	flagServiceURLDesc = "Standalone TTS HTTP service URL for --health"
)

// Defaults.
const (
	defaultSubject    = "tts.jobs"
	defaultTimeout    = 90 * time.Second
	defaultOutputBase = "output"
	healthTimeout     = 10 * time.Second
	outputPermissions = 0o600
)

// Error and log messages.
const (
	errTextRequired       = "--text must be provided"
	errFormatUnsupported  = "--format must be wav or mp3"
	errVoiceAndReference  = "cannot specify both --voice and --reference"
	errServiceURLRequired = "--service-url must be provided with --health"
	logGenerated          = "Generated: %s (%s, %s)\n"
	logServiceHealthy     = "TTS service is healthy"
)

var (
	// ErrInvalidArguments wraps every command-line validation failure.
	ErrInvalidArguments = errors.New("invalid arguments")
	// ErrHandlerFailed is returned when the handler replies with an error.
	ErrHandlerFailed = errors.New("handler returned an error")
)

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	text       string
	persona    string
	voice      string
	language   string
	reference  string
	format     string
	output     string
	url        string
	subject    string
	timeout    time.Duration
	health     bool
	serviceURL string
}

func main() {
	err := run(os.Args[1:], os.Stdout)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run(args []string, stdout io.Writer) error {
	flags, err := parseFlags(args)
	if err != nil {
		return err
	}

	if flags.health {
		return checkHealth(flags, stdout)
	}

	err = validateFlags(flags)
	if err != nil {
		return err
	}

	job, err := buildJob(flags)
	if err != nil {
		return err
	}

	result, err := submit(flags, job)
	if err != nil {
		return err
	}

	return writeResult(flags, result, stdout)
}

// parseFlags defines and parses command-line flags, returning them in a struct.
func parseFlags(args []string) (appFlags, error) {
	var flags appFlags

	flagSet := flag.NewFlagSet("tts-client", flag.ContinueOnError)
	flagSet.StringVar(&flags.text, flagText, "", flagTextDesc)
	flagSet.StringVar(&flags.persona, flagPersona, "", flagPersonaDesc)
	flagSet.StringVar(&flags.voice, flagVoice, "", flagVoiceDesc)
	flagSet.StringVar(&flags.language, flagLanguage, "", flagLanguageDesc)
	flagSet.StringVar(&flags.reference, flagReference, "", flagReferenceDesc)
	flagSet.StringVar(&flags.format, flagFormat, "wav", flagFormatDesc)
	flagSet.StringVar(&flags.output, flagOutput, "", flagOutputDesc)
	flagSet.StringVar(&flags.url, flagURL, nats.DefaultURL, flagURLDesc)
	flagSet.StringVar(&flags.subject, flagSubject, defaultSubject, flagSubjectDesc)
	flagSet.DurationVar(&flags.timeout, flagTimeout, defaultTimeout, flagTimeoutDesc)
	flagSet.BoolVar(&flags.health, flagHealth, false, flagHealthDesc)
	flagSet.StringVar(&flags.serviceURL, flagServiceURL, "", flagServiceURLDesc)

	err := flagSet.Parse(args)
	if err != nil {
		return flags, fmt.Errorf("%w: %w", ErrInvalidArguments, err)
	}

	return flags, nil
}

// validateFlags checks required and conflicting arguments.
func validateFlags(flags appFlags) error {
	if strings.TrimSpace(flags.text) == "" {
		return fmt.Errorf("%w: %s", ErrInvalidArguments, errTextRequired)
	}

	if flags.format != "wav" && flags.format != "mp3" {
		return fmt.Errorf("%w: %s", ErrInvalidArguments, errFormatUnsupported)
	}

	if flags.voice != "" && flags.reference != "" {
		return fmt.Errorf("%w: %s", ErrInvalidArguments, errVoiceAndReference)
	}

	return nil
}

// buildJob turns the flags into a job envelope. Empty selectors are omitted
// so the handler applies its own defaults.
func buildJob(flags appFlags) (worker.Job, error) {
	input := map[string]any{
		"text":   flags.text,
		"format": flags.format,
	}

	optional := map[string]string{
		"persona_slug": flags.persona,
		"voice":        flags.voice,
		"language":     flags.language,
	}

	for key, value := range optional {
		if value != "" {
			input[key] = value
		}
	}

	if flags.reference != "" {
		if !ttsutils.IsValidAudioFile(flags.reference) {
			return worker.Job{}, fmt.Errorf("%w: %s is not an audio file", ErrInvalidArguments, flags.reference)
		}

		data, err := os.ReadFile(flags.reference)
		if err != nil {
			return worker.Job{}, fmt.Errorf("failed to read reference audio: %w", err)
		}

		input["reference_audio_base64"] = base64.StdEncoding.EncodeToString(data)
	}

	jobID := uuid.NewString()

	return worker.Job{
		ID: jobID,
		Header: events.EventHeader{
			Timestamp:  time.Now().UTC(),
			WorkflowID: jobID,
			EventID:    uuid.NewString(),
			UserID:     "",
			TenantID:   "",
		},
		Input: input,
	}, nil
}

func submit(flags appFlags, job worker.Job) (worker.Result, error) {
	var result worker.Result

	payload, err := json.Marshal(job)
	if err != nil {
		return result, fmt.Errorf("failed to marshal job: %w", err)
	}

	natsConnection, err := nats.Connect(flags.url, nats.Name("tts-client"))
	if err != nil {
		return result, fmt.Errorf("failed to connect to NATS at %s: %w", flags.url, err)
	}
	defer natsConnection.Close()

	reply, err := natsConnection.Request(flags.subject, payload, flags.timeout)
	if err != nil {
		return result, fmt.Errorf("no reply on %s: %w", flags.subject, err)
	}

	err = json.Unmarshal(reply.Data, &result)
	if err != nil {
		return result, fmt.Errorf("failed to decode reply: %w", err)
	}

	return result, nil
}

// writeResult decodes the audio in result and writes it to the output path.
func writeResult(flags appFlags, result worker.Result, stdout io.Writer) error {
	if result.Output.Failed() {
		if result.Output.Hint != "" {
			return fmt.Errorf("%w: %s (hint: %s)", ErrHandlerFailed, result.Output.Error, result.Output.Hint)
		}

		return fmt.Errorf("%w: %s", ErrHandlerFailed, result.Output.Error)
	}

	audioData, err := base64.StdEncoding.DecodeString(result.Output.AudioBase64)
	if err != nil {
		return fmt.Errorf("failed to decode audio: %w", err)
	}

	outputPath := flags.output
	if outputPath == "" {
		outputPath = defaultOutputBase + "." + result.Output.Format
	}

	err = ttsutils.EnsureDir(filepath.Dir(outputPath))
	if err != nil {
		return err
	}

	err = os.WriteFile(outputPath, audioData, outputPermissions)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}

	duration := "unknown length"
	if result.Output.DurationSeconds != nil {
		duration = ttsutils.FormatDuration(*result.Output.DurationSeconds)
	}

	fmt.Fprintf(stdout, logGenerated, outputPath, ttsutils.FormatFileSize(int64(len(audioData))), duration)

	return nil
}

// checkHealth performs a health check against the standalone TTS HTTP service.
func checkHealth(flags appFlags, stdout io.Writer) error {
	if flags.serviceURL == "" {
		return fmt.Errorf("%w: %s", ErrInvalidArguments, errServiceURLRequired)
	}

	ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
	defer cancel()

	err := tts.NewHTTPClient(flags.serviceURL, healthTimeout).HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("TTS service is not healthy: %w", err)
	}

	fmt.Fprintln(stdout, logServiceHealthy)

	return nil
}
