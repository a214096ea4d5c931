// Command tts-voices uploads persona reference audio into the NATS voice bucket.
// Files are stored as {persona_slug}.{ext}, so a.curie.wav serves persona a.curie.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/book-expert/tts-handler/internal/core"
	"github.com/book-expert/tts-handler/internal/objectstore"
	"github.com/book-expert/tts-handler/internal/persona"
	"github.com/book-expert/tts-handler/internal/tts/ttsutils"
	"github.com/nats-io/nats.go"
)

const (
	defaultBucket = "PERSONA_VOICES"
	logUploaded   = "Uploaded %s (%s)\n"
	logSkipped    = "Skipped %s: not an audio file\n"
	logSummary    = "Uploaded %d reference files to %s\n"
)

var (
	// ErrDirRequired is returned when --dir is missing.
	ErrDirRequired = errors.New("--dir must be provided")
	// ErrNoAudioFiles is returned when the directory holds no audio.
	ErrNoAudioFiles = errors.New("no audio files found")
)

type appFlags struct {
	url    string
	bucket string
	dir    string
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

	natsConnection, err := nats.Connect(flags.url, nats.Name("tts-voices"))
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", flags.url, err)
	}
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	store, err := objectstore.New(jetstreamContext, flags.bucket)
	if err != nil {
		return err
	}

	count, err := uploadDir(context.Background(), store, flags.dir, stdout)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, logSummary, count, flags.bucket)

	return nil
}

func parseFlags(args []string) (appFlags, error) {
	var flags appFlags

	flagSet := flag.NewFlagSet("tts-voices", flag.ContinueOnError)
	flagSet.StringVar(&flags.url, "url", nats.DefaultURL, "NATS server URL")
	flagSet.StringVar(&flags.bucket, "bucket", defaultBucket, "Object store bucket holding reference audio")
	flagSet.StringVar(&flags.dir, "dir", "", "Directory of {persona_slug}.{ext} reference files")

	err := flagSet.Parse(args)
	if err != nil {
		return flags, fmt.Errorf("failed to parse flags: %w", err)
	}

	if flags.dir == "" {
		return flags, ErrDirRequired
	}

	return flags, nil
}

// uploadDir uploads every audio file directly inside dir and returns how many
// were uploaded.
func uploadDir(ctx context.Context, store core.ObjectStore, dir string, stdout io.Writer) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	uploaded := 0

	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		if !ttsutils.IsValidAudioFile(entry.Name()) {
			fmt.Fprintf(stdout, logSkipped, entry.Name())

			continue
		}

		data, readErr := os.ReadFile(filepath.Join(dir, entry.Name()))
		if readErr != nil {
			return uploaded, fmt.Errorf("failed to read %s: %w", entry.Name(), readErr)
		}

		key := referenceKey(entry.Name())

		uploadErr := store.Upload(ctx, key, data)
		if uploadErr != nil {
			return uploaded, uploadErr
		}

		fmt.Fprintf(stdout, logUploaded, key, ttsutils.FormatFileSize(int64(len(data))))

		uploaded++
	}

	if uploaded == 0 {
		return 0, fmt.Errorf("%w in %s", ErrNoAudioFiles, dir)
	}

	return uploaded, nil
}

// referenceKey normalizes the slug and extension the way the resolver does, so
// its {slug}.{ext} lookups match regardless of how the file was named on disk.
func referenceKey(filename string) string {
	slug := persona.NormalizeKey(strings.TrimSuffix(filename, filepath.Ext(filename)))

	return ttsutils.ReferenceKey(slug, strings.ToLower(ttsutils.GetFileExtension(filename)))
}
