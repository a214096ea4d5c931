// main package for the tts-handler
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/tts-handler/internal/config"
	"github.com/book-expert/tts-handler/internal/core"
	"github.com/book-expert/tts-handler/internal/handler"
	"github.com/book-expert/tts-handler/internal/metrics"
	"github.com/book-expert/tts-handler/internal/objectstore"
	"github.com/book-expert/tts-handler/internal/persona"
	"github.com/book-expert/tts-handler/internal/request"
	"github.com/book-expert/tts-handler/internal/tts"
	"github.com/book-expert/tts-handler/internal/tts/audio"
	"github.com/book-expert/tts-handler/internal/voice"
	"github.com/book-expert/tts-handler/internal/worker"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricsReadHeaderTimeout = 5 * time.Second
	metricsShutdownTimeout   = 5 * time.Second
)

func setupLogger(logPath string) (*logger.Logger, error) {
	log, err := logger.New(logPath, "tts-handler.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func run() error {
	// 1. Create a temporary logger for the bootstrap process
	bootstrapLog, err := logger.New(os.TempDir(), "tts-handler-bootstrap.log")
	if err != nil {
		// If bootstrap logger fails, we can only print to stderr
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	bootstrapLog.Info("Bootstrap logger created.")

	// 2. Load configuration using the central configurator
	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	bootstrapLog.Info("Configuration loaded successfully.")

	// 3. Initialize the final logger based on the loaded configuration
	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, finalLog)
}

func serve(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	natsURL := cfg.NATS.URL
	if natsURL == "" {
		natsURL = nats.DefaultURL
	}

	natsConnection, err := nats.Connect(natsURL, nats.Name("tts-handler"))
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", natsURL, err)
	}
	defer natsConnection.Close()

	store, err := buildVoiceStore(natsConnection, cfg)
	if err != nil {
		return err
	}

	table, err := loadPersonaTable(cfg)
	if err != nil {
		return err
	}

	log.Info("Persona table loaded with %d personas", table.Len())

	factory, err := tts.FactoryFromConfig(cfg.Engine, cfg.Handler.Timeout(), log)
	if err != nil {
		return fmt.Errorf("failed to configure engine: %w", err)
	}

	engineHandle := tts.NewEngineHandle(factory)

	invoker := tts.NewInvoker(engineHandle, store, tts.InvokerOptions{
		Timeout:    cfg.Handler.Timeout(),
		StagingDir: cfg.Paths.StagingDir,
		Assumptions: audio.Assumptions{
			SampleRate: cfg.Engine.AssumedRate,
			BitDepth:   cfg.Engine.AssumedBits,
			Channels:   cfg.Engine.AssumedChans,
			MP3Kbps:    cfg.Engine.AssumedMP3Kbps,
		},
	}, log)

	validator := request.NewValidator(request.Options{
		MaxTextLength:     cfg.Handler.MaxTextLength,
		MaxReferenceBytes: cfg.Handler.MaxReferenceBytes,
		DefaultLanguage:   cfg.Handler.DefaultLanguage,
		DefaultFormat:     cfg.Handler.DefaultFormat,
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	jobHandler := handler.New(
		validator,
		voice.NewResolver(table, store, cfg.Voices.ReferenceExtensions),
		invoker,
		metrics.New(registry),
		handler.HintOptions{
			MaxTextLength:     cfg.Handler.MaxTextLength,
			MaxReferenceBytes: cfg.Handler.MaxReferenceBytes,
		},
		log,
	)

	stopMetrics := startMetricsServer(cfg.Metrics.ListenAddr, registry, engineHandle, log)
	defer stopMetrics()

	natsWorker, err := worker.NewNatsWorker(natsConnection, worker.Options{
		Subject:       cfg.NATS.JobSubject,
		Queue:         cfg.NATS.JobQueue,
		ResultSubject: cfg.NATS.ResultSubject,
	}, jobHandler, log)
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}

	log.System("TTS-Handler successfully initialized. Listening for jobs on subject: %s", cfg.NATS.JobSubject)

	return natsWorker.Run(ctx)
}

// buildVoiceStore prefers the NATS bucket, then the directory volume. With
// neither configured no persona can be cloned from stored audio.
func buildVoiceStore(natsConnection *nats.Conn, cfg *config.Config) (core.VoiceStore, error) {
	if cfg.NATS.VoiceBucket != "" {
		jetstreamContext, err := natsConnection.JetStream()
		if err != nil {
			return nil, fmt.Errorf("failed to create JetStream context: %w", err)
		}

		store, err := objectstore.New(jetstreamContext, cfg.NATS.VoiceBucket)
		if err != nil {
			return nil, fmt.Errorf("failed to open voice bucket: %w", err)
		}

		return store, nil
	}

	if cfg.Voices.Dir != "" {
		store, err := objectstore.NewDirStore(cfg.Voices.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open voice directory: %w", err)
		}

		return store, nil
	}

	return nil, nil
}

func loadPersonaTable(cfg *config.Config) (*persona.Table, error) {
	fallback := persona.Defaults{Voice: "", Language: cfg.Handler.DefaultLanguage, FallbackCategory: ""}

	if cfg.Voices.PersonaTable == "" {
		return persona.Builtin(fallback), nil
	}

	table, err := persona.Load(cfg.Voices.PersonaTable, fallback)
	if err != nil {
		return nil, fmt.Errorf("failed to load persona table: %w", err)
	}

	return table, nil
}

// startMetricsServer serves /metrics and /healthz when addr is set. The engine
// loads on the first job, so /healthz reports it as idle until then. The
// returned function shuts the server down.
func startMetricsServer(
	addr string,
	registry *prometheus.Registry,
	engineHandle *tts.EngineHandle,
	log *logger.Logger,
) func() {
	if addr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	mux.HandleFunc("/healthz", func(writer http.ResponseWriter, _ *http.Request) {
		state := "idle"
		if engineHandle.Ready() {
			state = "ready"
		}

		writer.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(writer, "ok engine=%s\n", state)
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: metricsReadHeaderTimeout,
	}

	go func() {
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server failed: %v", err)
		}
	}()

	log.Info("Serving metrics on %s", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()

		err := server.Shutdown(ctx)
		if err != nil {
			log.Warn("Failed to shut down metrics server: %v", err)
		}
	}
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
