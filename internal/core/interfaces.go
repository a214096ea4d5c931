// Package core defines the shared types and interfaces of the TTS handler.
package core

import "context"

// VoiceStore is the read-only view of the volume holding persona reference audio.
type VoiceStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Download(ctx context.Context, key string) ([]byte, error)
}

// ObjectStore is a VoiceStore that can also be written to.
type ObjectStore interface {
	VoiceStore
	Upload(ctx context.Context, key string, data []byte) error
}

// Engine is an external speech synthesis engine. Implementations write the
// produced audio to job.OutputPath.
type Engine interface {
	Name() string
	Synthesize(ctx context.Context, job EngineJob) error
}
