package core

// VoiceSource records which resolution rule selected the voice.
type VoiceSource string

// Resolution rules, in priority order.
const (
	SourceReference VoiceSource = "reference"
	SourceExplicit  VoiceSource = "explicit"
	SourcePersona   VoiceSource = "persona"
	SourceCategory  VoiceSource = "category"
	SourceDefault   VoiceSource = "default"
)

// Request is a validated job input. It is never modified after parsing.
type Request struct {
	Text             string
	PersonaSlug      string
	Voice            string
	VoiceCategory    string
	Language         string
	LanguageExplicit bool
	ReferenceAudio   []byte
	Format           string
}

// HasReference reports whether the request carries audio for voice cloning.
func (r Request) HasReference() bool {
	return len(r.ReferenceAudio) > 0
}

// Reference is the audio sample driving voice cloning. Exactly one of Inline
// and StoreKey is set.
type Reference struct {
	Inline   []byte
	StoreKey string
}

// ResolvedParams is what the synthesis engine is actually asked to do.
type ResolvedParams struct {
	Voice     string
	Reference *Reference
	Language  string
	Format    string
	Persona   string
	Source    VoiceSource
}

// EngineJob is a single engine invocation with staged file paths.
type EngineJob struct {
	Text          string
	Voice         string
	Language      string
	Format        string
	ReferencePath string
	OutputPath    string
}

// SynthesisResult holds the audio produced for one request.
type SynthesisResult struct {
	Audio []byte
	// Format matches the requested output format.
	Format string
	// DurationSeconds is zero when no estimate is available.
	DurationSeconds float64
	// DurationExact is true when the duration came from the audio header
	// rather than from a byte-length approximation.
	DurationExact bool
}
