package persona

// Built-in defaults, used when no persona table file is configured.
const (
	BuiltinDefaultVoice    = "en-US-AriaNeural"
	BuiltinDefaultLanguage = "en"
)

var builtinCategories = map[string]Category{
	"female": {Voice: "en-US-JennyNeural", Language: "en"},
	"male":   {Voice: "en-US-GuyNeural", Language: "en"},
}

var builtinEntries = []Entry{
	{Slug: "a.curie", Voice: "fr-FR-DeniseNeural", Language: "fr"},
	{Slug: "a.einstein", Voice: "de-DE-ConradNeural", Language: "de"},
	{Slug: "i.newton", Voice: "en-GB-RyanNeural", Language: "en"},
	{Slug: "a.lovelace", Voice: "en-GB-SoniaNeural", Language: "en"},
	{Slug: "l.da-vinci", Voice: "it-IT-DiegoNeural", Language: "it"},
	{Slug: "f.kahlo", Voice: "es-MX-DaliaNeural", Language: "es"},
	{Slug: "h.yukawa", Voice: "ja-JP-KeitaNeural", Language: "ja"},
	{Slug: "c.darwin", Category: "male", Language: "en"},
	{Slug: "r.franklin", Category: "female", Language: "en"},
	{Slug: "n.tesla", Reference: true, Language: "en"},
}

// Builtin returns the persona table shipped with the handler. Empty fields of
// fallback are filled with the built-in defaults.
func Builtin(fallback Defaults) *Table {
	defaults := Defaults{
		Voice:            firstNonEmpty(fallback.Voice, BuiltinDefaultVoice),
		Language:         firstNonEmpty(fallback.Language, BuiltinDefaultLanguage),
		FallbackCategory: fallback.FallbackCategory,
	}

	table, err := New(builtinEntries, builtinCategories, defaults)
	if err != nil {
		// The built-in table is static; failing here is a programming error.
		panic(err)
	}

	return table
}
