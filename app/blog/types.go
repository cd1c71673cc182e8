package blog

// Preset is a named generation style loaded from the presets directory.
type Preset struct {
	Name        string // Derived from filename (without .yml extension)
	Tone        string `yaml:"tone"`
	Audience    string `yaml:"audience"`
	Language    string `yaml:"language"`
	MaxWords    int    `yaml:"max_words"`
	EnrichLinks bool   `yaml:"enrich_links"`
}

// DefaultPreset is used when a request names no preset.
func DefaultPreset() *Preset {
	return &Preset{
		Name:     "default",
		Tone:     "conversational",
		Audience: "general readers",
		Language: "English",
		MaxWords: 800,
	}
}
