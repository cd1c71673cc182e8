package blog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPresetCacheLoadValidPreset(t *testing.T) {
	tempDir := t.TempDir()

	content := `
tone: "technical"
audience: "software engineers"
language: "English"
max_words: 1200
enrich_links: true
`

	err := os.WriteFile(filepath.Join(tempDir, "deep-dive.yml"), []byte(content), 0644)
	if err != nil {
		t.Fatal(err)
	}

	cache := NewPresetCache(tempDir)
	if err := cache.Run(); err != nil {
		t.Fatal(err)
	}

	if cache.GetPresetCount() != 1 {
		t.Errorf("Expected 1 preset, got %d", cache.GetPresetCount())
	}

	preset, err := cache.GetPreset("deep-dive")
	if err != nil {
		t.Fatal(err)
	}

	if preset.Name != "deep-dive" {
		t.Errorf("Expected name 'deep-dive', got '%s'", preset.Name)
	}
	if preset.Tone != "technical" {
		t.Errorf("Expected tone 'technical', got '%s'", preset.Tone)
	}
	if preset.MaxWords != 1200 {
		t.Errorf("Expected max_words 1200, got %d", preset.MaxWords)
	}
	if !preset.EnrichLinks {
		t.Error("Expected enrich_links to be true")
	}
}

func TestPresetCacheDefaults(t *testing.T) {
	tempDir := t.TempDir()

	// Only the tone set; everything else should keep the defaults.
	content := `
tone: "playful"
`

	err := os.WriteFile(filepath.Join(tempDir, "minimal.yml"), []byte(content), 0644)
	if err != nil {
		t.Fatal(err)
	}

	cache := NewPresetCache(tempDir)
	if err := cache.Run(); err != nil {
		t.Fatal(err)
	}

	preset, err := cache.GetPreset("minimal")
	if err != nil {
		t.Fatal(err)
	}

	defaults := DefaultPreset()
	if preset.Audience != defaults.Audience {
		t.Errorf("Expected default audience '%s', got '%s'", defaults.Audience, preset.Audience)
	}
	if preset.Language != defaults.Language {
		t.Errorf("Expected default language '%s', got '%s'", defaults.Language, preset.Language)
	}
}

func TestPresetCacheEmptyNameReturnsDefault(t *testing.T) {
	cache := NewPresetCache(t.TempDir())

	preset, err := cache.GetPreset("")
	if err != nil {
		t.Fatal(err)
	}

	defaults := DefaultPreset()
	if preset.Tone != defaults.Tone {
		t.Errorf("Expected default preset, got tone '%s'", preset.Tone)
	}
}

func TestPresetCacheUnknownPreset(t *testing.T) {
	cache := NewPresetCache(t.TempDir())
	if err := cache.Run(); err != nil {
		t.Fatal(err)
	}

	_, err := cache.GetPreset("missing")
	if err == nil {
		t.Error("Expected error for unknown preset")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("Expected 'not found' in error, got: %v", err)
	}
}

func TestPresetCacheInvalidPreset(t *testing.T) {
	tempDir := t.TempDir()

	// Missing tone
	content := `
tone: ""
audience: "everyone"
`

	err := os.WriteFile(filepath.Join(tempDir, "broken.yml"), []byte(content), 0644)
	if err != nil {
		t.Fatal(err)
	}

	cache := NewPresetCache(tempDir)
	if err := cache.Run(); err == nil {
		t.Error("Expected error for preset without tone")
	}
}

func TestPresetCacheNegativeMaxWords(t *testing.T) {
	tempDir := t.TempDir()

	content := `
tone: "casual"
max_words: -5
`

	err := os.WriteFile(filepath.Join(tempDir, "negative.yml"), []byte(content), 0644)
	if err != nil {
		t.Fatal(err)
	}

	cache := NewPresetCache(tempDir)
	if err := cache.Run(); err == nil {
		t.Error("Expected error for negative max_words")
	}
}

func TestPresetCacheMissingDirectory(t *testing.T) {
	cache := NewPresetCache(filepath.Join(t.TempDir(), "does-not-exist"))
	if err := cache.Run(); err != nil {
		t.Errorf("Expected missing directory to be tolerated, got: %v", err)
	}
	if cache.GetPresetCount() != 0 {
		t.Errorf("Expected 0 presets, got %d", cache.GetPresetCount())
	}
}
