package blog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

type PresetCache struct {
	presetsDir string
	cache      map[string]*Preset
	mu         sync.RWMutex
}

func NewPresetCache(presetsDir string) *PresetCache {
	return &PresetCache{
		presetsDir: presetsDir,
		cache:      make(map[string]*Preset),
	}
}

func (pc *PresetCache) Run() error {
	if _, err := os.Stat(pc.presetsDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(pc.presetsDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		fileName := filepath.Base(file)
		presetName := fileName[:len(fileName)-4] // Remove .yml extension

		preset, err := pc.LoadPreset(presetName)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Preset loaded", "preset", presetName, "tone", preset.Tone, "max_words", preset.MaxWords)
	}

	return nil
}

func (pc *PresetCache) LoadPreset(presetName string) (*Preset, error) {
	presetFile := filepath.Join(pc.presetsDir, presetName+".yml")

	data, err := os.ReadFile(presetFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	preset := DefaultPreset()
	if err := yaml.Unmarshal(data, preset); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	preset.Name = presetName

	if err := pc.validatePreset(preset); err != nil {
		return nil, fmt.Errorf("invalid preset %s: %w", presetFile, err)
	}

	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.cache[preset.Name] = preset

	return preset, nil
}

// GetPreset returns the named preset; an empty name yields the default.
func (pc *PresetCache) GetPreset(presetName string) (*Preset, error) {
	if presetName == "" {
		return DefaultPreset(), nil
	}

	pc.mu.RLock()
	defer pc.mu.RUnlock()

	preset, ok := pc.cache[presetName]
	if !ok {
		return nil, fmt.Errorf("preset with name '%s' not found", presetName)
	}
	return preset, nil
}

func (pc *PresetCache) GetPresetCount() int {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return len(pc.cache)
}

func (pc *PresetCache) validatePreset(preset *Preset) error {
	if preset == nil {
		return fmt.Errorf("preset is nil")
	}
	if preset.MaxWords < 0 {
		return fmt.Errorf("max words must be non-negative")
	}
	if preset.Tone == "" {
		return fmt.Errorf("tone is required")
	}
	return nil
}
