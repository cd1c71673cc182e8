package cfg

import (
	"testing"
)

func TestGetVersion(t *testing.T) {
	if GetVersion() == "" {
		t.Error("GetVersion should never return empty string")
	}
}

func TestConfigFields(t *testing.T) {
	cfg := &Cfg{
		DBPath:            "./test.db",
		Port:              "8080",
		BaseUrl:           "https://blog.example.com",
		PresetsDir:        "./presets",
		ChannelsDir:       "./channels",
		WorkerCount:       3,
		SchedulerInterval: 60,
		APIAccessKey:      "test-key",
		MaxVideoDuration:  30,
		FetchTimeout:      300,
		AssemblyAIKey:     "aai-key",
		AssemblyAIBaseUrl: "https://api.assemblyai.com",
		TranscribeTimeout: 900,
		PollInterval:      3,
		PollMaxInterval:   30,
		GeminiKey:         "gem-key",
		GeminiModel:       "gemini-2.0-flash",
		GenerateTimeout:   120,
		OutboundRateLimit: 30,
		HistoryDepth:      6,
		UserAgent:         "Test Agent",
		Timezone:          "UTC",
		Debug:             true,
		Version:           "test-version",
	}

	if cfg.DBPath != "./test.db" {
		t.Errorf("Expected DB path './test.db', got '%s'", cfg.DBPath)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected port '8080', got '%s'", cfg.Port)
	}
	if cfg.MaxVideoDuration != 30 {
		t.Errorf("Expected max video duration 30, got %d", cfg.MaxVideoDuration)
	}
	if cfg.TranscribeTimeout != 900 {
		t.Errorf("Expected transcribe timeout 900, got %d", cfg.TranscribeTimeout)
	}
	if cfg.HistoryDepth != 6 {
		t.Errorf("Expected history depth 6, got %d", cfg.HistoryDepth)
	}
	if cfg.GeminiModel != "gemini-2.0-flash" {
		t.Errorf("Expected model 'gemini-2.0-flash', got '%s'", cfg.GeminiModel)
	}
	if !cfg.Debug {
		t.Error("Expected debug to be enabled")
	}
}

func TestGetPanicsWhenNotLoaded(t *testing.T) {
	saved := globalCfg
	globalCfg = nil
	defer func() {
		globalCfg = saved
		if r := recover(); r == nil {
			t.Error("Expected Get to panic before Load")
		}
	}()

	Get()
}
