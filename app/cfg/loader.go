package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./blogsmith.db" description:"Path to the SQLite database file"`

	// Application configuration
	Port        string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl     string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://blog.example.com)"`
	PresetsDir  string `long:"presets-dir" env:"PRESETS_DIR" default:"./presets" description:"Directory containing generation preset files"`
	ChannelsDir string `long:"channels-dir" env:"CHANNELS_DIR" default:"./channels" description:"Directory containing channel subscription files"`

	// Background processing
	WorkerCount       int `long:"worker-count" env:"WORKER_COUNT" default:"3" description:"Number of background workers for channel processing"`
	SchedulerInterval int `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"60" description:"Scheduler interval in seconds"`

	// API access
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for admin endpoints (optional)"`

	// Audio fetching
	MaxVideoDuration int `long:"max-video-duration" env:"MAX_VIDEO_DURATION" default:"30" description:"Maximum video duration in minutes"`
	FetchTimeout     int `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"300" description:"Audio download timeout in seconds"`

	// Transcription service
	AssemblyAIKey     string `long:"assemblyai-key" env:"ASSEMBLYAI_API_KEY" description:"AssemblyAI API key (required)" required:"true"`
	AssemblyAIBaseUrl string `long:"assemblyai-base-url" env:"ASSEMBLYAI_BASE_URL" default:"https://api.assemblyai.com" description:"AssemblyAI API base URL"`
	TranscribeTimeout int    `long:"transcribe-timeout" env:"TRANSCRIBE_TIMEOUT" default:"900" description:"Overall transcription deadline in seconds"`
	PollInterval      int    `long:"poll-interval" env:"POLL_INTERVAL" default:"3" description:"Initial transcription poll interval in seconds"`
	PollMaxInterval   int    `long:"poll-max-interval" env:"POLL_MAX_INTERVAL" default:"30" description:"Maximum transcription poll interval in seconds"`

	// Generation service
	GeminiKey       string `long:"gemini-key" env:"GEMINI_API_KEY" description:"Gemini API key (required)" required:"true"`
	GeminiBaseUrl   string `long:"gemini-base-url" env:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com" description:"Gemini API base URL"`
	GeminiModel     string `long:"gemini-model" env:"GEMINI_MODEL" default:"gemini-2.0-flash" description:"Gemini model name"`
	GenerateTimeout int    `long:"generate-timeout" env:"GENERATE_TIMEOUT" default:"120" description:"Generation call timeout in seconds"`

	// Outbound rate limiting
	OutboundRateLimit int `long:"outbound-rate-limit" env:"OUTBOUND_RATE_LIMIT" default:"30" description:"Outbound requests per minute per external service"`

	// Conversation context
	HistoryDepth int `long:"history-depth" env:"HISTORY_DEPTH" default:"6" description:"Number of prior chat turns included in generation prompts"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"BlogSmith/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:            raw.DBPath,
		Port:              raw.Port,
		BaseUrl:           raw.BaseUrl,
		PresetsDir:        raw.PresetsDir,
		ChannelsDir:       raw.ChannelsDir,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		APIAccessKey:      raw.APIAccessKey,
		MaxVideoDuration:  raw.MaxVideoDuration,
		FetchTimeout:      raw.FetchTimeout,
		AssemblyAIKey:     raw.AssemblyAIKey,
		AssemblyAIBaseUrl: raw.AssemblyAIBaseUrl,
		TranscribeTimeout: raw.TranscribeTimeout,
		PollInterval:      raw.PollInterval,
		PollMaxInterval:   raw.PollMaxInterval,
		GeminiKey:         raw.GeminiKey,
		GeminiBaseUrl:     raw.GeminiBaseUrl,
		GeminiModel:       raw.GeminiModel,
		GenerateTimeout:   raw.GenerateTimeout,
		OutboundRateLimit: raw.OutboundRateLimit,
		HistoryDepth:      raw.HistoryDepth,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
