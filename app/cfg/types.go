package cfg

type Cfg struct {
	// Database configuration
	DBPath string

	// Application configuration
	Port        string
	BaseUrl     string
	PresetsDir  string
	ChannelsDir string

	// Background processing
	WorkerCount       int
	SchedulerInterval int

	// API access
	APIAccessKey string

	// Audio fetching
	MaxVideoDuration int // minutes
	FetchTimeout     int // seconds

	// Transcription service
	AssemblyAIKey     string
	AssemblyAIBaseUrl string
	TranscribeTimeout int // seconds, overall deadline including polling
	PollInterval      int // seconds, initial poll interval
	PollMaxInterval   int // seconds, poll interval cap

	// Generation service
	GeminiKey       string
	GeminiBaseUrl   string
	GeminiModel     string
	GenerateTimeout int // seconds

	// Outbound rate limiting, requests per minute per service
	OutboundRateLimit int

	// Conversation context passed to the generator
	HistoryDepth int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
