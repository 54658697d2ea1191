package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const ServiceName = "Video Transcription API"

type Config struct {
	// Server settings
	ServerPort      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	Debug           bool
	Version         string

	// Logging
	LogLevel string
	LogDir   string

	// Pipeline
	TempDir           string
	TranscribeTimeout time.Duration
	MaxConcurrentJobs int

	Middleware MiddlewareConfig
	CORS       CORSConfig
	RateLimit  RateLimitConfig
	Fetcher    FetcherConfig
	Whisper    WhisperConfig
	Database   DatabaseConfig
	Spaces     SpacesConfig
}

type MiddlewareConfig struct {
	EnableRecover   bool
	EnableRequestID bool
	EnableLogger    bool
	EnableCORS      bool
	EnableRateLimit bool
}

type CORSConfig struct {
	Enabled          bool
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	BurstSize         int
}

type FetcherConfig struct {
	YtDlpPath     string
	FFmpegPath    string
	AudioFormat   string
	SocketTimeout time.Duration
	UserAgent     string
	// PreferSubtitles uses an existing caption track when the video has
	// one, skipping the audio download and whisper.
	PreferSubtitles bool
	SubtitleLangs   string
}

// WhisperConfig selects the speech model. Model is the single user-facing
// knob; it is fixed for the lifetime of the process.
type WhisperConfig struct {
	Backend  string
	Model    string
	Binary   string
	ModelDir string
	Language string
	APIURL   string
	APIKey   string
}

type DatabaseConfig struct {
	Path           string
	MaxConnections int
	// Retention is how long journal rows are kept. Zero keeps them forever.
	Retention time.Duration
}

type SpacesConfig struct {
	AccessKey string
	SecretKey string
	Region    string
	Endpoint  string
	Bucket    string
}

func (s SpacesConfig) Enabled() bool {
	return s.Bucket != ""
}

func defaultDevConfig() MiddlewareConfig {
	return MiddlewareConfig{
		EnableRecover:   true,
		EnableRequestID: true,
		EnableLogger:    true,
		EnableCORS:      true,
		EnableRateLimit: false,
	}
}

func defaultProdConfig() MiddlewareConfig {
	return MiddlewareConfig{
		EnableRecover:   true,
		EnableRequestID: true,
		EnableLogger:    true,
		EnableCORS:      true,
		EnableRateLimit: true,
	}
}

// Load reads configuration from the environment, after merging any .env
// file found in the working directory.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Warn("Failed to load .env file")
	}

	cfg := &Config{
		ServerPort:      getEnv("SERVER_PORT", "8003"),
		ReadTimeout:     getEnvAsDuration("READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvAsDuration("WRITE_TIMEOUT", 0),
		IdleTimeout:     getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		Debug:           getEnvAsBool("DEBUG", false),
		Version:         getEnv("VERSION", "1.0.0"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogDir:   getEnv("LOG_DIR", ""),

		TempDir:           getEnv("TEMP_DIR", filepath.Join(os.TempDir(), "vidscribe")),
		TranscribeTimeout: getEnvAsDuration("TRANSCRIBE_TIMEOUT", 0),
		MaxConcurrentJobs: getEnvAsInt("MAX_CONCURRENT_JOBS", 2),

		CORS: CORSConfig{
			Enabled:          getEnvAsBool("CORS_ENABLED", true),
			AllowedOrigins:   getEnvAsStringSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods:   getEnvAsStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders:   getEnvAsStringSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type"}),
			ExposedHeaders:   getEnvAsStringSlice("CORS_EXPOSED_HEADERS", []string{"X-Request-ID"}),
			AllowCredentials: getEnvAsBool("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           getEnvAsInt("CORS_MAX_AGE", 86400),
		},

		RateLimit: RateLimitConfig{
			Enabled:           getEnvAsBool("RATE_LIMIT_ENABLED", true),
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_RPM", 30),
			BurstSize:         getEnvAsInt("RATE_LIMIT_BURST", 5),
		},

		Fetcher: FetcherConfig{
			YtDlpPath:     getEnv("YTDLP_PATH", "yt-dlp"),
			FFmpegPath:    getEnv("FFMPEG_PATH", "ffmpeg"),
			AudioFormat:   getEnv("AUDIO_FORMAT", "mp3"),
			SocketTimeout: getEnvAsDuration("SOCKET_TIMEOUT", 30*time.Second),
			UserAgent: getEnv("FETCH_USER_AGENT",
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"),
			PreferSubtitles: getEnvAsBool("PREFER_SUBTITLES", false),
			SubtitleLangs:   getEnv("SUBTITLE_LANGS", "en.*,en"),
		},

		Whisper: WhisperConfig{
			Backend:  getEnv("WHISPER_BACKEND", "cli"),
			Model:    getEnv("WHISPER_MODEL", "base"),
			Binary:   getEnv("WHISPER_BINARY", "whisper"),
			ModelDir: getEnv("WHISPER_MODEL_DIR", ""),
			Language: getEnv("WHISPER_LANGUAGE", ""),
			APIURL:   getEnv("WHISPER_API_BASE_URL", ""),
			APIKey:   getEnv("WHISPER_API_KEY", ""),
		},

		Database: DatabaseConfig{
			Path:           getEnv("DB_PATH", ""),
			MaxConnections: getEnvAsInt("DB_MAX_CONNECTIONS", 4),
			Retention:      getEnvAsDuration("JOURNAL_RETENTION", 0),
		},

		Spaces: SpacesConfig{
			AccessKey: getEnv("SPACES_ACCESS_KEY", ""),
			SecretKey: getEnv("SPACES_SECRET_KEY", ""),
			Region:    getEnv("SPACES_REGION", "us-east-1"),
			Endpoint:  getEnv("SPACES_ENDPOINT", ""),
			Bucket:    getEnv("SPACES_BUCKET", ""),
		},

		Middleware: defaultDevConfig(),
	}

	if os.Getenv("ENV") == "production" {
		cfg.Middleware = defaultProdConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ServerPort == "" {
		return errors.New("server port is required")
	}
	if c.ReadTimeout <= 0 {
		return errors.New("read timeout must be positive")
	}
	// Transcription requests are synchronous and may run for a long time, so
	// a zero write timeout (disabled) is allowed.
	if c.WriteTimeout < 0 {
		return errors.New("write timeout must not be negative")
	}
	if c.TranscribeTimeout < 0 {
		return errors.New("transcribe timeout must not be negative")
	}
	if c.MaxConcurrentJobs < 0 {
		return errors.New("max concurrent jobs must not be negative")
	}
	if c.TempDir == "" {
		return errors.New("temp directory is required")
	}
	if c.Whisper.Model == "" {
		return errors.New("whisper model is required")
	}
	switch c.Whisper.Backend {
	case "cli":
	case "openai":
		if c.Whisper.APIURL == "" && c.Whisper.APIKey == "" {
			return errors.New("openai backend requires WHISPER_API_BASE_URL or WHISPER_API_KEY")
		}
	default:
		return errors.Errorf("unknown whisper backend %q", c.Whisper.Backend)
	}
	if c.Spaces.Enabled() && (c.Spaces.AccessKey == "" || c.Spaces.SecretKey == "") {
		return errors.New("spaces bucket set without credentials")
	}
	if err := os.MkdirAll(c.TempDir, 0o755); err != nil {
		return errors.Wrap(err, "failed to create temp directory")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid duration, using default")
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid integer, using default")
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid boolean, using default")
	}
	return defaultValue
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists {
		if value = strings.TrimSpace(value); value != "" {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			return parts
		}
	}
	return defaultValue
}
