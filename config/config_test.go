package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("READ_TIMEOUT", "10s")
	t.Setenv("WRITE_TIMEOUT", "20s")
	t.Setenv("IDLE_TIMEOUT", "30s")
	t.Setenv("TRANSCRIBE_TIMEOUT", "5m")
	t.Setenv("MAX_CONCURRENT_JOBS", "4")
	t.Setenv("TEMP_DIR", tempDir)
	t.Setenv("WHISPER_MODEL", "small.en")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("PREFER_SUBTITLES", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, 10*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 20*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 30*time.Second, cfg.IdleTimeout)
	assert.Equal(t, 5*time.Minute, cfg.TranscribeTimeout)
	assert.Equal(t, 4, cfg.MaxConcurrentJobs)
	assert.Equal(t, tempDir, cfg.TempDir)
	assert.Equal(t, "small.en", cfg.Whisper.Model)
	assert.Equal(t, "cli", cfg.Whisper.Backend)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.False(t, cfg.Middleware.EnableRateLimit)
	assert.True(t, cfg.Fetcher.PreferSubtitles)
	assert.Equal(t, "en.*,en", cfg.Fetcher.SubtitleLangs)
}

func TestLoadConfig_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("TEMP_DIR", t.TempDir())
	t.Setenv("READ_TIMEOUT", "soon")
	t.Setenv("MAX_CONCURRENT_JOBS", "many")
	t.Setenv("DEBUG", "perhaps")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 2, cfg.MaxConcurrentJobs)
	assert.False(t, cfg.Debug)
}

func TestLoadConfig_Production(t *testing.T) {
	t.Setenv("TEMP_DIR", t.TempDir())
	t.Setenv("ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Middleware.EnableRateLimit)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			ServerPort:  "8003",
			ReadTimeout: time.Second,
			TempDir:     t.TempDir(),
			Whisper:     WhisperConfig{Backend: "cli", Model: "base"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing port", func(c *Config) { c.ServerPort = "" }, "server port is required"},
		{"zero read timeout", func(c *Config) { c.ReadTimeout = 0 }, "read timeout must be positive"},
		{"negative jobs", func(c *Config) { c.MaxConcurrentJobs = -1 }, "max concurrent jobs must not be negative"},
		{"missing model", func(c *Config) { c.Whisper.Model = "" }, "whisper model is required"},
		{"unknown backend", func(c *Config) { c.Whisper.Backend = "vosk" }, `unknown whisper backend "vosk"`},
		{"openai without endpoint", func(c *Config) { c.Whisper.Backend = "openai" }, "openai backend requires"},
		{"spaces without credentials", func(c *Config) { c.Spaces.Bucket = "transcripts" }, "spaces bucket set without credentials"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
