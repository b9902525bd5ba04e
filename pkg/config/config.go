package config

import (
	"log"
	"os"

	"github.com/heartline-cc/HeartLine/pkg/logger"
	"github.com/heartline-cc/HeartLine/pkg/utils"
	"github.com/spf13/cast"
)

// Config holds every runtime setting. All values have defaults so the server
// starts without a .env file.
type Config struct {
	ServerName string `env:"SERVER_NAME"`
	Addr       string `env:"ADDR"`
	Mode       string `env:"MODE"`

	DBDriver string `env:"DB_DRIVER"`
	DSN      string `env:"DSN"`

	APIPrefix     string `env:"API_PREFIX"`
	VoicePrefix   string `env:"VOICE_PREFIX"`
	MonitorPrefix string `env:"MONITOR_PREFIX"`

	Log logger.LogConfig

	// Completion service (OpenAI-compatible API)
	LLMApiKey         string `env:"LLM_API_KEY"`
	LLMBaseURL        string `env:"LLM_BASE_URL"`
	LLMModel          string `env:"LLM_MODEL"`
	LLMTimeoutSeconds int    `env:"LLM_TIMEOUT_SECONDS"`

	// Voice response settings
	VoiceName     string `env:"VOICE_NAME"`
	VoiceLanguage string `env:"VOICE_LANGUAGE"`

	// Spoken fallback when no counselor is available
	EmergencyMessage string `env:"EMERGENCY_MESSAGE"`

	// Stale call sweeper
	SweepSchedule   string `env:"SWEEP_SCHEDULE"`
	StaleCallMaxMin int    `env:"STALE_CALL_MAX_MINUTES"`
}

var GlobalConfig *Config

// Load reads the .env file for APP_ENV (optional) and builds GlobalConfig.
func Load() error {
	env := os.Getenv("APP_ENV")
	if err := utils.LoadEnv(env); err != nil {
		log.Printf("Note: .env file not found or failed to load: %v (using default values)", err)
	}

	GlobalConfig = &Config{
		ServerName:    getStringOrDefault("SERVER_NAME", "HeartLine"),
		Addr:          getStringOrDefault("ADDR", ":7080"),
		Mode:          getStringOrDefault("MODE", "development"),
		DBDriver:      getStringOrDefault("DB_DRIVER", "sqlite"),
		DSN:           getStringOrDefault("DSN", "./heartline.db"),
		APIPrefix:     getStringOrDefault("API_PREFIX", "/api"),
		VoicePrefix:   getStringOrDefault("VOICE_PREFIX", "/voice"),
		MonitorPrefix: getStringOrDefault("MONITOR_PREFIX", "/metrics"),
		Log: logger.LogConfig{
			Level:      getStringOrDefault("LOG_LEVEL", "info"),
			Filename:   getStringOrDefault("LOG_FILENAME", "./logs/app.log"),
			MaxSize:    getIntOrDefault("LOG_MAX_SIZE", 100),
			MaxAge:     getIntOrDefault("LOG_MAX_AGE", 30),
			MaxBackups: getIntOrDefault("LOG_MAX_BACKUPS", 5),
			Daily:      getBoolOrDefault("LOG_DAILY", true),
		},
		LLMApiKey:         getStringOrDefault("LLM_API_KEY", ""),
		LLMBaseURL:        getStringOrDefault("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMModel:          getStringOrDefault("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeoutSeconds: getIntOrDefault("LLM_TIMEOUT_SECONDS", 10),
		VoiceName:         getStringOrDefault("VOICE_NAME", "alice"),
		VoiceLanguage:     getStringOrDefault("VOICE_LANGUAGE", "en-US"),
		EmergencyMessage: getStringOrDefault("EMERGENCY_MESSAGE",
			"All of our counselors are busy right now. If this is an emergency, please hang up and call your local emergency number."),
		SweepSchedule:   getStringOrDefault("SWEEP_SCHEDULE", "@every 5m"),
		StaleCallMaxMin: getIntOrDefault("STALE_CALL_MAX_MINUTES", 120),
	}
	return nil
}

func getStringOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		return cast.ToInt(v)
	}
	return def
}

func getBoolOrDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return cast.ToBool(v)
	}
	return def
}
