// Package config handles loading and validating the studybuddy configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingAPIKey is returned when no OpenAI credential can be resolved.
// Startup must not proceed without it.
var ErrMissingAPIKey = errors.New("missing API key: set llm.api_key in config.yaml or the OPENAI_API_KEY environment variable")

// Config holds the application configuration.
type Config struct {
	LLM     LLMConfig     `mapstructure:"llm"`
	Audio   AudioConfig   `mapstructure:"audio"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// LLMConfig holds the chat model configuration.
type LLMConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`
}

// AudioConfig holds speech-to-text and text-to-speech settings.
type AudioConfig struct {
	TranscriptionModel string  `mapstructure:"transcription_model"`
	Language           string  `mapstructure:"language"` // ISO-639-1 hint for transcription
	SpeechModel        string  `mapstructure:"speech_model"`
	Voice              string  `mapstructure:"voice"`
	Speed              float64 `mapstructure:"speed"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise config.yaml is
// searched in the working directory. A .env file, when present, is loaded
// into the process environment first so credentials can live there.
func Load(configFile string) (*Config, error) {
	// Optional .env file; absence is fine.
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("llm.api_key", "${OPENAI_API_KEY}")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("audio.transcription_model", "whisper-1")
	v.SetDefault("audio.language", "en")
	v.SetDefault("audio.speech_model", "tts-1")
	v.SetDefault("audio.voice", "alloy")
	v.SetDefault("audio.speed", 1.0)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment variables: STUDYBUDDY_LLM_MODEL, STUDYBUDDY_SERVER_PORT, etc.
	v.SetEnvPrefix("STUDYBUDDY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.LLM.APIKey = resolveEnvRef(cfg.LLM.APIKey)
	if cfg.LLM.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	return &cfg, nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		return os.Getenv(val[2 : len(val)-1])
	}
	return val
}
