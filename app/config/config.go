package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

const defaultPath = "config.yaml"

type Config struct {
	Log       Log       `yaml:"log"`
	Server    Server    `yaml:"server"`
	Session   Session   `yaml:"session"`
	Trigger   Trigger   `yaml:"trigger"`
	OpenAI    OpenAI    `yaml:"openai"`
	Geocoding Geocoding `yaml:"geocoding"`
	Weather   Weather   `yaml:"weather"`
}

type Log struct {
	// Minimal level written to the console
	Level string `yaml:"level" example:"info" validate:"oneof=debug info warn error"`
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

type Server struct {
	// Address the webhook server listens on
	Addr string `yaml:"addr" example:"0.0.0.0:5000" validate:"required"`
	// Read timeout of inbound requests
	ReadTimeout time.Duration `yaml:"read_timeout" example:"10s"`
	// Write timeout of inbound requests, must cover the outbound provider calls
	WriteTimeout time.Duration `yaml:"write_timeout" example:"2m"`
}

type Session struct {
	// Sessions idle for longer than this are dropped
	Retention time.Duration `yaml:"retention" example:"1h" validate:"gt=0"`
	// Minimal interval between two expiry sweeps
	SweepInterval time.Duration `yaml:"sweep_interval" example:"5m" validate:"gt=0"`
}

type Trigger struct {
	// Complete wake phrases
	WakePhrases []string `yaml:"wake_phrases" example:"hey omi" validate:"required,min=1,dive,required"`
	// First half of a wake phrase, matched at the end of a segment
	FirstHalves []string `yaml:"first_halves" example:"hey" validate:"dive,required"`
	// Second half of a wake phrase, matched anywhere in the following segment
	SecondHalves []string `yaml:"second_halves" example:"omi" validate:"dive,required"`
	// Text after the last occurrence of the delimiter in a trigger segment is collected
	Delimiter string `yaml:"delimiter" example:"omi,"`
	// Time allowed between the two halves of a wake phrase
	PartialWindow time.Duration `yaml:"partial_window" example:"2s" validate:"gt=0"`
	// Time after the trigger during which segments are collected
	AggregationWindow time.Duration `yaml:"aggregation_window" example:"5s" validate:"gt=0"`
	// Collection is force closed after AggregationWindow * ForcedClosureFactor
	ForcedClosureFactor float64 `yaml:"forced_closure_factor" example:"1.5" validate:"gte=1"`
	// Duplicate trigger deliveries within this interval are ignored
	Cooldown time.Duration `yaml:"cooldown" example:"10s" validate:"gte=0"`
}

type OpenAI struct {
	// OpenAI base url
	BaseURL string `yaml:"base_url" example:"https://api.openai.com/v1" validate:"required"`
	// OpenAI token
	Token string `yaml:"token" example:"sk-proj-abc123456789DEF789ghi012JKL345mno678PQR901stu234VWX" validate:"required"`
	// OpenAI model
	Model string `yaml:"model" example:"gpt-4" validate:"required"`
	// Proxy url for the OpenAI client
	Proxy string `yaml:"proxy" example:"http://proxy.local:3128" validate:"omitempty,url"`
	// Single request timeout
	Timeout time.Duration `yaml:"timeout" example:"30s" validate:"gt=0"`
	// Retry policy of completion calls
	Retry Retry `yaml:"retry"`
}

type Retry struct {
	// Total number of attempts, including the first one
	Attempts int `yaml:"attempts" example:"3" validate:"gte=1"`
	// First backoff delay
	MinWait time.Duration `yaml:"min_wait" example:"4s"`
	// Backoff delay cap
	MaxWait time.Duration `yaml:"max_wait" example:"10s"`
}

type Geocoding struct {
	// Google Geocoding API base url
	BaseURL string `yaml:"base_url" example:"https://maps.googleapis.com" validate:"required,url"`
	// Google Geocoding API key
	APIKey string `yaml:"api_key" validate:"required"`
	// Request timeout
	Timeout time.Duration `yaml:"timeout" example:"10s" validate:"gt=0"`
}

type Weather struct {
	// OpenWeatherMap API base url
	BaseURL string `yaml:"base_url" example:"https://api.openweathermap.org" validate:"required,url"`
	// OpenWeatherMap API key
	APIKey string `yaml:"api_key" validate:"required"`
	// Request timeout
	Timeout time.Duration `yaml:"timeout" example:"10s" validate:"gt=0"`
}

// Default returns a config with every optional field set. Secrets stay empty.
func Default() *Config {
	return &Config{
		Log: Log{
			Level: "debug",
		},
		Server: Server{
			Addr:         "0.0.0.0:5000",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 2 * time.Minute,
		},
		Session: Session{
			Retention:     time.Hour,
			SweepInterval: 5 * time.Minute,
		},
		Trigger: Trigger{
			WakePhrases:         []string{"hey omi", "hey, omi"},
			FirstHalves:         []string{"hey", "hey,"},
			SecondHalves:        []string{"omi"},
			Delimiter:           "omi,",
			PartialWindow:       2 * time.Second,
			AggregationWindow:   5 * time.Second,
			ForcedClosureFactor: 1.5,
			Cooldown:            10 * time.Second,
		},
		OpenAI: OpenAI{
			BaseURL: "https://api.openai.com/v1",
			Model:   "gpt-4",
			Timeout: 30 * time.Second,
			Retry: Retry{
				Attempts: 3,
				MinWait:  4 * time.Second,
				MaxWait:  10 * time.Second,
			},
		},
		Geocoding: Geocoding{
			BaseURL: "https://maps.googleapis.com",
			Timeout: 10 * time.Second,
		},
		Weather: Weather{
			BaseURL: "https://api.openweathermap.org",
			Timeout: 10 * time.Second,
		},
	}
}

// Load reads .env, then the YAML file named by CONFIG_PATH (config.yaml by default).
// A missing YAML file is not an error: defaults and environment are used instead.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, oops.Errorf("failed to load .env file: %w", err)
	}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultPath
	}

	return LoadFile(path)
}

func LoadFile(path string) (*Config, error) {
	result := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, oops.Errorf("failed to read config file: %w", err)
	default:
		if err = yaml.Unmarshal(data, result); err != nil {
			return nil, oops.Errorf("failed to parse YAML config: %w", err)
		}
	}

	applyEnv(result)

	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterStructValidation(validateRetention, Config{})
	if err = validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return result, nil
}

// validateRetention keeps session records, and with them cooldown entries, alive for at least
// the cooldown window.
func validateRetention(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(Config)
	if cfg.Session.Retention < cfg.Trigger.Cooldown {
		sl.ReportError(cfg.Session.Retention, "Session.Retention", "Retention", "gtefield", "Trigger.Cooldown")
	}
}

func applyEnv(cfg *Config) {
	overrides := []struct {
		key    string
		target *string
	}{
		{"OPENAI_API_KEY", &cfg.OpenAI.Token},
		{"OPENAI_BASE_URL", &cfg.OpenAI.BaseURL},
		{"HTTPS_PROXY", &cfg.OpenAI.Proxy},
		{"GOOGLE_GEOCODING_API_KEY", &cfg.Geocoding.APIKey},
		{"OPENWEATHER_API_KEY", &cfg.Weather.APIKey},
		{"LISTEN_ADDR", &cfg.Server.Addr},
	}

	for _, o := range overrides {
		if value := os.Getenv(o.key); value != "" {
			*o.target = value
		}
	}
}
