// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Flat koanf keys; env vars use the CALMATE_ prefix with the same names.
// - Provide New() to build a Config with defaults.
// - Validation errors wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // time_zone must resolve in images without zoneinfo

	"github.com/okian/calmate/internal/domain/window"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// TimeZone is the IANA zone calendar days and working hours are computed in.
	TimeZone string `koanf:"time_zone"`

	// WorkStart and WorkEnd bound the default working hours (HH:MM).
	WorkStart string `koanf:"work_start"`
	WorkEnd   string `koanf:"work_end"`

	// Google OAuth client used to refresh stored credentials.
	GoogleClientID     string `koanf:"google_client_id"`
	GoogleClientSecret string `koanf:"google_client_secret"`
	GoogleRedirectURL  string `koanf:"google_redirect_url"`
	// GoogleTokenURL overrides the token endpoint; empty uses Google's.
	GoogleTokenURL string `koanf:"google_token_url"`

	// CalendarEndpoint overrides the Calendar API base URL; empty uses Google's.
	CalendarEndpoint string `koanf:"calendar_endpoint"`
	// TokenInfoEndpoint overrides the OAuth2 token-info base URL.
	TokenInfoEndpoint string `koanf:"tokeninfo_endpoint"`
	// CheckTokenScope enables the token-info scope check in token status.
	CheckTokenScope bool `koanf:"check_token_scope"`

	// LLM connection.
	LLMAPIKey      string  `koanf:"llm_api_key"`
	LLMBaseURL     string  `koanf:"llm_base_url"`
	LLMModel       string  `koanf:"llm_model"`
	LLMTemperature float32 `koanf:"llm_temperature"`

	// DBPath is the sqlite file holding sessions and linked credentials.
	DBPath string `koanf:"db_path"`

	// RequestTimeoutMS bounds each API request, upstream calls included.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// SessionPurgeIntervalMS sets how often expired sessions are deleted.
	SessionPurgeIntervalMS int `koanf:"session_purge_interval_ms"`

	// MaxToolRounds bounds the tool-call rounds of one chat turn.
	MaxToolRounds int `koanf:"max_tool_rounds"`

	// AssistantName is how the assistant introduces itself.
	AssistantName string `koanf:"assistant_name"`

	// SlotScoreBase and SlotHourAdjustments configure meeting slot scoring.
	// Adjustment keys are hours ("9") or inclusive ranges ("10-11"); keys
	// from a config file are merged over the defaults.
	SlotScoreBase       int            `koanf:"slot_score_base"`
	SlotHourAdjustments map[string]int `koanf:"slot_hour_adjustments"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		LogFormat:              "text",
		Addr:                   ":9080",
		TimeZone:               "UTC",
		WorkStart:              "09:00",
		WorkEnd:                "17:00",
		GoogleRedirectURL:      "http://localhost:9080/auth/callback",
		CheckTokenScope:        true,
		LLMBaseURL:             "https://generativelanguage.googleapis.com/v1beta/openai",
		LLMModel:               "gemini-2.5-flash",
		LLMTemperature:         0.3,
		DBPath:                 "calmate.db",
		RequestTimeoutMS:       30_000,
		SessionPurgeIntervalMS: 600_000,
		MaxToolRounds:          3,
		AssistantName:          "Calmate",
		SlotScoreBase:          100,
		SlotHourAdjustments: map[string]int{
			"0-8":   -20,
			"10-11": 10,
			"14-15": 5,
			"17-23": -20,
		},
	}
}

// Location resolves TimeZone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("%w: time_zone %q: %v", ErrInvalidConfig, c.TimeZone, err)
	}
	return loc, nil
}

// Hours parses the default working hours.
func (c *Config) Hours() (window.Hours, error) {
	h, err := window.ParseHours(c.WorkStart, c.WorkEnd)
	if err != nil {
		return window.Hours{}, fmt.Errorf("%w: working hours: %v", ErrInvalidConfig, err)
	}
	return h, nil
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// SessionPurgeInterval returns SessionPurgeIntervalMS as a duration.
func (c *Config) SessionPurgeInterval() time.Duration {
	return time.Duration(c.SessionPurgeIntervalMS) * time.Millisecond
}

// Validate checks the values every command needs.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.Hours(); err != nil {
		return err
	}
	if c.RequestTimeoutMS <= 0 {
		return fmt.Errorf("%w: request_timeout_ms must be positive", ErrInvalidConfig)
	}
	if c.MaxToolRounds <= 0 {
		return fmt.Errorf("%w: max_tool_rounds must be positive", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.DBPath) == "" {
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	}
	return nil
}

// RequireCredentials checks the secrets the server cannot run without.
func (c *Config) RequireCredentials() error {
	var missing []string
	if c.GoogleClientID == "" {
		missing = append(missing, "google_client_id")
	}
	if c.GoogleClientSecret == "" {
		missing = append(missing, "google_client_secret")
	}
	if c.LLMAPIKey == "" {
		missing = append(missing, "llm_api_key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}
