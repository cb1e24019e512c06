package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIURL           string
	Timeout          time.Duration
	ProbeTimeout     time.Duration
	Port             string
	PersonaCount     int
	ProgressInterval time.Duration
	SettingsPath     string
	ReportsDir       string
	LogLevel         string
	PublicURL        string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; variables already set win.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads configuration from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		APIURL:       getEnv("INTERVIEW_API_URL", getEnv("NEXT_PUBLIC_API_URL", "http://localhost:8000")),
		Port:         getEnv("PORT", "8080"),
		SettingsPath: getEnv("SETTINGS_PATH", "settings.yaml"),
		ReportsDir:   getEnv("REPORTS_DIR", "reports"),
		LogLevel:     strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}
	cfg.PublicURL = getEnv("PUBLIC_URL", "http://localhost:"+cfg.Port)

	var err error
	if cfg.Timeout, err = getDuration("INTERVIEW_TIMEOUT", 300*time.Second); err != nil {
		return nil, err
	}
	if cfg.ProbeTimeout, err = getDuration("INTERVIEW_PROBE_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.ProgressInterval, err = getDuration("PROGRESS_INTERVAL", time.Second); err != nil {
		return nil, err
	}
	if cfg.PersonaCount, err = getInt("PERSONA_COUNT", 5); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getDuration accepts Go durations ("90s") or a plain number of seconds.
func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, raw)
	}
	return d, nil
}

func getInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q", key, raw)
	}
	return n, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("INTERVIEW_API_URL must be an http(s) URL, got %q", c.APIURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("INTERVIEW_TIMEOUT must be positive")
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("INTERVIEW_PROBE_TIMEOUT must be positive")
	}
	if c.ProgressInterval <= 0 {
		return fmt.Errorf("PROGRESS_INTERVAL must be positive")
	}
	if c.PersonaCount < 3 || c.PersonaCount > 20 {
		return fmt.Errorf("PERSONA_COUNT must be between 3 and 20, got %d", c.PersonaCount)
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("PORT must be a number, got %q", c.Port)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	return nil
}
