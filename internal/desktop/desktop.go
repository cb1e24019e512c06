// Package desktop provides what a desktop shell offers the wizard: version
// information, persisted settings and saving reports to disk.
package desktop

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Version is set at build time with -ldflags "-X ...desktop.Version=v1.2.3".
var Version = "dev"

type VersionInfo struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func Info() VersionInfo {
	return VersionInfo{
		Version:   Version,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

type Settings struct {
	APIURL       string `json:"api_url,omitempty" yaml:"api_url,omitempty"`
	PersonaCount int    `json:"persona_count,omitempty" yaml:"persona_count,omitempty"`
	ReportsDir   string `json:"reports_dir,omitempty" yaml:"reports_dir,omitempty"`
	// Theme is "auto", "light" or "dark".
	Theme string `json:"theme,omitempty" yaml:"theme,omitempty"`
}

func (s Settings) Validate() error {
	switch s.Theme {
	case "", "auto", "light", "dark":
	default:
		return fmt.Errorf("unknown theme %q", s.Theme)
	}
	if s.PersonaCount != 0 && (s.PersonaCount < 3 || s.PersonaCount > 20) {
		return fmt.Errorf("persona count must be between 3 and 20, got %d", s.PersonaCount)
	}
	if s.APIURL != "" && !strings.HasPrefix(s.APIURL, "http://") && !strings.HasPrefix(s.APIURL, "https://") {
		return fmt.Errorf("api url must start with http:// or https://, got %q", s.APIURL)
	}
	return nil
}

// Store keeps Settings in a YAML file.
type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Load returns the saved settings, or zero Settings if nothing was saved.
func (s *Store) Load() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Settings{}, nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read settings: %w", err)
	}
	var out Settings
	if err := yaml.Unmarshal(data, &out); err != nil {
		return Settings{}, fmt.Errorf("failed to parse settings %s: %w", s.path, err)
	}
	return out, nil
}

// Save validates and writes settings, replacing the file atomically.
func (s *Store) Save(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create settings directory: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace settings: %w", err)
	}
	return nil
}

var unsafeChars = regexp.MustCompile(`[^\p{L}\p{N}._-]+`)

// ReportFilename is report_<topic>_<YYYY-MM-DD>.md with the topic made safe
// for file names.
func ReportFilename(topic string, date time.Time) string {
	safe := strings.Trim(unsafeChars.ReplaceAllString(strings.TrimSpace(topic), "_"), "_.")
	if safe == "" {
		safe = "untitled"
	}
	return fmt.Sprintf("report_%s_%s.md", safe, date.Format("2006-01-02"))
}

// SaveReport writes content into dir and returns the file path.
func SaveReport(dir, topic, content string, now time.Time) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", errors.New("report is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}
	path := filepath.Join(dir, ReportFilename(topic, now))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}
	return path, nil
}
