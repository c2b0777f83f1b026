// Package config loads Note Garden settings from YAML.
//
// Lookup order when no path is given:
//  1. $NOTEGARDEN_CONFIG
//  2. ./notegarden.yaml
//  3. ~/.config/notegarden/config.yaml
//
// A missing file is not an error; defaults apply.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/olivierh59500/note-garden-go/garden"
)

// Config is the full application configuration
type Config struct {
	Garden garden.Config `yaml:"garden"`
	Window WindowConfig  `yaml:"window"`
	Audio  AudioConfig   `yaml:"audio"`
	Relay  RelayConfig   `yaml:"relay"`
}

// WindowConfig controls the ebiten window
type WindowConfig struct {
	Title string `yaml:"title"`
	Scale int    `yaml:"scale"`
	TPS   int    `yaml:"tps"`
	Theme string `yaml:"theme"` // light, dark or hidden
}

// AudioConfig controls note synthesis
type AudioConfig struct {
	Enabled      bool          `yaml:"enabled"`
	SampleRate   int           `yaml:"sample_rate"`
	NoteDuration time.Duration `yaml:"note_duration"`
	CueNote      time.Duration `yaml:"cue_note"` // Length of each note of the cue scale
	Volume       float64       `yaml:"volume"`
}

// RelayConfig controls node sync with other devices
type RelayConfig struct {
	Listen  string        `yaml:"listen"` // Empty disables the hub
	Peers   []string      `yaml:"peers"`
	Tag     string        `yaml:"tag"`
	Backoff time.Duration `yaml:"backoff"`
}

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid config")

// Default returns the configuration used when no file exists
func Default() *Config {
	return &Config{
		Garden: garden.DefaultConfig(),
		Window: WindowConfig{
			Title: "Note Garden",
			Scale: 1,
			TPS:   100,
			Theme: "light",
		},
		Audio: AudioConfig{
			Enabled:      true,
			SampleRate:   44100,
			NoteDuration: 600 * time.Millisecond,
			CueNote:      120 * time.Millisecond,
			Volume:       0.5,
		},
		Relay: RelayConfig{
			Backoff: 2 * time.Second,
		},
	}
}

// Load reads the file at path, or the first file found in the lookup
// order when path is empty. Returns the path actually used.
func Load(path string) (*Config, string, error) {
	if path == "" {
		path = FindPath()
	}
	if path == "" {
		return Default(), "", nil
	}
	cfg, err := LoadFromPath(path)
	return cfg, path, err
}

// LoadFromPath reads and validates a specific file
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults, so a file only needs the keys it changes
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML, creating the directory if needed
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks every section
func (c *Config) Validate() error {
	if err := c.Garden.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	switch c.Window.Theme {
	case "light", "dark", "hidden":
	default:
		return fmt.Errorf("%w: unknown theme %q", ErrInvalid, c.Window.Theme)
	}
	if c.Window.Scale < 1 {
		return fmt.Errorf("%w: window scale %d", ErrInvalid, c.Window.Scale)
	}
	if c.Window.TPS < 1 {
		return fmt.Errorf("%w: tps %d", ErrInvalid, c.Window.TPS)
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalid, c.Audio.SampleRate)
	}
	if c.Audio.NoteDuration <= 0 || c.Audio.CueNote <= 0 {
		return fmt.Errorf("%w: note durations must be positive", ErrInvalid)
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 1 {
		return fmt.Errorf("%w: volume %v", ErrInvalid, c.Audio.Volume)
	}
	if c.Relay.Backoff <= 0 {
		return fmt.Errorf("%w: relay backoff must be positive", ErrInvalid)
	}
	return nil
}

// FindPath returns the first existing config file in the lookup order, or ""
func FindPath() string {
	candidates := []string{os.Getenv("NOTEGARDEN_CONFIG"), "notegarden.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "notegarden", "config.yaml"))
	}
	for _, p := range candidates {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
