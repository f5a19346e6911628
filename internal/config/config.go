package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/joho/godotenv"
)

// EnvRecognizerKey holds the API key for the HTTP recognizer. It is never
// written to the config file.
const EnvRecognizerKey = "TUNETRAY_RECOGNIZER_KEY"

const (
	RecognizeCommand = "command"
	RecognizeHTTP    = "http"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	LogLevel        string          `json:"log_level"`
	Hotkey          string          `json:"hotkey"`
	HotkeyDarwin    string          `json:"hotkey_darwin"`
	Audio           AudioConfig     `json:"audio"`
	Recognize       RecognizeConfig `json:"recognize"`
	CopyToClipboard bool            `json:"copy_to_clipboard"`
	PollIntervalMs  int             `json:"poll_interval_ms"`
}

type AudioConfig struct {
	Backend        string `json:"backend"`          // "portaudio", "malgo"
	Device         string `json:"device"`           // "" or "Default" follows the host default
	Resolution     int    `json:"resolution"`       // ring buffer capacity in samples
	SampleRate     int    `json:"sample_rate"`      // preferred rate, clamped to the device range
	StartTimeoutMs int    `json:"start_timeout_ms"` // 0 waits indefinitely
}

type RecognizeConfig struct {
	Mode     string   `json:"mode"` // "command" or "http"
	Endpoint string   `json:"endpoint"`
	APIKey   string   `json:"-"`
	Command  []string `json:"command"`
	Seconds  int      `json:"seconds"`
	TempDir  string   `json:"temp_dir"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel:     "info",
		Hotkey:       "Ctrl+Shift+I",
		HotkeyDarwin: "Cmd+Shift+I",
		Audio: AudioConfig{
			Backend:        "portaudio",
			Device:         "",
			Resolution:     1024,
			SampleRate:     40000,
			StartTimeoutMs: 5000,
		},
		Recognize: RecognizeConfig{
			Mode:    RecognizeCommand,
			Seconds: 5,
		},
		CopyToClipboard: false,
		PollIntervalMs:  50,
	}
}

// Load reads the config from disk or returns defaults. A .env file next to
// the config is loaded into the environment first; variables already set
// take precedence.
func Load() (*Config, error) {
	return load(configPath())
}

func load(path string) (*Config, error) {
	cfg := Default()

	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	envFile := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}
	cfg.Recognize.APIKey = os.Getenv(EnvRecognizerKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	return c.save(configPath())
}

func (c *Config) save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks values that cannot be clamped to something sensible.
func (c *Config) Validate() error {
	switch c.Recognize.Mode {
	case RecognizeCommand:
	case RecognizeHTTP:
		if c.Recognize.Endpoint == "" {
			return fmt.Errorf("%w: recognize.endpoint is required in http mode", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown recognize.mode %q", ErrInvalidConfig, c.Recognize.Mode)
	}
	if c.Audio.Resolution < 0 {
		return fmt.Errorf("%w: audio.resolution must not be negative", ErrInvalidConfig)
	}
	return nil
}

// PlatformHotkey returns the appropriate hotkey for the current platform
func (c *Config) PlatformHotkey() string {
	if runtime.GOOS == "darwin" && c.HotkeyDarwin != "" {
		return c.HotkeyDarwin
	}
	return c.Hotkey
}

func (c *Config) PollInterval() time.Duration {
	if c.PollIntervalMs <= 0 {
		return 50 * time.Millisecond
	}
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

func (c *Config) StartTimeout() time.Duration {
	return time.Duration(max(c.Audio.StartTimeoutMs, 0)) * time.Millisecond
}

func (c *Config) CaptureDuration() time.Duration {
	return time.Duration(max(c.Recognize.Seconds, 0)) * time.Second
}

// Path returns the config file location.
func Path() string {
	return configPath()
}

// configPath returns the platform-specific config file path
func configPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, "tunetray", "config.json")
}
