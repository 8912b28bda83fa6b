package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// AppName names the per-user config, data and state directories.
const AppName = "reading-gen"

// Config is the bootstrap configuration read before the database is opened.
// The generation settings themselves live in the database.
type Config struct {
	Anki   AnkiConfig   `json:"anki"`
	Data   DataConfig   `json:"data"`
	Cache  CacheConfig  `json:"cache"`
	UI     UIConfig     `json:"ui"`
	Export ExportConfig `json:"export"`
	Debug  bool         `json:"debug"`
}

// AnkiConfig points at the AnkiConnect endpoint
type AnkiConfig struct {
	URL         string   `json:"url"`
	CORSOrigins []string `json:"cors_origins"`
}

// DataConfig represents data storage configuration
type DataConfig struct {
	DBPath string `json:"db_path"`
	LogDir string `json:"log_dir,omitempty"`
}

// CacheConfig selects how article cache keys are derived
type CacheConfig struct {
	KeyPolicy string `json:"key_policy"` // "signature" or "content"
}

// UIConfig represents UI configuration
type UIConfig struct {
	Theme        string `json:"theme"`
	FontSize     int    `json:"font_size"`
	WindowWidth  int    `json:"window_width"`
	WindowHeight int    `json:"window_height"`

	MinimizeToTray bool `json:"minimize_to_tray"`
}

// ExportConfig sets where saved articles go by default
type ExportConfig struct {
	Dir string `json:"dir"`
}

// DefaultConfig returns the bootstrap configuration written on first run
func DefaultConfig() *Config {
	return &Config{
		Anki: AnkiConfig{
			URL:         "http://127.0.0.1:8765",
			CORSOrigins: []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		},
		Data: DataConfig{
			DBPath: filepath.Join(xdg.DataHome, AppName, "reading.db"),
		},
		Cache: CacheConfig{KeyPolicy: "signature"},
		UI: UIConfig{
			Theme:        "light",
			FontSize:     15,
			WindowWidth:  900,
			WindowHeight: 700,
		},
		Export: ExportConfig{
			Dir: xdg.UserDirs.Documents,
		},
	}
}

// LoadConfig loads configuration from file
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Expand paths
	config.Data.DBPath = expandPath(config.Data.DBPath)
	config.Data.LogDir = expandPath(config.Data.LogDir)
	config.Export.Dir = expandPath(config.Export.Dir)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the values that would otherwise fail much later
func (c *Config) Validate() error {
	if c.Data.DBPath == "" {
		return errors.New("config: data.db_path is required")
	}
	u, err := url.Parse(c.Anki.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: anki.url must be an http(s) URL, got %q", c.Anki.URL)
	}
	switch c.Cache.KeyPolicy {
	case "", "signature", "content":
	default:
		return fmt.Errorf("config: unknown cache.key_policy %q (valid: signature, content)", c.Cache.KeyPolicy)
	}
	return nil
}

// SaveConfig saves configuration to file
func SaveConfig(configPath string, config *Config) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// expandPath expands ~ and relative paths
func expandPath(path string) string {
	if len(path) == 0 {
		return path
	}

	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[1:])
		}
	}

	absPath, err := filepath.Abs(path)
	if err == nil {
		return absPath
	}

	return path
}

// GetConfigPath returns the default config path
func GetConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.json")
}

// EnsureDefaultConfig creates a default config file at configPath if it
// doesn't exist. An empty configPath means GetConfigPath.
func EnsureDefaultConfig(configPath string) (string, error) {
	if configPath == "" {
		configPath = GetConfigPath()
	}

	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	}

	if err := SaveConfig(configPath, DefaultConfig()); err != nil {
		return "", err
	}

	return configPath, nil
}
