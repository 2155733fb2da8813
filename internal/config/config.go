// Package config provides persistent configuration for the prayer-times CLI.
//
// Configuration is stored as JSON at ~/.config/prayer-times/config.json
// (XDG-compliant). A .env file and PRAYER_TIMES_* environment variables are
// layered on top. The merge priority is: CLI flags > environment > config
// file > defaults.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/smokyabdulrahman/prayer-companion/internal/prayer"
)

const (
	configDirName  = "prayer-times"
	configFileName = "config.json"

	// EnvPrefix prefixes the upper-cased key names, e.g. PRAYER_TIMES_METHOD.
	EnvPrefix = "PRAYER_TIMES_"
)

// ValidKeys lists all config keys that can be set via `config set`.
var ValidKeys = []string{
	"latitude", "longitude",
	"method",
	"time_format",
	"cache_dir", "cache_size",
	"redis_addr",
	"mqtt_broker", "mqtt_topic", "notify_before",
	"listen_addr",
	"log_level",
}

// Config holds all user-configurable settings.
// Zero values mean "not set" (use defaults or auto-detect).
type Config struct {
	Latitude     *float64 `json:"latitude,omitempty"`  // pointer so the equator is not "unset"
	Longitude    *float64 `json:"longitude,omitempty"` // pointer so the meridian is not "unset"
	Method       *int     `json:"method,omitempty"`    // pointer so we can distinguish "not set" from 0
	TimeFormat   string   `json:"time_format,omitempty"`
	CacheDir     string   `json:"cache_dir,omitempty"`
	CacheSize    int      `json:"cache_size,omitempty"`
	RedisAddr    string   `json:"redis_addr,omitempty"`
	MQTTBroker   string   `json:"mqtt_broker,omitempty"`
	MQTTTopic    string   `json:"mqtt_topic,omitempty"`
	NotifyBefore *int     `json:"notify_before,omitempty"` // minutes
	ListenAddr   string   `json:"listen_addr,omitempty"`
	LogLevel     string   `json:"log_level,omitempty"`
}

// Defaults returns a Config with all default values applied.
func Defaults() Config {
	method := prayer.DefaultMethod
	notify := 15
	return Config{
		Method:       &method,
		TimeFormat:   "24h",
		CacheSize:    128,
		MQTTTopic:    "prayer-times/next",
		NotifyBefore: &notify,
		ListenAddr:   ":8080",
		LogLevel:     "info",
	}
}

// ApplyDefaults fills every unset field from Defaults.
func (c *Config) ApplyDefaults() {
	d := Defaults()
	if c.Method == nil {
		c.Method = d.Method
	}
	if c.TimeFormat == "" {
		c.TimeFormat = d.TimeFormat
	}
	if c.CacheSize == 0 {
		c.CacheSize = d.CacheSize
	}
	if c.MQTTTopic == "" {
		c.MQTTTopic = d.MQTTTopic
	}
	if c.NotifyBefore == nil {
		c.NotifyBefore = d.NotifyBefore
	}
	if c.ListenAddr == "" {
		c.ListenAddr = d.ListenAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

// Coordinates returns the configured location, or nil unless both
// latitude and longitude are set.
func (c *Config) Coordinates() *prayer.Coordinates {
	if c.Latitude == nil || c.Longitude == nil {
		return nil
	}
	return &prayer.Coordinates{Latitude: *c.Latitude, Longitude: *c.Longitude}
}

// Dir returns the config directory path.
// It respects $XDG_CONFIG_HOME if set, otherwise uses ~/.config/.
func Dir() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, configDirName), nil
}

// Path returns the full path to the config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Load reads the config file from disk.
// If the file does not exist, it returns an empty Config (not an error).
// If the file exists but is invalid JSON, it returns an error.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	return LoadFrom(path)
}

// LoadFrom reads the config from a specific file path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Config{}
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return &cfg, nil
}

// LoadDotEnv reads KEY=VALUE pairs from the given files (".env" when none
// are named) into the process environment. Variables that are already set
// win, and missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// EnvName returns the environment variable that overrides key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(key)
}

// ApplyEnv overlays PRAYER_TIMES_* variables onto c. Every key is
// validated exactly like `config set`; all failures are reported together.
func (c *Config) ApplyEnv() error {
	var errs []error
	for _, key := range ValidKeys {
		name := EnvName(key)
		v := strings.TrimSpace(os.Getenv(name))
		if v == "" {
			continue
		}
		if err := c.Set(key, v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Save writes the config to disk, creating the directory if needed.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}

	return c.SaveTo(path)
}

// SaveTo writes the config to a specific file path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Reset deletes the config file.
func Reset() error {
	path, err := Path()
	if err != nil {
		return err
	}

	return ResetAt(path)
}

// ResetAt deletes the config file at a specific path.
func ResetAt(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete config file: %w", err)
	}
	return nil
}

// Set sets a config key to the given value.
// It validates the key name and parses the value into the correct type.
func (c *Config) Set(key, value string) error {
	switch key {
	case "latitude":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid latitude %q: must be a number", value)
		}
		if v < -90 || v > 90 {
			return fmt.Errorf("invalid latitude %q: must be between -90 and 90", value)
		}
		c.Latitude = &v
	case "longitude":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid longitude %q: must be a number", value)
		}
		if v < -180 || v > 180 {
			return fmt.Errorf("invalid longitude %q: must be between -180 and 180", value)
		}
		c.Longitude = &v
	case "method":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid method %q: must be an integer", value)
		}
		if v < prayer.MinMethod || v > prayer.MaxMethod {
			return fmt.Errorf("invalid method %q: must be between %d and %d", value, prayer.MinMethod, prayer.MaxMethod)
		}
		c.Method = &v
	case "time_format":
		if value != "12h" && value != "24h" {
			return fmt.Errorf("invalid time_format %q: must be \"12h\" or \"24h\"", value)
		}
		c.TimeFormat = value
	case "cache_dir":
		c.CacheDir = value
	case "cache_size":
		v, err := strconv.Atoi(value)
		if err != nil || v <= 0 {
			return fmt.Errorf("invalid cache_size %q: must be a positive integer", value)
		}
		c.CacheSize = v
	case "redis_addr":
		c.RedisAddr = value
	case "mqtt_broker":
		c.MQTTBroker = value
	case "mqtt_topic":
		if strings.ContainsAny(value, "#+") {
			return fmt.Errorf("invalid mqtt_topic %q: wildcards are not allowed when publishing", value)
		}
		c.MQTTTopic = value
	case "notify_before":
		v, err := strconv.Atoi(value)
		if err != nil || v < 0 {
			return fmt.Errorf("invalid notify_before %q: must be a non-negative number of minutes", value)
		}
		c.NotifyBefore = &v
	case "listen_addr":
		c.ListenAddr = value
	case "log_level":
		switch strings.ToLower(value) {
		case "debug", "info", "warn", "warning", "error", "disabled", "off":
		default:
			return fmt.Errorf("invalid log_level %q: must be debug, info, warn, error or off", value)
		}
		c.LogLevel = strings.ToLower(value)
	default:
		return fmt.Errorf("unknown config key %q; valid keys: %s", key, strings.Join(ValidKeys, ", "))
	}

	return nil
}

// Get returns the string value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "latitude":
		return formatFloat(c.Latitude), nil
	case "longitude":
		return formatFloat(c.Longitude), nil
	case "method":
		return formatInt(c.Method), nil
	case "time_format":
		return c.TimeFormat, nil
	case "cache_dir":
		return c.CacheDir, nil
	case "cache_size":
		if c.CacheSize == 0 {
			return "", nil
		}
		return strconv.Itoa(c.CacheSize), nil
	case "redis_addr":
		return c.RedisAddr, nil
	case "mqtt_broker":
		return c.MQTTBroker, nil
	case "mqtt_topic":
		return c.MQTTTopic, nil
	case "notify_before":
		return formatInt(c.NotifyBefore), nil
	case "listen_addr":
		return c.ListenAddr, nil
	case "log_level":
		return c.LogLevel, nil
	default:
		return "", fmt.Errorf("unknown config key %q", key)
	}
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// MethodOrDefault returns the method value, falling back to the given default.
func (c *Config) MethodOrDefault(def int) int {
	if c.Method != nil {
		return *c.Method
	}
	return def
}
