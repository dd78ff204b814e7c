package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/joho/godotenv"
)

// Roles the backend knows how to prompt for.
var Roles = []string{"general", "coder", "translator", "pm", "scholar"}

const (
	DefaultRole           = "general"
	DefaultTypingInterval = 30 // milliseconds per revealed character
)

type Profile struct {
	BaseURL          string `json:"base_url"`
	Role             string `json:"role,omitempty"`
	TypingIntervalMs int    `json:"typing_interval_ms,omitempty"`
	RequestTimeoutS  int    `json:"request_timeout_s,omitempty"`
}

type Config struct {
	Profiles       map[string]Profile `json:"profiles"`
	ActiveProfile  string             `json:"active_profile"`
	currentProfile *Profile
}

func LoadConfig() (*Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	configPath, err := getConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}

	// Ensure config directory exists
	if err := ensureConfigDir(configPath); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	// Load existing config or create default
	config, err := loadConfigFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Validate and set current profile
	if err := config.setCurrentProfile(); err != nil {
		return nil, fmt.Errorf("failed to set current profile: %w", err)
	}

	config.applyEnv()
	return config, nil
}

func (c *Config) IsValid() bool {
	return c.currentProfile != nil && c.currentProfile.BaseURL != ""
}

func (c *Config) GetBaseURL() string {
	if c.currentProfile == nil {
		return ""
	}
	return c.currentProfile.BaseURL
}

func (c *Config) GetRole() string {
	if c.currentProfile == nil || c.currentProfile.Role == "" {
		return DefaultRole
	}
	return c.currentProfile.Role
}

// SetRole overrides the role for this run without saving it.
func (c *Config) SetRole(role string) error {
	if !IsKnownRole(role) {
		return fmt.Errorf("unknown role %q (known: %v)", role, Roles)
	}
	if c.currentProfile == nil {
		c.currentProfile = &Profile{}
	}
	c.currentProfile.Role = role
	return nil
}

func (c *Config) GetTypingInterval() time.Duration {
	ms := DefaultTypingInterval
	if c.currentProfile != nil && c.currentProfile.TypingIntervalMs > 0 {
		ms = c.currentProfile.TypingIntervalMs
	}
	return time.Duration(ms) * time.Millisecond
}

// GetRequestTimeout returns zero when requests may wait indefinitely.
func (c *Config) GetRequestTimeout() time.Duration {
	if c.currentProfile == nil || c.currentProfile.RequestTimeoutS <= 0 {
		return 0
	}
	return time.Duration(c.currentProfile.RequestTimeoutS) * time.Second
}

func IsKnownRole(role string) bool {
	return slices.Contains(Roles, role)
}

// Dir is the directory holding config, state and logs.
func Dir() (string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return "", err
	}
	return filepath.Dir(configPath), nil
}

func StatePath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "state.db"), nil
}

func LogPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "logs", "rorichat.log"), nil
}

func getConfigPath() (string, error) {
	var configDir string

	// Use RORICHAT_HOME if set, otherwise use user's home directory
	if home := os.Getenv("RORICHAT_HOME"); home != "" {
		configDir = home
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = homeDir
	}

	return filepath.Join(configDir, ".rorichat", "config.json"), nil
}

func ensureConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), 0755)
}

func loadConfigFile(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return createDefaultConfig(configPath)
	}
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	return &config, nil
}

func DefaultProfile() Profile {
	return Profile{
		BaseURL:          "http://localhost:8080",
		Role:             DefaultRole,
		TypingIntervalMs: DefaultTypingInterval,
	}
}

func createDefaultConfig(configPath string) (*Config, error) {
	config := &Config{
		Profiles: map[string]Profile{
			"default": DefaultProfile(),
		},
		ActiveProfile: "default",
	}

	if err := saveConfig(config, configPath); err != nil {
		return nil, err
	}

	return config, nil
}

func saveConfig(config *Config, configPath string) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0600)
}

func (c *Config) Save() error {
	configPath, err := getConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	return saveConfig(c, configPath)
}

func (c *Config) setCurrentProfile() error {
	if len(c.Profiles) == 0 {
		return fmt.Errorf("no profiles defined")
	}

	profile, exists := c.Profiles[c.ActiveProfile]
	if !exists {
		// Fall back to the first profile in name order
		names := make([]string, 0, len(c.Profiles))
		for name := range c.Profiles {
			names = append(names, name)
		}
		slices.Sort(names)
		c.ActiveProfile = names[0]
		profile = c.Profiles[names[0]]
	}

	c.currentProfile = &profile
	return nil
}

// applyEnv lets RORICHAT_BASE_URL and RORICHAT_ROLE override the active
// profile for this run. Overrides are never written back.
func (c *Config) applyEnv() {
	if url := os.Getenv("RORICHAT_BASE_URL"); url != "" {
		c.currentProfile.BaseURL = url
	}
	if role := os.Getenv("RORICHAT_ROLE"); IsKnownRole(role) {
		c.currentProfile.Role = role
	}
}
