package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	DefaultProfile = "default"
	DefaultBaseURL = "http://127.0.0.1:8000"
	DefaultTimeout = 60 * time.Second
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrProfileExists   = errors.New("profile already exists")
)

// Profile describes one oracle backend
type Profile struct {
	BaseURL        string `json:"base_url"`
	GeneratePath   string `json:"generate_path,omitempty"`
	TeacherPath    string `json:"teacher_path,omitempty"`
	HealthPath     string `json:"health_path,omitempty"`
	Topic          string `json:"topic,omitempty"`
	Level          string `json:"level,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`

	// Direct questions go to an OpenAI-compatible API when APIKey is set
	APIKey        string `json:"api_key,omitempty"`
	OpenAIBaseURL string `json:"openai_base_url,omitempty"`
	Model         string `json:"model,omitempty"`
	Persona       string `json:"persona,omitempty"`
}

// Env holds the environment overrides. They win over the profile file.
type Env struct {
	Home     string `env:"ZOLTAR_HOME"`
	Profile  string `env:"ZOLTAR_PROFILE"`
	BaseURL  string `env:"ZOLTAR_BASE_URL"`
	APIKey   string `env:"ZOLTAR_API_KEY"`
	Mute     bool   `env:"ZOLTAR_MUTE"`
	LogLevel string `env:"ZOLTAR_LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"ZOLTAR_LOG_FILE"`
}

type Config struct {
	Profiles       map[string]Profile `json:"profiles"`
	ActiveProfile  string             `json:"active_profile"`
	currentProfile *Profile
	env            Env
	path           string
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func LoadConfig() (*Config, error) {
	var e Env
	if err := ParseEnv(&e); err != nil {
		return nil, err
	}

	configPath, err := getConfigPath(e.Home)
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}

	if err := ensureConfigDir(configPath); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	config, err := loadConfigFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	config.env = e
	config.path = configPath

	if e.Profile != "" {
		config.ActiveProfile = e.Profile
	}
	if err := config.setCurrentProfile(); err != nil {
		return nil, fmt.Errorf("failed to set current profile: %w", err)
	}

	return config, nil
}

func (c *Config) Path() string {
	return c.path
}

// Dir is the directory holding the config file and the default log
func (c *Config) Dir() string {
	return filepath.Dir(c.path)
}

func (c *Config) Current() Profile {
	if c.currentProfile == nil {
		return Profile{}
	}
	return *c.currentProfile
}

func (c *Config) BaseURL() string {
	if c.env.BaseURL != "" {
		return strings.TrimRight(c.env.BaseURL, "/")
	}
	if p := c.Current(); p.BaseURL != "" {
		return strings.TrimRight(p.BaseURL, "/")
	}
	return DefaultBaseURL
}

func (c *Config) HealthURL() string {
	path := c.Current().HealthPath
	if path == "" {
		path = "/health"
	}
	return c.BaseURL() + path
}

func (c *Config) APIKey() string {
	if c.env.APIKey != "" {
		return c.env.APIKey
	}
	return c.Current().APIKey
}

func (c *Config) Timeout() time.Duration {
	if s := c.Current().TimeoutSeconds; s > 0 {
		return time.Duration(s) * time.Second
	}
	return DefaultTimeout
}

func (c *Config) Muted() bool {
	return c.env.Mute
}

// LogLevel maps ZOLTAR_LOG_LEVEL onto slog; unknown values mean info
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.env.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func (c *Config) LogFile() string {
	if c.env.LogFile != "" {
		return c.env.LogFile
	}
	return filepath.Join(c.Dir(), "zoltar.log")
}

// Names returns the profile names in sorted order
func (c *Config) Names() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Config) Profile(name string) (Profile, error) {
	p, ok := c.Profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	return p, nil
}

func (c *Config) AddProfile(name string, p Profile) error {
	if _, exists := c.Profiles[name]; exists {
		return fmt.Errorf("%w: %s", ErrProfileExists, name)
	}
	if c.Profiles == nil {
		c.Profiles = make(map[string]Profile)
	}
	c.Profiles[name] = p
	return nil
}

// DeleteProfile removes a profile. Deleting the active one activates
// another, and deleting the last one recreates the default.
func (c *Config) DeleteProfile(name string) error {
	if _, exists := c.Profiles[name]; !exists {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	delete(c.Profiles, name)

	if len(c.Profiles) == 0 {
		c.Profiles[DefaultProfile] = defaultProfile()
	}
	if c.ActiveProfile == name {
		c.ActiveProfile = c.Names()[0]
	}
	return c.setCurrentProfile()
}

func (c *Config) Use(name string) error {
	if _, exists := c.Profiles[name]; !exists {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, name)
	}
	c.ActiveProfile = name
	return c.setCurrentProfile()
}

func getConfigPath(home string) (string, error) {
	configDir := home
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = homeDir
	}

	return filepath.Join(configDir, ".zoltar", "config.json"), nil
}

func ensureConfigDir(configPath string) error {
	return os.MkdirAll(filepath.Dir(configPath), 0755)
}

func loadConfigFile(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return createDefaultConfig(configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", configPath, err)
	}

	return &config, nil
}

func defaultProfile() Profile {
	return Profile{BaseURL: DefaultBaseURL, Persona: "engineered"}
}

func createDefaultConfig(configPath string) (*Config, error) {
	config := &Config{
		Profiles:      map[string]Profile{DefaultProfile: defaultProfile()},
		ActiveProfile: DefaultProfile,
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

	// may hold API keys
	return os.WriteFile(configPath, data, 0600)
}

func (c *Config) Save() error {
	if c.path == "" {
		return errors.New("config was not loaded from a file")
	}
	return saveConfig(c, c.path)
}

func (c *Config) setCurrentProfile() error {
	if len(c.Profiles) == 0 {
		return errors.New("no profiles defined")
	}

	profile, exists := c.Profiles[c.ActiveProfile]
	if !exists {
		// fall back to the first profile by name
		c.ActiveProfile = c.Names()[0]
		profile = c.Profiles[c.ActiveProfile]
	}

	c.currentProfile = &profile
	return nil
}
