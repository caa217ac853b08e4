package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/matheus3301/buddytalk/internal/chat"
)

// DefaultEndpoint is the GraphQL backend used when none is configured.
const DefaultEndpoint = "https://angular-test-backend-yc4c5cvnnq-an.a.run.app/graphql"

// Config represents the global ~/.buddytalk/config.toml.
type Config struct {
	DefaultSession string         `toml:"default_session"`
	Backend        Backend        `toml:"backend"`
	StorageKey     string         `toml:"storage_key"`
	NotifySeconds  int            `toml:"notify_seconds"`
	DefaultUser    string         `toml:"default_user"`
	DefaultChannel string         `toml:"default_channel"`
	Users          []chat.User    `toml:"users"`
	Channels       []chat.Channel `toml:"channels"`
}

// Backend configures the remote message service.
type Backend struct {
	Endpoint       string `toml:"endpoint"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DefaultSession: "main",
		Backend: Backend{
			Endpoint:       DefaultEndpoint,
			TimeoutSeconds: 10,
		},
		StorageKey:     "app-local-storage",
		NotifySeconds:  3,
		DefaultUser:    "Russell",
		DefaultChannel: "1",
		Users: []chat.User{
			{ID: "Russell", Name: "Russell"},
			{ID: "Joyse", Name: "Joyse"},
			{ID: "Sam", Name: "Sam"},
		},
		Channels: []chat.Channel{
			{ID: "1", Name: "General Channel"},
			{ID: "2", Name: "Technology Channel"},
			{ID: "3", Name: "LGTM Channel"},
		},
	}
}

// Timeout returns the backend request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSeconds) * time.Second
}

// NotifyAfter returns how long a notification stays visible.
func (c *Config) NotifyAfter() time.Duration {
	return time.Duration(c.NotifySeconds) * time.Second
}

// User looks up a configured user by ID.
func (c *Config) User(id string) (chat.User, bool) {
	for _, u := range c.Users {
		if u.ID == id {
			return u, true
		}
	}
	return chat.User{}, false
}

// Channel looks up a configured channel by ID.
func (c *Config) Channel(id string) (chat.Channel, bool) {
	for _, ch := range c.Channels {
		if ch.ID == id {
			return ch, true
		}
	}
	return chat.Channel{}, false
}

// Load reads config from the given path. Returns nil and error if file missing.
// Fields absent from the file take their defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	cfg.fill(Default())
	return &cfg, nil
}

func (c *Config) fill(d *Config) {
	if c.DefaultSession == "" {
		c.DefaultSession = d.DefaultSession
	}
	if c.Backend.Endpoint == "" {
		c.Backend.Endpoint = d.Backend.Endpoint
	}
	if c.Backend.TimeoutSeconds <= 0 {
		c.Backend.TimeoutSeconds = d.Backend.TimeoutSeconds
	}
	if c.StorageKey == "" {
		c.StorageKey = d.StorageKey
	}
	if c.NotifySeconds <= 0 {
		c.NotifySeconds = d.NotifySeconds
	}
	if len(c.Users) == 0 {
		c.Users = d.Users
	}
	if len(c.Channels) == 0 {
		c.Channels = d.Channels
	}
	if c.DefaultUser == "" && len(c.Users) > 0 {
		c.DefaultUser = c.Users[0].ID
	}
	if c.DefaultChannel == "" && len(c.Channels) > 0 {
		c.DefaultChannel = c.Channels[0].ID
	}
}

// LoadOrDefault reads config from path, falling back to Default when the file
// does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
