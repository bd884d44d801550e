package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.courier/config.toml.
type Config struct {
	Email   string `toml:"email"`
	DataDir string `toml:"data_dir"`

	// MongoURI switches the content store to GridFS when set; MediaBaseURL
	// is the public prefix the media server serves GridFS objects under.
	MongoURI     string `toml:"mongo_uri"`
	MediaBaseURL string `toml:"media_base_url"`
}

// Load reads config from the given path. Returns nil and error if file missing.
func Load(path string) (*Config, error) {
	var cfg Config
	_, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
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

// Validate checks the fields the daemon cannot run without.
func (c *Config) Validate() error {
	if c.Email == "" {
		return fmt.Errorf("config: email is required")
	}
	if c.MongoURI != "" && c.MediaBaseURL == "" {
		return fmt.Errorf("config: media_base_url is required when mongo_uri is set")
	}
	return nil
}
