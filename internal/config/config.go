package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// DBConfig holds relational connection parameters. FallbackHosts are tried
// serially after Host when the first connection attempt fails.
type DBConfig struct {
	Host          string   `json:"host"`
	Port          int      `json:"port"`
	Database      string   `json:"database"`
	User          string   `json:"user"`
	Password      string   `json:"password"`
	FallbackHosts []string `json:"fallback_hosts,omitempty"`
	// URL overrides the discrete fields when set (DATABASE_URL form).
	URL string `json:"url,omitempty"`
}

// GradingConfig selects the hosted endpoint used for quality scoring.
type GradingConfig struct {
	APIBase string `json:"api_base"`
	Model   string `json:"model"`
	// APIKey is normally injected from the environment, never from file.
	APIKey string `json:"-"`
}

// Config models the tool configuration file (db_config / llm_endpoint keys).
type Config struct {
	DB          DBConfig      `json:"db_config"`
	LLMEndpoint string        `json:"llm_endpoint"`
	Grading     GradingConfig `json:"grading"`
	LocalDBPath string        `json:"local_db_path,omitempty"`
}

var defaultPaths = []string{
	"config/calllab.json",
	"config/orchestrator_config.json",
	"config/node_config.json",
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		DB: DBConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "calllab",
			User:          "postgres",
			FallbackHosts: []string{"127.0.0.1"},
		},
		LLMEndpoint: "http://127.0.0.1:1234",
		Grading: GradingConfig{
			APIBase: "https://api.openai.com/v1",
			Model:   "gpt-4o-mini",
		},
		LocalDBPath: "data/calllab.db",
	}
}

// Load reads configuration from path, or from the first default path that
// exists when path is empty. Environment variables DATABASE_URL and
// OPENAI_API_KEY override the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		for _, p := range defaultPaths {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid config json %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DB.URL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Grading.APIKey = v
	}
}

// Validate ensures required connection fields are present.
func (c *Config) Validate() error {
	if c.DB.URL == "" {
		if c.DB.Host == "" {
			return fmt.Errorf("db_config.host is required")
		}
		if c.DB.Database == "" {
			return fmt.Errorf("db_config.database is required")
		}
		if c.DB.Port == 0 {
			c.DB.Port = 5432
		}
	}
	if c.LLMEndpoint == "" {
		return fmt.Errorf("llm_endpoint is required")
	}
	return nil
}
