// Package config loads the agent configuration from an optional config.yaml
// overridden by KB_-prefixed environment variables.
package config

import (
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server ServerConfig `koanf:"server"`
	Agent  AgentConfig  `koanf:"agent"`
	LTM    LTMConfig    `koanf:"ltm"`
	Store  StoreConfig  `koanf:"store"`
	OpenAI OpenAIConfig `koanf:"openai"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type AgentConfig struct {
	// ID is the agent identifier structured-intent messages must address.
	ID string `koanf:"id"`
}

type LTMConfig struct {
	// Dir holds the cache and wiki files.
	Dir string `koanf:"dir"`
}

type StoreConfig struct {
	// Driver selects the task store: mongodb or sqlite.
	Driver string `koanf:"driver"`

	// DSN is the connection string (MongoDB URI or SQLite path).
	DSN string `koanf:"dsn"`

	// Database and Collection apply to the mongodb driver.
	Database   string `koanf:"database"`
	Collection string `koanf:"collection"`
}

type OpenAIConfig struct {
	APIKey    string `koanf:"api_key"`
	BaseURL   string `koanf:"base_url"`
	Model     string `koanf:"model"`
	TimeoutMS int    `koanf:"timeout_ms"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads config.yaml if present, then environment variables
// (KB_SERVER__PORT, KB_OPENAI__API_KEY, ...), then applies defaults.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider("config.yaml"), yaml.Parser()); err != nil {
		// File not found is fine; env vars carry the config.
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := k.Load(env.Provider("KB_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "KB_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	defaults := map[string]any{
		"server.port":       8080,
		"agent.id":          "KnowledgeBaseBuilderAgent",
		"ltm.dir":           "LTM",
		"store.driver":      "sqlite",
		"store.dsn":         "./data/tasks.db",
		"store.database":    "knowledge_builder",
		"store.collection":  "task",
		"openai.base_url":   "https://api.openai.com/v1",
		"openai.model":      "gpt-4o-mini",
		"openai.timeout_ms": 30000,
	}
	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	// Substitute ${VAR} references in secrets-bearing values.
	cfg.Store.DSN = substituteEnvVars(cfg.Store.DSN)
	cfg.OpenAI.APIKey = substituteEnvVars(cfg.OpenAI.APIKey)

	return &cfg, nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
