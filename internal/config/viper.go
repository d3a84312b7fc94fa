package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. KBASE_RAG_TOP_K.
const EnvPrefix = "KBASE"

// InitViper creates a configured *viper.Viper.
//
// Precedence (highest to lowest):
//  1. CLI flags bound by the caller with BindPFlag
//  2. Environment variables (KBASE_PROVIDER, KBASE_STORE_BACKEND, ...)
//  3. The config file: configFile when set, else <dataDir>/config.toml
//  4. Defaults from NewDefaultConfig()
func InitViper(configFile, dataDir string) (*viper.Viper, error) {
	v := viper.New()
	setViperDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		if dataDir == "" {
			dataDir = defaultDataDir
		}
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(dataDir)
	}

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// Load decodes v into a Config and fills provider-specific model defaults.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads .env files into the process environment. Missing files
// are skipped and variables already set are never overridden.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// APIKey returns the API key from the configured environment variable.
func (c *Config) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

// IndexPath returns the path of the persisted index for the configured backend.
func (c *Config) IndexPath() string {
	switch c.Store.Backend {
	case "sqlite":
		return filepath.Join(c.DataDir, "index.db")
	default:
		return filepath.Join(c.DataDir, "index.json")
	}
}

func (c *Config) normalize() error {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	switch c.Provider {
	case ProviderOpenAI:
	case ProviderOllama:
		// The OpenAI defaults name hosted models Ollama does not serve.
		if c.Embedding.PassageModel == defaultPassageModel {
			c.Embedding.PassageModel = defaultOllamaEmbedModel
		}
		if c.Embedding.QueryModel == defaultQueryModel {
			c.Embedding.QueryModel = defaultOllamaEmbedModel
		}
		if c.Chat.Model == defaultChatModel {
			c.Chat.Model = defaultOllamaChatModel
		}
	default:
		return fmt.Errorf("unknown provider %q (want %q or %q)", c.Provider, ProviderOpenAI, ProviderOllama)
	}

	switch c.Store.Backend {
	case "json", "sqlite", "memory":
	default:
		return fmt.Errorf("unknown store backend %q (want json, sqlite or memory)", c.Store.Backend)
	}

	if c.Chunker.MaxLength <= 0 {
		c.Chunker.MaxLength = defaultMaxLength
	}
	if c.RAG.TopK <= 0 {
		c.RAG.TopK = defaultTopK
	}
	return nil
}

// setViperDefaults registers NewDefaultConfig() under dotted keys so that
// environment overrides and Unmarshal see every field.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("provider", d.Provider)
	v.SetDefault("api_key_env", d.APIKeyEnv)
	v.SetDefault("debug", d.Debug)

	v.SetDefault("openai.base_url", d.OpenAI.BaseURL)
	v.SetDefault("ollama.url", d.Ollama.URL)

	v.SetDefault("embedding.passage_model", d.Embedding.PassageModel)
	v.SetDefault("embedding.query_model", d.Embedding.QueryModel)
	v.SetDefault("chat.model", d.Chat.Model)

	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("chunker.max_length", d.Chunker.MaxLength)

	v.SetDefault("rag.top_k", d.RAG.TopK)
	v.SetDefault("rag.language", d.RAG.Language)
	v.SetDefault("rag.groundedness_context", d.RAG.GroundednessContext)
	v.SetDefault("rag.max_tool_rounds", d.RAG.MaxToolRounds)
}
