package config

// Config is the resolved kbase configuration.
type Config struct {
	// DataDir holds the index artifact and the optional config.toml.
	DataDir string `mapstructure:"data_dir"`

	// Provider selects the remote backend for embeddings and chat:
	// "openai" (any OpenAI-compatible API, Upstage by default) or "ollama".
	Provider string `mapstructure:"provider"`

	// APIKeyEnv names the environment variable that carries the API key.
	APIKeyEnv string `mapstructure:"api_key_env"`

	Debug bool `mapstructure:"debug"`

	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Ollama    OllamaConfig    `mapstructure:"ollama"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Store     StoreConfig     `mapstructure:"store"`
	Chunker   ChunkerConfig   `mapstructure:"chunker"`
	RAG       RAGConfig       `mapstructure:"rag"`
}

type OpenAIConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type OllamaConfig struct {
	URL string `mapstructure:"url"`
}

type EmbeddingConfig struct {
	PassageModel string `mapstructure:"passage_model"`
	QueryModel   string `mapstructure:"query_model"`
}

type ChatConfig struct {
	Model string `mapstructure:"model"`
}

type StoreConfig struct {
	// Backend is one of "json", "sqlite" or "memory".
	Backend string `mapstructure:"backend"`
}

type ChunkerConfig struct {
	MaxLength int `mapstructure:"max_length"`
}

type RAGConfig struct {
	TopK                int    `mapstructure:"top_k"`
	Language            string `mapstructure:"language"`
	GroundednessContext int    `mapstructure:"groundedness_context"`
	MaxToolRounds       int    `mapstructure:"max_tool_rounds"`
}
