package config

const (
	defaultDataDir   = ".kbase"
	defaultProvider  = ProviderOpenAI
	defaultAPIKeyEnv = "UPSTAGE_API_KEY"

	defaultOpenAIBaseURL = "https://api.upstage.ai/v1"
	defaultOllamaURL     = "http://localhost:11434"

	defaultPassageModel = "embedding-passage"
	defaultQueryModel   = "embedding-query"
	defaultChatModel    = "solar-pro3"

	defaultOllamaEmbedModel = "nomic-embed-text"
	defaultOllamaChatModel  = "qwen3:8b"

	defaultStoreBackend = "json"
	defaultMaxLength    = 500

	defaultTopK                = 5
	defaultLanguage            = "English"
	defaultGroundednessContext = 4000
	defaultMaxToolRounds       = 8
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// NewDefaultConfig returns a Config with defaults for every field.
// It is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		DataDir:   defaultDataDir,
		Provider:  defaultProvider,
		APIKeyEnv: defaultAPIKeyEnv,
		OpenAI: OpenAIConfig{
			BaseURL: defaultOpenAIBaseURL,
		},
		Ollama: OllamaConfig{
			URL: defaultOllamaURL,
		},
		Embedding: EmbeddingConfig{
			PassageModel: defaultPassageModel,
			QueryModel:   defaultQueryModel,
		},
		Chat: ChatConfig{
			Model: defaultChatModel,
		},
		Store: StoreConfig{
			Backend: defaultStoreBackend,
		},
		Chunker: ChunkerConfig{
			MaxLength: defaultMaxLength,
		},
		RAG: RAGConfig{
			TopK:                defaultTopK,
			Language:            defaultLanguage,
			GroundednessContext: defaultGroundednessContext,
			MaxToolRounds:       defaultMaxToolRounds,
		},
	}
}
