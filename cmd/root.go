package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"kbase/internal/agent"
	"kbase/internal/chunker"
	"kbase/internal/config"
	"kbase/internal/embedder"
	"kbase/internal/groundedness"
	"kbase/internal/index"
	"kbase/internal/llm"
	"kbase/internal/logger"
	"kbase/internal/rag"
	"kbase/internal/store"

	"github.com/spf13/cobra"
)

var (
	flagDataDir  string
	flagConfig   string
	flagProvider string
	flagDebug    bool
	flagLogJSON  bool

	// logOutput redirects logging away from stderr, e.g. while the TUI
	// owns the terminal.
	logOutput io.Writer
)

var rootCmd = &cobra.Command{
	Use:           "kbase",
	Short:         "Platform engineering knowledge base with grounded RAG answers",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd, "")
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory holding the index (default .kbase)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default <data-dir>/config.toml)")
	rootCmd.PersistentFlags().StringVar(&flagProvider, "provider", "", "model provider: openai or ollama")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "d", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagLogJSON, "log-json", false, "log as JSON")
}

// app bundles the components every command shares. One store instance is
// opened per process and injected everywhere it is needed.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.Store
	embedder embedder.Embedder
	chat     llm.Chat
	ingester *index.Ingester
	rag      *rag.Orchestrator
	handler  *agent.Handler
}

// loadConfig resolves configuration from flags, environment, .env and the
// config file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}

	v, err := config.InitViper(flagConfig, flagDataDir)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	for key, flag := range map[string]string{
		"data_dir": "data-dir",
		"provider": "provider",
		"debug":    "debug",
	} {
		if f := flags.Lookup(flag); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding --%s: %w", flag, err)
			}
		}
	}

	return config.Load(v)
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := []logger.Option{
		logger.WithDebug(cfg.Debug),
		logger.WithJSON(flagLogJSON),
		logger.WithPretty(!flagLogJSON && logOutput == nil),
	}
	if logOutput != nil {
		opts = append(opts, logger.WithWriter(logOutput))
	}
	return logger.New(opts...)
}

// openApp opens the store and, when models is set, builds the model
// clients and everything that depends on them. Callers must Close the result.
func openApp(cmd *cobra.Command, models bool) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log := newLogger(cfg)

	idx, err := store.OpenIndex(cfg.Store.Backend, cfg.IndexPath())
	if err != nil {
		return nil, err
	}
	st, err := store.Open(idx, log)
	if err != nil {
		idx.Close()
		return nil, err
	}

	a := &app{cfg: cfg, logger: log, store: st}
	if !models {
		return a, nil
	}
	if err := a.connect(); err != nil {
		st.Close()
		return nil, err
	}
	return a, nil
}

// connect creates the model clients and everything built on them.
func (a *app) connect() error {
	cfg := a.cfg
	baseURL := cfg.OpenAI.BaseURL
	if cfg.Provider == config.ProviderOllama {
		baseURL = cfg.Ollama.URL
	}

	emb, err := embedder.New(embedder.Config{
		Provider:     cfg.Provider,
		BaseURL:      baseURL,
		APIKey:       cfg.APIKey(),
		PassageModel: cfg.Embedding.PassageModel,
		QueryModel:   cfg.Embedding.QueryModel,
	})
	if err != nil {
		return fmt.Errorf("embedding gateway: %w (set %s or use --provider ollama)", err, cfg.APIKeyEnv)
	}

	chat, err := llm.New(llm.Config{
		Provider: cfg.Provider,
		BaseURL:  baseURL,
		APIKey:   cfg.APIKey(),
		Model:    cfg.Chat.Model,
	})
	if err != nil {
		return fmt.Errorf("chat model: %w", err)
	}

	a.embedder = emb
	a.chat = chat
	a.ingester = index.NewIngester(a.store, emb, a.ingesterChunker(), a.logger)
	checker := groundedness.New(chat, cfg.RAG.GroundednessContext, a.logger)
	a.rag = rag.New(emb, a.store, chat, checker, rag.Options{
		TopK:     cfg.RAG.TopK,
		Language: cfg.RAG.Language,
	}, a.logger)
	a.handler = agent.NewHandler(a.store, emb, a.ingester, a.rag, a.logger)
	return nil
}

func (a *app) ingesterChunker() *chunker.Chunker {
	return chunker.New(a.cfg.Chunker.MaxLength)
}

func (a *app) agentOptions() agent.Options {
	return agent.Options{
		Language:      a.cfg.RAG.Language,
		MaxToolRounds: a.cfg.RAG.MaxToolRounds,
	}
}

func (a *app) Close() error {
	return a.store.Close()
}
