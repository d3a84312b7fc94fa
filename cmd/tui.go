package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"kbase/internal/tui"

	"github.com/spf13/cobra"
)

var flagIngest string

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive terminal UI",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd, flagIngest)
	},
}

func runTUI(cmd *cobra.Command, ingestDir string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	// The TUI owns the terminal, so logs go to a file.
	logFile, err := os.OpenFile(filepath.Join(cfg.DataDir, "kbase.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()
	logOutput = logFile

	a, err := openApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	return tui.Run(tui.Config{
		Store:        a.store,
		Ingester:     a.ingester,
		Chat:         a.chat,
		Handler:      a.handler,
		AgentOptions: a.agentOptions(),
		Logger:       a.logger,
		IngestDir:    ingestDir,
		SamplesDir:   filepath.Join(cfg.DataDir, "samples"),
		IndexPath:    cfg.IndexPath(),
		Provider:     cfg.Provider,
	})
}

func init() {
	tuiCmd.Flags().StringVar(&flagIngest, "ingest", "", "directory to ingest before chatting")
	rootCmd.AddCommand(tuiCmd)
}
