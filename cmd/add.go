package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"kbase/internal/index"

	"github.com/spf13/cobra"
)

var (
	flagForce   bool
	flagWorkers int
)

var addCmd = &cobra.Command{
	Use:   "add <path>...",
	Short: "Add documents or directories to the knowledge base",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.Close()

		in := index.NewIngester(a.store, a.embedder, a.ingesterChunker(), a.logger, index.WithWorkers(flagWorkers))
		for _, path := range args {
			if err := addPath(cmd, in, path); err != nil {
				return err
			}
		}
		return nil
	},
}

func addPath(cmd *cobra.Command, in *index.Ingester, path string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s", index.ErrNotFound, path)
	}

	if !info.IsDir() {
		res, err := in.IngestFile(ctx, path, flagForce)
		if err != nil {
			return err
		}
		if res.Skipped {
			fmt.Fprintf(out, "%s unchanged (%d chunks)\n", res.DocumentName, res.Chunks)
			return nil
		}
		fmt.Fprintf(out, "Added %s: %d chunks\n  sections: %s\n", res.DocumentName, res.Chunks, strings.Join(res.Sections, ", "))
		return nil
	}

	fmt.Fprintf(out, "Ingesting %s...\n", path)
	start := time.Now()
	stats, err := in.IngestDir(ctx, path, flagForce, nil)
	elapsed := time.Since(start)

	if stats != nil {
		fmt.Fprintf(out, "\nDone in %s\n", elapsed.Round(time.Millisecond))
		fmt.Fprintf(out, "  Files:   %d total, %d ingested, %d unchanged, %d failed\n",
			stats.FilesTotal, stats.FilesIndexed, stats.FilesSkipped, stats.FilesFailed)
		fmt.Fprintf(out, "  Chunks:  %d\n", stats.ChunksTotal)
	}
	return err
}

func init() {
	addCmd.Flags().BoolVarP(&flagForce, "force", "f", false, "re-ingest documents even when unchanged")
	addCmd.Flags().IntVar(&flagWorkers, "workers", 0, "parallel read/chunk workers (default: number of CPUs)")
	rootCmd.AddCommand(addCmd)
}
