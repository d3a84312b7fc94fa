package cmd

import (
	"fmt"
	"path/filepath"

	"kbase/internal/samples"

	"github.com/spf13/cobra"
)

var flagAddSamples bool

var samplesCmd = &cobra.Command{
	Use:   "samples [dir]",
	Short: "Write the sample platform engineering documents",
	Long: `Write three sample markdown documents: a Kubernetes CrashLoopBackOff
runbook, a database outage post-mortem and a microservices architecture
overview. With --add they are ingested right away.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "samples"
		if len(args) == 1 {
			dir = args[0]
		}

		paths, err := samples.Write(dir)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, p := range paths {
			fmt.Fprintf(out, "  wrote %s\n", p)
		}

		if !flagAddSamples {
			fmt.Fprintf(out, "\nAdd them with: kbase add %s\n", filepath.Clean(dir))
			return nil
		}

		a, err := openApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.Close()
		return addPath(cmd, a.ingester, dir)
	},
}

func init() {
	samplesCmd.Flags().BoolVar(&flagAddSamples, "add", false, "ingest the samples after writing them")
	rootCmd.AddCommand(samplesCmd)
}
