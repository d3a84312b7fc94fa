package cmd

import (
	"fmt"

	"kbase/internal/agent"
	"kbase/internal/store"

	"github.com/spf13/cobra"
)

var flagResults int

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Vector search over stored chunks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.Close()

		out := a.handler.Handle(cmd.Context(), agent.Search{Query: args[0], N: flagResults})
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

var docsCmd = &cobra.Command{
	Use:     "docs",
	Aliases: []string{"list"},
	Short:   "List stored documents with their chunk counts",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, false)
		if err != nil {
			return err
		}
		defer a.Close()

		// Listing needs no model clients.
		h := agent.NewHandler(a.store, nil, nil, nil, a.logger)
		fmt.Fprintln(cmd.OutOrStdout(), h.Handle(cmd.Context(), agent.ListDocuments{}))
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <document>",
	Short: "Delete a document from the knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, false)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.store.DeleteDocument(args[0])
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("document %q not found", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (%d chunks)\n", args[0], n)
		return nil
	},
}

var flagYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every document in the knowledge base",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !flagYes {
			return fmt.Errorf("refusing to reset without --yes")
		}
		a, err := openApp(cmd, false)
		if err != nil {
			return err
		}
		defer a.Close()

		n := a.store.Len()
		if err := a.store.Reset(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Knowledge base reset (%d chunks removed)\n", n)
		return nil
	},
}

func init() {
	searchCmd.Flags().IntVarP(&flagResults, "results", "n", store.DefaultResults, "number of results")
	resetCmd.Flags().BoolVar(&flagYes, "yes", false, "confirm deleting all data")
	rootCmd.AddCommand(searchCmd, docsCmd, deleteCmd, resetCmd)
}
