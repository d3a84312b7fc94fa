package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

var flagPlain bool

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question from the knowledge base",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.Close()

		ans, err := a.rag.Query(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}

		out := ans.Render()
		if !flagPlain {
			out = renderMarkdown(out)
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

// renderMarkdown styles text for the terminal, falling back to the input.
func renderMarkdown(text string) string {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return text
	}
	rendered, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(rendered, "\n")
}

func init() {
	askCmd.Flags().BoolVar(&flagPlain, "plain", false, "print without markdown rendering")
	rootCmd.AddCommand(askCmd)
}
