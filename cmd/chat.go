package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"kbase/internal/agent"

	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the knowledge base agent in a line REPL",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, true)
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		opts := a.agentOptions()
		opts.Observer = func(ev agent.Event) {
			if ev.Done {
				fmt.Fprintf(out, "[Result preview]\n%s\n", ev.Result)
				return
			}
			fmt.Fprintf(out, "\n[%s] %s called\n", ev.Label, ev.Tool)
		}
		ag := agent.New(a.chat, a.handler, opts, a.logger)

		scanner := bufio.NewScanner(cmd.InOrStdin())

		fmt.Fprintln(out, "kbase chat (type /help for commands, /exit to quit)")
		fmt.Fprintln(out)

		for {
			fmt.Fprint(out, "> ")
			if !scanner.Scan() {
				break
			}
			input := strings.TrimSpace(scanner.Text())
			if input == "" {
				continue
			}

			switch input {
			case "/exit", "/quit":
				fmt.Fprintln(out, "Goodbye.")
				return nil
			case "/clear":
				ag.Clear()
				fmt.Fprintln(out, "Conversation cleared.")
				continue
			case "/docs":
				fmt.Fprintln(out, a.handler.Handle(cmd.Context(), agent.ListDocuments{}))
				continue
			case "/help":
				fmt.Fprintln(out, "Commands:")
				fmt.Fprintln(out, "  /docs   - list stored documents")
				fmt.Fprintln(out, "  /clear  - clear conversation history")
				fmt.Fprintln(out, "  /exit   - quit chat")
				fmt.Fprintln(out, "  /help   - show this help")
				continue
			}

			answer, err := ag.Ask(cmd.Context(), input)
			if err != nil {
				a.logger.Error("agent turn failed", "error", err)
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, renderMarkdown(answer))
			fmt.Fprintln(out)
		}

		return scanner.Err()
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
