package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dgallion1/paperchat/internal/chat"
	"github.com/dgallion1/paperchat/internal/completion"
	"github.com/dgallion1/paperchat/internal/sections"
	"github.com/dgallion1/paperchat/internal/session"
	"github.com/spf13/cobra"
)

// askCmd answers one question about a document.
func askCmd() *cobra.Command {
	var model string

	cmd := &cobra.Command{
		Use:   "ask FILE QUERY",
		Short: "Ask a question about a document",
		Long: `Ask QUERY about FILE. Start QUERY with "<section>: " to answer from
that section only; anything else uses the full text.

` + "Section prefixes:\n  " + strings.Join(sections.Usage(), "\n  "),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateCompletion(); err != nil {
				return err
			}

			doc, err := ingestFile(args[0])
			if err != nil {
				return err
			}

			log := newLogger()
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			store := session.NewMemoryStore(1, time.Hour)
			defer store.Close()
			sess, err := store.Create(ctx)
			if err != nil {
				return err
			}
			if err := store.ReplaceDocument(ctx, sess.ID, doc); err != nil {
				return err
			}

			llm := completion.NewClient(cfg.Completion(), log)
			defer llm.Close()
			svc := chat.NewService(store, llm, completion.NewCatalog(cfg.GroqModels), log)

			ex, err := svc.Ask(ctx, sess.ID, args[1], model)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ex.Reply.Content)
			if ex.Reply.Failed {
				return fmt.Errorf("completion failed: %s", ex.Result.Failure.Kind)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "Model to use (default: first of GROQ_MODELS)")

	return cmd
}

// modelsCmd lists the configured models.
func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models questions can be sent to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			catalog := completion.NewCatalog(cfg.GroqModels)
			for _, m := range catalog.Models() {
				marker := " "
				if m == catalog.Default() {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, m)
			}
			return nil
		},
	}
}
