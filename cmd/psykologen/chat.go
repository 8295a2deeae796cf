package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/PabloGalante/psykologen/internal/adapters/cli"
	"github.com/PabloGalante/psykologen/internal/observability"
)

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk to Erik in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// only warnings between the lines of the conversation
			a, err := loadApp(ctx, observability.Options{Level: "warn", Format: "console"})
			if err != nil {
				return err
			}
			defer a.close()

			_, err = cli.NewChat(a.svc, a.journal, os.Stdin, os.Stdout).Run(ctx)
			return err
		},
	}
}
