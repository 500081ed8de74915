package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/withyou-app/withyou/internal/app"
	"github.com/withyou-app/withyou/internal/config"
	"github.com/withyou-app/withyou/internal/logger"
)

func RemindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Send today's reminder to owners who have not submitted proof",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger.Init(cfg.IsDevelopment(), cfg.SentryDSN)
			defer logger.Flush()

			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			sent, err := a.ReminderService.Run(cmd.Context())
			if err != nil {
				return err
			}

			slog.Info("reminders sent", "count", sent)
			return nil
		},
	}
}
