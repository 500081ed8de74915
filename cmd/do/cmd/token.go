package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/withyou-app/withyou/internal/config"
	"github.com/withyou-app/withyou/internal/model"
	"github.com/withyou-app/withyou/internal/service"
	"github.com/withyou-app/withyou/internal/validation"
)

// TokenCmd mints a locally signed identity token, accepted by the server
// when development tokens are enabled.
func TokenCmd() *cobra.Command {
	var email, name string

	cmd := &cobra.Command{
		Use:   "token <uid>",
		Short: "Mint a development identity token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if !cfg.DevTokensEnabled() {
				return fmt.Errorf("development tokens are disabled (APP_ENV=%s)", cfg.AppEnv)
			}

			if email != "" {
				err := validation.ValidateEmail(email)
				if err != nil {
					return err
				}
			}

			auth := service.NewAuthService(nil, cfg.JWTSecret, cfg.JWTExpiry, true)
			token, err := auth.GenerateJWT(&model.Identity{UID: args[0], Email: email, Name: name})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringVar(&name, "name", "", "display name claim")
	return cmd
}
