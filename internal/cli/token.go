package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"quiz-screening-service/internal/auth"
	"quiz-screening-service/internal/config"
)

// NewTokenCmd mints a session token, for local testing and operator access.
func NewTokenCmd(configPath *string) *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue a signed session token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			tokens, err := newTokenManager(cfg)
			if err != nil {
				return err
			}
			token, err := tokens.Issue(args[0], role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "role claim, e.g. admin")
	return cmd
}

func newTokenManager(cfg config.Config) (*auth.Manager, error) {
	if cfg.Auth.Secret == "" {
		return nil, fmt.Errorf("auth secret not configured")
	}
	return auth.NewManager(cfg.Auth.Secret, cfg.Auth.Issuer, config.TTLDuration(cfg.Auth.TokenTTL, 12*time.Hour)), nil
}
