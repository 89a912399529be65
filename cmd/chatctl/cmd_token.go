package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/supportchat-backend/internal/services"
)

func newTokenCmd(opts *options) *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development access token",
		Long: `Sign an access token with the server's JWT secret.

Only useful against servers you hold the secret for, typically a local
development server running with the default secret.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := uuid.New()
			if userID != "" {
				parsed, err := uuid.Parse(userID)
				if err != nil {
					return fmt.Errorf("invalid --user-id: %w", err)
				}
				id = parsed
			}
			tok, err := services.MintToken(opts.secret, id, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user-id", "", "Subject user id (default: random)")
	cmd.Flags().StringVar(&role, "role", "user", "Role claim: user or admin")
	cmd.Flags().StringVar(&opts.secret, "secret", opts.secret, "Signing secret (or set JWT_SECRET_KEY)")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	return cmd
}
