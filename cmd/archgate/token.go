package main

import (
	"time"

	"github.com/spf13/cobra"

	jwttoken "archgate/internal/jwt_token"
	id "archgate/pkg/domain"
)

// newTokenCommand mints bearer tokens for local testing against a dev server.
func newTokenCommand() *cobra.Command {
	var (
		userID int64
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a signed access token for a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			svc := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)
			token, err := svc.GenerateAccessToken(id.UserID(userID), ttl)
			if err != nil {
				return err
			}
			cmd.Println(token)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user", 0, "user id the token is issued for")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
