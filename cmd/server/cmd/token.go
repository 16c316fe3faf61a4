package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/Togather-Foundation/serendipity/internal/auth"
	"github.com/spf13/cobra"
)

var (
	tokenUserID string
	tokenExpiry time.Duration
)

// tokenCmd mints a bearer token with the configured secret, for poking at the
// API with curl during development.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for a user id",
	Example: `  TOKEN=$(server token --user 01HYX3KQW7ERTV9XNBM2P8QJZF)
  curl -H "Authorization: Bearer $TOKEN" http://localhost:5000/api/profile`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenUserID == "" {
			return errors.New("--user is required")
		}
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		if cfg.Environment == "production" {
			return errors.New("refusing to mint tokens in production")
		}

		expiry := cfg.Auth.JWTExpiry
		if tokenExpiry > 0 {
			expiry = tokenExpiry
		}
		token, _, err := auth.NewTokenService(cfg.Auth.JWTSecret, expiry, cfg.Auth.JWTIssuer).Issue(tokenUserID)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUserID, "user", "", "user id to put in the token subject")
	tokenCmd.Flags().DurationVar(&tokenExpiry, "expiry", 0, "token lifetime (default: JWT_EXPIRY)")
}
