package main

import (
	"errors"
	"fmt"

	"pairquiz-backend/internal/auth"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token <userId>",
	Short: "Issue a join token for a user",
	Long: `Sign a join token with JWT_SECRET. Clients pass it as a bearer token,
either in the Authorization header or as a "Bearer <token>" websocket
subprotocol.`,
	Args: cobra.ExactArgs(1),
	RunE: runToken,
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	tokens := auth.NewTokens(cfg.JWTSecret)
	if !tokens.Enabled() {
		return errors.New("JWT_SECRET is not set")
	}

	token, err := tokens.NewToken(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
