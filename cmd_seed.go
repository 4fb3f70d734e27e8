package main

import (
	"fmt"
	"log/slog"
	"strings"

	"pairquiz-backend/internal/questions"
	"pairquiz-backend/internal/store"

	"github.com/spf13/cobra"
)

var (
	flagQuestionsPath string
	flagUsers         []string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the question bank and user profiles",
	Long: `Replace the stored question bank with a YAML bank and upsert user
display names.

Examples:
  pairquiz-backend seed                              # embedded default bank
  pairquiz-backend seed --questions ./bank.yaml
  pairquiz-backend seed --user alice=Alice --user bob=Bob`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&flagQuestionsPath, "questions", "", "Path to a YAML question bank (embedded bank if empty)")
	seedCmd.Flags().StringArrayVar(&flagUsers, "user", nil, "User profile as id=Display Name, repeatable")
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	users := map[string]string{}
	for _, u := range flagUsers {
		id, name, ok := strings.Cut(u, "=")
		if !ok || id == "" || name == "" {
			return fmt.Errorf("invalid --user %q, want id=Display Name", u)
		}
		users[id] = name
	}

	bank, err := questions.Load(flagQuestionsPath)
	if err != nil {
		return err
	}

	st, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := st.ReplaceQuestions(ctx, bank)
	if err != nil {
		return err
	}
	slog.Info("question bank loaded", slog.Int("questions", n), slog.String("source", flagQuestionsPath))

	for id, name := range users {
		if err := st.PutUser(ctx, id, name); err != nil {
			return err
		}
		slog.Info("user saved", slog.String("user_id", id))
	}

	return nil
}
