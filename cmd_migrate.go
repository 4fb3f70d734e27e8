package main

import (
	"fmt"

	"pairquiz-backend/internal/store"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long: `Create the SQLite database at DB_PATH if needed and apply pending
migrations. serve applies them too, this command only prepares the file.`,
	RunE: runMigrate,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	st, err := store.Open(cmd.Context(), cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d migration(s) applied\n", cfg.DBPath, st.Applied())
	return nil
}
