package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded schema migrations",
	Long: `migrate runs the SQL migrations embedded in the binary against the
database configured by DATABASE_URL, or by the DB_* variables when
DATABASE_URL is unset.

Examples:
  ./migrate up
  ./migrate down --steps 1
  ./migrate version`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("migrate failed")
		os.Exit(1)
	}
}
