package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "legalrag",
		Short:         "legal sources retrieval and question answering",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("LEGALRAG_CONFIG"), "path to config.yaml")

	rootCmd.AddCommand(
		newServeCmd(&configPath),
		newIndexCmd(&configPath),
		newIngestCmd(&configPath),
		newQueryCmd(&configPath),
		newSchemaCmd(&configPath),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}
