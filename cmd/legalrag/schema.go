package main

import (
	"errors"

	"legalrag-backend/repository"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newSchemaCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "create the pgvector tables and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.Index.DatabaseURL == "" {
				return errors.New("DATABASE_URL is required")
			}

			pool, err := initPostgres(cmd.Context(), cfg.Index.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := repository.EnsureSchema(cmd.Context(), pool, cfg.Index.Dimensions); err != nil {
				return err
			}
			log.Info().Int("dimensions", cfg.Index.Dimensions).Msg("schema ready")
			return nil
		},
	}
}
