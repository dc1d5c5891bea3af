package main

import (
	"encoding/json"
	"os"

	"legalrag-backend/models"
	"legalrag-backend/service"

	"github.com/spf13/cobra"
)

func newIngestCmd(configPath *string) *cobra.Command {
	var req service.IngestRequest
	var authority string

	cmd := &cobra.Command{
		Use:   "ingest <url>",
		Short: "index a single official page outside the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.close()

			req.URL = args[0]
			req.Authority = models.Authority(authority)
			report, err := a.indexer.IngestURL(cmd.Context(), req)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().StringVar(&req.Title, "title", "", "source title, defaults to the host")
	cmd.Flags().StringVar(&req.Country, "country", "", "ISO country code")
	cmd.Flags().StringVar(&req.Category, "category", models.DefaultCategory, "legal category")
	cmd.Flags().StringVar(&authority, "authority", string(models.AuthoritySecondary), "primary or secondary")
	return cmd
}
