package main

import (
	"encoding/json"
	"os"
	"strings"

	"legalrag-backend/service"

	"github.com/spf13/cobra"
)

func newQueryCmd(configPath *string) *cobra.Command {
	var (
		country string
		topK    int
	)

	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "answer a legal question from the indexed sources",
		Args:  cobra.MinimumNArgs(1),
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

			answer := a.engine.Query(cmd.Context(), strings.Join(args, " "), country, topK)
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(answer)
		},
	}
	cmd.Flags().StringVar(&country, "country", "", "restrict retrieval to a country code")
	cmd.Flags().IntVar(&topK, "top-k", service.DefaultTopK, "number of chunks to retrieve")
	return cmd
}
