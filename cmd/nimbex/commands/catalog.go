package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ilexum-group/nimbex/internal/catalog"
	"github.com/ilexum-group/nimbex/internal/config"
)

func newCatalogCmd() *cobra.Command {
	var (
		caseID string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List cataloged collection runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}

			store, err := catalog.Open(cfg.CatalogPath)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			records, err := store.List(caseID, limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("No collections cataloged")
				return nil
			}

			for _, rec := range records {
				status := "ok"
				if !rec.Success {
					status = "failed"
				}
				fmt.Printf("%s  %-12s %-10s %-16s %3d items  %-6s %s\n",
					rec.CreatedAt, rec.CaseID, rec.Provider, rec.SourceType,
					rec.EvidenceCount, status, rec.ManifestPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&caseID, "case-id", "", "filter by case ID")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows")
	return cmd
}
