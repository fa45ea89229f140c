package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vehiclematch/backend/internal/domain"
	"github.com/vehiclematch/backend/internal/infrastructure/csvcatalog"
	"github.com/vehiclematch/backend/internal/infrastructure/sqlite"
)

func newImportCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load a CSV catalog into the SQLite database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, log, err := opts.bootstrap()
			if err != nil {
				return err
			}
			defer log.Sync()

			csvPath, _ := cmd.Flags().GetString("csv")
			if csvPath == "" {
				csvPath = cfg.Catalog.Path
			}
			dbPath, _ := cmd.Flags().GetString("sqlite")
			if dbPath == "" {
				dbPath = cfg.Catalog.SQLitePath
			}

			vehicles, err := csvcatalog.LoadFile(csvPath)
			if err != nil {
				return err
			}
			if len(vehicles) == 0 {
				return fmt.Errorf("%s: %w", csvPath, domain.ErrCatalogEmpty)
			}

			store, err := sqlite.Open(ctx, dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Replace(ctx, vehicles); err != nil {
				return err
			}

			log.Info("catalog imported",
				zap.String("csv", csvPath),
				zap.String("sqlite", dbPath),
				zap.Int("vehicles", len(vehicles)),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d vehicles into %s\n", len(vehicles), dbPath)
			return nil
		},
	}

	cmd.Flags().String("csv", "", "CSV catalog to import (default catalog.path)")
	cmd.Flags().String("sqlite", "", "SQLite database to write (default catalog.sqlite_path)")

	return cmd
}
