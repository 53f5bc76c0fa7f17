package cli

import (
	"errors"
	"fmt"
	"os"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	"github.com/noah-isme/backend-langganan/internal/db"
)

func newMigrateCmd() *cobra.Command {
	var databaseURL string
	var steps int
	cmd := &cobra.Command{
		Use:       "migrate [up|down|version]",
		Short:     "Apply or roll back schema migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if databaseURL == "" {
				databaseURL = os.Getenv("DATABASE_URL")
			}
			if databaseURL == "" {
				return errors.New("DATABASE_URL or --database-url is required")
			}
			m, err := db.NewMigrator(databaseURL)
			if err != nil {
				return err
			}
			defer m.Close()

			switch args[0] {
			case "up":
				err = m.Up()
			case "down":
				if steps <= 0 {
					return errors.New("down requires --steps > 0")
				}
				err = m.Steps(-steps)
			}
			if err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return err
			}
			version, dirty, err := m.Version()
			if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t)\n", version, dirty)
			return nil
		},
	}
	cmd.Flags().StringVar(&databaseURL, "database-url", "", "postgres URL (defaults to $DATABASE_URL)")
	cmd.Flags().IntVar(&steps, "steps", 0, "number of migrations to roll back")
	return cmd
}
