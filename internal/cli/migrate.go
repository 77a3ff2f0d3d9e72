package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema migrations",
	Long:  `Apply any pending schema migrations (embedded in the binary) to the database configured by DATABASE_URL`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, cleanup, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		if err := st.Migrate(); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}

		fmt.Println("✓ database schema is up to date")
		return nil
	},
}
