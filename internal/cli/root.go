package cli

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/animal-health-networks/petcert/internal/config"
	"github.com/animal-health-networks/petcert/internal/logger"
	"github.com/animal-health-networks/petcert/internal/version"
	"github.com/spf13/cobra"
)

var (
	cfg       *config.AppEnvironment
	appLogger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:               "petcert",
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	Short:             "Pet health certificate CLI",
	Long:              `petcert manages dual-signed pet medical records and the scannable health certificates issued from them`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.NewAppConfig()
		if err != nil {
			log.Printf("failed to load configuration: %v", err.Error())
			return err
		}

		appLogger = logger.InitLogger(logger.ParseLogLevel(cfg.LogLevel), cfg.Environment)
		return nil
	},
}

func Execute() {
	v := version.Get()
	rootCmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(issueCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(statusCmd)
}
