// Command fedgrant runs the federated-credential token service and its
// admin tasks.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/fedgrant/internal/config"
	"github.com/dropDatabas3/fedgrant/internal/observability/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	envFile    string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "fedgrant",
		Short:         "OAuth2 token service exchanging federated credentials for local tokens",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// a missing env file is fine; the environment may already be set
			_ = godotenv.Load(opts.envFile)

			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			opts.cfg = cfg
			logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level, ServiceName: "fedgrant"})
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = logger.Sync()
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("FEDGRANT_CONFIG"), "path to config.yaml (env FEDGRANT_CONFIG)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the config")

	root.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newClientCmd(opts),
		newIdentityCmd(opts),
		newHashSecretCmd(),
	)
	return root
}
