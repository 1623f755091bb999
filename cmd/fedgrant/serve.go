package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/fedgrant/internal/app"
	fghttp "github.com/dropDatabas3/fedgrant/internal/http"
	"github.com/dropDatabas3/fedgrant/internal/observability/logger"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the token endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx = logger.ToContext(ctx, logger.L())

			c, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := c.Close(); err != nil {
					logger.L().Warn("close", logger.Err(err))
				}
			}()

			return fghttp.Serve(ctx, fghttp.ServerConfig{
				Addr:            cfg.Server.Addr,
				ReadTimeout:     cfg.Server.ReadTimeout,
				WriteTimeout:    cfg.Server.WriteTimeout,
				ShutdownTimeout: cfg.Server.ShutdownTimeout,
			}, c.Handler)
		},
	}
}
