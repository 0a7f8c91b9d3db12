/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP lookup server",
	Long: `Open every registered table and serve lookups over HTTP until
interrupted.

Endpoints:
  GET /api/v1/health
  GET /api/v1/tables
  GET /api/v1/tables/{name}[?stats=true]
  GET /api/v1/tables/{name}/keys/{key}
  GET /metrics

Examples:
  shredder serve
  shredder serve --port 9000 --bind 0.0.0.0`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := container.Config()
		if cmd.Flags().Changed("port") {
			cfg.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("bind") {
			cfg.Bind, _ = cmd.Flags().GetString("bind")
		}
		if cmd.Flags().Changed("api-key") {
			cfg.Security.APIKey, _ = cmd.Flags().GetString("api-key")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runServer(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind to")
	serveCmd.Flags().String("api-key", "", "API key for authentication (empty disables it)")
}

func runServer(ctx context.Context) error {
	logger, err := container.Logger()
	if err != nil {
		return err
	}

	cat, err := container.Catalog()
	if err != nil {
		return err
	}
	if err := cat.OpenAll(ctx); err != nil {
		return err
	}

	factory, err := container.GetServerFactory()
	if err != nil {
		return err
	}

	if container.Config().Security.APIKey == "" {
		logger.Warn("API key not set, lookups are unauthenticated")
	}
	logger.Info("serving tables", zap.Strings("tables", cat.Loaded()))

	return factory.CreateServer(cat, container.ServerConfig()).Run(ctx)
}
