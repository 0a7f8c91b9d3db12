/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/shredder/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file and data directories",
	Long: `Create a shredder configuration with a generated API key, along with the
data directories it points at.

Examples:
  shredder init
  shredder init --config ./shredder.yaml --data-dir ./data --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		force, _ := cmd.Flags().GetBool("force")
		if configPath == "" {
			configPath = config.GetDefaultConfigPath()
		}

		if config.ConfigExists(configPath) && !force {
			cmd.Printf("Configuration already exists at %s. Use --force to overwrite.\n", configPath)
			return nil
		}

		cfg, err := initializeConfig(configPath, container.Config().DataDir)
		if err != nil {
			return err
		}
		container.SetConfig(cfg)

		cmd.Printf("Configuration written to %s\n", configPath)
		cmd.Printf("Data directory: %s\n", cfg.DataDir)
		cmd.Printf("API key: %s\n", cfg.Security.APIKey)
		cmd.Printf("\nBuild a table and serve it with:\n")
		cmd.Printf("  shredder build pairs.jsonl %s/users.img\n", cfg.TablesDir())
		cmd.Printf("  shredder register users %s/users.img\n", cfg.TablesDir())
		cmd.Printf("  shredder serve\n")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration")
}

// initializeConfig bootstraps the configuration and creates its directories
func initializeConfig(configPath, dataDir string) (*config.Config, error) {
	cfg, err := config.BootstrapConfig(configPath, dataDir)
	if err != nil {
		return nil, err
	}
	for _, dir := range []string{cfg.CatalogDir(), cfg.TablesDir()} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return cfg, nil
}
