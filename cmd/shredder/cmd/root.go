/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/shredder/pkg/config"
	"github.com/ssargent/shredder/pkg/di"
)

var container *di.Container

var errNoContainer = errors.New("dependency container not initialized")

// SetContainer injects the dependency container used by every command
func SetContainer(c *di.Container) {
	container = c
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "shredder",
	Short: "shredder - chained hash table lookups",
	Long: `shredder builds flat chained hash table images and answers key lookups
against them, from the command line or over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if container == nil {
			return errNoContainer
		}

		configPath, _ := cmd.Flags().GetString("config")
		if configPath == "" {
			configPath = config.GetDefaultConfigPath()
		}
		if config.ConfigExists(configPath) && cmd.Name() != "init" {
			if err := container.LoadConfig(configPath); err != nil {
				return err
			}
		}

		if cmd.Flags().Changed("data-dir") {
			dataDir, _ := cmd.Flags().GetString("data-dir")
			container.Config().DataDir = dataDir
		}
		if cmd.Flags().Changed("log-level") {
			level, _ := cmd.Flags().GetString("log-level")
			container.Config().Logging.Level = level
		}
		return container.Config().Validate()
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if container == nil {
			return nil
		}
		return container.Close()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SetOut(os.Stdout)
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to the configuration file")
	rootCmd.PersistentFlags().StringP("data-dir", "d", "./data", "Data directory for the catalog and tables")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
}
