/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"time"

	"github.com/spf13/cobra"
)

// registerCmd represents the register command
var registerCmd = &cobra.Command{
	Use:   "register <name> <image>",
	Short: "Register a table image in the catalog",
	Long: `Validate a table image and record it in the catalog under <name> so
'shredder serve' answers lookups from it. Registering an existing name
replaces the previous image.

Example:
  shredder register users ./data/tables/users.img`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := container.Catalog()
		if err != nil {
			return err
		}

		record, err := cat.Register(args[0], args[1])
		if err != nil {
			return err
		}
		cmd.Printf("Registered %s (%s): %d entries from %s\n", record.Name, record.ID, record.Entries, record.Path)
		return nil
	},
}

// tablesCmd represents the tables command
var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List registered tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := container.Catalog()
		if err != nil {
			return err
		}

		records, err := cat.List()
		if err != nil {
			return err
		}
		if len(records) == 0 {
			cmd.Println("No tables registered")
			return nil
		}
		for _, r := range records {
			cmd.Printf("%s\t%d entries\t%d bytes\t%s\t%s\n",
				r.Name, r.Entries, r.Size, r.RegisteredAt.Format(time.RFC3339), r.Path)
		}
		return nil
	},
}

// unregisterCmd represents the unregister command
var unregisterCmd = &cobra.Command{
	Use:   "unregister <name>",
	Short: "Remove a table from the catalog",
	Long: `Remove a table from the catalog. The image file is left on disk.

Example:
  shredder unregister users`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := container.Catalog()
		if err != nil {
			return err
		}
		if err := cat.Remove(args[0]); err != nil {
			return err
		}
		cmd.Printf("Unregistered %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(unregisterCmd)
}
