/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/shredder/pkg/hostnum"
	"github.com/ssargent/shredder/pkg/htable"
)

// fieldCmd represents the field command
var fieldCmd = &cobra.Command{
	Use:   "field <file> <index>",
	Short: "Read one little-endian uint32 element from a file",
	Long: `Read element <index> of a file viewed as an array of little-endian
uint32 values. Element i lives at byte offset 4*i. Indexes wrap modulo
2^32 like lookup keys.

Examples:
  shredder field payload.bin 0
  shredder field payload.bin 3`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := hostnum.ParseUint32(args[1])
		if err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		value, err := htable.ReadElementChecked(data, index)
		if err != nil {
			return err
		}
		cmd.Println(value)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fieldCmd)
	fieldCmd.Flags().SetInterspersed(false)
}
