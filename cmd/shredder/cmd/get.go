/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/shredder/pkg/hostnum"
	"github.com/ssargent/shredder/pkg/htable"
	"github.com/ssargent/shredder/pkg/image"
)

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get <image> <key>",
	Short: "Look up a key in a table image",
	Long: `Look up a key in a table image and print its payload.

Keys are converted to 32 bits the way the engine's callers do it: fractions
are truncated and values wrap modulo 2^32, so -1 looks up 4294967295.
Flags must come before the image path.

Examples:
  shredder get users.img 42
  shredder get --hex users.img 0x2a
  shredder get --verbose users.img 42`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		asHex, _ := cmd.Flags().GetBool("hex")
		verbose, _ := cmd.Flags().GetBool("verbose")

		key, err := hostnum.ParseUint32(args[1])
		if err != nil {
			return err
		}

		img, err := image.Open(args[0], container.ImageOptions())
		if err != nil {
			return err
		}
		defer img.Close()

		res, err := img.Table().Lookup(key)
		if err != nil {
			return err
		}
		if verbose {
			cmd.PrintErrf("key=%d bucket=%d probes=%d found=%t length=%d\n",
				key, res.Bucket, res.Probes, res.Found, len(res.Data))
		}
		if !res.Found {
			return fmt.Errorf("%w: %d", htable.ErrNotFound, key)
		}

		if asHex {
			cmd.Println(hex.EncodeToString(res.Data))
			return nil
		}
		_, err = cmd.OutOrStdout().Write(res.Data)
		return err
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
	getCmd.Flags().Bool("hex", false, "Print the payload hex-encoded")
	getCmd.Flags().BoolP("verbose", "v", false, "Print bucket and probe count to stderr")
	// Stop flag parsing at the image path so negative keys stay positional.
	getCmd.Flags().SetInterspersed(false)
}
