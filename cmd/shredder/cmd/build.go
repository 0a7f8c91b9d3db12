/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/shredder/pkg/builder"
	"github.com/ssargent/shredder/pkg/image"
)

// buildCmd represents the build command
var buildCmd = &cobra.Command{
	Use:   "build <pairs.jsonl> <out.img>",
	Short: "Build a table image from JSON-lines key/value pairs",
	Long: `Build a table image from a JSON-lines file. Each line holds one pair:

  {"key": 42, "value": "AB"}
  {"key": 99, "value": "WFla", "encoding": "base64"}

Supported encodings are utf8 (default), base64 and hex. Use "-" to read
pairs from stdin.

Examples:
  shredder build pairs.jsonl users.img
  shredder build --compression zstd pairs.jsonl users.img`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		allowDuplicates, _ := cmd.Flags().GetBool("allow-duplicates")
		compression := container.Config().Image.Compression
		if cmd.Flags().Changed("compression") {
			compression, _ = cmd.Flags().GetString("compression")
		}

		stats, err := buildImage(args[0], args[1], allowDuplicates, image.Compression(compression))
		if err != nil {
			return err
		}

		cmd.Printf("Built %s\n", args[1])
		cmd.Printf("  entries:          %d\n", stats.Entries)
		cmd.Printf("  occupied buckets: %d\n", stats.OccupiedBuckets)
		cmd.Printf("  longest chain:    %d\n", stats.LongestChain)
		cmd.Printf("  payload bytes:    %d\n", stats.PayloadBytes)
		cmd.Printf("  image size:       %d\n", stats.Size)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().Bool("allow-duplicates", false, "Keep repeated keys; only the first stays reachable")
	buildCmd.Flags().String("compression", "none", "Image body codec (none, zstd, lz4)")
}

func buildImage(input, output string, allowDuplicates bool, compression image.Compression) (builder.Stats, error) {
	logger, err := container.Logger()
	if err != nil {
		return builder.Stats{}, err
	}

	in := os.Stdin
	if input != "-" {
		f, err := os.Open(input)
		if err != nil {
			return builder.Stats{}, fmt.Errorf("failed to open pairs: %w", err)
		}
		defer f.Close()
		in = f
	}

	pairs, err := builder.ReadPairs(in)
	if err != nil {
		return builder.Stats{}, err
	}

	opts := []builder.Option{builder.WithLogger(logger)}
	if allowDuplicates {
		opts = append(opts, builder.AllowDuplicates())
	}
	b := builder.New(opts...)
	if err := b.PutAll(pairs); err != nil {
		return builder.Stats{}, err
	}

	img, _, stats, err := b.BuildImage()
	if err != nil {
		return builder.Stats{}, err
	}
	if err := image.Write(output, img, image.WriteOptions{Compression: compression}); err != nil {
		return builder.Stats{}, err
	}
	return stats, nil
}
