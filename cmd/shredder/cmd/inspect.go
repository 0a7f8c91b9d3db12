/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"sort"

	"github.com/spf13/cobra"
	"github.com/sugawarayuuta/sonnet"

	"github.com/ssargent/shredder/pkg/htable"
	"github.com/ssargent/shredder/pkg/image"
	"github.com/ssargent/shredder/pkg/layout"
)

type inspectReport struct {
	Path        string        `json:"path"`
	Header      layout.Header `json:"header"`
	Compression string        `json:"compression"`
	Mapped      bool          `json:"mapped"`
	LoadFactor  float64       `json:"load_factor"`
	Stats       *htable.Stats `json:"stats"`
}

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <image>",
	Short: "Show the header and chain statistics of a table image",
	Long: `Validate a table image and walk every chain, reporting the header,
bucket occupancy and the chain length histogram.

Examples:
  shredder inspect users.img
  shredder inspect --json users.img`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		img, err := image.Open(args[0], container.ImageOptions())
		if err != nil {
			return err
		}
		defer img.Close()

		stats, err := img.Table().Stats()
		if err != nil {
			return err
		}

		report := inspectReport{
			Path:        img.Path(),
			Header:      img.Header(),
			Compression: string(img.Compression()),
			Mapped:      img.Mapped(),
			LoadFactor:  stats.LoadFactor(),
			Stats:       stats,
		}

		if asJSON {
			data, err := sonnet.Marshal(report)
			if err != nil {
				return err
			}
			cmd.Println(string(data))
			return nil
		}

		printReport(cmd, report)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().Bool("json", false, "Print the report as JSON")
}

func printReport(cmd *cobra.Command, r inspectReport) {
	cmd.Printf("Image:            %s\n", r.Path)
	cmd.Printf("Format version:   %d\n", r.Header.Version)
	cmd.Printf("Hash version:     %d\n", r.Header.HashVersion)
	cmd.Printf("Compression:      %s\n", r.Compression)
	cmd.Printf("Mapped:           %t\n", r.Mapped)
	cmd.Printf("Size:             %d bytes\n", r.Header.ImageSize)
	cmd.Printf("Checksum:         %016x\n", r.Header.Checksum)
	cmd.Printf("Entries:          %d\n", r.Stats.Entries)
	cmd.Printf("Occupied buckets: %d of %d\n", r.Stats.OccupiedBuckets, r.Stats.Buckets)
	cmd.Printf("Load factor:      %.6f\n", r.LoadFactor)
	cmd.Printf("Payload bytes:    %d\n", r.Stats.PayloadBytes)
	cmd.Printf("Longest chain:    %d\n", r.Stats.LongestChain)

	lengths := make([]int, 0, len(r.Stats.ChainLengths))
	for length := range r.Stats.ChainLengths {
		lengths = append(lengths, length)
	}
	sort.Ints(lengths)
	for _, length := range lengths {
		cmd.Printf("  chains of %d: %d\n", length, r.Stats.ChainLengths[length])
	}
}
