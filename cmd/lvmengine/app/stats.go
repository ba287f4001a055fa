package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the cache hit/miss/hit-ratio counters",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ops := buildOps()
		snap := ops.Engine.Stats()
		fmt.Printf("hits=%d misses=%d hit_ratio=%.4f\n", snap.Hits, snap.Misses, snap.HitRatio)
		return nil
	},
}
