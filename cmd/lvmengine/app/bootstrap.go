package app

import (
	"github.com/spf13/cobra"
)

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Bulk-reload PVs/VGs/LVs and deactivate unopened, unprepared logical volumes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ops := buildOps()
		return ops.Bootstrap(cmd.Context(), nil)
	},
}
