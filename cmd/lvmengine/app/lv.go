package app

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/invatu/lvmengine/internal/lvm"
)

var lvCmd = &cobra.Command{
	Use:   "lv",
	Short: "Logical volume operations",
}

var lvCreateFlags struct {
	activate   bool
	contiguous bool
	tags       string
	device     string
}

var lvCreateCmd = &cobra.Command{
	Use:   "create VG LV SIZE_MB",
	Short: "Create a logical volume",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		sizeMB, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			return err
		}
		ops := buildOps()
		opts := lvm.CreateLVOptions{
			Activate:   lvCreateFlags.activate,
			Contiguous: lvCreateFlags.contiguous,
			Tags:       splitCSV(lvCreateFlags.tags),
			Device:     lvCreateFlags.device,
		}
		return ops.CreateLV(cmd.Context(), args[0], args[1], sizeMB, opts)
	},
}

var lvRemoveCmd = &cobra.Command{
	Use:   "remove VG LV...",
	Short: "Remove one or more logical volumes",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ops := buildOps()
		return ops.RemoveLVs(cmd.Context(), args[0], args[1:])
	},
}

var lvExtendCmd = &cobra.Command{
	Use:   "extend VG LV SIZE_MB",
	Short: "Extend a logical volume, idempotent if already large enough",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		sizeMB, err := strconv.ParseUint(args[2], 10, 64)
		if err != nil {
			return err
		}
		ops := buildOps()
		return ops.ExtendLV(cmd.Context(), args[0], args[1], sizeMB)
	},
}

var lvActivateFlags struct {
	refresh bool
}

var lvActivateCmd = &cobra.Command{
	Use:   "activate VG LV...",
	Short: "Activate one or more logical volumes",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ops := buildOps()
		return ops.ActivateLVs(cmd.Context(), args[0], args[1:], lvActivateFlags.refresh)
	},
}

var lvDeactivateCmd = &cobra.Command{
	Use:   "deactivate VG LV...",
	Short: "Deactivate one or more logical volumes",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ops := buildOps()
		return ops.DeactivateLVs(cmd.Context(), args[0], args[1:])
	},
}

func init() {
	lvCreateCmd.Flags().BoolVar(&lvCreateFlags.activate, "activate", true, "activate the volume after creation")
	lvCreateCmd.Flags().BoolVar(&lvCreateFlags.contiguous, "contiguous", false, "require contiguous allocation")
	lvCreateCmd.Flags().StringVar(&lvCreateFlags.tags, "tags", "", "comma-separated tags to attach at creation")
	lvCreateCmd.Flags().StringVar(&lvCreateFlags.device, "device", "", "restrict allocation to this physical device")

	lvActivateCmd.Flags().BoolVar(&lvActivateFlags.refresh, "refresh", true, "refresh already-active volumes instead of skipping them")

	lvCmd.AddCommand(lvCreateCmd, lvRemoveCmd, lvExtendCmd, lvActivateCmd, lvDeactivateCmd)
}
