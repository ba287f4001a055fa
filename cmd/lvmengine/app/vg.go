package app

import (
	"strings"

	"github.com/spf13/cobra"
)

var vgCmd = &cobra.Command{
	Use:   "vg",
	Short: "Volume group operations",
}

var vgCreateFlags struct {
	tag    string
	mdSize uint64
	force  bool
}

var vgCreateCmd = &cobra.Command{
	Use:   "create VG DEVICE...",
	Short: "Create a volume group on one or more physical devices",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ops := buildOps()
		return ops.CreateVG(cmd.Context(), args[0], args[1:], vgCreateFlags.tag, vgCreateFlags.mdSize, vgCreateFlags.force)
	},
}

var vgRemoveCmd = &cobra.Command{
	Use:   "remove VG",
	Short: "Deactivate and remove a volume group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ops := buildOps()
		return ops.RemoveVG(cmd.Context(), args[0])
	},
}

var vgExtendFlags struct {
	force bool
}

var vgExtendCmd = &cobra.Command{
	Use:   "extend VG DEVICE...",
	Short: "Extend a volume group with additional physical devices",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ops := buildOps()
		return ops.ExtendVG(cmd.Context(), args[0], args[1:], vgExtendFlags.force)
	},
}

var vgTagFlags struct {
	add string
	del string
}

var vgTagCmd = &cobra.Command{
	Use:   "tag VG",
	Short: "Add/delete tags on a volume group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ops := buildOps()
		return ops.ChangeVGTags(cmd.Context(), args[0], splitCSV(vgTagFlags.add), splitCSV(vgTagFlags.del))
	},
}

func init() {
	vgCreateCmd.Flags().StringVar(&vgCreateFlags.tag, "tag", "", "tag to attach at creation")
	vgCreateCmd.Flags().Uint64Var(&vgCreateFlags.mdSize, "md-size", 0, "metadata area size in bytes (0 = lvm default)")
	vgCreateCmd.Flags().BoolVar(&vgCreateFlags.force, "force", false, "force pvcreate (-y -ff); existing holders of the devices are not removed")

	vgExtendCmd.Flags().BoolVar(&vgExtendFlags.force, "force", false, "force pvcreate (-y -ff); existing holders of the devices are not removed")

	vgTagCmd.Flags().StringVar(&vgTagFlags.add, "add", "", "comma-separated tags to add")
	vgTagCmd.Flags().StringVar(&vgTagFlags.del, "del", "", "comma-separated tags to delete")

	vgCmd.AddCommand(vgCreateCmd, vgRemoveCmd, vgExtendCmd, vgTagCmd)
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
