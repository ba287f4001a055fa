// Package app is the cobra command tree for the lvmengine CLI, the thin
// daemon-wiring shell around internal/lvm in the same shape as the
// teacher's rootCmd/subMain() split (cmd/topolvm-controller/app,
// pkg/topolvm-node/cmd).
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/invatu/lvmengine/internal/config"
	"github.com/invatu/lvmengine/internal/lvm"
	"github.com/invatu/lvmengine/internal/lvmlog"
	"github.com/invatu/lvmengine/internal/procutil"
)

const configName = "lvmengine-config"

var cliConfig struct {
	configFile  string
	whitelist   string
	lvmBinary   string
	storageRoot string
	readOnly    bool
	zapOpts     lvmlog.Options
}

var rootCmd = &cobra.Command{
	Use:   "lvmengine",
	Short: "LVM cache and command engine",
	Long: `lvmengine mediates pvs/vgs/lvs/pvcreate/... invocations behind a
coherent in-process cache, a bounded command semaphore and a read-only
retry ladder for hosts racing a cluster's metadata writer.`,

	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := loadConfigFileIntoFlagSet(cmd.Flags()); err != nil {
			return err
		}
		logger, err := lvmlog.NewLogger(cliConfig.zapOpts)
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		cmd.SetContext(lvmlog.IntoContext(context.Background(), logger))
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once by main.main().
func Execute() {
	fs := rootCmd.PersistentFlags()
	fs.StringVar(&cliConfig.configFile, "config", fmt.Sprintf("%s.yaml", configName), "configuration file (parsed as yaml), searched for in . and /etc/vdsm")
	fs.StringVar(&cliConfig.whitelist, "lvm-dev-whitelist", "", "comma-separated device patterns always accepted by the filter builder")
	fs.StringVar(&cliConfig.lvmBinary, "lvm-binary", lvm.LVMBinary, "path to the lvm executable")
	fs.StringVar(&cliConfig.storageRoot, "storage-root", "", "P_VDSM_STORAGE root used by bootstrap's prepared-images glob")
	fs.BoolVar(&cliConfig.readOnly, "read-only", false, "start the engine in read-only locking mode")
	cliConfig.zapOpts.BindFlags(fs)

	rootCmd.AddCommand(bootstrapCmd, statsCmd, vgCmd, lvCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// loadConfigFileIntoFlagSet mirrors the teacher's function of the same
// name (cmd/topolvm-controller/app/root.go): bind every flag to viper, add
// the search paths, and tolerate a missing config file.
func loadConfigFileIntoFlagSet(fs *pflag.FlagSet) error {
	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" {
			return
		}
		key := f.Name
		if f.Name == "lvm-dev-whitelist" {
			key = config.WhitelistKey
		}
		if err := viper.BindPFlag(key, f); err != nil {
			errs = append(errs, err)
		}
	})
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/vdsm")
	viper.SetConfigName(strings.TrimSuffix(cliConfig.configFile, ".yaml"))
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("fatal error config file: %w", err)
		}
	}
	return nil
}

// decodedWhitelist re-reads irs.lvm_dev_whitelist through mapstructure the
// way the teacher decodes controllerServerSettings, falling back to the
// --lvm-dev-whitelist flag value already bound above.
func decodedWhitelist() []string {
	var cfg config.Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.TextUnmarshallerHookFunc(),
		Result:     &cfg,
	})
	if err == nil {
		_ = decoder.Decode(viper.AllSettings())
	}
	if list := cfg.Whitelist(); len(list) > 0 {
		return list
	}
	return (&config.Config{IRS: config.IRS{LVMDevWhitelist: cliConfig.whitelist}}).Whitelist()
}

// buildOps constructs the Engine and Ops façade the subcommands share,
// wired with a real ExecRunner and the whitelist allowlist. The multipath
// lister here reports no devices, so the global filter accepts only the
// whitelist entries.
func buildOps() *lvm.Ops {
	runner := lvm.NewExecRunner(cliConfig.lvmBinary, nil)
	multipath := func(context.Context) ([]string, error) { return nil, nil }
	allowlist := decodedWhitelist

	engine := lvm.NewEngine(runner, multipath, allowlist)
	engine.WithCacheStats(lvm.NewCacheStats(prometheus.DefaultRegisterer))
	engine.SetReadOnly(cliConfig.readOnly)

	return lvm.NewOps(engine, cliConfig.storageRoot).WithDeviceActiveSource(procutil.IsLVActive)
}
