// Package config loads the single engine-level configuration input named in
// the specification: a dotted key holding a comma-separated device
// allowlist. It follows the file-plus-flag-override loading shape the
// teacher's cmd/topolvm-controller and pkg/topolvm-node root commands build
// around spf13/viper, decoding into a typed struct with
// mitchellh/mapstructure the same way the teacher decodes its
// ControllerServerSettings.
package config

import (
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// WhitelistKey is the single dotted configuration key this package reads.
const WhitelistKey = "irs.lvm_dev_whitelist"

// IRS holds the "irs" configuration section. Only the device whitelist is
// modeled; other irs.* keys are out of this engine's scope.
type IRS struct {
	LVMDevWhitelist string `mapstructure:"lvm_dev_whitelist"`
}

// Config is the full decoded configuration document.
type Config struct {
	IRS IRS `mapstructure:"irs"`
}

// Loader wraps a *viper.Viper pre-bound to the file search path and flag set
// conventions used across the teacher's CLIs.
type Loader struct {
	v *viper.Viper
}

// NewLoader constructs a Loader, registering the usual config-file search
// path ("/etc/vdsm", the working directory) and binding fs's "config" flag
// as an override, mirroring root.go's fs.StringVar(&cfgFilePath, "config", ...).
func NewLoader(fs *pflag.FlagSet) *Loader {
	v := viper.New()
	v.SetConfigName("vdsm")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/vdsm")
	v.SetEnvPrefix("VDSM")
	v.AutomaticEnv()

	if fs != nil {
		_ = v.BindPFlag("config-file", fs.Lookup("config"))
		_ = v.BindPFlag(WhitelistKey, fs.Lookup("lvm-dev-whitelist"))
	}

	return &Loader{v: v}
}

// Load reads the config file (if present — a missing file is not an error,
// matching loadConfigFileIntoFlagSet's tolerant behavior in the teacher's
// app package) and decodes it into a Config.
func (l *Loader) Load() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.TextUnmarshallerHookFunc(),
		Result:     &cfg,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(l.v.AllSettings()); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Whitelist splits the comma-separated lvm_dev_whitelist entry into its
// constituent device patterns, trimming surrounding whitespace and dropping
// empty entries.
func (c *Config) Whitelist() []string {
	if c == nil || c.IRS.LVMDevWhitelist == "" {
		return nil
	}
	parts := strings.Split(c.IRS.LVMDevWhitelist, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
