// Package lvmlog carries a context-scoped logr.Logger through the command
// runner and cache engine, the same way the teacher package's lvm_command.go
// threads a logr.Logger via sigs.k8s.io/controller-runtime/pkg/log. This
// package talks to go-logr/logr directly instead of pulling in
// controller-runtime, since nothing else here needs a Kubernetes client.
package lvmlog

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// IntoContext returns a copy of ctx carrying logger, retrievable with
// FromContext.
func IntoContext(ctx context.Context, logger logr.Logger) context.Context {
	return logr.NewContext(ctx, logger)
}

// FromContext returns the logr.Logger stashed in ctx, or a no-op logger if
// none was installed.
func FromContext(ctx context.Context) logr.Logger {
	return logr.FromContextOrDiscard(ctx)
}

// Options mirrors the handful of flags the teacher's zap.Options.BindFlags
// exposes (controller-runtime/pkg/log/zap), reimplemented directly against
// go.uber.org/zap so the CLI does not need to import controller-runtime.
type Options struct {
	Development bool
	Level       string
}

// BindFlags registers --zap-devel and --zap-log-level on fs, the two flags
// of the teacher's zap.Options that this engine's CLI actually consults.
func (o *Options) BindFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.Development, "zap-devel", false, "Enable development logging (stacktraces on warn, human-readable timestamps).")
	fs.StringVar(&o.Level, "zap-log-level", "info", "Zap log level: debug, info, error.")
}

// NewLogger builds a logr.Logger backed by go.uber.org/zap via zapr, the
// same adapter the teacher wires controller-runtime's logger through.
func NewLogger(opts Options) (logr.Logger, error) {
	var level zapcore.Level
	if err := level.Set(opts.Level); err != nil {
		level = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	zl, err := cfg.Build()
	if err != nil {
		return logr.Logger{}, err
	}
	return zapr.NewLogger(zl), nil
}
