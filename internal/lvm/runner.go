package lvm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"github.com/invatu/lvmengine/internal/lvmlog"
)

// suppressWarnings matches the benign stderr noise lvm emits that should
// never surface as a residual warning: the metadata-backup disable notice,
// stale-seqno notices during a filter retry, and inconsistent-metadata
// notices that the retry ladder itself resolves (§4.3).
var suppressWarnings = regexp.MustCompile(`(?i)(` +
	`backup of volume group .* metadata is disabled` +
	`|ignoring metadata seqno \d+ on /dev/mapper/\S+` +
	`|inconsistent metadata found for vg \S+` +
	`)`)

// Runner executes an lvm argv and reports its raw result. Implementations
// must not interpret rc themselves — the Cache Engine's retry ladder does
// that — they only execute and capture.
type Runner interface {
	Run(ctx context.Context, args []string) (rc int, out, errLines []string, err error)
}

// ExecRunner invokes a real lvm binary, optionally wrapped in a privilege
// elevation command, mirroring the teacher's wrapExecCommand/nsenter
// pattern in lvm_command.go.
type ExecRunner struct {
	// Binary is the path to the lvm executable (from host constants).
	Binary string
	// Elevate, if non-empty, is prepended to the argv to run the command
	// with elevated privileges, e.g. []string{"sudo", "-n"}.
	Elevate []string
}

// NewExecRunner constructs an ExecRunner for the given lvm binary path.
func NewExecRunner(binary string, elevate []string) *ExecRunner {
	return &ExecRunner{Binary: binary, Elevate: elevate}
}

func (r *ExecRunner) wrap(args []string) (string, []string) {
	if len(r.Elevate) == 0 {
		return r.Binary, args
	}
	wrapped := make([]string, 0, len(r.Elevate)+1+len(args))
	wrapped = append(wrapped, r.Elevate[1:]...)
	wrapped = append(wrapped, r.Binary)
	wrapped = append(wrapped, args...)
	return r.Elevate[0], wrapped
}

// Run spawns the lvm binary with args, decodes stdout/stderr as UTF-8 text
// split into lines, filters benign stderr warnings, and logs any residual
// warnings on a successful (rc==0) run (§4.3 steps 1-5).
func (r *ExecRunner) Run(ctx context.Context, args []string) (int, []string, []string, error) {
	name, fullArgs := r.wrap(args)
	cmd := exec.CommandContext(ctx, name, fullArgs...)
	cmd.Env = append(os.Environ(), "LC_ALL=C")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger := lvmlog.FromContext(ctx)
	logger.V(1).Info("invoking lvm command", "args", append([]string{name}, fullArgs...))

	runErr := cmd.Run()
	rc := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			rc = exitErr.ExitCode()
		} else {
			return -1, nil, nil, fmt.Errorf("failed to execute lvm command: %w", runErr)
		}
	}

	outLines := splitNonEmptyLines(stdout.String())
	errLines := filterSuppressedWarnings(splitNonEmptyLines(stderr.String()))

	if rc == 0 && len(errLines) > 0 {
		logger.Info("lvm command succeeded with residual warnings", "args", fullArgs, "warnings", errLines)
	}

	return rc, outLines, errLines, nil
}

func splitNonEmptyLines(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(strings.TrimRight(s, "\n"), "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

func filterSuppressedWarnings(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if !suppressWarnings.MatchString(l) {
			out = append(out, l)
		}
	}
	return out
}
