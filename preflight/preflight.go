// Package preflight checks a SimPO training environment before a
// distributed launch: will the flash-attention extension load against the
// installed torch/CUDA runtime, or fail midway with a native ABI error?
//
// Example:
//
//	result := preflight.Diagnose(ctx, preflight.Options{})
//	result.Report.Render(os.Stdout)
//	os.Exit(result.Verdict.ExitCode())
package preflight

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/SeanYHan888/SimPO/internal/compat"
	"github.com/SeanYHan888/SimPO/internal/envprobe"
	"github.com/SeanYHan888/SimPO/internal/gpuprobe"
	"github.com/SeanYHan888/SimPO/internal/report"
)

// Verdict re-exports the diagnostic outcome type.
type Verdict = compat.Verdict

// The three terminal outcomes.
const (
	Compatible     = compat.Compatible
	Incompatible   = compat.Incompatible
	Undeterminable = compat.Undeterminable
)

// Options configure a diagnostic pass. The zero value probes the real
// host with defaults.
type Options struct {
	// Python is the interpreter of the training environment.
	Python string

	// ExtensionModule overrides the native module name to import.
	ExtensionModule string

	// Timeout bounds the whole diagnostic pass.
	Timeout time.Duration

	// SkipGPUProbe disables the WebGPU adapter visibility check.
	SkipGPUProbe bool

	// Logger receives debug-level probe diagnostics.
	Logger *slog.Logger
}

// Result is the outcome of one diagnostic pass.
type Result struct {
	Verdict  Verdict
	Err      error // taxonomy error behind the verdict, nil when compatible
	Snapshot *envprobe.Snapshot
	Report   *report.Report
}

// Diagnose inspects the environment and classifies it. It never returns
// an error: inspection failures are downgraded to an undeterminable
// verdict and surfaced in the report, because the diagnostic must not
// itself crash while investigating a crash.
func Diagnose(ctx context.Context, opts Options) *Result {
	prober := &envprobe.Prober{
		Python:          opts.Python,
		ExtensionModule: opts.ExtensionModule,
		Log:             opts.Logger,
	}
	if !opts.SkipGPUProbe {
		prober.AdapterProbe = describeAdapter
	}
	return diagnose(ctx, prober, opts.Timeout)
}

// describeAdapter checks adapter visibility before asking for a
// description, so the report can say "no adapter visible" instead of a
// bare request failure.
func describeAdapter() (string, error) {
	if !gpuprobe.Available() {
		return "", errors.New("no WebGPU adapter visible on this host")
	}
	return gpuprobe.Describe()
}

func diagnose(ctx context.Context, prober *envprobe.Prober, timeout time.Duration) *Result {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	snap := prober.Collect(ctx)
	out := compat.Classify(snap)
	return &Result{
		Verdict:  out.Verdict,
		Err:      out.Err,
		Snapshot: snap,
		Report:   report.Build(snap, out),
	}
}
