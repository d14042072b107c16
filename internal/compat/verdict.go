// Package compat decides whether the flash-attention extension is
// ABI-compatible with the installed torch/CUDA runtime. The decision is a
// pure function over an environment snapshot; all probing lives in
// envprobe.
package compat

// Verdict is the terminal outcome of a diagnostic pass.
type Verdict int

const (
	// Undeterminable means no ABI conclusion is possible: the runtime or
	// the extension is absent, or inspection itself failed.
	Undeterminable Verdict = iota

	// Compatible means the extension loaded cleanly and its build toolkit
	// matches the runtime's.
	Compatible

	// Incompatible means loading the extension will fail (or already
	// failed) due to a native ABI mismatch.
	Incompatible
)

// String returns the verdict name used in reports.
func (v Verdict) String() string {
	switch v {
	case Compatible:
		return "compatible"
	case Incompatible:
		return "incompatible"
	default:
		return "undeterminable"
	}
}

// ExitCode maps the verdict to the process exit code: only an
// incompatible environment is a preflight failure.
func (v Verdict) ExitCode() int {
	if v == Incompatible {
		return 1
	}
	return 0
}
