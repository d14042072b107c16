// Package envprobe collects a read-only snapshot of the training
// environment: the torch runtime, its bundled CUDA toolkit, the
// flash-attention extension, and the surrounding host toolchain.
//
// Probe failures are classified at collection time into a small set of
// tagged variants (FailureKind), so downstream verdict logic operates on
// enumerated values instead of matching error-message substrings.
package envprobe

// FailureKind tags why a probe failed to produce its module info.
type FailureKind int

const (
	// FailureMissing means the probed module is not installed.
	FailureMissing FailureKind = iota

	// FailureSymbol means the module was found but failed to load with an
	// undefined-symbol error, the characteristic signature of a native
	// extension built against a different runtime ABI.
	FailureSymbol

	// FailureUnexpected covers every other inspection error. The original
	// message is preserved verbatim for the report.
	FailureUnexpected
)

// String returns the tag name for logs and reports.
func (k FailureKind) String() string {
	switch k {
	case FailureMissing:
		return "missing"
	case FailureSymbol:
		return "undefined-symbol"
	default:
		return "unexpected"
	}
}

// ProbeFailure is a classified probe error.
type ProbeFailure struct {
	Kind    FailureKind
	Message string // original interpreter output, trimmed
	Symbol  string // undefined symbol name, when one could be extracted
}

// Error implements the error interface.
func (f *ProbeFailure) Error() string {
	if f.Symbol != "" {
		return f.Kind.String() + ": " + f.Symbol
	}
	return f.Kind.String() + ": " + f.Message
}

// RuntimeInfo is the torch runtime's self-reported build metadata.
type RuntimeInfo struct {
	Version       string `json:"version"`
	Toolkit       string `json:"cuda"` // CUDA toolkit torch was built with, e.g. "12.1"
	DeviceVisible bool   `json:"available"`
	PythonTag     string `json:"python_tag"` // e.g. "cp312"
	CXX11ABI      bool   `json:"cxx11abi"`
}

// ExtensionInfo is the flash-attention extension's build metadata.
type ExtensionInfo struct {
	Version string `json:"version"`
	Toolkit string `json:"cuda"` // CUDA toolkit the extension was built against
}

// Snapshot captures one diagnostic pass over the environment. It is
// created once per invocation and never mutated afterwards.
type Snapshot struct {
	Platform   string // GOOS/GOARCH
	CUDAHome   string // CUDA_HOME, "<unset>" when absent
	NVCC       string // nvcc release line, "<unavailable: ...>" on failure
	Driver     string // nvidia-smi driver version, "<unavailable: ...>" on failure
	Adapter    string // GPU adapter description, "" when none was described
	AdapterErr string // why no adapter could be described, "" when probing was skipped

	Runtime    *RuntimeInfo
	RuntimeErr *ProbeFailure

	// Extension and ExtensionErr are both nil when the extension probe was
	// skipped because the runtime itself is unavailable.
	Extension    *ExtensionInfo
	ExtensionErr *ProbeFailure
}

// ExtensionProbed reports whether the extension probe ran at all.
func (s *Snapshot) ExtensionProbed() bool {
	return s.Extension != nil || s.ExtensionErr != nil
}
