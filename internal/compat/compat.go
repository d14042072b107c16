package compat

import (
	"fmt"
	"strings"

	"github.com/SeanYHan888/SimPO/internal/envprobe"
)

// Outcome is the classified result: a verdict, the taxonomy error behind
// it (nil only when compatible), and a one-line reason for the report.
type Outcome struct {
	Verdict Verdict
	Err     error
	Reason  string
}

// Classify derives the verdict from a snapshot. Pure: it inspects only
// the tagged probe results, never the host.
func Classify(snap *envprobe.Snapshot) Outcome {
	if f := snap.RuntimeErr; f != nil {
		switch f.Kind {
		case envprobe.FailureMissing:
			return Outcome{
				Verdict: Undeterminable,
				Err:     fmt.Errorf("%w: %s", ErrRuntimeMissing, f.Message),
				Reason:  "torch is missing; install the runtime before checking extension compatibility",
			}
		case envprobe.FailureSymbol:
			return Outcome{
				Verdict: Undeterminable,
				Err:     fmt.Errorf("%w: %s", ErrInspection, f.Message),
				Reason:  "torch itself failed to load with an undefined-symbol error; repair the runtime install before checking the extension",
			}
		default:
			return Outcome{
				Verdict: Undeterminable,
				Err:     fmt.Errorf("%w: %s", ErrInspection, f.Message),
				Reason:  "the runtime probe failed before any ABI comparison was possible",
			}
		}
	}

	if f := snap.ExtensionErr; f != nil {
		switch f.Kind {
		case envprobe.FailureSymbol:
			return Outcome{
				Verdict: Incompatible,
				Err:     fmt.Errorf("%w: undefined symbol %s", ErrExtensionABIMismatch, f.Symbol),
				Reason:  symbolReason(snap, f),
			}
		case envprobe.FailureMissing:
			return Outcome{
				Verdict: Undeterminable,
				Err:     ErrExtensionNotInstalled,
				Reason:  "flash-attn is not installed; no ABI conflict can exist without it",
			}
		default:
			return Outcome{
				Verdict: Undeterminable,
				Err:     fmt.Errorf("%w: %s", ErrInspection, f.Message),
				Reason:  "the extension probe failed before any ABI comparison was possible",
			}
		}
	}

	if snap.Extension == nil {
		return Outcome{
			Verdict: Undeterminable,
			Err:     fmt.Errorf("%w: extension was not probed", ErrInspection),
			Reason:  "the extension probe did not run",
		}
	}

	rt, ext := snap.Runtime.Toolkit, snap.Extension.Toolkit
	if rt == "" || ext == "" {
		return Outcome{
			Verdict: Undeterminable,
			Err:     ErrMetadataUnavailable,
			Reason:  "one side did not report a CUDA toolkit version; cannot compare builds",
		}
	}

	if MajorMinor(rt) == MajorMinor(ext) {
		return Outcome{
			Verdict: Compatible,
			Reason:  fmt.Sprintf("extension build toolkit %s matches runtime toolkit %s", ext, rt),
		}
	}
	return Outcome{
		Verdict: Incompatible,
		Err:     fmt.Errorf("%w: extension built against CUDA %s, runtime bundles CUDA %s", ErrExtensionABIMismatch, ext, rt),
		Reason:  fmt.Sprintf("extension was built against CUDA %s but the runtime bundles CUDA %s", ext, rt),
	}
}

func symbolReason(snap *envprobe.Snapshot, f *envprobe.ProbeFailure) string {
	where := "an unrecognized namespace"
	if envprobe.RuntimeInternalSymbol(f.Symbol) || envprobe.RuntimeInternalSymbol(f.Message) {
		where = "a torch-internal namespace"
	}
	torch, cuda := "unknown", "unknown"
	if snap.Runtime != nil {
		torch, cuda = snap.Runtime.Version, snap.Runtime.Toolkit
	}
	return fmt.Sprintf(
		"extension load failed resolving %s (symbol from %s); it was built against a different torch/CUDA runtime (torch=%s, cuda=%s)",
		f.Symbol, where, torch, cuda,
	)
}

// MajorMinor truncates a version string to its compatibility-relevant
// precision: "12.1.105" -> "12.1".
func MajorMinor(v string) string {
	parts := strings.SplitN(strings.TrimSpace(v), ".", 3)
	if len(parts) >= 2 {
		return parts[0] + "." + parts[1]
	}
	return parts[0]
}
