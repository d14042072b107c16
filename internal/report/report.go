// Package report renders a diagnostic snapshot and its verdict as an
// operator-facing check list, in plain text or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/SeanYHan888/SimPO/internal/compat"
	"github.com/SeanYHan888/SimPO/internal/envprobe"
)

// Status classifies a single check line.
type Status string

const (
	StatusOK   Status = "ok"
	StatusFail Status = "fail"
	StatusInfo Status = "info"
	StatusSkip Status = "skip"
)

// Check is one line of the report.
type Check struct {
	Name   string `json:"name"`
	Status Status `json:"status"`
	Detail string `json:"detail,omitempty"`
	Hint   string `json:"hint,omitempty"`
}

// Report aggregates the checks for one diagnostic pass.
type Report struct {
	GeneratedAt time.Time `json:"generatedAt"`
	Verdict     string    `json:"verdict"`
	Summary     string    `json:"summary"`
	Checks      []Check   `json:"checks"`
}

const resolveHint = "run `preflight resolve --print-url` to locate a prebuilt wheel matching this runtime, then reinstall flash-attn from it"

// Build assembles the report from a snapshot and its classified outcome.
func Build(snap *envprobe.Snapshot, out compat.Outcome) *Report {
	r := &Report{
		GeneratedAt: time.Now().UTC(),
		Verdict:     out.Verdict.String(),
		Summary:     out.Verdict.String() + ": " + out.Reason,
	}

	r.add("platform", StatusInfo, snap.Platform, "")
	r.add("CUDA_HOME", StatusInfo, snap.CUDAHome, "")
	r.add("nvcc", StatusInfo, snap.NVCC, "")
	r.add("nvidia driver", StatusInfo, snap.Driver, "")

	switch {
	case snap.Adapter != "":
		r.add("gpu adapter", StatusInfo, snap.Adapter, "")
	case snap.AdapterErr != "":
		r.add("gpu adapter", StatusInfo, snap.AdapterErr, "")
	default:
		r.add("gpu adapter", StatusSkip, "not probed", "")
	}

	r.addRuntime(snap)
	r.addExtension(snap, out)
	return r
}

func (r *Report) addRuntime(snap *envprobe.Snapshot) {
	if f := snap.RuntimeErr; f != nil {
		r.add("torch runtime", StatusFail, f.Message, "")
		return
	}
	rt := snap.Runtime
	detail := fmt.Sprintf("torch %s, cuda %s, device visible: %v", rt.Version, rt.Toolkit, rt.DeviceVisible)
	r.add("torch runtime", StatusOK, detail, "")
}

func (r *Report) addExtension(snap *envprobe.Snapshot, out compat.Outcome) {
	if !snap.ExtensionProbed() {
		r.add("flash-attn extension", StatusSkip, "not probed: runtime unavailable", "")
		return
	}
	if f := snap.ExtensionErr; f != nil {
		hint := ""
		if f.Kind == envprobe.FailureSymbol || f.Kind == envprobe.FailureMissing {
			hint = resolveHint
		}
		r.add("flash-attn extension", failStatus(f), f.Message, hint)
		return
	}

	ext := snap.Extension
	detail := fmt.Sprintf("flash-attn %s, built against cuda %s", ext.Version, ext.Toolkit)
	if out.Verdict == compat.Incompatible {
		r.add("flash-attn extension", StatusFail, detail, resolveHint)
		return
	}
	r.add("flash-attn extension", StatusOK, detail, "")
}

// An extension that is merely absent is an informational line, not a
// failed check: the verdict stays undeterminable and the exit code zero.
func failStatus(f *envprobe.ProbeFailure) Status {
	if f.Kind == envprobe.FailureMissing {
		return StatusInfo
	}
	return StatusFail
}

func (r *Report) add(name string, status Status, detail, hint string) {
	r.Checks = append(r.Checks, Check{Name: name, Status: status, Detail: detail, Hint: hint})
}

// Render writes the plain-text report.
func (r *Report) Render(w io.Writer) {
	for _, c := range r.Checks {
		fmt.Fprintf(w, "[%s] %s: %s\n", c.Status, c.Name, c.Detail)
		if c.Hint != "" {
			fmt.Fprintf(w, "       hint: %s\n", c.Hint)
		}
	}
	fmt.Fprintf(w, "verdict: %s\n", r.Summary)
}

// RenderJSON writes the report as indented JSON for automation.
func (r *Report) RenderJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
