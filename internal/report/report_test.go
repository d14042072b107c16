package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SeanYHan888/SimPO/internal/compat"
	"github.com/SeanYHan888/SimPO/internal/envprobe"
)

func snapshotWith(runtimeToolkit, extToolkit string) *envprobe.Snapshot {
	return &envprobe.Snapshot{
		Platform: "linux/amd64",
		CUDAHome: "/usr/local/cuda",
		NVCC:     "Cuda compilation tools, release 12.1, V12.1.105",
		Driver:   "550.54.15",
		Runtime: &envprobe.RuntimeInfo{
			Version:       "2.4.0+cu121",
			Toolkit:       runtimeToolkit,
			DeviceVisible: true,
			PythonTag:     "cp312",
		},
		Extension: &envprobe.ExtensionInfo{Version: "2.8.3", Toolkit: extToolkit},
	}
}

func render(snap *envprobe.Snapshot) (*Report, string) {
	r := Build(snap, compat.Classify(snap))
	var buf bytes.Buffer
	r.Render(&buf)
	return r, buf.String()
}

func TestRender_Compatible(t *testing.T) {
	_, text := render(snapshotWith("12.1", "12.1"))

	assert.Contains(t, text, "[ok] torch runtime: torch 2.4.0+cu121, cuda 12.1")
	assert.Contains(t, text, "[ok] flash-attn extension: flash-attn 2.8.3, built against cuda 12.1")
	assert.Contains(t, text, "verdict: compatible")
	assert.NotContains(t, text, "hint:")
}

func TestRender_MismatchNamesBothVersions(t *testing.T) {
	r, text := render(snapshotWith("12.1", "12.4"))

	assert.Equal(t, "incompatible", r.Verdict)
	assert.Contains(t, text, "verdict: incompatible")
	assert.Contains(t, text, "12.1")
	assert.Contains(t, text, "12.4")
	assert.Contains(t, text, "hint:")
	assert.Contains(t, text, "preflight resolve")
}

func TestRender_ExtensionNotInstalled(t *testing.T) {
	snap := snapshotWith("12.1", "")
	snap.Extension = nil
	snap.ExtensionErr = &envprobe.ProbeFailure{
		Kind:    envprobe.FailureMissing,
		Message: "ModuleNotFoundError: No module named 'flash_attn'",
	}

	r, text := render(snap)

	assert.Equal(t, "undeterminable", r.Verdict)
	assert.Contains(t, text, "not installed")
	assert.Contains(t, text, "hint:")

	// Absence is informational, not a failed check.
	for _, c := range r.Checks {
		if c.Name == "flash-attn extension" {
			assert.Equal(t, StatusInfo, c.Status)
		}
	}
}

func TestRender_RuntimeMissing(t *testing.T) {
	snap := &envprobe.Snapshot{
		Platform: "linux/amd64",
		CUDAHome: "<unset>",
		NVCC:     "<unavailable: exec: \"nvcc\": executable file not found in $PATH>",
		Driver:   "<unavailable: exit status 9>",
		RuntimeErr: &envprobe.ProbeFailure{
			Kind:    envprobe.FailureMissing,
			Message: "ModuleNotFoundError: No module named 'torch'",
		},
	}

	r, text := render(snap)

	assert.Equal(t, "undeterminable", r.Verdict)
	assert.Contains(t, text, "[fail] torch runtime")
	assert.Contains(t, text, "[skip] flash-attn extension: not probed: runtime unavailable")
	assert.Contains(t, text, "torch is missing")
}

func TestRender_AdapterStates(t *testing.T) {
	visible := snapshotWith("12.1", "12.1")
	visible.Adapter = "NVIDIA A100 nvidia"
	_, text := render(visible)
	assert.Contains(t, text, "[info] gpu adapter: NVIDIA A100 nvidia")

	none := snapshotWith("12.1", "12.1")
	none.AdapterErr = "no WebGPU adapter visible on this host"
	_, text = render(none)
	assert.Contains(t, text, "[info] gpu adapter: no WebGPU adapter visible on this host")

	// Only a skipped probe renders as skip.
	_, text = render(snapshotWith("12.1", "12.1"))
	assert.Contains(t, text, "[skip] gpu adapter: not probed")
}

func TestRenderJSON(t *testing.T) {
	r, _ := render(snapshotWith("12.1", "12.4"))

	var buf bytes.Buffer
	require.NoError(t, r.RenderJSON(&buf))

	var decoded Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "incompatible", decoded.Verdict)
	assert.Equal(t, len(r.Checks), len(decoded.Checks))
	assert.False(t, decoded.GeneratedAt.IsZero())
}
