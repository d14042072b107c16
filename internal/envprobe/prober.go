package envprobe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

const (
	// DefaultPython is the interpreter of the training environment.
	DefaultPython = "python"

	// DefaultExtensionModule is the native module flash-attn loads its
	// CUDA kernels from.
	DefaultExtensionModule = "flash_attn_2_cuda"
)

// runtimeProbe asks torch for its version and build metadata. Output is a
// single JSON line; anything torch prints before it (warnings and the
// like) is ignored by the parser.
const runtimeProbe = `import json, sys
import torch
print(json.dumps({
    "version": torch.__version__,
    "cuda": torch.version.cuda or "",
    "available": bool(torch.cuda.is_available()),
    "python_tag": "cp%d%d" % sys.version_info[:2],
    "cxx11abi": bool(torch._C._GLIBCXX_USE_CXX11_ABI),
}))`

// extensionProbe imports the flash-attn package and its native module.
// The import itself is the test: an ABI mismatch surfaces here as an
// undefined-symbol error from the dynamic loader.
func extensionProbe(module string) string {
	return fmt.Sprintf(`import json
import flash_attn
import %s as ext
print(json.dumps({
    "version": getattr(flash_attn, "__version__", ""),
    "cuda": getattr(ext, "cuda_version", getattr(flash_attn, "__cuda_version__", "")),
}))`, module)
}

// Runner executes one external command and returns its combined output.
// The real implementation shells out; tests substitute fakes to simulate
// arbitrary environments.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

// Prober collects environment snapshots. The zero value probes the real
// host with defaults.
type Prober struct {
	Python          string
	ExtensionModule string
	Runner          Runner
	Log             *slog.Logger

	// AdapterProbe, when set, contributes a GPU adapter description to
	// the snapshot. Kept as a hook so this package stays free of native
	// GPU bindings.
	AdapterProbe func() (string, error)
}

func (p *Prober) python() string {
	if p.Python != "" {
		return p.Python
	}
	return DefaultPython
}

func (p *Prober) module() string {
	if p.ExtensionModule != "" {
		return p.ExtensionModule
	}
	return DefaultExtensionModule
}

func (p *Prober) runner() Runner {
	if p.Runner != nil {
		return p.Runner
	}
	return execRunner{}
}

func (p *Prober) log() *slog.Logger {
	if p.Log != nil {
		return p.Log
	}
	return slog.New(slog.DiscardHandler)
}

// Collect runs every probe once and returns the snapshot. It never
// returns an error: a failed probe is recorded in the snapshot as a
// classified failure, because investigating a broken environment is the
// entire point.
func (p *Prober) Collect(ctx context.Context) *Snapshot {
	snap := &Snapshot{
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
		CUDAHome: envOr("CUDA_HOME", "<unset>"),
		NVCC:     lastLine(p.cmdOutput(ctx, "nvcc", "--version")),
		Driver:   firstLine(p.cmdOutput(ctx, "nvidia-smi", "--query-gpu=driver_version", "--format=csv,noheader")),
	}

	if p.AdapterProbe != nil {
		if desc, err := p.AdapterProbe(); err == nil {
			snap.Adapter = desc
		} else {
			p.log().Debug("gpu adapter probe failed", "error", err)
			snap.AdapterErr = err.Error()
		}
	}

	snap.Runtime, snap.RuntimeErr = p.ProbeRuntime(ctx)
	if snap.RuntimeErr != nil {
		p.log().Debug("runtime probe failed", "kind", snap.RuntimeErr.Kind.String())
		// Without the runtime there is nothing to be ABI-compatible with;
		// skip the extension probe entirely.
		return snap
	}

	snap.Extension, snap.ExtensionErr = probeJSON[ExtensionInfo](ctx, p, extensionProbe(p.module()))
	if snap.ExtensionErr != nil {
		p.log().Debug("extension probe failed", "kind", snap.ExtensionErr.Kind.String())
	}
	return snap
}

// ProbeRuntime runs only the torch runtime probe. Wheel resolution needs
// the runtime facets without paying for an extension import.
func (p *Prober) ProbeRuntime(ctx context.Context) (*RuntimeInfo, *ProbeFailure) {
	return probeJSON[RuntimeInfo](ctx, p, runtimeProbe)
}

// probeJSON runs a probe script and decodes the JSON line it prints.
func probeJSON[T any](ctx context.Context, p *Prober, script string) (*T, *ProbeFailure) {
	out, err := p.runner().Run(ctx, p.python(), "-c", script)
	if err != nil {
		return nil, classifyFailure(out, err)
	}

	var info T
	if jsonErr := json.Unmarshal([]byte(lastLine(out)), &info); jsonErr != nil {
		return nil, &ProbeFailure{
			Kind:    FailureUnexpected,
			Message: fmt.Sprintf("unparseable probe output: %v", jsonErr),
		}
	}
	return &info, nil
}

// cmdOutput mirrors the host-toolchain probes: failures become an inline
// "<unavailable: ...>" marker instead of aborting the snapshot.
func (p *Prober) cmdOutput(ctx context.Context, name string, args ...string) string {
	out, err := p.runner().Run(ctx, name, args...)
	if err != nil {
		return fmt.Sprintf("<unavailable: %v>", err)
	}
	return out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return strings.TrimSpace(s)
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
