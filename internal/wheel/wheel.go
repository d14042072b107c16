// Package wheel resolves the prebuilt flash-attn wheel matching a runtime
// snapshot. Upstream publishes one wheel per (version, cuda series, torch
// major.minor, cxx11 ABI, python tag, platform) combination; resolution
// is reconstructing that name and checking the release asset exists.
package wheel

import (
	"errors"
	"fmt"
	goruntime "runtime"
	"strings"

	"github.com/SeanYHan888/SimPO/internal/compat"
	"github.com/SeanYHan888/SimPO/internal/envprobe"
)

const (
	// GithubRepo hosts the prebuilt wheels.
	GithubRepo = "Dao-AILab/flash-attention"

	// DefaultReleaseTag is the fallback when the latest release cannot be
	// resolved.
	DefaultReleaseTag = "v2.8.3"
)

// Resolution errors.
var (
	ErrNoCUDARuntime      = errors.New("runtime reports no CUDA toolkit; prebuilt wheels target CUDA builds only")
	ErrUnsupportedCUDA    = errors.New("prebuilt wheels are published for the cu12 series only")
	ErrUnsupportedOS      = errors.New("prebuilt wheels are published for linux only")
	ErrUnsupportedArch    = errors.New("unsupported machine architecture")
	ErrIncompleteSnapshot = errors.New("runtime snapshot is missing the fields needed to pick a wheel")
)

// Tags are the runtime facets encoded in a published wheel filename.
type Tags struct {
	TorchMajorMinor string // "2.4"
	PythonTag       string // "cp312"
	CXX11ABI        string // "TRUE" or "FALSE"
	PlatformTag     string // "linux_x86_64"
}

// TagsFor derives wheel tags from a probed runtime on the current host.
func TagsFor(rt *envprobe.RuntimeInfo) (Tags, error) {
	return tagsFor(rt, goruntime.GOOS, goruntime.GOARCH)
}

func tagsFor(rt *envprobe.RuntimeInfo, goos, goarch string) (Tags, error) {
	if rt == nil || rt.Version == "" || rt.PythonTag == "" {
		return Tags{}, ErrIncompleteSnapshot
	}
	if rt.Toolkit == "" {
		return Tags{}, ErrNoCUDARuntime
	}
	if !strings.HasPrefix(rt.Toolkit, "12.") {
		return Tags{}, fmt.Errorf("%w: runtime bundles CUDA %s", ErrUnsupportedCUDA, rt.Toolkit)
	}

	platform, err := platformTag(goos, goarch)
	if err != nil {
		return Tags{}, err
	}

	abi := "FALSE"
	if rt.CXX11ABI {
		abi = "TRUE"
	}

	return Tags{
		TorchMajorMinor: compat.MajorMinor(rt.Version),
		PythonTag:       rt.PythonTag,
		CXX11ABI:        abi,
		PlatformTag:     platform,
	}, nil
}

func platformTag(goos, goarch string) (string, error) {
	if goos != "linux" {
		return "", fmt.Errorf("%w: running on %s", ErrUnsupportedOS, goos)
	}
	switch goarch {
	case "amd64":
		return "linux_x86_64", nil
	case "arm64":
		return "linux_aarch64", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedArch, goarch)
	}
}

// Filename reconstructs the published wheel name for a release tag.
func Filename(releaseTag string, t Tags) string {
	version := strings.TrimPrefix(releaseTag, "v")
	return fmt.Sprintf(
		"flash_attn-%s+cu12torch%scxx11abi%s-%s-%s-%s.whl",
		version, t.TorchMajorMinor, t.CXX11ABI, t.PythonTag, t.PythonTag, t.PlatformTag,
	)
}

// assetName is the wheel filename as it appears in a download URL, with
// the "+" percent-encoded the way the assets are served.
func assetName(releaseTag string, t Tags) string {
	return strings.Replace(Filename(releaseTag, t), "+", "%2B", 1)
}
