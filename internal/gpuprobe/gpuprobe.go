// Package gpuprobe checks GPU adapter visibility through WebGPU.
// Uses go-webgpu (github.com/go-webgpu/webgpu) for zero-CGO WebGPU bindings.
//
// The probe is informational: the compatibility verdict is defined by the
// torch/flash-attn contract alone, but knowing whether any adapter is
// visible at all saves the operator a round of guessing when the runtime
// reports no device.
package gpuprobe

import (
	"fmt"

	"github.com/go-webgpu/webgpu/wgpu"
)

// Available checks whether a WebGPU adapter can be acquired on this
// system.
func Available() (available bool) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	instance, err := wgpu.CreateInstance(nil)
	if err != nil {
		return false
	}
	defer instance.Release()

	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		return false
	}
	adapter.Release()

	return true
}

// Describe returns a short description of the default GPU adapter.
func Describe() (desc string, err error) {
	// Recover from panic if wgpu_native library is not found.
	defer func() {
		if r := recover(); r != nil {
			desc = ""
			err = fmt.Errorf("gpuprobe: native library not available: %v", r)
		}
	}()

	instance, instanceErr := wgpu.CreateInstance(nil)
	if instanceErr != nil {
		return "", fmt.Errorf("gpuprobe: failed to create instance: %w", instanceErr)
	}
	defer instance.Release()

	adapter, adapterErr := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if adapterErr != nil {
		return "", fmt.Errorf("gpuprobe: no adapters available: %w", adapterErr)
	}
	defer adapter.Release()

	info, infoErr := adapter.GetInfo()
	if infoErr != nil {
		return "", fmt.Errorf("gpuprobe: failed to get adapter info: %w", infoErr)
	}
	return fmt.Sprintf("%s %s", info.Device, info.Vendor), nil
}
