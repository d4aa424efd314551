package wgpu_backend

import "github.com/cogentcore/webgpu/wgpu"

// WGPUBackendBuilderOption is a functional option applied to a backend during construction via New.
type WGPUBackendBuilderOption func(*wgpuBackend)

// WithLabel sets the debug label of the requested WebGPU device.
//
// Parameters:
//   - label: the device label
//
// Returns:
//   - WGPUBackendBuilderOption: option function to apply
func WithLabel(label string) WGPUBackendBuilderOption {
	return func(b *wgpuBackend) {
		b.label = label
	}
}

// WithForceFallbackAdapter requests the software fallback adapter, used for headless CI runs.
//
// Parameters:
//   - force: true to force the fallback adapter
//
// Returns:
//   - WGPUBackendBuilderOption: option function to apply
func WithForceFallbackAdapter(force bool) WGPUBackendBuilderOption {
	return func(b *wgpuBackend) {
		b.forceFallbackAdapter = force
	}
}

// WithPowerPreference selects between integrated and discrete adapters on multi-GPU hosts.
//
// Parameters:
//   - pref: the WebGPU power preference
//
// Returns:
//   - WGPUBackendBuilderOption: option function to apply
func WithPowerPreference(pref wgpu.PowerPreference) WGPUBackendBuilderOption {
	return func(b *wgpuBackend) {
		b.powerPreference = pref
	}
}

// WithSurface attaches a window surface so the backend can present frames.
// The descriptor normally comes from window.Window.SurfaceDescriptor.
//
// Parameters:
//   - desc: the platform surface descriptor
//   - width: the initial surface width in pixels
//   - height: the initial surface height in pixels
//
// Returns:
//   - WGPUBackendBuilderOption: option function to apply
func WithSurface(desc *wgpu.SurfaceDescriptor, width, height int) WGPUBackendBuilderOption {
	return func(b *wgpuBackend) {
		b.surfaceDescriptor = desc
		b.surfaceWidth = width
		b.surfaceHeight = height
	}
}

// WithVSync switches the surface present mode from Immediate to Fifo.
//
// Parameters:
//   - vsync: true to wait for vertical blank
//
// Returns:
//   - WGPUBackendBuilderOption: option function to apply
func WithVSync(vsync bool) WGPUBackendBuilderOption {
	return func(b *wgpuBackend) {
		if vsync {
			b.presentMode = wgpu.PresentModeFifo
		} else {
			b.presentMode = wgpu.PresentModeImmediate
		}
	}
}
