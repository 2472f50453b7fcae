// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/stage"
)

var (
	// ErrNoAdapter means no usable GPU adapter was found.
	ErrNoAdapter = errors.New("wgpu: no GPU adapter available")

	// ErrNoProvider means the host's device provider does not expose
	// HAL objects this backend can use.
	ErrNoProvider = errors.New("wgpu: device provider does not expose a HAL device")
)

// halProvider is the shape a host's device provider must have for the
// backend to share its device. The any returns keep gpucontext free of
// a wgpu dependency; this backend asserts them to HAL types.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// Backend owns (or borrows) the HAL device and queue everything else
// in this package runs on.
type Backend struct {
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	// external devices belong to the host and are not destroyed on Close.
	external bool
}

// New wraps a host-provided device. The provider must expose HAL objects
// via HalDevice/HalQueue; gpucontext providers from gogpu hosts do.
func New(provider gpucontext.DeviceProvider) (*Backend, error) {
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoProvider
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, ErrNoProvider
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, ErrNoProvider
	}

	stage.Logger().Info("wgpu: using external device")
	return &Backend{device: device, queue: queue, external: true}, nil
}

// NewHeadless opens the backend's own device on the best available
// adapter, preferring discrete over integrated GPUs. Used for offscreen
// rendering and hardware tests.
func NewHeadless() (*Backend, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, ErrNoAdapter
	}

	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	adapter := pickAdapter(adapters)

	open, err := adapter.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open adapter %q: %w", adapter.Info.Name, err)
	}

	stage.Logger().Info("wgpu: opened headless device",
		"adapter", adapter.Info.Name,
		"type", adapter.Info.DeviceType)
	return &Backend{
		instance: instance,
		device:   open.Device,
		queue:    open.Queue,
	}, nil
}

// pickAdapter prefers discrete, then integrated, then whatever is first.
func pickAdapter(adapters []hal.ExposedAdapter) hal.ExposedAdapter {
	for _, a := range adapters {
		if a.Info.DeviceType == gputypes.DeviceTypeDiscreteGPU {
			return a
		}
	}
	for _, a := range adapters {
		if a.Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			return a
		}
	}
	return adapters[0]
}

// Device returns the HAL device.
func (b *Backend) Device() hal.Device { return b.device }

// Queue returns the HAL queue.
func (b *Backend) Queue() hal.Queue { return b.queue }

// Close releases the device and instance when the backend owns them.
// Borrowed external devices are left untouched.
func (b *Backend) Close() {
	if b.external {
		return
	}
	if b.device != nil {
		b.device.Destroy()
		b.device = nil
	}
	if b.instance != nil {
		b.instance.Destroy()
		b.instance = nil
	}
}
