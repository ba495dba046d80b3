// Package device is tsdba's accelerator abstraction: a Device models one
// parallel compute unit (a GPU in the original CUDA implementation, a
// lane of CPU cores by default here), and a Manager round-robins
// alignment work across however many devices are configured (spec §5).
//
// The only backend compiled here is a pure-Go CPU-backed Device, so tsdba
// runs without any accelerator toolchain installed. The teacher codebase
// gates real CUDA/Vulkan bridges behind build tags for a different
// workload (embedding similarity search); a DTW cost-kernel equivalent
// would need its own cgo kernels and is not included (see DESIGN.md).
package device

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrInsufficientMemory is returned by Reserve when a device has no room
// left in its configured memory budget.
var ErrInsufficientMemory = errors.New("device: insufficient free memory")

// Device represents one parallel compute unit with a fixed memory budget.
// The budget is a simulated figure on the default CPU backend (so tests
// can force the striped-mode trigger of §4.C deterministically) and a real
// queried figure on accelerator backends.
type Device struct {
	id         int
	totalBytes uint64
	usedBytes  int64 // atomic
	lanes      int
}

// NewDevice creates a Device with the given id, memory budget, and number
// of concurrent alignments it may run at once (the "grid of blocks" of
// spec §4.A, approximated here as a goroutine concurrency cap).
func NewDevice(id int, totalBytes uint64, lanes int) *Device {
	if lanes < 1 {
		lanes = 1
	}
	return &Device{id: id, totalBytes: totalBytes, lanes: lanes}
}

// ID returns the device index.
func (d *Device) ID() int { return d.id }

// TotalMemoryBytes returns the device's configured memory budget.
func (d *Device) TotalMemoryBytes() uint64 { return d.totalBytes }

// FreeMemoryBytes returns the unreserved portion of the device's budget.
// This is the value striped-mode's trigger condition (§4.C) queries.
func (d *Device) FreeMemoryBytes() uint64 {
	used := atomic.LoadInt64(&d.usedBytes)
	if uint64(used) >= d.totalBytes {
		return 0
	}
	return d.totalBytes - uint64(used)
}

// Lanes returns how many alignments this device may run concurrently.
func (d *Device) Lanes() int { return d.lanes }

// Reservation represents a held chunk of a device's memory budget.
// Release must be called exactly once.
type Reservation struct {
	dev   *Device
	bytes uint64
	once  sync.Once
}

// Reserve attempts to reserve bytes against the device's budget, for the
// lifetime of one transient buffer (a cost vector or step-matrix stripe,
// spec §5's "sized to the current alignment... released at a definite
// point"). Returns ErrInsufficientMemory if the budget is already spoken
// for — callers use this to decide between full-matrix and striped mode,
// not as a hard allocation failure.
func (d *Device) Reserve(bytes uint64) (*Reservation, error) {
	for {
		used := atomic.LoadInt64(&d.usedBytes)
		if uint64(used)+bytes > d.totalBytes {
			return nil, ErrInsufficientMemory
		}
		if atomic.CompareAndSwapInt64(&d.usedBytes, used, used+int64(bytes)) {
			return &Reservation{dev: d, bytes: bytes}, nil
		}
	}
}

// Release frees the reservation. Safe to call multiple times; only the
// first call has an effect.
func (r *Reservation) Release() {
	r.once.Do(func() {
		atomic.AddInt64(&r.dev.usedBytes, -int64(r.bytes))
	})
}
