// Package pool provides object pooling for the DTW engine's hot-path
// transient buffers, reducing allocation/GC pressure during all-pairs and
// DBA-refinement passes where thousands of short-lived cost columns and
// step-matrix stripes are allocated and discarded per second.
//
// Pooled objects:
//   - Cost columns (the H-element priorCostCol/newCostCol of §4.A)
//   - Step-matrix stripes (the pitched byte buffer of §4.C)
//   - Centroid accumulation buffers (sum/count scratch of §4.D)
//
// Usage:
//
//	col := pool.GetCostColumn(h)
//	defer pool.PutCostColumn(col)
package pool

import "sync"

// Config controls pooling behavior.
type Config struct {
	// Enabled controls whether pooling is active.
	Enabled bool

	// MaxBytes limits the largest buffer kept in each pool; larger
	// buffers are discarded instead of recycled to avoid holding onto
	// an oversized allocation from one unusually long sequence.
	MaxBytes int
}

var globalConfig = Config{
	Enabled:  true,
	MaxBytes: 64 * 1024 * 1024, // 64MB
}

// Configure sets global pool configuration. Call before starting work.
func Configure(cfg Config) {
	globalConfig = cfg
}

// IsEnabled reports whether pooling is active.
func IsEnabled() bool {
	return globalConfig.Enabled
}

var costColumnPool = sync.Pool{
	New: func() any {
		return make([]float64, 0, 4096)
	},
}

// GetCostColumn returns a float64 slice of length n, zeroed, from the pool.
func GetCostColumn(n int) []float64 {
	if !globalConfig.Enabled {
		return make([]float64, n)
	}
	buf := costColumnPool.Get().([]float64)
	if cap(buf) < n {
		buf = make([]float64, n)
	} else {
		buf = buf[:n]
		for i := range buf {
			buf[i] = 0
		}
	}
	return buf
}

// PutCostColumn returns a cost column to the pool.
func PutCostColumn(buf []float64) {
	if !globalConfig.Enabled || buf == nil {
		return
	}
	if cap(buf)*8 > globalConfig.MaxBytes {
		return
	}
	costColumnPool.Put(buf[:0])
}

var stepStripePool = sync.Pool{
	New: func() any {
		return make([]byte, 0, 4096)
	},
}

// GetStepStripe returns a byte slice of length n (width*pitch), zeroed,
// for use as a step-matrix stripe (§4.C).
func GetStepStripe(n int) []byte {
	if !globalConfig.Enabled {
		return make([]byte, n)
	}
	buf := stepStripePool.Get().([]byte)
	if cap(buf) < n {
		buf = make([]byte, n)
	} else {
		buf = buf[:n]
		for i := range buf {
			buf[i] = 0
		}
	}
	return buf
}

// PutStepStripe returns a step-matrix stripe to the pool.
func PutStepStripe(buf []byte) {
	if !globalConfig.Enabled || buf == nil {
		return
	}
	if cap(buf) > globalConfig.MaxBytes {
		return
	}
	stepStripePool.Put(buf[:0])
}

var accumulatorPool = sync.Pool{
	New: func() any {
		return make([]float64, 0, 4096)
	},
}

// GetAccumulator returns a zeroed float64 slice of length n for use as a
// centroid sum or count-as-float accumulation scratch buffer (§4.D).
func GetAccumulator(n int) []float64 {
	if !globalConfig.Enabled {
		return make([]float64, n)
	}
	buf := accumulatorPool.Get().([]float64)
	if cap(buf) < n {
		buf = make([]float64, n)
	} else {
		buf = buf[:n]
		for i := range buf {
			buf[i] = 0
		}
	}
	return buf
}

// PutAccumulator returns an accumulator buffer to the pool.
func PutAccumulator(buf []float64) {
	if !globalConfig.Enabled || buf == nil {
		return
	}
	if cap(buf)*8 > globalConfig.MaxBytes {
		return
	}
	accumulatorPool.Put(buf[:0])
}
