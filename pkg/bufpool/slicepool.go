package bufpool

import (
	"math/bits"
	"sync"
)

// Tiered byte-slice pools, powers of two from 64 bytes to 64KB. File
// copies (stored report downloads, filestore writes) grab a 32KB slice
// for io.CopyBuffer instead of letting io.Copy allocate one per call.
const (
	minBitSize = 6
	maxBitSize = 16
	poolSteps  = maxBitSize - minBitSize + 1
)

var slicePools [poolSteps]sync.Pool

func init() {
	for i := 0; i < poolSteps; i++ {
		size := 1 << (minBitSize + i)
		slicePools[i].New = func(s int) func() any {
			return func() any {
				buf := make([]byte, s)
				return &buf
			}
		}(size)
	}
}

func poolIndex(size int) int {
	if size <= 1<<minBitSize {
		return 0
	}
	idx := bits.Len(uint(size-1)) - minBitSize
	if idx >= poolSteps {
		return -1
	}
	return idx
}

// GetSlice retrieves a byte slice of at least the given size. The length
// is set to size; the capacity is the next power of two. Callers must
// return it with PutSlice. Sizes past 64KB are allocated directly.
func GetSlice(size int) []byte {
	if size <= 0 {
		return nil
	}
	idx := poolIndex(size)
	if idx < 0 {
		return make([]byte, size)
	}
	ptr := slicePools[idx].Get().(*[]byte)
	return (*ptr)[:size]
}

// PutSlice returns a slice obtained from GetSlice. Nil and oversized
// slices are dropped.
func PutSlice(buf []byte) {
	c := cap(buf)
	if c < 1<<minBitSize || c > maxPooledSize {
		return
	}
	idx := poolIndex(c)
	if idx < 0 {
		return
	}
	buf = buf[:c]
	slicePools[idx].Put(&buf)
}
