// Package pool provides sync.Pool wrappers for reducing GC pressure on the
// hot validation paths: path-segment scratch slices during structural walks
// and byte buffers for cache-key building.
package pool

import "sync"

// StringSlice provides a pooled []string used as path-segment scratch space
// while walking nested structures.
var stringSlicePool = sync.Pool{
	New: func() any {
		s := make([]string, 0, 16)
		return &s
	},
}

// AcquireStringSlice gets an empty string slice from the pool.
func AcquireStringSlice() *[]string {
	s := stringSlicePool.Get().(*[]string)
	*s = (*s)[:0]
	return s
}

// ReleaseStringSlice returns a string slice to the pool.
func ReleaseStringSlice(s *[]string) {
	if s == nil {
		return
	}
	// Don't return oversized slices
	if cap(*s) <= 256 {
		stringSlicePool.Put(s)
	}
}

// ByteSlice provides a pooled []byte for temporary buffers such as
// canonical cache keys.
var byteSlicePool = sync.Pool{
	New: func() any {
		b := make([]byte, 0, 1024)
		return &b
	},
}

// AcquireByteSlice gets an empty byte slice from the pool.
func AcquireByteSlice() *[]byte {
	b := byteSlicePool.Get().(*[]byte)
	*b = (*b)[:0]
	return b
}

// ReleaseByteSlice returns a byte slice to the pool.
func ReleaseByteSlice(b *[]byte) {
	if b == nil {
		return
	}
	// Don't return oversized buffers
	if cap(*b) <= 65536 {
		byteSlicePool.Put(b)
	}
}
