// Package bufpool provides sync.Pool-backed buffers reused across report
// rendering. Template execution, JSON assembly and file copies are the
// allocation hot paths when many reports generate concurrently; pooling
// keeps them off the garbage collector.
package bufpool

import (
	"bytes"
	"strings"
	"sync"
)

// maxPooledSize is the largest buffer returned to a pool. Fully rendered
// reports can run to megabytes; holding those in the pool would pin the
// memory for the life of the process.
const maxPooledSize = 64 * 1024

var bufferPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

var builderPool = sync.Pool{
	New: func() any { return new(strings.Builder) },
}

// Get retrieves an empty bytes.Buffer from the pool. Callers should call
// Put when done.
func Get() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// Put returns a buffer to the pool. Nil buffers and buffers grown past
// 64KB are dropped.
func Put(buf *bytes.Buffer) {
	if buf == nil || buf.Cap() > maxPooledSize {
		return
	}
	buf.Reset()
	bufferPool.Put(buf)
}

// GetSized retrieves a buffer with at least the given capacity. Use it
// when the output size is roughly known, such as re-rendering a report
// whose previous size is on record.
func GetSized(size int) *bytes.Buffer {
	buf := Get()
	if buf.Cap() < size {
		buf.Grow(size)
	}
	return buf
}

// GetBuilder retrieves an empty strings.Builder from the pool. Callers
// should call PutBuilder when done.
func GetBuilder() *strings.Builder {
	sb := builderPool.Get().(*strings.Builder)
	sb.Reset()
	return sb
}

// PutBuilder returns a builder to the pool. Nil builders and builders
// grown past 64KB are dropped.
func PutBuilder(sb *strings.Builder) {
	if sb == nil || sb.Cap() > maxPooledSize {
		return
	}
	sb.Reset()
	builderPool.Put(sb)
}
