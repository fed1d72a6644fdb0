// Package encoding pools the buffers used to serialize JSON responses.
package encoding

import (
	"bytes"
	"encoding/json"
	"sync"
)

// maxPooledCap keeps outlier responses from pinning large buffers in the pool
const maxPooledCap = 64 * 1024

var bufferPool = sync.Pool{
	New: func() any {
		return new(bytes.Buffer)
	},
}

// GetBuffer retrieves an empty bytes.Buffer from the pool
func GetBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer returns a bytes.Buffer to the pool
func PutBuffer(buf *bytes.Buffer) {
	if buf.Cap() > maxPooledCap {
		return
	}
	buf.Reset()
	bufferPool.Put(buf)
}

// EncodeJSON encodes v into a pooled buffer. The caller owns the buffer and
// must hand it back with PutBuffer. Nothing is returned on error, so a
// failed encode never leaves a half-written response.
func EncodeJSON(v any) (*bytes.Buffer, error) {
	buf := GetBuffer()
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		PutBuffer(buf)
		return nil, err
	}
	return buf, nil
}
