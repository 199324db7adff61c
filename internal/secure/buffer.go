// Package secure provides memory-safe storage for secret values. It wraps
// memguard's locked buffers so that secret bytes are mlocked against
// swapping, guarded against overflow, and reliably zeroed when a caller is
// done with them — adapted from the teacher's internal/secure package,
// which built the same guarantee on memguard.Enclave for at-rest
// encryption. A Secret's value only ever needs to be held in memory for
// the duration of one refresh cycle, so a locked buffer (no encryption
// overhead) is enough here.
package secure

import (
	"sync"

	"github.com/awnumar/memguard"
)

// ClearByte is the fixed, non-secret byte used to overwrite a cleared
// buffer, matching the spec's "overwrite with a fixed non-secret byte"
// requirement.
const ClearByte = '0'

// Buffer holds secret bytes in locked memory and guarantees they can be
// wiped exactly once, idempotently, from any goroutine.
type Buffer struct {
	mu      sync.RWMutex
	locked  *memguard.LockedBuffer
	cleared bool
}

// NewBuffer copies data into a freshly allocated locked buffer. memguard
// wipes the source slice as part of the copy, so callers must treat data
// as consumed after this call.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{locked: memguard.NewBufferFromBytes(data)}
}

// Bytes returns a defensive copy of the buffer's contents, or nil if the
// buffer has been cleared. Per the spec, reads must never hand back the
// internal buffer itself — callers own whatever copy they receive.
func (b *Buffer) Bytes() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.cleared {
		return nil
	}
	out := make([]byte, b.locked.Size())
	copy(out, b.locked.Bytes())
	return out
}

// Clear overwrites the buffer with ClearByte and releases the locked
// memory. It is idempotent — later calls are no-ops — and safe to call
// from any exit path, which is what the scoped wrapper (Scope, below)
// relies on.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cleared {
		return
	}
	raw := b.locked.Bytes()
	for i := range raw {
		raw[i] = ClearByte
	}
	b.locked.Destroy()
	b.cleared = true
}

// Cleared reports whether Clear has already run.
func (b *Buffer) Cleared() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cleared
}

// Scope runs fn with a defensive copy of the buffer's bytes, then clears
// the buffer on every exit path from fn — normal return, error return, or
// panic. This is the "scoped wrapper that guarantees clearValue on all
// exit paths" the spec requires for callers that accept ownership of a
// Secret's value for a bounded region of code.
func Scope(b *Buffer, fn func(value []byte) error) error {
	defer b.Clear()
	return fn(b.Bytes())
}
