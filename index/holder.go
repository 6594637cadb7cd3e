package index

import (
	"sync/atomic"
	"time"
)

// Holder publishes the current Index. The zero value holds no index.
type Holder struct {
	current atomic.Pointer[Index]
}

// Load returns the current index, or nil when none was built.
func (h *Holder) Load() *Index {
	return h.current.Load()
}

// Swap publishes idx and returns the index it replaced.
func (h *Holder) Swap(idx *Index) *Index {
	return h.current.Swap(idx)
}

// BuiltAt returns the watermark of the current index, zero when unbuilt.
func (h *Holder) BuiltAt() time.Time {
	if idx := h.current.Load(); idx != nil {
		return idx.builtAt
	}
	return time.Time{}
}
