package vector

import (
	"sync/atomic"
	"time"
)

// Holder publishes the current Index. Readers call Load; a rebuild calls Swap
// with a freshly built index. A nil Load means no index has been built yet.
type Holder struct {
	current atomic.Pointer[Index]
	builtAt atomic.Int64
}

// Load returns the current index or nil.
func (h *Holder) Load() *Index {
	return h.current.Load()
}

// Swap installs idx and returns the previous index.
func (h *Holder) Swap(idx *Index) *Index {
	prev := h.current.Swap(idx)
	h.builtAt.Store(time.Now().UnixNano())
	return prev
}

// BuiltAt returns when the current index was installed (zero if never).
func (h *Holder) BuiltAt() time.Time {
	ns := h.builtAt.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}
