package bridge

import (
	"sync"
)

// Handle identifies a host value from inside the module.
type Handle = uint32

// Reserved handles. Dynamic handles start after HandleExports.
const (
	HandleNull    Handle = 0
	HandleGlobal  Handle = 1
	HandleExports Handle = 2

	firstDynamicHandle Handle = 3
)

// Handles maps handles to host values. It is safe for concurrent use.
type Handles struct {
	values map[Handle]any
	next   Handle
	mu     sync.Mutex
}

// NewHandles creates a table whose global handle refers to global.
func NewHandles(global any) *Handles {
	return &Handles{
		values: map[Handle]any{
			HandleNull:   nil,
			HandleGlobal: global,
		},
		next: firstDynamicHandle,
	}
}

// Insert stores v and returns a new handle for it.
func (h *Handles) Insert(v any) Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.next
	h.values[id] = v
	h.next++
	return id
}

// Get returns the value behind id.
func (h *Handles) Get(id Handle) (any, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	v, ok := h.values[id]
	return v, ok
}

// Release drops a dynamic handle. Reserved handles are never released.
func (h *Handles) Release(id Handle) bool {
	if id < firstDynamicHandle {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.values[id]; !ok {
		return false
	}
	delete(h.values, id)
	return true
}

// Len returns the number of live dynamic handles.
func (h *Handles) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for id := range h.values {
		if id >= firstDynamicHandle {
			n++
		}
	}
	return n
}

// bind sets a reserved handle.
func (h *Handles) bind(id Handle, v any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.values[id] = v
}
