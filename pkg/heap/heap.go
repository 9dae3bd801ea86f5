// Package heap stores runtime objects under opaque handles.
package heap

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rcrowley/go-metrics"
)

// MetricLiveHandles is the gauge tracking the number of allocated handles.
const MetricLiveHandles = "heap-live-handles"

var (
	// ErrUnallocated is returned for a handle that was never allocated or
	// has been freed.
	ErrUnallocated = errors.New("heap: unallocated handle")

	// ErrWrongType is returned by Load when the stored value is not of the
	// requested type.
	ErrWrongType = errors.New("heap: wrong type")
)

// Handle identifies an allocation. The zero Handle is never allocated and
// stands for null.
type Handle uint64

// Null is the handle that never refers to an allocation.
const Null Handle = 0

func (h Handle) IsNull() bool { return h == Null }

// Heap is a handle table. It is safe for concurrent use.
type Heap struct {
	mu      sync.RWMutex
	next    Handle
	objects map[Handle]any
	live    metrics.Gauge
}

// New creates an empty heap reporting its size on r. A nil r gets a
// private registry.
func New(r metrics.Registry) *Heap {
	if r == nil {
		r = metrics.NewRegistry()
	}
	return &Heap{
		objects: make(map[Handle]any),
		live:    metrics.GetOrRegisterGauge(MetricLiveHandles, r),
	}
}

// Alloc stores v and returns a fresh handle for it.
func (h *Heap) Alloc(v any) Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	h.objects[h.next] = v
	h.live.Update(int64(len(h.objects)))
	return h.next
}

// Get returns the value stored under handle.
func (h *Heap) Get(handle Handle) (any, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	v, ok := h.objects[handle]
	if !ok {
		return nil, fmt.Errorf("get %#x: %w", uint64(handle), ErrUnallocated)
	}
	return v, nil
}

// Write replaces the value stored under handle.
func (h *Heap) Write(handle Handle, v any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.objects[handle]; !ok {
		return fmt.Errorf("write %#x: %w", uint64(handle), ErrUnallocated)
	}
	h.objects[handle] = v
	return nil
}

// Free releases handle. Handles are not reused.
func (h *Heap) Free(handle Handle) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.objects[handle]; !ok {
		return fmt.Errorf("free %#x: %w", uint64(handle), ErrUnallocated)
	}
	delete(h.objects, handle)
	h.live.Update(int64(len(h.objects)))
	return nil
}

// Len returns the number of live handles.
func (h *Heap) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.objects)
}

// Load returns the value under handle as a T.
func Load[T any](h *Heap, handle Handle) (T, error) {
	var zero T
	v, err := h.Get(handle)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("load %#x: %w: have %T, want %T", uint64(handle), ErrWrongType, v, zero)
	}
	return t, nil
}
