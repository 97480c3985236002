package vm

import (
	"sync"

	"defs"
)

/// Heap_t is the single growable heap region of an address space: a
/// lazily-assigned base, a current break, and a lock serializing break
/// adjustments. Permissions are fixed read/write, never executable.
type Heap_t struct {
	mu    sync.Mutex
	Base  uint32
	Break uint32
	// assigned is false until the first SetBreak call snaps Base/Break to
	// end-of-last-region+1; distinguishes "never touched" from "break
	// equals base".
	assigned bool
}

/// SetBreak implements sbrk(amount): the first call (heap never
/// assigned) snaps Base and Break to regionsEnd and returns Base,
/// ignoring amount. Subsequent calls return the break prior to
/// adjustment and advance it by amount bytes, failing invalid if the
/// result would fall below Base and out-of-memory if it would reach the
/// stack reserve. Every exit path releases the lock via defer.
func (h *Heap_t) SetBreak(amount int32, regionsEnd uint32) (uint32, defs.Err_t) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.assigned {
		h.Base = regionsEnd
		h.Break = h.Base
		h.assigned = true
		return h.Base, 0
	}

	prev := h.Break
	newBreak := int64(h.Break) + int64(amount)

	if newBreak < int64(h.Base) {
		return 0, errInvalid
	}
	if newBreak >= int64(stackBase) {
		return 0, errNoMem
	}

	h.Break = uint32(newBreak)
	return prev, 0
}

/// Contains reports whether va falls within [Base, Break). An
/// unassigned heap contains nothing.
func (h *Heap_t) Contains(va uint32) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.assigned && va >= h.Base && va < h.Break
}

/// snapshot copies the heap's base/break for fork; the lock itself is
/// not copied — the destination gets a fresh, unheld mutex.
func (h *Heap_t) snapshot() (base, brk uint32, assigned bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Base, h.Break, h.assigned
}

/// copyFrom installs src's base/break snapshot into h (used by
/// AsCopy). h must be a freshly created, unshared heap.
func (h *Heap_t) copyFrom(src *Heap_t) {
	base, brk, assigned := src.snapshot()
	h.Base = base
	h.Break = brk
	h.assigned = assigned
}
