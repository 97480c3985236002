package vm

import (
	"defs"
	"fdops"
	"util"
)

/// MmapMode_t distinguishes a private, copy-on-write-able file mapping
/// from a shared one whose writes go straight to the backing frame.
type MmapMode_t int

const (
	/// Private mappings fault in a per-process copy; later writes take
	/// the same copy-on-write path a forked anonymous region would.
	Private MmapMode_t = iota
	/// Shared mappings install a writable PTE directly on first fault;
	/// flushing dirty shared pages back to the file is a future
	/// msync-equivalent, not implemented here.
	Shared
)

/// MmapRegion_t is one file-backed mapping: a page-aligned [Base, End)
/// virtual range, the backing file collaborator, the file offset the
/// range maps from, and its protection and sharing mode.
type MmapRegion_t struct {
	Base, End                      uint32
	Fd                             fdops.Fdops_i
	Offset                         int64
	Readable, Writable, Executable bool
	Mode                           MmapMode_t
	next                           *MmapRegion_t
}

func (m *MmapRegion_t) contains(va uint32) bool {
	return va >= m.Base && va < m.End
}

/// MmapList_t is the insertion-ordered chain of an address space's mmap
/// regions, placed from the top of user space growing downward.
type MmapList_t struct {
	head, tail *MmapRegion_t
	// floor is the lowest Base assigned so far; the next mapping's
	// search starts just below it. It begins at the stack reserve.
	floor uint32
}

func (l *MmapList_t) overlaps(base, end uint32) bool {
	for m := l.head; m != nil; m = m.next {
		if base < m.End && end > m.Base {
			return true
		}
	}
	return false
}

// findFreeWindow slides a length-sized window downward from the
// current floor until it clears every region, heap, and mmap entry,
// retreating past each overlap rather than retrying the same bounds.
func (l *MmapList_t) findFreeWindow(length uint32, regions *RegionList_t, heap *Heap_t) (base uint32, ok bool) {
	end := l.floor
	for {
		if end < length {
			return 0, false
		}
		base = end - length
		if regions.overlaps(base, end) || l.overlaps(base, end) || heap.overlapsRange(base, end) {
			end = base
			continue
		}
		return base, true
	}
}

/// Mmap rounds length up to page granularity, finds a free downward-growing
/// window, and appends an entry for it. No frame is allocated and no
/// file content is read here — the fault handler demand-loads each page
/// on first touch.
func (l *MmapList_t) Mmap(length uint32, readable, writable, executable bool, fd fdops.Fdops_i, offset int64, mode MmapMode_t, regions *RegionList_t, heap *Heap_t) (uint32, defs.Err_t) {
	if l.floor == 0 {
		l.floor = stackBase
	}
	aligned := util.Roundup(length, uint32(PAGE_SIZE))
	if aligned == 0 {
		return 0, errInvalid
	}

	base, ok := l.findFreeWindow(aligned, regions, heap)
	if !ok {
		return 0, errBadAddress
	}

	m := &MmapRegion_t{
		Base:       base,
		End:        base + aligned,
		Fd:         fd,
		Offset:     offset,
		Readable:   readable,
		Writable:   writable,
		Executable: executable,
		Mode:       mode,
	}
	if l.head == nil {
		l.head = m
	}
	if l.tail != nil {
		l.tail.next = m
	}
	l.tail = m
	l.floor = base
	return base, 0
}

/// Lookup returns the mmap region containing va, if any.
func (l *MmapList_t) Lookup(va uint32) *MmapRegion_t {
	for m := l.head; m != nil; m = m.next {
		if m.contains(va) {
			return m
		}
	}
	return nil
}

/// Each calls f for every mmap region in insertion order.
func (l *MmapList_t) Each(f func(*MmapRegion_t)) {
	for m := l.head; m != nil; m = m.next {
		f(m)
	}
}

// overlapsRange reports whether [base,end) intersects the heap's
// current span. An unassigned heap overlaps nothing.
func (h *Heap_t) overlapsRange(base, end uint32) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.assigned {
		return false
	}
	return base < h.Break && end > h.Base
}
