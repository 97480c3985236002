package vm

import (
	"defs"
	"util"
)

// KSEG0 is the kernel/user segment boundary; user virtual addresses
// must lie strictly below it. USERSTACK coincides with KSEG0 in this
// design.
const (
	KSEG0     uint32 = 0x80000000
	USERSTACK uint32 = KSEG0
)

/// STACK_LIMIT is the size of the fixed stack reserve at the top of
/// user space: 16 pages.
const STACK_LIMIT uint32 = 16 * uint32(PAGE_SIZE)

/// stackBase is the first address of the stack reserve; region, heap,
/// and mmap placement all treat it as the logical end of user space.
const stackBase = USERSTACK - STACK_LIMIT

/// Region_t is one defined code/data/stack segment: a page-aligned
/// [Base, End) range, its permission triple, and the is_readonly latch
/// remembered across PrepareLoad/CompleteLoad.
type Region_t struct {
	Base, End                      uint32
	Readable, Writable, Executable bool
	IsReadonly                     bool
	next                           *Region_t
}

/// contains reports whether va falls inside the region.
func (r *Region_t) contains(va uint32) bool {
	return va >= r.Base && va < r.End
}

/// RegionList_t is the insertion-ordered, append-only (until address-space
/// destruction) chain of a single address space's defined regions.
type RegionList_t struct {
	head, tail *Region_t
}

// overlaps reports whether [base,end) intersects any already-defined
// region. The half-open comparison covers every way two ranges can
// intersect: contained, straddling the high edge, straddling the low
// edge.
func (l *RegionList_t) overlaps(base, end uint32) bool {
	for r := l.head; r != nil; r = r.next {
		if base < r.End && end > r.Base {
			return true
		}
	}
	return false
}

// exactlyDefined reports whether [base,end) names an already-defined
// region's range verbatim, as opposed to merely overlapping part of one.
func (l *RegionList_t) exactlyDefined(base, end uint32) bool {
	for r := l.head; r != nil; r = r.next {
		if r.Base == base && r.End == end {
			return true
		}
	}
	return false
}

/// Define page-aligns [vaddr, vaddr+memsize) down/up, rejects ranges
/// that reach into the kernel segment or overlap an existing region
/// (in-use for a verbatim redefinition, invalid for any other overlap),
/// and appends a new region with the given permissions.
func (l *RegionList_t) Define(vaddr, memsize uint32, readable, writable, executable bool) (*Region_t, defs.Err_t) {
	base := util.Rounddown(vaddr, uint32(PAGE_SIZE))
	reqEnd := vaddr + memsize
	memsize += vaddr - base
	end := base + util.Roundup(memsize, uint32(PAGE_SIZE))

	if end > KSEG0 || base > KSEG0 {
		return nil, errBadAddress
	}
	if l.overlaps(base, end) {
		// A verbatim redefinition of an already-mapped range is in-use;
		// any other overlap (partial containment or straddling) is invalid.
		if l.exactlyDefined(vaddr, reqEnd) {
			return nil, errInUse
		}
		return nil, errInvalid
	}

	r := &Region_t{
		Base:       base,
		End:        end,
		Readable:   readable,
		Writable:   writable,
		Executable: executable,
		IsReadonly: readable && !writable,
	}
	if l.head == nil {
		l.head = r
	} else {
		last := l.head
		for last.next != nil {
			last = last.next
		}
		last.next = r
	}
	// The tail only advances for regions below the stack reserve, so the
	// stack region (defined once, last, at DefineStack time) stays the
	// logical end marker heap placement relies on.
	if r.Base < stackBase {
		l.tail = r
	}
	return r, 0
}

/// Lookup returns the region containing va, if any.
func (l *RegionList_t) Lookup(va uint32) *Region_t {
	for r := l.head; r != nil; r = r.next {
		if r.contains(va) {
			return r
		}
	}
	return nil
}

/// Each calls f for every region in insertion order.
func (l *RegionList_t) Each(f func(*Region_t)) {
	for r := l.head; r != nil; r = r.next {
		f(r)
	}
}

/// CopyFrom deep-copies every region of src into l (used by fork). src
/// and l must be distinct lists.
func (l *RegionList_t) CopyFrom(src *RegionList_t) {
	src.Each(func(r *Region_t) {
		cp := &Region_t{
			Base:       r.Base,
			End:        r.End,
			Readable:   r.Readable,
			Writable:   r.Writable,
			Executable: r.Executable,
			IsReadonly: r.IsReadonly,
		}
		if l.head == nil {
			l.head = cp
		} else {
			last := l.head
			for last.next != nil {
				last = last.next
			}
			last.next = cp
		}
		if cp.Base < stackBase {
			l.tail = cp
		}
	})
}
