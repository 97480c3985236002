// Package vm implements the address-space and fault-handling core: the
// three-level page table, the region/heap/mmap owner lists, address-space
// lifecycle and fork, and the fault dispatcher that ties them together.
package vm

import "mem"

/// PGSHIFT, PAGE_SIZE mirror mem.PGSHIFT/mem.PGSIZE; kept as their own
/// names here since the VM-core layer names them this way independent
/// of the frame allocator's own naming.
const (
	PGSHIFT   uint = mem.PGSHIFT
	PAGE_SIZE int  = mem.PGSIZE
)

// Index widths: offset 12 bits, TLI 6 bits, SLI 6 bits, FLI 8 bits —
// 12+6+6+8 = 32.
const (
	tliBits  = 6
	sliBits  = 6
	fliBits  = 8
	tliShift = PGSHIFT
	sliShift = tliShift + tliBits
	fliShift = sliShift + sliBits
	tliMask  = 1<<tliBits - 1
	sliMask  = 1<<sliBits - 1
	fliMask  = 1<<fliBits - 1
)

/// LEVEL1_LIMIT is the fixed size of the first-level page-table array.
const LEVEL1_LIMIT = 1 << fliBits

/// LEVEL2_AND_3_LIMIT is the size of a second- or third-level array,
/// both indexed by 6-bit fields.
const LEVEL2_AND_3_LIMIT = 1 << tliBits

/// Pte_t is a packed 32-bit page-table entry: a page-aligned frame
/// address in the high bits and DIRTY/VALID flag bits in two of the low
/// bits the frame address never occupies (frame addresses are always
/// page-aligned, so their low PGSHIFT bits are already zero). A zero
/// Pte_t means "no mapping".
type Pte_t uint32

const (
	/// PTE_VALID marks a present translation.
	PTE_VALID Pte_t = 1 << 0
	/// PTE_DIRTY marks a writable page (MIPS convention: dirty==writable).
	PTE_DIRTY Pte_t = 1 << 1
)

// pteFrameMask keeps only the page-aligned frame bits of a packed PTE,
// the same role mem.PAGE_FRAME plays for a raw physical address.
const pteFrameMask Pte_t = ^Pte_t(1<<PGSHIFT - 1)

/// MkPTE packs a frame address and flags into a PTE. frame must already
/// be page-aligned (true of every mem.Allocator-returned frame).
func MkPTE(frame mem.Pa_t, dirty, valid bool) Pte_t {
	e := Pte_t(uint32(frame)) & pteFrameMask
	if dirty {
		e |= PTE_DIRTY
	}
	if valid {
		e |= PTE_VALID
	}
	return e
}

/// Frame extracts the physical frame address from a PTE.
func (e Pte_t) Frame() mem.Pa_t {
	return mem.Pa_t(uint32(e) & uint32(pteFrameMask))
}

/// Dirty reports whether the writable bit is set.
func (e Pte_t) Dirty() bool { return e&PTE_DIRTY != 0 }

/// Valid reports whether the translation is present.
func (e Pte_t) Valid() bool { return e&PTE_VALID != 0 }

/// StripDirty clears the writable bit, used by fork to make a shared
/// frame's mapping read-only in both address spaces.
func (e Pte_t) StripDirty() Pte_t { return e &^ PTE_DIRTY }

func decompose(va uint32) (fli, sli, tli int) {
	fli = int((va >> fliShift) & fliMask)
	sli = int((va >> sliShift) & sliMask)
	tli = int((va >> tliShift) & tliMask)
	return
}

type l3table [LEVEL2_AND_3_LIMIT]Pte_t
type l2table [LEVEL2_AND_3_LIMIT]*l3table

/// PageTable_t is the three-level sparse radix tree translating virtual
/// pages to packed PTEs. It has no lock of its own: callers hold the
/// owning address space's lock for the duration of any page-table
/// operation.
type PageTable_t struct {
	l1 [LEVEL1_LIMIT]*l2table
}

/// NewPageTable allocates an empty page table: all 256 first-level
/// slots unoccupied. Go's allocator does not expose an out-of-memory
/// return, so table-node allocation here cannot fail; only frame
/// allocation (via mem.Allocator) can, and that failure path is modeled
/// explicitly where it occurs.
func NewPageTable() *PageTable_t {
	return &PageTable_t{}
}

/// Lookup returns the PTE stored for va, or zero if any of the three
/// levels is absent. It never allocates.
func (pt *PageTable_t) Lookup(va uint32) Pte_t {
	fli, sli, tli := decompose(va)
	l2 := pt.l1[fli]
	if l2 == nil {
		return 0
	}
	l3 := l2[sli]
	if l3 == nil {
		return 0
	}
	return l3[tli]
}

/// Insert lazily materializes any absent L2/L3 arrays and writes entry
/// at va's (FLI,SLI,TLI) slot.
func (pt *PageTable_t) Insert(va uint32, entry Pte_t) {
	fli, sli, tli := decompose(va)
	l2 := pt.l1[fli]
	if l2 == nil {
		l2 = &l2table{}
		pt.l1[fli] = l2
	}
	l3 := l2[sli]
	if l3 == nil {
		l3 = &l3table{}
		l2[sli] = l3
	}
	l3[tli] = entry
}

/// StripWrite clears DIRTY on the PTE for va, if one is present. It is
/// a no-op if va has no mapping.
func (pt *PageTable_t) StripWrite(va uint32) {
	fli, sli, tli := decompose(va)
	l2 := pt.l1[fli]
	if l2 == nil {
		return
	}
	l3 := l2[sli]
	if l3 == nil {
		return
	}
	if l3[tli] != 0 {
		l3[tli] = l3[tli].StripDirty()
	}
}

/// CopyInto walks pt and builds a sibling page table in dst that shares
/// every mapped frame read-only with pt: for every non-zero leaf, DIRTY
/// is cleared in the source PTE first, the now-read-only PTE is
/// duplicated into dst, and the frame's external refcount is bumped by
/// one. alloc is the frame allocator whose refcount table backs the
/// shared frames.
func (pt *PageTable_t) CopyInto(dst *PageTable_t, alloc mem.Allocator) {
	for fli, l2 := range pt.l1 {
		if l2 == nil {
			continue
		}
		dl2 := &l2table{}
		dst.l1[fli] = dl2
		for sli, l3 := range l2 {
			if l3 == nil {
				continue
			}
			dl3 := &l3table{}
			dl2[sli] = dl3
			for tli, e := range l3 {
				if e == 0 {
					continue
				}
				e = e.StripDirty()
				l3[tli] = e
				dl3[tli] = e
				alloc.RefUp(e.Frame())
			}
		}
	}
}

/// Free releases every mapped frame back to alloc (which decrements
/// refcounts and frees at zero) and drops the table's own arrays.
func (pt *PageTable_t) Free(alloc mem.Allocator) {
	for fli, l2 := range pt.l1 {
		if l2 == nil {
			continue
		}
		for _, l3 := range l2 {
			if l3 == nil {
				continue
			}
			for _, e := range l3 {
				if e != 0 {
					alloc.FreeFrame(e.Frame())
				}
			}
		}
		pt.l1[fli] = nil
	}
}
