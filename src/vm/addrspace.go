package vm

import (
	"sync"

	"defs"
	"fdops"
	"limits"
	"mem"
	"tlb"
)

/// AddrSpace_t is the per-process address-space envelope: one page
/// table, one region chain, one heap record, one mmap chain. The
/// embedded mutex and the Lock_pmap/Unlock_pmap/Lockassert_pmap trio
/// ensure every page-table mutation, on this address space or a sibling
/// created via AsCopy, happens with this lock held.
type AddrSpace_t struct {
	sync.Mutex
	pgfltaken bool

	PT      *PageTable_t
	Regions RegionList_t
	Heap    Heap_t
	Mmap    MmapList_t

	alloc mem.Allocator
	tlbd  *tlb.Driver
}

/// Lock_pmap acquires the address-space lock and marks that page-table
/// manipulation is in progress.
func (as *AddrSpace_t) Lock_pmap() {
	as.Lock()
	as.pgfltaken = true
}

/// Unlock_pmap releases the address-space lock.
func (as *AddrSpace_t) Unlock_pmap() {
	as.pgfltaken = false
	as.Unlock()
}

/// Lockassert_pmap panics if the address-space lock is not held.
func (as *AddrSpace_t) Lockassert_pmap() {
	if !as.pgfltaken {
		panic("pgfl lock must be held")
	}
}

/// ProcContext is the process-context collaborator: whatever tracks
/// "the current address space" on behalf of the scheduler/process
/// layer. Declared here (not imported from package proc) so that proc
/// can import vm for *AddrSpace_t without creating an import cycle;
/// proc wires itself in via vm.CurrentProc = ... in an init function.
type ProcContext interface {
	CurrentAS() *AddrSpace_t
}

/// CurrentProc is the process-context collaborator. It is nil until
/// some process-tracking package (package proc, in this module) installs
/// itself; VMFault treats a nil CurrentProc or a nil CurrentAS() result
/// as "no current process".
var CurrentProc ProcContext

/// AsCreate allocates the envelope, an empty page table, and empty
/// region/mmap chains. alloc and tlbd are the external frame allocator
/// and TLB driver this address space (and everything forked from it)
/// will use.
func AsCreate(alloc mem.Allocator, tlbd *tlb.Driver) *AddrSpace_t {
	as := &AddrSpace_t{
		PT:    NewPageTable(),
		alloc: alloc,
		tlbd:  tlbd,
	}
	limits.VM.AddrSpaces.Inc()
	return as
}

/// AsCopy implements fork: deep-copies every region, copies the heap's
/// base/break, and asks the page table to share every mapped frame
/// read-only with the new address space. This implementation's only
/// failure mode is a nil source, since Go's page-table node allocation
/// cannot fail (see NewPageTable's doc).
func AsCopy(src *AddrSpace_t) (*AddrSpace_t, defs.Err_t) {
	if src == nil {
		return nil, errBadAddress
	}

	src.Lock_pmap()
	defer src.Unlock_pmap()

	dst := AsCreate(src.alloc, src.tlbd)
	dst.Regions.CopyFrom(&src.Regions)
	dst.Heap.copyFrom(&src.Heap)
	src.PT.CopyInto(dst.PT, src.alloc)

	return dst, 0
}

/// AsDestroy tears down an address space in a fixed order: regions,
/// then mmap, then the page table (which releases frames through the
/// allocator), then the heap record, then the envelope. as must not be
/// the currently active address space.
func AsDestroy(as *AddrSpace_t) {
	as.Lock_pmap()
	defer as.Unlock_pmap()

	as.Regions = RegionList_t{}
	as.Mmap.Each(func(*MmapRegion_t) { limits.VM.MmapRegions.Dec() })
	as.Mmap = MmapList_t{}
	as.PT.Free(as.alloc)
	as.Heap = Heap_t{}
	limits.VM.AddrSpaces.Dec()
}

/// AsActivate flushes the entire TLB so that no stale translation
/// survives a context switch. It does not change which address space
/// CurrentProc reports as current; a nil as is a no-op.
func AsActivate(as *AddrSpace_t) {
	if as == nil {
		return
	}
	as.tlbd.FlushAll()
}

/// AsDeactivate is equivalent to AsActivate: it flushes the TLB so the
/// about-to-be-destroyed address space is no longer visible to the MMU.
func AsDeactivate(as *AddrSpace_t) {
	AsActivate(as)
}

/// DefineRegion defines a new code/data/stack segment, exposed at the
/// address-space level.
func (as *AddrSpace_t) DefineRegion(vaddr, memsize uint32, readable, writable, executable bool) defs.Err_t {
	as.Lock_pmap()
	defer as.Unlock_pmap()
	_, err := as.Regions.Define(vaddr, memsize, readable, writable, executable)
	return err
}

/// PrepareLoad sets every is_readonly region writable, so the ELF
/// loader can populate it.
func (as *AddrSpace_t) PrepareLoad() defs.Err_t {
	as.Lock_pmap()
	defer as.Unlock_pmap()
	as.Regions.Each(func(r *Region_t) {
		if r.IsReadonly {
			r.Writable = true
		}
	})
	return 0
}

/// CompleteLoad restores writability on regions PrepareLoad relaxed,
/// best-effort re-protects their base page's PTE, and flushes the TLB.
/// Only the base page of each region is walked here; the rest is
/// lazily re-protected the next time a write fault occurs.
func (as *AddrSpace_t) CompleteLoad() defs.Err_t {
	as.Lock_pmap()
	as.Regions.Each(func(r *Region_t) {
		if r.IsReadonly {
			r.Writable = false
			as.PT.StripWrite(r.Base)
		}
	})
	as.Unlock_pmap()

	AsActivate(as)
	return 0
}

/// DefineStack defines the fixed stack reserve at the top of user space
/// and returns the initial stack pointer.
func (as *AddrSpace_t) DefineStack() (uint32, defs.Err_t) {
	if err := as.DefineRegion(stackBase, STACK_LIMIT, true, true, false); err != 0 {
		return 0, err
	}
	return USERSTACK, 0
}

/// SetProcessBreak implements sbrk: the heap's base and break are
/// anchored just past the last region below the stack reserve.
func (as *AddrSpace_t) SetProcessBreak(amount int32) (uint32, defs.Err_t) {
	as.Lock_pmap()
	tail := as.Regions.tail
	as.Unlock_pmap()
	if tail == nil {
		return 0, errBadAddress
	}
	return as.Heap.SetBreak(amount, tail.End)
}

/// MmapFile establishes a new file-backed mapping, returning the
/// (base, error) pair directly.
func (as *AddrSpace_t) MmapFile(length uint32, readable, writable, executable bool, fd fdops.Fdops_i, offset int64, mode MmapMode_t) (uint32, defs.Err_t) {
	as.Lock_pmap()
	defer as.Unlock_pmap()
	base, err := as.Mmap.Mmap(length, readable, writable, executable, fd, offset, mode, &as.Regions, &as.Heap)
	if err != 0 {
		return 0, err
	}
	limits.VM.MmapRegions.Inc()
	return base, 0
}
