package vm

import "defs"

/// FaultKind_t classifies a hardware fault: a store to a translation
/// present but not writable (Readonly), a load miss (Read), or a store
/// miss (Write).
type FaultKind_t int

const (
	FaultReadonly FaultKind_t = iota
	FaultRead
	FaultWrite
)

const vpageMask uint32 = ^uint32(1<<PGSHIFT - 1)

// pageBaseOf aligns fa down to its containing page, the entry_hi half
// of a TLB load.
func pageBaseOf(fa uint32) uint32 { return fa & vpageMask }

/// VMFault resolves a page fault of the given kind at the given virtual
/// address against the current process's address space: classify the
/// address against regions/heap/mmap, then dispatch to copy-on-write
/// resolution (Readonly) or the TLB-miss path (Read/Write).
func VMFault(kind FaultKind_t, fa uint32) defs.Err_t {
	if CurrentProc == nil {
		return errBadAddress
	}
	as := CurrentProc.CurrentAS()
	if as == nil {
		return errBadAddress
	}
	if fa >= KSEG0 {
		return errBadAddress
	}

	as.Lock_pmap()
	defer as.Unlock_pmap()

	region := as.Regions.Lookup(fa)
	heapHit := as.Heap.Contains(fa)
	mmapR := as.Mmap.Lookup(fa)
	if region == nil && !heapHit && mmapR == nil {
		return errBadAddress
	}

	switch kind {
	case FaultReadonly:
		if region != nil && region.IsReadonly {
			return errBadAddress
		}
		if mmapR != nil && !mmapR.Writable {
			return errBadAddress
		}
		return as.copyOnWrite(fa, mmapR)
	case FaultRead, FaultWrite:
		return as.resolveMiss(kind, fa, region, heapHit, mmapR)
	default:
		panic("vm: unknown fault kind")
	}
}

// copyOnWrite resolves a write fault against a shared, read-only
// mapping. Caller must hold as's pmap lock. mmapR is the mmap region
// owning fa, if any; a Shared mapping is promoted to writable on its
// existing frame rather than privatized, since shared mappings are
// meant to stay visible to every mapper.
func (as *AddrSpace_t) copyOnWrite(fa uint32, mmapR *MmapRegion_t) defs.Err_t {
	as.Lockassert_pmap()

	pte := as.PT.Lookup(fa)
	if pte == 0 {
		return errInvalid
	}
	frame := pte.Frame()

	if mmapR != nil && mmapR.Mode == Shared {
		newPTE := MkPTE(frame, true, true)
		as.PT.Insert(fa, newPTE)
		AsActivate(as)
		return 0
	}

	var newPTE Pte_t
	if as.alloc.RefCount(frame) == 1 {
		// sole owner: promote the existing frame to writable in place.
		newPTE = MkPTE(frame, true, true)
	} else {
		newFrame, ok := as.alloc.AllocFrameNoZero()
		if !ok {
			return errNoMem
		}
		*as.alloc.Frame(newFrame) = *as.alloc.Frame(frame)
		as.alloc.FreeFrame(frame)
		newPTE = MkPTE(newFrame, true, true)
	}
	as.PT.Insert(fa, newPTE)
	// Flush so the stale read-only TLB entry is never honored again.
	AsActivate(as)
	return 0
}

// resolveMiss handles a TLB-miss fault: reload an existing PTE, or
// demand-allocate a new page from the region, heap, or mmap owner.
// Caller must hold as's pmap lock. A FaultWrite against an owner that
// is not writable is rejected here, before any reload or install: a
// store to a read-only region must never succeed merely because a
// prior read already installed a (necessarily non-dirty) PTE for it.
func (as *AddrSpace_t) resolveMiss(kind FaultKind_t, fa uint32, region *Region_t, heapHit bool, mmapR *MmapRegion_t) defs.Err_t {
	as.Lockassert_pmap()

	if kind == FaultWrite {
		if region != nil && !region.Writable {
			return errBadAddress
		}
		if mmapR != nil && !mmapR.Writable {
			return errBadAddress
		}
	}

	if pte := as.PT.Lookup(fa); pte != 0 {
		as.tlbd.Random(pageBaseOf(fa), uint32(pte))
		return 0
	}

	pageBase := pageBaseOf(fa)

	if mmapR != nil {
		frame, ok := as.alloc.AllocFrameNoZero()
		if !ok {
			return errNoMem
		}
		buf := as.alloc.Frame(frame)
		for i := range buf {
			buf[i] = 0
		}
		fileOff := mmapR.Offset + int64(pageBase-mmapR.Base)
		n, _ := mmapR.Fd.ReadAt(buf[:], fileOff)
		if n == 0 {
			as.alloc.FreeFrame(frame)
			return errBadAddress
		}
		pteVal := MkPTE(frame, mmapR.Writable, true)
		as.PT.Insert(pageBase, pteVal)
		as.tlbd.Random(pageBase, uint32(pteVal))
		return 0
	}

	var writable bool
	switch {
	case region != nil:
		writable = region.Writable
	case heapHit:
		writable = true
	default:
		panic("vm: resolveMiss with no owner")
	}

	frame, ok := as.alloc.AllocFrame()
	if !ok {
		return errNoMem
	}
	pteVal := MkPTE(frame, writable, true)
	as.PT.Insert(pageBase, pteVal)
	as.tlbd.Random(pageBase, uint32(pteVal))
	return 0
}
