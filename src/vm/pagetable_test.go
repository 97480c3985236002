package vm

import (
	"mem"
	"testing"
)

func TestLookupAbsentReturnsZero(t *testing.T) {
	pt := NewPageTable()
	if pt.Lookup(0x00401000) != 0 {
		t.Fatal("lookup on empty table must return 0")
	}
}

func TestInsertThenLookupRoundtrips(t *testing.T) {
	pt := NewPageTable()
	e := MkPTE(0x5000, true, true)
	pt.Insert(0x00401000, e)
	if got := pt.Lookup(0x00401000); got != e {
		t.Fatalf("Lookup = %#x, want %#x", got, e)
	}
	// a neighboring page in the same L2/L3 arrays must stay unmapped.
	if pt.Lookup(0x00402000) != 0 {
		t.Fatal("neighboring page leaked a mapping")
	}
}

func TestStripWriteClearsDirtyOnly(t *testing.T) {
	pt := NewPageTable()
	e := MkPTE(0x5000, true, true)
	pt.Insert(0x00401000, e)
	pt.StripWrite(0x00401000)
	got := pt.Lookup(0x00401000)
	if got.Dirty() {
		t.Fatal("StripWrite left DIRTY set")
	}
	if !got.Valid() || got.Frame() != 0x5000 {
		t.Fatalf("StripWrite corrupted the PTE: %#x", got)
	}
}

func TestStripWriteOnAbsentIsNoop(t *testing.T) {
	pt := NewPageTable()
	pt.StripWrite(0x00401000)
	if pt.Lookup(0x00401000) != 0 {
		t.Fatal("StripWrite materialized a mapping that never existed")
	}
}

func TestCopyIntoSharesFramesReadOnly(t *testing.T) {
	fa := mem.NewFrameAllocator(4, 0)
	p, _ := fa.AllocFrame()
	old := NewPageTable()
	old.Insert(0x00401000, MkPTE(p, true, true))

	newer := NewPageTable()
	old.CopyInto(newer, fa)

	oldPTE := old.Lookup(0x00401000)
	newPTE := newer.Lookup(0x00401000)
	if oldPTE.Dirty() {
		t.Fatal("source PTE must lose DIRTY after CopyInto")
	}
	if newPTE.Dirty() {
		t.Fatal("destination PTE must not be DIRTY after CopyInto")
	}
	if oldPTE.Frame() != newPTE.Frame() {
		t.Fatalf("copied PTE points at a different frame: %#x vs %#x", oldPTE.Frame(), newPTE.Frame())
	}
	if got := fa.RefCount(p); got != 2 {
		t.Fatalf("RefCount after CopyInto = %d, want 2", got)
	}
}

func TestFreeReleasesEveryMappedFrame(t *testing.T) {
	fa := mem.NewFrameAllocator(4, 0)
	p1, _ := fa.AllocFrame()
	p2, _ := fa.AllocFrame()
	pt := NewPageTable()
	// land the two pages in different FLI buckets so Free must walk more
	// than one L1 slot.
	pt.Insert(0x00401000, MkPTE(p1, true, true))
	pt.Insert(0x01401000, MkPTE(p2, true, true))

	pt.Free(fa)

	if fa.Free() != 4 {
		t.Fatalf("Free() after page table Free = %d, want all 4 frames back", fa.Free())
	}
}
