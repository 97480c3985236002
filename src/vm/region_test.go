package vm

import "testing"

func TestDefineRegionAligns(t *testing.T) {
	var l RegionList_t
	r, err := l.Define(0x00400010, 0x100, true, false, true)
	if err != 0 {
		t.Fatalf("Define failed: %v", err)
	}
	if r.Base != 0x00400000 {
		t.Fatalf("Base = %#x, want page-aligned down", r.Base)
	}
	if r.End != 0x00401000 {
		t.Fatalf("End = %#x, want page-aligned up", r.End)
	}
	if !r.IsReadonly {
		t.Fatal("read-only, non-writable region must latch IsReadonly")
	}
}

func TestDefineRejectsKernelSegment(t *testing.T) {
	var l RegionList_t
	_, err := l.Define(KSEG0-0x1000, 0x2000, true, true, false)
	if err != errBadAddress {
		t.Fatalf("err = %v, want bad-address for a region crossing KSEG0", err)
	}
}

func TestAbuttingRegionsAccepted(t *testing.T) {
	var l RegionList_t
	if _, err := l.Define(0x10000, 0x1000, true, true, false); err != 0 {
		t.Fatalf("first Define failed: %v", err)
	}
	if _, err := l.Define(0x11000, 0x1000, true, true, false); err != 0 {
		t.Fatalf("abutting Define rejected: %v", err)
	}
}

func TestOverlappingRegionRejected(t *testing.T) {
	var l RegionList_t
	if _, err := l.Define(0x10000, 0x2000, true, true, false); err != 0 {
		t.Fatalf("first Define failed: %v", err)
	}
	before := *l.head
	if _, err := l.Define(0x10800, 0x1000, true, false, false); err != errInvalid {
		t.Fatalf("err = %v, want invalid for overlap", err)
	}
	if *l.head != before || l.head.next != nil {
		t.Fatal("state mutated by a rejected Define")
	}
}

func TestExactRedefinitionIsInUse(t *testing.T) {
	var l RegionList_t
	if _, err := l.Define(0x10000, 0x2000, true, true, false); err != 0 {
		t.Fatalf("first Define failed: %v", err)
	}
	before := *l.head
	if _, err := l.Define(0x10000, 0x2000, true, false, true); err != errInUse {
		t.Fatalf("err = %v, want in-use for a verbatim redefinition", err)
	}
	if *l.head != before || l.head.next != nil {
		t.Fatal("state mutated by a rejected Define")
	}
}

func TestLookupFindsContainingRegion(t *testing.T) {
	var l RegionList_t
	l.Define(0x10000, 0x1000, true, true, false)
	l.Define(0x20000, 0x1000, true, false, true)

	if l.Lookup(0x10500) == nil {
		t.Fatal("Lookup missed an address inside the first region")
	}
	if l.Lookup(0x20fff) == nil {
		t.Fatal("Lookup missed the last byte of the second region")
	}
	if l.Lookup(0x21000) != nil {
		t.Fatal("Lookup matched one byte past the second region's end")
	}
}

func TestCopyFromDeepCopies(t *testing.T) {
	var src RegionList_t
	src.Define(0x10000, 0x1000, true, true, false)

	var dst RegionList_t
	dst.CopyFrom(&src)

	dst.head.Writable = false
	if !src.head.Writable {
		t.Fatal("CopyFrom aliased the source region instead of copying it")
	}
}
