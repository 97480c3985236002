// Package tlb implements the TLB driver: guarded writes to the
// software-managed, random-replacement hardware TLB, and whole-TLB
// invalidation on address-space activation. There is no real MIPS TLB
// to drive in a hosted Go program, so this package simulates the
// hardware register file (tlb_write/tlb_random/NUM_TLB/TLBHI_INVALID/
// TLBLO_INVALID) closely enough that the invalidation and random-load
// invariants are directly observable by tests.
package tlb

import (
	"sync"

	"caller"
)

/// NUM_TLB is the number of hardware TLB slots, matching the MIPS r3000
/// convention this target follows.
const NUM_TLB = 64

/// Entry is one hardware TLB slot: a virtual page tag (entry_hi) and a
/// packed PTE (entry_lo).
type Entry struct {
	Hi uint32
	Lo uint32
}

/// TLBHI_INVALID returns a per-slot entry_hi tag that can never collide
/// with a real user virtual page, so that invalidated slots stay
/// distinguishable from each other (matching the MIPS convention of
/// giving each invalidated entry a unique high half to avoid spurious
/// multiple-match faults).
func TLBHI_INVALID(slot int) uint32 {
	return invalidHiBase + uint32(slot)
}

/// TLBLO_INVALID returns the entry_lo value for an invalidated slot: no
/// frame, not valid, not dirty.
func TLBLO_INVALID() uint32 {
	return 0
}

// invalidHiBase sits above any address a user address space can produce
// (KSEG0 is 0x80000000; see vm.KSEG0), so invalidated slots never alias
// a live mapping.
const invalidHiBase = 0xfff00000

/// Driver is the TLB hardware abstraction. All three operations it
/// exposes run under a raised-IPL guard (here, mutual exclusion), so no
/// concurrent reader observes a half-written slot.
type Driver struct {
	mu    sync.Mutex
	slots [NUM_TLB]Entry
	next  int // round-robins in place of a hardware-chosen random slot
}

/// New returns a driver whose slots are all invalid, as if freshly
/// flushed.
func New() *Driver {
	d := &Driver{}
	for i := range d.slots {
		d.slots[i] = Entry{Hi: TLBHI_INVALID(i), Lo: TLBLO_INVALID()}
	}
	return d
}

/// Write installs (hi, lo) into the given slot under raised IPL. It
/// panics if slot is out of range: an internal invariant violation, not
/// a condition a caller should handle as an error.
func (d *Driver) Write(hi, lo uint32, slot int) {
	if slot < 0 || slot >= NUM_TLB {
		panic("tlb: slot out of range")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.slots[slot] = Entry{Hi: hi, Lo: lo}
}

/// Random installs (hi, lo) into a hardware-chosen slot under raised
/// IPL, mirroring tlb_random. The replacement policy is round-robin;
/// which slot gets evicted is not an observable part of this module's
/// contract.
func (d *Driver) Random(hi, lo uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	slot := d.next
	d.next = (d.next + 1) % NUM_TLB
	d.slots[slot] = Entry{Hi: hi, Lo: lo}
}

/// FlushAll writes TLBHI_INVALID(i)/TLBLO_INVALID() into every slot
/// under one raised-IPL section, as as_activate/as_deactivate require.
func (d *Driver) FlushAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.slots {
		d.slots[i] = Entry{Hi: TLBHI_INVALID(i), Lo: TLBLO_INVALID()}
	}
}

/// Slots returns a snapshot of the TLB contents, for diagnostics and
/// tests.
func (d *Driver) Slots() [NUM_TLB]Entry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.slots
}

/// Lookup returns the entry_lo mapped for hi, if any TLB slot currently
/// holds it. Real hardware does this associatively on every memory
/// access; software never calls it directly, but tests use it to assert
/// that a refill actually landed.
func (d *Driver) Lookup(hi uint32) (uint32, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range d.slots {
		if e.Hi == hi && e.Lo != TLBLO_INVALID() {
			return e.Lo, true
		}
	}
	return 0, false
}

/// Shootdown handles a cross-CPU TLB invalidation request. This driver
/// targets a single simulated CPU, so there is never a remote TLB to
/// invalidate; receiving one at all means some caller believes it is
/// running under SMP, which this design does not support. It dumps the
/// call stack and panics rather than silently ignoring the request.
func (d *Driver) Shootdown() {
	caller.Callerdump(1)
	panic("tlb: shootdown requested on a single-CPU driver")
}
