// Package limits tracks system-wide VM resource counters: how many
// physical frames are in use, how many address spaces are alive, and
// how many mmap regions exist across all of them.
package limits

import "sync/atomic"

/// Sysatomic_t is a system-wide counter safe for concurrent
/// increment/decrement from any address space.
type Sysatomic_t int64

/// Inc increments the counter by one.
func (s *Sysatomic_t) Inc() {
	atomic.AddInt64((*int64)(s), 1)
}

/// Dec decrements the counter by one.
func (s *Sysatomic_t) Dec() {
	atomic.AddInt64((*int64)(s), -1)
}

/// Get returns the counter's current value.
func (s *Sysatomic_t) Get() int64 {
	return atomic.LoadInt64((*int64)(s))
}

/// VMCounters_t aggregates the system-wide counters the VM core
/// maintains as it creates and destroys address spaces and mappings.
type VMCounters_t struct {
	/// AddrSpaces counts live address spaces (as_create minus as_destroy).
	AddrSpaces Sysatomic_t
	/// MmapRegions counts live mmap regions across all address spaces.
	MmapRegions Sysatomic_t
	/// FramesInUse counts frames handed out by the allocator and not yet
	/// freed back to its free list.
	FramesInUse Sysatomic_t
}

/// VM is the process-wide counters instance. It is a single shared
/// value rather than dependency-injected, since it is diagnostic
/// bookkeeping rather than a correctness dependency of any VM-core
/// operation.
var VM VMCounters_t
