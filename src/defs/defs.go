// Package defs holds types and constants shared across the VM core
// packages: the error-kind taxonomy and thread identifiers.
package defs

/// Err_t is a kernel error kind. The zero value means success; callers
/// that need a negative convention are free to negate it, but this
/// package stores the kinds as plain positive values since nothing here
/// multiplexes them with a byte count the way a syscall return value
/// would.
type Err_t int

/// Error kinds: bad-address, invalid, in-use, out-of-memory.
const (
	/// EFAULT: bad-address. Null address space, vaddr >= KSEG0, a fault
	/// outside any region/heap/mmap, a true read-only write, or a zero-byte
	/// file read for a non-empty mmap page.
	EFAULT Err_t = iota + 1
	/// EINVAL: invalid. Region overlap, heap break below base, or
	/// copy-on-write invoked on an absent PTE.
	EINVAL
	/// EEXIST: in-use. Redefinition of an already-mapped range.
	EEXIST
	/// ENOMEM: out-of-memory. Any allocator or table growth that cannot
	/// be satisfied.
	ENOMEM
)

/// String renders an Err_t for diagnostics.
func (e Err_t) String() string {
	switch e {
	case 0:
		return "ok"
	case EFAULT:
		return "bad-address"
	case EINVAL:
		return "invalid"
	case EEXIST:
		return "in-use"
	case ENOMEM:
		return "out-of-memory"
	default:
		return "unknown-err"
	}
}

/// Tid_t identifies a kernel thread. The VM core only uses it to tag
/// which thread took a fault; thread lifecycle itself belongs to the
/// scheduler, not this package.
type Tid_t int
