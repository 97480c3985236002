// Package caller provides a stack-dump helper for the VM core's
// last-resort panic paths: any unexpected condition inside the TLB
// path is treated as fatal and panics the kernel.
package caller

import (
	"fmt"
	"runtime"
)

/// Callerdump formats the call stack starting at the given depth and
/// prints it to stdout. It is called immediately before a panic so the
/// circumstances of a fatal VM-core invariant violation (e.g. an SMP TLB
/// shootdown request, which this design does not support) are visible
/// in the kernel log before the process dies.
func Callerdump(start int) {
	i := start
	s := ""
	for {
		_, f, l, ok := runtime.Caller(i)
		if !ok {
			break
		}
		i++
		if s == "" {
			s = fmt.Sprintf("%s:%d\n", f, l)
		} else {
			s += fmt.Sprintf("\t<-%s:%d\n", f, l)
		}
	}
	fmt.Printf("%s", s)
}
