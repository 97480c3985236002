package vm

import "defs"

// Local aliases for the error kinds this package returns, kept distinct
// from defs.Err_t's own names only for brevity at call sites within
// this package.
const (
	errBadAddress = defs.EFAULT
	errInvalid    = defs.EINVAL
	errInUse      = defs.EEXIST
	errNoMem      = defs.ENOMEM
)
