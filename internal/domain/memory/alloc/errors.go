package alloc

import "errors"

var (
	// ErrNoSpace means no free span holds a suitably aligned run of the
	// requested size. Callers treat this as ordinary control flow.
	ErrNoSpace = errors.New("alloc: no space")

	// ErrBadAlign means the alignment was zero or not a power of two.
	ErrBadAlign = errors.New("alloc: alignment must be a power of two")
)
