//go:build darwin

package sysinfo

import (
	"golang.org/x/sys/unix"
)

// totalRAM reads the physical memory size.
//
// macOS has no sysinfo(); hw.memsize is the canonical sysctl for
// physical memory.
func totalRAM() (uint64, error) {
	return unix.SysctlUint64("hw.memsize")
}
