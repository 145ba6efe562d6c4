//go:build linux

package sysinfo

import (
	"golang.org/x/sys/unix"
)

// totalRAM reads the physical memory size.
//
// On Linux, sysinfo() reports memory in units of mem_unit bytes, so the
// two fields have to be multiplied out.
func totalRAM() (uint64, error) {
	var si unix.Sysinfo_t
	if err := unix.Sysinfo(&si); err != nil {
		return 0, err
	}
	return uint64(si.Totalram) * uint64(si.Unit), nil
}
