//go:build !linux && !darwin

package sysinfo

import "errors"

var errUnsupported = errors.New("sysinfo: total memory detection not supported on this platform")

func totalRAM() (uint64, error) {
	return 0, errUnsupported
}
