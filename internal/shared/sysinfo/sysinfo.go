// Package sysinfo reports machine memory facts for boot-time stats.
package sysinfo

// TotalRAM returns the machine's physical memory in bytes.
func TotalRAM() (uint64, error) {
	return totalRAM()
}

// TotalRAMOr returns the detected total, or fallback when detection
// fails or reports zero.
func TotalRAMOr(fallback uint64) uint64 {
	total, err := totalRAM()
	if err != nil || total == 0 {
		return fallback
	}
	return total
}
