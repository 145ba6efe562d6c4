// Package memory is the core of the subsystem: one Manager instance
// owns the kernel heap and the application arena and is the single
// handle every caller shares.
//
// The kernel heap backs module-internal and diagnostic allocation; the
// arena leases quota-sized regions to registered apps, each served by
// its own first-fit heap. Capacity exhaustion and invalid handles are
// ordinary refusals (error or false returns), never panics. The
// kernel-heap lock and the arena lock are independent and never nested,
// so no lock-ordering deadlock can originate here.
package memory
