// Package arena partitions one module-owned buffer among registered
// applications.
//
// Each registration reserves a quota-sized region, served first from a
// list of previously freed regions (a matching region is granted whole,
// so a grant may exceed the quota) and otherwise carved from a bump
// pointer at the region alignment. A bounded slot table binds every live
// app to its region and a private first-fit heap; unregistering returns
// the whole region to the free list for reuse. Freed regions are never
// coalesced, so the reusable space can sit in fragments smaller than a
// future quota even when the byte total looks sufficient.
//
// All operations serialize on one arena lock, independent of the kernel
// heap lock.
package arena
