// Package display talks to the compositor service that owns the
// framebuffer. The memory subsystem only forwards its buffer statistics
// inside overview reports; the values are opaque here.
//
// Client fetches stats over HTTP with retries, rate limiting, and a
// circuit breaker; every failure mode reads as "no display attached".
// Static serves a fixed value for standalone runs and tests.
package display
