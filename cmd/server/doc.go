// Package main is the entry point for the StratOS memory service.
//
// This application exposes the kernel's memory management subsystem
// over HTTP and WebSocket: the kernel heap, the quota-partitioned app
// arena, and the system overview that aggregates both with the display
// compositor's buffer statistics.
//
// Architecture:
//
//	Shell / HUD (HTTP, WebSocket) → Memory Service → Display Compositor (HTTP)
//
// The server provides:
//   - REST API for heap and app-arena operations
//   - WebSocket streaming of memory overviews
//   - Prometheus metrics and self-test diagnostics
//   - Rate limiting and request tracing
//
// Configuration:
//   - STRATOS_-prefixed environment variables (12-factor)
//   - Optional YAML/TOML config file (-config, wins over env)
//   - CLI flags (override both)
//
// Usage:
//
//	# Production mode
//	./server -port 8090
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
//	# With a config file
//	./server -config /etc/stratos/memd.yaml
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
