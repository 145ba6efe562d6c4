// Package config provides 12-factor configuration management for the
// StratOS memory service.
//
// Configuration is loaded from STRATOS_-prefixed environment variables
// with sensible defaults. An optional YAML or TOML file can overlay the
// environment for deployments that prefer checked-in settings.
//
// Configuration Sections:
//   - Server: HTTP server settings (port, host)
//   - Memory: kernel heap and app arena sizing
//   - Display: compositor stats endpoint for the overview
//   - Stream: overview push and metrics refresh pacing
//   - Logging: log level and output format
//   - RateLimit: per-IP rate limiting configuration
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//
// Environment Variables:
//   - STRATOS_PORT, STRATOS_HOST
//   - STRATOS_MEM_HEAP_SIZE, STRATOS_MEM_ARENA_SIZE, STRATOS_MEM_MAX_APPS,
//     STRATOS_MEM_REGION_ALIGN, STRATOS_MEM_TOTAL_RAM
//   - STRATOS_DISPLAY_URL, STRATOS_DISPLAY_TIMEOUT, STRATOS_DISPLAY_RETRY_MAX,
//     STRATOS_DISPLAY_RPS
//   - STRATOS_STREAM_INTERVAL
//   - STRATOS_LOG_LEVEL, STRATOS_LOG_DEV
//   - STRATOS_RATE_LIMIT_RPS, STRATOS_RATE_LIMIT_BURST, STRATOS_RATE_LIMIT_ENABLED
package config
