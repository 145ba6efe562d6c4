// Package logging provides structured logging built on uber-go/zap.
//
// One root logger is built from configuration at startup; subsystems
// derive named children via WithComponent so every line carries its
// origin. Production mode emits JSON, development mode emits colored
// console output.
package logging
