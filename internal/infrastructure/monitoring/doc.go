/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics collection for the memory
service, tracking HTTP requests, memory operations, and the live state of
both memory tiers.

# Features

- HTTP request metrics (latency, throughput, size)
- Memory operation counters (alloc/free/register per tier and outcome)
- Allocation size distribution
- Kernel heap and arena state gauges, refreshed on a timer
- Per-app usage gauges that follow registration and teardown
- Service call metrics (duration, errors)
- WebSocket connection metrics

# Usage

	// Create metrics collector
	metrics := monitoring.NewMetrics()

	// Add middleware to Gin router
	router.Use(monitoring.Middleware(metrics))

	// Record memory operations
	metrics.RecordMemOp("kernel", "alloc", "ok")
	metrics.RecordAllocBytes("kernel", 4096)

	// Publish memory state on an interval
	refresher := monitoring.NewRefresher(metrics, manager, time.Second)
	refresher.Start()
	defer refresher.Stop()

	// Time operations
	timer := monitoring.NewTimer(metrics, "selftest", "run")
	// ... perform operation ...
	timer.Stop("success")

# Metrics Endpoint

Each Metrics carries its own registry; expose it with the bundled handler:

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
*/
package monitoring
