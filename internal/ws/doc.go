// Package ws provides WebSocket handling for live memory telemetry.
//
// This package streams the combined memory overview to connected
// clients on a fixed interval, the push channel HUD-style consoles
// poll for usage readouts.
//
// Features:
//   - Periodic overview push with per-connection pacing
//   - Pause/resume without dropping the connection
//   - Automatic connection upgrade from HTTP
//   - Context-based cancellation
//
// Message Types (Client → Server):
//   - subscribe: Resume pushes, optionally changing the interval
//   - unsubscribe: Pause pushes, keep the connection
//   - ping: Keep-alive ping
//
// Message Types (Server → Client):
//   - system: Connection established, carries the stream id
//   - overview: Combined memory overview snapshot
//   - pong: Keep-alive reply
//   - error: Error occurred
//
// Example Usage:
//
//	handler := ws.NewHandler(manager, metrics, time.Second, log)
//	router.GET("/stream", handler.HandleConnection)
package ws
