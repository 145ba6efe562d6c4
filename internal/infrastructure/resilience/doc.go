/*
Package resilience provides a circuit breaker for calls to external
collaborators, chiefly the display compositor's stats endpoint.

The memory service treats the compositor as optional: overview reports
include framebuffer statistics when the compositor answers and simply
omit them when it does not. The breaker keeps a dead compositor from
adding a connect timeout to every overview request.

# States

	          trip (ReadyToTrip)
	CLOSED ───────────────────────▶ OPEN
	   ▲                             │
	   │ probe succeeds              │ Timeout lapses
	   │                             ▼
	   └────────────────────── HALF-OPEN
	                                 │
	              probe fails        │
	        OPEN ◀───────────────────┘

Closed passes every call through and tallies outcomes, resetting the
tally every Interval. When ReadyToTrip fires the breaker opens and
fails fast with ErrCircuitOpen. After Timeout it admits up to
MaxRequests probes; one failure reopens it, enough successes close it.

# Usage

	breaker := resilience.New("display-stats", resilience.Settings{
		MaxRequests: 1,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
	})

	result, err := breaker.Execute(func() (interface{}, error) {
		return client.FetchStats(ctx)
	})

Execute is safe for concurrent use. Results reported by calls that
started before a state change are discarded rather than counted into
the wrong window.
*/
package resilience
