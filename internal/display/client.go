package display

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/stratocompute/stratos/backend/internal/infrastructure/resilience"
	"github.com/stratocompute/stratos/backend/internal/logging"
)

const statsPath = "/display/stats"

// Config locates the compositor endpoint.
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	RetryMax int
	// RPS bounds how hard overview polling may hit the compositor.
	// Zero or negative means unlimited.
	RPS float64
}

// Client fetches buffer statistics from the compositor over HTTP.
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	log     *logging.Logger
}

// NewClient builds the compositor client. The transport retries
// transient failures and a circuit breaker shields a compositor that is
// down from being hammered by every overview call.
func NewClient(cfg Config, log *logging.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.RetryMax == 0 {
		cfg.RetryMax = 2
	}
	if log == nil {
		log = logging.Nop()
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.RetryMax
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = nil

	r := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "stratos-memd/1.0")
	r.SetTransport(&retryablehttp.RoundTripper{Client: retryClient})

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}

	breaker := resilience.New("display-stats", resilience.Settings{
		MaxRequests: 1,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	return &Client{
		resty:   r,
		limiter: limiter,
		breaker: breaker,
		log:     log.WithComponent("display"),
	}
}

// BufferStats fetches the current stats. Transport errors, bad
// statuses, rate-limit aborts, and an open breaker all read as "no
// display attached": the overview must not fail because the compositor
// is down.
func (c *Client) BufferStats(ctx context.Context) *BufferStats {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil
	}

	var out BufferStats
	_, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.resty.R().
			SetContext(ctx).
			SetResult(&out).
			Get(statsPath)
		if err != nil {
			return nil, err
		}
		if !resp.IsSuccess() {
			return nil, fmt.Errorf("display: status %s", resp.Status())
		}
		return resp, nil
	})
	if err != nil {
		c.log.Debug("buffer stats unavailable", zap.Error(err))
		return nil
	}
	return &out
}

// BreakerState exposes the breaker for health reporting.
func (c *Client) BreakerState() resilience.State {
	return c.breaker.State()
}
