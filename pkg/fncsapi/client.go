// Package fncsapi is the read-only client for the farmer network data
// service: farmer profiles and crop price history.
package fncsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/mlambe/fncs/internal/logging"
	"github.com/mlambe/fncs/pkg/domain"
)

// DefaultTimeout bounds each remote call. The carrier is waiting on the
// reply, so this must stay well under USSD gateway timeouts.
const DefaultTimeout = 10 * time.Second

// DefaultAttempts is the total call budget per fetch: one try plus one
// retry.
const DefaultAttempts = 2

// UnitPrices is the recent price series for one sale unit, in the order
// returned by the data service.
type UnitPrices struct {
	UnitID   string
	UnitName string
	Prices   []float64
}

// Client talks to the FNCS HTTP API.
type Client struct {
	base     string
	http     *http.Client
	attempts uint
	logger   *slog.Logger
}

// Option configures the client.
type Option func(*Client)

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithAttempts overrides the call budget (tries including retries).
func WithAttempts(n uint) Option {
	return func(c *Client) {
		c.attempts = n
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a client for the API at base, e.g. "http://fncs.example.com/v1".
func New(base string, opts ...Option) *Client {
	c := &Client{
		base:     base,
		http:     &http.Client{Timeout: DefaultTimeout},
		attempts: DefaultAttempts,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetFarmer fetches the profile snapshot for a subscriber address.
// Returns domain.ErrFarmerNotFound when the service has no farmer for
// the address; that error is terminal and not retried.
func (c *Client) GetFarmer(ctx context.Context, msisdn string) (*domain.Farmer, error) {
	var farmer domain.Farmer

	err := c.retry(ctx, "farmer", func() error {
		resp, err := c.get(ctx, "/farmer", url.Values{"msisdn": {msisdn}})
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK:
		case http.StatusNotFound:
			return retry.Unrecoverable(domain.ErrFarmerNotFound)
		default:
			return fmt.Errorf("farmer fetch returned %s", resp.Status)
		}

		if err := json.NewDecoder(resp.Body).Decode(&farmer); err != nil {
			return retry.Unrecoverable(fmt.Errorf("malformed farmer payload: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The wire payload carries no user id; the subscriber address is
	// the key.
	farmer.UserID = msisdn
	return &farmer, nil
}

// GetPriceHistory fetches recent prices for a (market, crop) pair
// across all sale units in one call. Units with no price history are
// omitted by the service; the returned slice preserves the service's
// unit order so menus render stably.
func (c *Client) GetPriceHistory(ctx context.Context, marketID, cropID string, limit int) ([]UnitPrices, error) {
	var units []UnitPrices

	err := c.retry(ctx, "price_history", func() error {
		resp, err := c.get(ctx, "/price_history", url.Values{
			"market": {marketID},
			"crop":   {cropID},
			"limit":  {fmt.Sprintf("%d", limit)},
		})
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("price history fetch returned %s", resp.Status)
		}

		units, err = decodePriceHistory(resp.Body)
		if err != nil {
			return retry.Unrecoverable(fmt.Errorf("malformed price history payload: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return units, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return c.http.Do(req)
}

func (c *Client) retry(ctx context.Context, op string, fn func() error) error {
	return retry.Do(fn,
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(100*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("remote call failed, retrying", "op", op, "attempt", n+1, "err", err)
		}),
	)
}
