// Package binder implements the external data hooks of a decision
// tree: the pre-start fetch that seeds the answer set and the
// post-completion submission of the collected answers.
package binder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/mlambe/fncs/internal/logging"
	"github.com/mlambe/fncs/pkg/tree"
)

// DefaultTimeout bounds each hook call.
const DefaultTimeout = 10 * time.Second

// DefaultAttempts is the total call budget per hook.
const DefaultAttempts = 2

// Binder performs the remote calls declared in a tree's __data__ and
// __post__ sections.
type Binder struct {
	http     *http.Client
	attempts uint
	logger   *slog.Logger
}

// Option configures the binder.
type Option func(*Binder)

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(b *Binder) {
		b.http.Timeout = d
	}
}

// WithAttempts overrides the call budget.
func WithAttempts(n uint) Option {
	return func(b *Binder) {
		b.attempts = n
	}
}

// WithLogger sets the binder logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Binder) {
		b.logger = logger
	}
}

// New creates a binder.
func New(opts ...Option) *Binder {
	b := &Binder{
		http:     &http.Client{Timeout: DefaultTimeout},
		attempts: DefaultAttempts,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Fetch retrieves the seed dataset for a session, parameterized by the
// subscriber address. An unconfigured source yields an empty dataset
// and the traversal proceeds unaffected.
func (b *Binder) Fetch(ctx context.Context, src *tree.DataSource, address string) (map[string]any, error) {
	if src == nil || src.URL == "" {
		return map[string]any{}, nil
	}

	query := url.Values{}
	for _, param := range src.Params {
		query.Set(param, address)
	}

	var seed map[string]any
	err := retry.Do(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL+"?"+query.Encode(), nil)
		if err != nil {
			return retry.Unrecoverable(err)
		}
		resp, err := b.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("seed fetch returned %s", resp.Status)
		}
		if err := json.NewDecoder(resp.Body).Decode(&seed); err != nil {
			return retry.Unrecoverable(fmt.Errorf("malformed seed payload: %w", err))
		}
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(b.attempts),
		retry.Delay(100*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			b.logger.Warn("seed fetch failed, retrying", "url", src.URL, "attempt", n+1, "err", err)
		}),
	)
	if err != nil {
		return nil, err
	}
	if seed == nil {
		seed = map[string]any{}
	}
	return seed, nil
}

// Post submits the collected answers after a completed traversal. The
// hook is fire-and-forget: failures are logged and never block the
// reply to the subscriber.
func (b *Binder) Post(ctx context.Context, dst *tree.PostTarget, answers map[string]any) {
	if dst == nil || dst.URL == "" {
		return
	}

	body, err := json.Marshal(answers)
	if err != nil {
		b.logger.Error("result submission skipped, answers not serializable", "url", dst.URL, "err", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dst.URL, bytes.NewReader(body))
	if err != nil {
		b.logger.Error("result submission skipped", "url", dst.URL, "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.http.Do(req)
	if err != nil {
		b.logger.Error("result submission failed", "url", dst.URL, "err", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		b.logger.Error("result submission rejected", "url", dst.URL, "status", resp.Status)
	}
}
