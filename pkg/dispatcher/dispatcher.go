// Package dispatcher routes normalized inbound events to the right
// conversation engine. It owns the per-turn lifecycle: lock the session
// key, load or create state, advance it by one step, persist or delete,
// and hand the reply back to the transport adapter.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mlambe/fncs/internal/logging"
	"github.com/mlambe/fncs/pkg/binder"
	"github.com/mlambe/fncs/pkg/domain"
	"github.com/mlambe/fncs/pkg/fncsapi"
	"github.com/mlambe/fncs/pkg/pricelookup"
	"github.com/mlambe/fncs/pkg/session"
	"github.com/mlambe/fncs/pkg/tree"
	"github.com/prometheus/client_golang/prometheus"
)

// FlowKind selects the conversation engine behind a route.
type FlowKind string

const (
	// FlowTree drives sessions from a declarative decision tree.
	FlowTree FlowKind = "tree"
	// FlowPriceLookup drives sessions through the crop price state
	// machine.
	FlowPriceLookup FlowKind = "price_lookup"
)

// Terminal texts for turns that cannot proceed because a remote data
// service failed. The subscriber gets a clean goodbye, not an error
// dump.
const (
	noFarmerText  = "No farmer found."
	noPricesText  = "No prices are available right now. Please try again later."
	noServiceText = "The service is unavailable right now. Please try again later."
)

// Config describes one dispatch route.
type Config struct {
	// Route namespaces session keys so the same address can hold
	// independent sessions on different services.
	Route string
	// Flow selects the engine.
	Flow FlowKind
	// Tree is the validated specification for FlowTree routes.
	Tree *tree.Spec
}

// Dispatcher is the single entry point for transport adapters. It is
// safe for concurrent use; turns for the same subscriber are
// serialized by the session manager.
type Dispatcher struct {
	cfg      Config
	sessions *session.Manager
	api      *fncsapi.Client
	binder   *binder.Binder
	logger   *slog.Logger
	metrics  *metrics
}

// Option configures the Dispatcher.
type Option func(*Dispatcher)

// WithAPI sets the remote farmer/price service client, required for
// price lookup routes.
func WithAPI(api *fncsapi.Client) Option {
	return func(d *Dispatcher) {
		d.api = api
	}
}

// WithBinder sets the data hook client used by tree routes.
func WithBinder(b *binder.Binder) Option {
	return func(d *Dispatcher) {
		d.binder = b
	}
}

// WithLogger sets the dispatcher logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithRegisterer registers the dispatcher's metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(d *Dispatcher) {
		d.metrics = newMetrics(reg)
	}
}

// New creates a dispatcher for one route.
func New(cfg Config, sessions *session.Manager, opts ...Option) (*Dispatcher, error) {
	if cfg.Route == "" {
		return nil, errors.New("dispatcher requires a route name")
	}
	d := &Dispatcher{
		cfg:      cfg,
		sessions: sessions,
		binder:   binder.New(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.metrics == nil {
		d.metrics = newMetrics(nil)
	}

	switch cfg.Flow {
	case FlowTree:
		if cfg.Tree == nil {
			return nil, fmt.Errorf("route %s: tree flow requires a tree specification", cfg.Route)
		}
	case FlowPriceLookup:
		if d.api == nil {
			return nil, fmt.Errorf("route %s: price lookup flow requires an API client", cfg.Route)
		}
	default:
		return nil, fmt.Errorf("route %s: unknown flow kind %q", cfg.Route, cfg.Flow)
	}
	return d, nil
}

// sessionKey namespaces the subscriber address under the route.
func (d *Dispatcher) sessionKey(address string) string {
	return d.cfg.Route + ":" + address
}

// HandleEvent processes one inbound event and returns the reply, or
// nil when the event produces none (session close). A non-nil error
// means the turn failed without advancing the session; the transport
// may redeliver.
func (d *Dispatcher) HandleEvent(ctx context.Context, ev domain.InboundEvent) (out *domain.OutboundEvent, err error) {
	defer func() { d.metrics.observe(string(ev.Kind), err) }()

	if ev.Address == "" {
		return nil, errors.New("inbound event has no address")
	}
	key := d.sessionKey(ev.Address)

	err = d.sessions.WithLock(ctx, key, func(ctx context.Context) error {
		switch ev.Kind {
		case domain.EventClose:
			d.logger.Info("session closed by transport", "key", key)
			return d.sessions.Store().Delete(ctx, key)

		case domain.EventNew:
			var stepErr error
			out, stepErr = d.startSession(ctx, key, ev)
			return stepErr

		case domain.EventResume:
			state, loadErr := d.sessions.Store().Load(ctx, key)
			if errors.Is(loadErr, domain.ErrSessionNotFound) {
				var stepErr error
				out, stepErr = d.startSession(ctx, key, ev)
				return stepErr
			}
			if loadErr != nil {
				return loadErr
			}
			var stepErr error
			out, stepErr = d.resumeSession(ctx, key, ev, state)
			return stepErr

		default:
			return fmt.Errorf("unknown event kind %q", ev.Kind)
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// startSession builds fresh state for the address, advances it through
// the first step and persists it. Any stale session for the key is
// discarded, never merged.
func (d *Dispatcher) startSession(ctx context.Context, key string, ev domain.InboundEvent) (*domain.OutboundEvent, error) {
	switch d.cfg.Flow {
	case FlowPriceLookup:
		return d.startPriceLookup(ctx, key, ev)
	default:
		return d.startTree(ctx, key, ev)
	}
}

func (d *Dispatcher) startPriceLookup(ctx context.Context, key string, ev domain.InboundEvent) (*domain.OutboundEvent, error) {
	state, err := pricelookup.NewState(ctx, ev.Address, d.api)
	if err != nil {
		d.logger.Warn("farmer lookup failed, refusing session", "key", key, "err", err)
		return d.terminate(ctx, key, ev.Address, noFarmerText)
	}

	model := pricelookup.New(state, d.api, pricelookup.WithLogger(d.logger))
	text, cont, err := model.Step(ctx, ev.Body)
	if err != nil {
		d.logger.Warn("price fetch failed, closing session", "key", key, "err", err)
		return d.terminate(ctx, key, ev.Address, noPricesText)
	}

	if !cont {
		_ = d.sessions.Store().Delete(ctx, key)
		return &domain.OutboundEvent{Address: ev.Address, Text: text}, nil
	}
	if err := d.sessions.Store().Save(ctx, key, domain.NewPriceLookupState(state)); err != nil {
		return nil, fmt.Errorf("failed to persist new session: %w", err)
	}
	return &domain.OutboundEvent{Address: ev.Address, Text: text, Continue: true}, nil
}

func (d *Dispatcher) startTree(ctx context.Context, key string, ev domain.InboundEvent) (*domain.OutboundEvent, error) {
	seed, err := d.binder.Fetch(ctx, d.cfg.Tree.Data, ev.Address)
	if err != nil {
		d.logger.Warn("seed fetch failed, refusing session", "key", key, "err", err)
		return d.terminate(ctx, key, ev.Address, noServiceText)
	}

	state := domain.NewGenericTreeState(d.cfg.Tree.Name)
	trav := tree.NewTraversal(d.cfg.Tree, state, tree.WithLogger(d.logger))
	trav.Seed(seed)
	trav.Start()

	if trav.IsCompleted() {
		// A tree whose start chain runs straight into the finish node
		// never opens a session.
		d.binder.Post(ctx, d.cfg.Tree.Post, trav.Answers())
		_ = d.sessions.Store().Delete(ctx, key)
		return &domain.OutboundEvent{Address: ev.Address, Text: trav.Finish()}, nil
	}
	if err := d.sessions.Store().Save(ctx, key, domain.NewGenericState(state)); err != nil {
		return nil, fmt.Errorf("failed to persist new session: %w", err)
	}
	return &domain.OutboundEvent{Address: ev.Address, Text: trav.Question(), Continue: true}, nil
}

// resumeSession feeds the subscriber's answer to the stored state and
// persists the outcome. A variant mismatch means the route's flow was
// reconfigured under a live session; the stale state is discarded and
// the turn restarts the conversation.
func (d *Dispatcher) resumeSession(ctx context.Context, key string, ev domain.InboundEvent, state *domain.ConversationState) (*domain.OutboundEvent, error) {
	switch {
	case d.cfg.Flow == FlowPriceLookup && state.PriceLookup != nil:
		return d.resumePriceLookup(ctx, key, ev, state.PriceLookup)
	case d.cfg.Flow == FlowTree && state.Generic != nil && state.Generic.Tree == d.cfg.Tree.Name:
		return d.resumeTree(ctx, key, ev, state.Generic)
	default:
		d.logger.Warn("stored session does not match route flow, restarting",
			"key", key, "variant", state.Variant)
		return d.startSession(ctx, key, ev)
	}
}

func (d *Dispatcher) resumePriceLookup(ctx context.Context, key string, ev domain.InboundEvent, state *domain.PriceLookupState) (*domain.OutboundEvent, error) {
	model := pricelookup.New(state, d.api, pricelookup.WithLogger(d.logger))
	text, cont, err := model.Step(ctx, ev.Body)
	if err != nil {
		d.logger.Warn("price fetch failed, closing session", "key", key, "err", err)
		return d.terminate(ctx, key, ev.Address, noPricesText)
	}

	if !cont {
		if err := d.sessions.Store().Delete(ctx, key); err != nil {
			return nil, fmt.Errorf("failed to close session: %w", err)
		}
		return &domain.OutboundEvent{Address: ev.Address, Text: text}, nil
	}
	if err := d.sessions.Store().Save(ctx, key, domain.NewPriceLookupState(state)); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	return &domain.OutboundEvent{Address: ev.Address, Text: text, Continue: true}, nil
}

func (d *Dispatcher) resumeTree(ctx context.Context, key string, ev domain.InboundEvent, state *domain.GenericTreeState) (*domain.OutboundEvent, error) {
	trav := tree.NewTraversal(d.cfg.Tree, state, tree.WithLogger(d.logger))
	if !trav.Answer(ev.Body) {
		d.logger.Debug("answer rejected, re-rendering prompt", "key", key, "node", state.Current)
	}

	if trav.IsCompleted() {
		d.binder.Post(ctx, d.cfg.Tree.Post, trav.Answers())
		if err := d.sessions.Store().Delete(ctx, key); err != nil {
			return nil, fmt.Errorf("failed to close session: %w", err)
		}
		return &domain.OutboundEvent{Address: ev.Address, Text: trav.Finish()}, nil
	}
	if err := d.sessions.Store().Save(ctx, key, domain.NewGenericState(state)); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	return &domain.OutboundEvent{Address: ev.Address, Text: trav.Question(), Continue: true}, nil
}

// terminate clears any stored session and replies with a terminal
// message. Cleanup failure is logged, not surfaced; the TTL reclaims
// the key either way.
func (d *Dispatcher) terminate(ctx context.Context, key, address, text string) (*domain.OutboundEvent, error) {
	if err := d.sessions.Store().Delete(ctx, key); err != nil {
		d.logger.Warn("failed to clear session during termination", "key", key, "err", err)
	}
	return &domain.OutboundEvent{Address: address, Text: text}, nil
}
