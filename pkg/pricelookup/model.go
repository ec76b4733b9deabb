// Package pricelookup implements the hand-coded crop price flow:
// select a crop, select a market, browse recent prices per sale unit
// with wraparound market pagination, exit.
//
// Unlike the generic tree engine the transition graph lives in code;
// only the position is persisted, as a domain.PriceLookupState.
package pricelookup

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mlambe/fncs/internal/logging"
	"github.com/mlambe/fncs/pkg/domain"
	"github.com/mlambe/fncs/pkg/fncsapi"
)

// DefaultPriceLimit caps how many recent prices are requested per
// (market, crop) pair.
const DefaultPriceLimit = 10

const goodbye = "Goodbye!"

// Model binds a persisted price lookup state to the remote price
// service for the duration of one turn.
type Model struct {
	state  *domain.PriceLookupState
	api    *fncsapi.Client
	limit  int
	logger *slog.Logger
}

// Option configures the model.
type Option func(*Model)

// WithPriceLimit overrides the per-fetch price count.
func WithPriceLimit(n int) Option {
	return func(m *Model) {
		m.limit = n
	}
}

// WithLogger sets the model logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Model) {
		m.logger = logger
	}
}

// NewState fetches the farmer snapshot for a subscriber address and
// returns the initial state. The snapshot is fetched once per session
// lifetime, at model construction, never per turn.
func NewState(ctx context.Context, msisdn string, api *fncsapi.Client) (*domain.PriceLookupState, error) {
	farmer, err := api.GetFarmer(ctx, msisdn)
	if err != nil {
		return nil, err
	}
	if len(farmer.Crops) == 0 || len(farmer.Markets) == 0 {
		return nil, fmt.Errorf("farmer %s has no crops or markets registered: %w", msisdn, domain.ErrFarmerNotFound)
	}
	return &domain.PriceLookupState{
		Stage:  domain.StageStart,
		Farmer: *farmer,
	}, nil
}

// New binds a model to an existing state.
func New(state *domain.PriceLookupState, api *fncsapi.Client, opts ...Option) *Model {
	m := &Model{
		state:  state,
		api:    api,
		limit:  DefaultPriceLimit,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Step advances the state machine by exactly one turn and returns the
// reply text plus the continue flag. Invalid input re-renders the
// current stage's prompt unchanged, without advancing an index or
// consulting the remote service again. A non-nil error means the
// remote price fetch failed and the turn cannot produce a reply.
func (m *Model) Step(ctx context.Context, input string) (string, bool, error) {
	state := m.state

	switch state.Stage {
	case domain.StageStart:
		state.Stage = domain.StageSelectCrop
		return m.render(m.cropMenu()), true, nil

	case domain.StageSelectCrop:
		k, ok := parseChoice(input, len(state.Farmer.Crops))
		if !ok {
			return state.Rendered, true, nil
		}
		idx := k - 1
		state.SelectedCrop = &idx
		state.Stage = domain.StageSelectMarket
		return m.render(m.marketMenu()), true, nil

	case domain.StageSelectMarket:
		k, ok := parseChoice(input, len(state.Farmer.Markets))
		if !ok {
			return state.Rendered, true, nil
		}
		idx := k - 1
		state.SelectedMarket = &idx
		state.Stage = domain.StageViewPrices
		return m.showPrices(ctx)

	case domain.StageViewPrices:
		markets := len(state.Farmer.Markets)
		switch strings.TrimSpace(input) {
		case "1":
			*state.SelectedMarket = (*state.SelectedMarket + 1) % markets
			return m.showPrices(ctx)
		case "2":
			*state.SelectedMarket = (*state.SelectedMarket + markets - 1) % markets
			return m.showPrices(ctx)
		case "3":
			state.Stage = domain.StageDone
			return goodbye, false, nil
		default:
			return state.Rendered, true, nil
		}
	}

	// StageDone: no further input is expected.
	return goodbye, false, nil
}

func (m *Model) showPrices(ctx context.Context) (string, bool, error) {
	text, err := m.renderPrices(ctx)
	if err != nil {
		return "", false, err
	}
	return m.render(text), true, nil
}

// render caches the prompt so invalid input can replay it verbatim.
func (m *Model) render(text string) string {
	m.state.Rendered = text
	return text
}

func (m *Model) cropMenu() string {
	lines := []string{fmt.Sprintf("Hi %s.", m.state.Farmer.Name), "Select a crop:"}
	return strings.Join(append(lines, menu(m.state.Farmer.CropNames())...), "\n")
}

func (m *Model) marketMenu() string {
	lines := []string{"Select a market:"}
	return strings.Join(append(lines, menu(m.state.Farmer.MarketNames())...), "\n")
}

func (m *Model) renderPrices(ctx context.Context) (string, error) {
	crop := m.state.Farmer.Crops[*m.state.SelectedCrop]
	market := m.state.Farmer.Markets[*m.state.SelectedMarket]

	units, err := m.api.GetPriceHistory(ctx, market.ID, crop.ID, m.limit)
	if err != nil {
		return "", fmt.Errorf("price history for %s in %s: %w", crop.Name, market.Name, err)
	}

	lines := []string{fmt.Sprintf("Prices of %s in %s:", crop.Name, market.Name)}
	for _, unit := range units {
		lines = append(lines, fmt.Sprintf("Sold as %s:", unit.UnitName))
		for _, price := range unit.Prices {
			lines = append(lines, fmt.Sprintf("  %.2f", price))
		}
	}
	lines = append(lines,
		"Enter 1 for next market, 2 for previous market.",
		"Enter 3 to exit.",
	)
	return strings.Join(lines, "\n"), nil
}

func menu(labels []string) []string {
	lines := make([]string, len(labels))
	for i, label := range labels {
		lines[i] = fmt.Sprintf("%d. %s", i+1, label)
	}
	return lines
}

func parseChoice(raw string, n int) (int, bool) {
	k, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || k < 1 || k > n {
		return 0, false
	}
	return k, true
}
