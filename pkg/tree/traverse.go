package tree

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mlambe/fncs/internal/logging"
	"github.com/mlambe/fncs/pkg/domain"
)

// DefaultMaxTurns bounds how many questions a single session may
// answer. Trees are allowed to contain cycles; the budget guarantees
// termination regardless of graph shape.
const DefaultMaxTurns = 50

// Traversal interprets a Spec against a GenericTreeState. It advances
// the state by exactly one validated answer per call and re-renders the
// unchanged prompt on invalid input.
//
// The traversal borrows the state for one turn; the caller persists it
// afterwards.
type Traversal struct {
	spec     *Spec
	state    *domain.GenericTreeState
	maxTurns int
	logger   *slog.Logger
}

// TraversalOption configures a Traversal.
type TraversalOption func(*Traversal)

// WithMaxTurns overrides the turn budget.
func WithMaxTurns(n int) TraversalOption {
	return func(t *Traversal) {
		t.maxTurns = n
	}
}

// WithLogger sets the traversal logger.
func WithLogger(logger *slog.Logger) TraversalOption {
	return func(t *Traversal) {
		t.logger = logger
	}
}

// NewTraversal binds a spec to a session state.
func NewTraversal(spec *Spec, state *domain.GenericTreeState, opts ...TraversalOption) *Traversal {
	t := &Traversal{
		spec:     spec,
		state:    state,
		maxTurns: DefaultMaxTurns,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// IsStarted reports whether Start has run.
func (t *Traversal) IsStarted() bool {
	return t.state.Started
}

// IsCompleted reports whether the traversal reached the finish node.
func (t *Traversal) IsCompleted() bool {
	return t.state.Completed
}

// Answers exposes the accumulated answer set for the post-completion
// hook.
func (t *Traversal) Answers() map[string]any {
	return t.state.Answers
}

// Seed merges pre-fetched data into the answer set. It must be called
// before Start.
func (t *Traversal) Seed(data map[string]any) {
	for k, v := range data {
		t.state.Answers[k] = v
	}
}

// Start moves the traversal to the start node and walks any chain of
// display nodes until the first question or the finish node.
func (t *Traversal) Start() {
	if t.state.Started {
		return
	}
	t.state.Started = true
	t.state.Current = StartNodeID
	t.walk()
}

// Question renders the pending prompt: accumulated display text, the
// current question and its numbered options. It is idempotent; calling
// it twice without an intervening accepted answer yields identical
// text.
func (t *Traversal) Question() string {
	if !t.state.Started || t.state.Completed {
		return ""
	}
	node, ok := t.spec.Nodes[t.state.Current]
	if !ok {
		return ""
	}

	parts := append([]string{}, t.state.Echo...)
	parts = append(parts, node.Question)
	for i, label := range t.optionLabels(node) {
		parts = append(parts, fmt.Sprintf("%d. %s", i+1, label))
	}
	return strings.Join(parts, "\n")
}

// Answer feeds one raw input to the current question. It returns true
// when the input was accepted and the traversal advanced; on rejection
// the state is untouched and Question re-renders unchanged.
func (t *Traversal) Answer(raw string) bool {
	if !t.state.Started || t.state.Completed {
		return false
	}
	node, ok := t.spec.Nodes[t.state.Current]
	if !ok || node.Question == "" {
		return false
	}

	var next string
	switch {
	case len(node.Options) > 0:
		k, ok := parseChoice(raw, len(node.Options))
		if !ok {
			return false
		}
		opt := node.Options[k-1]
		value := opt.Default
		if value == "" {
			value = opt.Display
		}
		t.state.Answers[node.ID] = value
		next = opt.Next

	case node.OptionsFrom != "":
		labels := t.optionLabels(node)
		k, ok := parseChoice(raw, len(labels))
		if !ok {
			return false
		}
		t.state.Answers[node.ID] = labels[k-1]
		next = node.Next

	default:
		validator, _ := validatorFor(node.Validate)
		value, err := validator(raw)
		if err != nil {
			t.logger.Debug("answer rejected", "node", node.ID, "err", err)
			return false
		}
		t.state.Answers[node.ID] = value
		next = node.Next
	}

	t.state.Turns++
	if t.state.Turns >= t.maxTurns {
		t.logger.Warn("turn budget exhausted, terminating session", "tree", t.spec.Name, "turns", t.state.Turns)
		t.state.Completed = true
		return true
	}

	t.state.Echo = nil
	t.state.Current = next
	t.walk()
	return true
}

// Finish returns the terminal text once the traversal is completed:
// any display text accumulated on the way out plus the finish node's
// message.
func (t *Traversal) Finish() string {
	if !t.state.Completed {
		return ""
	}
	parts := append([]string{}, t.state.Echo...)
	if finish, ok := t.spec.Nodes[FinishNodeID]; ok {
		parts = append(parts, finish.Display)
	}
	return strings.Join(parts, "\n")
}

// walk follows display nodes from the current position, accumulating
// their text, until a question or the finish node. The step bound
// protects against display-only cycles the validator cannot rule out.
func (t *Traversal) walk() {
	for steps := 0; steps <= len(t.spec.Nodes); steps++ {
		if t.state.Current == FinishNodeID {
			t.state.Completed = true
			return
		}
		node, ok := t.spec.Nodes[t.state.Current]
		if !ok {
			t.logger.Error("traversal reached undefined node", "tree", t.spec.Name, "node", t.state.Current)
			t.state.Completed = true
			return
		}
		if node.Question != "" {
			return
		}
		t.state.Echo = append(t.state.Echo, node.Display)
		t.state.Current = node.Next
	}
	t.logger.Warn("display chain exceeded node count, terminating session", "tree", t.spec.Name)
	t.state.Completed = true
}

// optionLabels returns the menu labels for a question node, either from
// the static option list or from the seed data list it names.
func (t *Traversal) optionLabels(node *Node) []string {
	if len(node.Options) > 0 {
		labels := make([]string, len(node.Options))
		for i, opt := range node.Options {
			labels[i] = opt.Display
		}
		return labels
	}
	if node.OptionsFrom == "" {
		return nil
	}

	switch list := t.state.Answers[node.OptionsFrom].(type) {
	case []string:
		return list
	case []any:
		labels := make([]string, len(list))
		for i, v := range list {
			labels[i] = fmt.Sprint(v)
		}
		return labels
	}
	return nil
}

// parseChoice parses a 1-based menu selection.
func parseChoice(raw string, n int) (int, bool) {
	k, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || k < 1 || k > n {
		return 0, false
	}
	return k, true
}
