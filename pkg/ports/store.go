package ports

import (
	"context"

	"github.com/mlambe/fncs/pkg/domain"
)

// StateStore persists serialized conversation state per session key.
// The store exclusively owns the persisted bytes; callers hold the
// deserialized state only for the duration of one turn.
type StateStore interface {
	// Save persists the state under the given session key. Stores with
	// expiry refresh the TTL on every save.
	Save(ctx context.Context, key string, state *domain.ConversationState) error

	// Load retrieves the state for a session key.
	// Returns domain.ErrSessionNotFound if no live session exists.
	Load(ctx context.Context, key string) (*domain.ConversationState, error)

	// Delete removes the session. Deleting an absent session is not an
	// error.
	Delete(ctx context.Context, key string) error

	// List returns the keys of live sessions, for operational tooling.
	List(ctx context.Context) ([]string, error)
}
