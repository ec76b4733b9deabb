package domain

// EventKind classifies a normalized inbound event from a transport
// adapter.
type EventKind string

const (
	// EventNew signals the start of a fresh session. Any stale session
	// for the address is discarded, never merged.
	EventNew EventKind = "new"
	// EventResume carries the subscriber's answer for an in-flight
	// session.
	EventResume EventKind = "resume"
	// EventClose signals that the transport closed the session; no
	// reply is produced.
	EventClose EventKind = "close"
)

// InboundEvent is the normalized message handed to the dispatcher by a
// transport adapter. Each event carries no memory of prior turns.
type InboundEvent struct {
	Address string    `json:"address"`
	Body    string    `json:"body,omitempty"`
	Kind    EventKind `json:"event"`
}

// OutboundEvent is the normalized reply handed back to the transport
// adapter. Continue tells the transport whether to keep the carrier
// session open.
type OutboundEvent struct {
	Address  string `json:"address"`
	Text     string `json:"text"`
	Continue bool   `json:"continue_session"`
}
