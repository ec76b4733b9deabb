package domain

import "errors"

// ErrSessionNotFound is returned when a session key cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrFarmerNotFound is returned when the remote profile service has no
// farmer registered for the subscriber address.
var ErrFarmerNotFound = errors.New("no farmer found")
