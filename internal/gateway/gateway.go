package gateway

import "context"

// Messenger is a front end that feeds user turns to a brain.
type Messenger interface {
	// Start runs the read loop until the user leaves, input ends or ctx is
	// cancelled.
	Start(ctx context.Context) error
	// Send writes one response to the session.
	Send(sessionID string, text string) error
	// Stop releases the front end.
	Stop() error
}
