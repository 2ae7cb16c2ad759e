// Package messenger defines the outbound chat transport contract.
package messenger

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by implementations missing their endpoint.
var ErrNotConfigured = errors.New("messenger not configured")

// Messenger delivers rendered notification text to a channel of the
// messaging network. Implementations own the connection/session details;
// the relay only needs delivery and the current joined-channel set.
type Messenger interface {
	// Send delivers text to channel. It blocks until delivery has been
	// attempted; the webhook endpoint relies on that to answer only after
	// dispatch.
	Send(ctx context.Context, channel, text string) error

	// Joined returns the channels this messenger currently serves. Events
	// are never dispatched to channels outside this set.
	Joined() []string
}
