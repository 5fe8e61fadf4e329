package telerelay

import (
	"context"
)

// Sender delivers one drained payload to the collector. A non-nil error
// means nothing was delivered; partial delivery is not part of the
// contract. Implementations own their timeout and transport policy, the
// relay performs no retries of its own within a call.
type Sender interface {
	Send(ctx context.Context, data []byte) error
}

// SenderFunc adapts a plain function to the Sender interface.
type SenderFunc func(ctx context.Context, data []byte) error

// Send calls the wrapped function.
func (f SenderFunc) Send(ctx context.Context, data []byte) error {
	return f(ctx, data)
}
