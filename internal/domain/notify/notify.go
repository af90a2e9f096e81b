package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	customErrors "github.com/vinylkeeper/vinylkeeper-back/internal/domain/auth/errors"
)

type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Queue accepts messages for later delivery by a Notifier.
type Queue interface {
	Enqueue(ctx context.Context, msg Message) error
}

// SendWithTimeout gives up after timeout even if n ignores ctx. A timeout
// is reported as ErrEmailTimeout, any other failure as ErrNotification.
func SendWithTimeout(ctx context.Context, n Notifier, msg Message, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- n.Send(ctx, msg) }()

	select {
	case err := <-done:
		switch {
		case err == nil:
			return nil
		case errors.Is(err, context.DeadlineExceeded):
			return fmt.Errorf("%w: %v", customErrors.ErrEmailTimeout, err)
		default:
			return fmt.Errorf("%w: %v", customErrors.ErrNotification, err)
		}
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return customErrors.ErrEmailTimeout
		}
		return fmt.Errorf("%w: %v", customErrors.ErrNotification, ctx.Err())
	}
}
