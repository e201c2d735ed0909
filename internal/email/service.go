package email

import (
	"context"
)

// Service sends transactional mail. Implementations must be safe for
// concurrent use.
type Service interface {
	Send(ctx context.Context, to, subject, body string) error
}
