package mailer

import "context"

// Mailer delivers one-time codes out-of-band. Delivery is an external
// collaborator; callers only ever see this interface.
type Mailer interface {
	SendOTP(ctx context.Context, to string, code string) error
}
