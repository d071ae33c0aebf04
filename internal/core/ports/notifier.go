package ports

import "context"

// Notification is the payload handed to the external delivery mechanism.
// Rendering and scheduling are not this service's concern.
type Notification struct {
	ID       string
	Title    string
	Subtitle string
	Body     string
}

// Notifier dispatches a notification to the external delivery collaborator.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// SeenNewsStore remembers which news items an account has already been
// notified about, so background refreshes only announce deltas.
type SeenNewsStore interface {
	Seen(ctx context.Context, accountLocalID, newsID string) (bool, error)
	Mark(ctx context.Context, accountLocalID, newsID string) error
}
