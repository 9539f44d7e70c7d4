package push

import "context"

// Notification is the fully rendered content of one push message.
type Notification struct {
	Title string
	Body  string
	// Data is the opaque key/value payload the client app uses for
	// navigation when the notification is tapped.
	Data map[string]string
}

// Transport delivers one notification to one device token. Send returns a
// provider message ID on success. Error text is what the dispatcher
// classifies outcomes on, so adapters should keep it descriptive.
type Transport interface {
	Send(ctx context.Context, token string, n Notification) (string, error)
}
