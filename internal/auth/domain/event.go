package domain

// EventType names a change in a client's authentication state.
type EventType string

const (
	EventSignedIn    EventType = "SIGNED_IN"
	EventSignedOut   EventType = "SIGNED_OUT"
	EventUserUpdated EventType = "USER_UPDATED"
)

// Event is delivered to subscribers of a client's auth stream.
// Identity is nil for EventSignedOut.
type Event struct {
	Type     EventType
	ClientID string
	Identity *Identity
}

// Publisher fans auth events out to the subscribers of a client.
type Publisher interface {
	Publish(event Event)
}
