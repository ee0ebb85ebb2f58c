package core

// PushMessage is an outbound push notification.
// Either Topic (broadcast) or Token (single device) must be set.
type PushMessage struct {
	Title string
	Body  string
	Topic string
	Token string
	Data  map[string]string
}

func (m *PushMessage) HasTarget() bool { return m.Topic != "" || m.Token != "" }

// PushService is any service that can deliver push notifications.
type PushService interface {
	// SendMessages delivers messages concurrently; delivery failures are
	// logged by the implementation, never surfaced to callers.
	SendMessages(messages ...*PushMessage)
}
