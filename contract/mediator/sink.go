package mediator

import "context"

// NotificationSink forwards notifications outside the process.
// Library users provide an implementation that maps to Kafka/NATS/RabbitMQ etc.
type NotificationSink interface {
	Forward(ctx context.Context, n Notification, opts ForwardOptions) error
}

// ForwardOptions controls how a relayed notification is addressed.
type ForwardOptions struct {
	// Subject overrides both Routable.Subject and the type-derived default.
	Subject string
	Key     string
	Headers map[string]string
}
