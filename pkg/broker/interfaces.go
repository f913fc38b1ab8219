package broker

// MessageHandler is invoked for every inbound message on a subscribed topic.
// Handlers run serialized in arrival order on the broker connection.
type MessageHandler func(topic string, payload []byte)

// Interface is implemented by the broker transport
type Interface interface {
	// Publish sends a payload on a topic at the configured quality of
	// service and returns once the broker confirmed the delivery or the
	// publish failed.
	Publish(topic string, payload []byte) error
	// Subscribe attaches the handler to the given topic filters and keeps
	// the subscriptions alive across reconnects.
	Subscribe(filters []string, handler MessageHandler) error
	Close()
}
