package services

// EventPublisher publishes best-effort domain events to the message broker.
// A nil publisher disables events; publish failures are logged, never fatal.
type EventPublisher interface {
	Publish(exchange, routingKey string, body []byte) error
}
