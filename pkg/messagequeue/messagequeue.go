package messagequeue

// MessageQueue abstracts the broker used for share lifecycle events.
// Publish payloads are JSON-encoded event documents.
type MessageQueue interface {
	Publish(queueName string, body []byte) error
	Consume(queueName string, handler func(body []byte)) error
	Close() error
}
