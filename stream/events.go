// ABOUTME: Defines the event union delivered to stream consumers and the
// ABOUTME: Codec interface providers implement to plug their record schema in.
package stream

// EventType identifies the variant of a stream event.
type EventType string

const (
	// EventPartial carries one successfully decoded incremental payload.
	EventPartial EventType = "partial"
	// EventMalformed carries a record that failed to decode. The stream
	// continues past it.
	EventMalformed EventType = "malformed"
	// EventFailure carries a fatal transport, framing, or timeout error.
	// It is always the last event before the channel closes.
	EventFailure EventType = "failure"
)

// Event is one item in the consumer-facing sequence. Exactly one variant is
// populated: partial events carry Payload (plus Final and Reason on the
// terminal one), malformed events carry Raw and Err, failure events carry Err.
type Event[T any] struct {
	Type EventType

	// Payload is the decoded record. Partial events only.
	Payload T

	// Final marks the partial event whose payload completed the stream.
	Final bool

	// Reason is the completion reason reported by the terminal payload,
	// when the provider schema carries one.
	Reason string

	// Raw is the record text that failed to decode. Malformed events only.
	Raw string

	// Err classifies the failure. Malformed and failure events only;
	// always a *Error, so errors.Is works against the package sentinels.
	Err error
}

// Codec decodes provider records and recognizes terminal payloads. The
// engine is generic over this pair: one implementation per provider schema.
type Codec[T any] interface {
	// Decode parses one record into a payload value. Decoding must be
	// pure and deterministic; a failure affects only this record.
	Decode(data []byte) (T, error)

	// Terminal reports whether v completes the stream, and the
	// completion reason when it does.
	Terminal(v T) (reason string, done bool)
}
