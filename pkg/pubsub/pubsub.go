// Package pubsub is the Event Bus Client. Publish hands a payload to the
// broker; handlers registered with Subscribe are invoked at least once per
// published message and may see the same message again after a failure or a
// consumer restart. No ordering holds across topics.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sakashimaa/go-event-shop/pkg/domain"
)

var (
	ErrClosed    = fmt.Errorf("%w: bus closed", domain.ErrTransport)
	ErrMalformed = fmt.Errorf("%w: malformed message", domain.ErrInvalidInput)
)

const HeaderMessageID = "message-id"

type Message struct {
	ID       string
	Topic    string
	Source   string
	Data     json.RawMessage
	Metadata map[string]string
	// Attempt counts deliveries of this message to this handler, starting at 1.
	Attempt int
}

// Handler returning an error leaves the message unacknowledged.
type Handler func(ctx context.Context, msg Message) error

type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

type Subscriber interface {
	// Subscribe must be called before Run.
	Subscribe(topic string, handler Handler) error
	// Run delivers messages until ctx is cancelled.
	Run(ctx context.Context) error
}

type Bus interface {
	Publisher
	Subscriber
	Close() error
}

type envelope struct {
	ID     string          `json:"id"`
	Topic  string          `json:"topic"`
	Source string          `json:"source,omitempty"`
	Time   time.Time       `json:"time"`
	Data   json.RawMessage `json:"data"`
}

func newEnvelope(topic, source string, payload any) (envelope, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return envelope{}, nil, fmt.Errorf("encode %s payload: %w", topic, err)
	}

	env := envelope{
		ID:     uuid.NewString(),
		Topic:  topic,
		Source: source,
		Time:   time.Now().UTC(),
		Data:   data,
	}

	raw, err := json.Marshal(env)
	if err != nil {
		return envelope{}, nil, fmt.Errorf("encode %s envelope: %w", topic, err)
	}

	return env, raw, nil
}

func parseEnvelope(raw []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return envelope{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if len(env.Data) == 0 {
		return envelope{}, fmt.Errorf("%w: empty data", ErrMalformed)
	}
	return env, nil
}

// Decode unmarshals the message data into T. Failures wrap ErrMalformed.
func Decode[T any](msg Message) (T, error) {
	var value T
	if err := json.Unmarshal(msg.Data, &value); err != nil {
		return value, fmt.Errorf("%w: %s %s: %w", ErrMalformed, msg.Topic, msg.ID, err)
	}
	return value, nil
}
