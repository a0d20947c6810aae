package relay

import (
	"context"
	"fmt"
	"sync"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/plunoo/biskakenauto-sub000/pkg/outbox/registry"
)

// Sender delivers one message and waits for the broker's ack.
type Sender interface {
	Send(ctx context.Context, topic string, msg *gcppubsub.Message) error
}

// PublisherSource hands out a publisher per topic; *pubsub.Client fits.
type PublisherSource interface {
	Publisher(topic string) *gcppubsub.Publisher
}

// TopicSender keeps one ordered publisher per topic for the process
// lifetime. Stop flushes and releases them.
type TopicSender struct {
	source PublisherSource

	mu         sync.Mutex
	publishers map[string]*gcppubsub.Publisher
}

func NewTopicSender(source PublisherSource) *TopicSender {
	return &TopicSender{source: source, publishers: map[string]*gcppubsub.Publisher{}}
}

func (s *TopicSender) Send(ctx context.Context, topic string, msg *gcppubsub.Message) error {
	pub, err := s.publisher(topic)
	if err != nil {
		return err
	}
	result := pub.Publish(ctx, msg)
	if _, err := result.Get(ctx); err != nil {
		// An ordered publisher pauses its key after a failure until resumed.
		if msg.OrderingKey != "" {
			pub.ResumePublish(msg.OrderingKey)
		}
		return err
	}
	return nil
}

func (s *TopicSender) publisher(topic string) (*gcppubsub.Publisher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pub, ok := s.publishers[topic]; ok {
		return pub, nil
	}
	pub := s.source.Publisher(topic)
	if pub == nil {
		return nil, registry.NewNonRetryableError(fmt.Errorf("no publisher for topic %s", topic))
	}
	pub.EnableMessageOrdering = true
	s.publishers[topic] = pub
	return pub, nil
}

// Stop flushes pending messages on every publisher.
func (s *TopicSender) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for topic, pub := range s.publishers {
		pub.Stop()
		delete(s.publishers, topic)
	}
}
