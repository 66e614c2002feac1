package broker

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/attaboy/ledger/internal/domain"
	"github.com/attaboy/ledger/internal/guard"
)

// KafkaPublisher publishes domain events to Kafka, one kafka-go writer
// per topic (writers are cheap and topic count is small and static). A
// per-topic circuit breaker trips after repeated write failures, so a
// broker outage fails fast instead of letting the forwarder hammer a
// dead topic on every outbox poll.
type KafkaPublisher struct {
	brokers []string
	logger  *slog.Logger
	enabled bool

	mu       chan struct{} // binary semaphore guarding writers
	writers  map[string]*kafkago.Writer
	breakers *guard.CircuitBreaker
}

// NewKafkaPublisher creates a publisher. If brokers is empty or enabled
// is false, Publish is a no-op, matching the teacher's disabled-Kafka
// local-dev mode.
func NewKafkaPublisher(brokers string, enabled bool, logger *slog.Logger) *KafkaPublisher {
	p := &KafkaPublisher{
		logger:   logger,
		enabled:  enabled && brokers != "",
		mu:       make(chan struct{}, 1),
		writers:  make(map[string]*kafkago.Writer),
		breakers: guard.NewCircuitBreaker(5, 30*time.Second),
	}
	p.mu <- struct{}{}
	if !p.enabled {
		logger.Info("kafka publisher disabled")
		return p
	}
	p.brokers = strings.Split(brokers, ",")
	logger.Info("kafka publisher initialized", "brokers", brokers)
	return p
}

func (p *KafkaPublisher) writerFor(topic string) *kafkago.Writer {
	<-p.mu
	defer func() { p.mu <- struct{}{} }()

	if w, ok := p.writers[topic]; ok {
		return w
	}
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(p.brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafkago.RequireOne,
	}
	p.writers[topic] = w
	return w
}

// Publish implements Publisher.
func (p *KafkaPublisher) Publish(ctx context.Context, topicPrefix string, event domain.DomainEvent) error {
	if !p.enabled {
		return nil
	}
	topic := event.Topic(topicPrefix)

	if check := p.breakers.Check(ctx, topic); !check.Allowed {
		return domain.ErrTransient("kafka topic "+topic+" unavailable: "+check.Reason, nil)
	}

	w := p.writerFor(topic)

	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if err := w.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(event.AggregateID),
		Value: value,
		Time:  event.Timestamp,
	}); err != nil {
		p.breakers.RecordFailure(topic)
		return err
	}
	p.breakers.RecordSuccess(topic)
	return nil
}

// Close shuts down every writer this publisher opened.
func (p *KafkaPublisher) Close() error {
	<-p.mu
	defer func() { p.mu <- struct{}{} }()
	var firstErr error
	for _, w := range p.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
