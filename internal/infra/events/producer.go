package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"market/internal/domain/event"

	"github.com/segmentio/kafka-go"
)

var ErrProducerClosed = errors.New("producer closed")

// kafka.Writer のうち使う部分。テストで差し替える
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer はinboxに積んだメッセージを1本のgoroutineで書き出す。
// トピックはメッセージごとにEnvelope.EventTypeを使う。
type Producer struct {
	w            messageWriter
	log          *slog.Logger
	writeTimeout time.Duration

	mu      sync.RWMutex
	closed  bool
	started bool
	inbox   chan kafka.Message
	closeCh chan struct{}
}

func NewProducer(brokers []string, buf int, log *slog.Logger) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
	return newProducer(w, buf, log)
}

func newProducer(w messageWriter, buf int, log *slog.Logger) *Producer {
	if buf <= 0 {
		buf = 256
	}
	return &Producer{
		w:            w,
		log:          log,
		writeTimeout: 10 * time.Second,
		inbox:        make(chan kafka.Message, buf),
		closeCh:      make(chan struct{}),
	}
}

func (p *Producer) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	go func() {
		defer close(p.closeCh)
		// inboxが閉じられたら残りを書き切って終わる
		for m := range p.inbox {
			p.write(m)
		}
		if err := p.w.Close(); err != nil {
			p.log.Warn("kafka writer close failed", slog.Any("err", err))
		}
	}()
}

func (p *Producer) write(m kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), p.writeTimeout)
	defer cancel()
	if err := p.w.WriteMessages(ctx, m); err != nil {
		p.log.Error("kafka publish failed",
			slog.String("topic", m.Topic),
			slog.String("key", string(m.Key)),
			slog.Any("err", err),
		)
	}
}

func (p *Producer) Publish(ctx context.Context, env event.Envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	m := kafka.Message{
		Topic: env.EventType,
		Key:   event.PartitionKey(env.OrderID),
		Value: b,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
			{Key: "event_id", Value: []byte(env.EventID)},
		},
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrProducerClosed
	}
	select {
	case p.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close はinboxを閉じ、goroutineが残りを流し終えるまで待つ。
func (p *Producer) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.closeCh
		return
	}
	p.closed = true
	close(p.inbox)
	started := p.started
	p.mu.Unlock()

	if !started {
		_ = p.w.Close()
		close(p.closeCh)
		return
	}
	<-p.closeCh
}
