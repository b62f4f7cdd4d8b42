package event

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// Publisher はイベントを配信する。
type Publisher interface {
	// Publish はイベントを配信する。
	Publish(ctx context.Context, e *Event) error
	// Close は接続を閉じる。
	Close()
}

// NATSPublisher はNATSにイベントを配信する。
type NATSPublisher struct {
	// conn はNATSへの接続。
	conn *nats.Conn
}

// NewNATSPublisher はNATSに接続してPublisherを生成する。
func NewNATSPublisher(url, name string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("NATSへの接続に失敗: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

// Publish はイベントをJSONにしてサブジェクトへ配信する。
func (p *NATSPublisher) Publish(_ context.Context, e *Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("イベントのシリアライズに失敗: %w", err)
	}
	if err := p.conn.Publish(Subject(e), data); err != nil {
		return fmt.Errorf("イベントの配信に失敗: %w", err)
	}
	return nil
}

// Close は未送信のメッセージを送信してから接続を閉じる。
func (p *NATSPublisher) Close() {
	_ = p.conn.Drain()
}

// NopPublisher は何も配信しない。
type NopPublisher struct{}

// Publish は何もしない。
func (NopPublisher) Publish(context.Context, *Event) error { return nil }

// Close は何もしない。
func (NopPublisher) Close() {}

// NewPublisher はurlが空ならNopPublisher、そうでなければNATSPublisherを返す。
func NewPublisher(url, name string) (Publisher, error) {
	if url == "" {
		return NopPublisher{}, nil
	}
	return NewNATSPublisher(url, name)
}

// Recorder は配信されたイベントをメモリに保持する。
type Recorder struct {
	mu     sync.Mutex
	events []*Event
}

// Publish はイベントを記録する。
func (r *Recorder) Publish(_ context.Context, e *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Close は何もしない。
func (r *Recorder) Close() {}

// Events は記録されたイベントのコピーを返す。
func (r *Recorder) Events() []*Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types は記録されたイベントの種類を順に返す。
func (r *Recorder) Types() []Type {
	events := r.Events()
	types := make([]Type, len(events))
	for i, e := range events {
		types[i] = e.EventType
	}
	return types
}

// Emitter はイベントを生成して配信する。配信の失敗はログに出すだけでエラーにしない。
type Emitter struct {
	// publisher は配信先。
	publisher Publisher
	// logger はロガー。
	logger logrus.FieldLogger
}

// NewEmitter はEmitterを生成する。publisherがnilの場合は何も配信しない。
func NewEmitter(publisher Publisher, logger logrus.FieldLogger) *Emitter {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &Emitter{publisher: publisher, logger: logger}
}

// Emit はイベントを生成して配信する。
func (em *Emitter) Emit(ctx context.Context, aggregateID string, aggregateType AggregateType, eventType Type, data any) {
	e, err := New(aggregateID, aggregateType, eventType, data)
	if err == nil {
		err = em.publisher.Publish(ctx, e)
	}
	if err != nil {
		em.logger.WithError(err).WithFields(logrus.Fields{
			"aggregate_id": aggregateID,
			"event_type":   eventType,
		}).Warn("イベントの配信に失敗")
	}
}
