// Package events はドメインイベントの発行を扱う。
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Type はイベント種別。
type Type string

const (
	PostCreated    Type = "post.created"
	PostDeleted    Type = "post.deleted"
	PostLiked      Type = "post.liked"
	BoycottCreated Type = "boycott.created"
	BoycottJoined  Type = "boycott.joined"
	BoycottLeft    Type = "boycott.left"
)

const subjectPrefix = "ethicheck."

// Subject はイベント種別に対応するNATSサブジェクトを返す。
func (t Type) Subject() string {
	return subjectPrefix + string(t)
}

// Event はクライアントへ配信されるイベント。
type Event struct {
	Type      Type      `json:"type"`
	PostID    string    `json:"post_id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	BoycottID string    `json:"boycott_id,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher はイベントを発行する。
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher は何もしないPublisher。
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// NATSPublisher はNATSへJSONでイベントを発行する。
type NATSPublisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// compile-time interface check
var _ Publisher = (*NATSPublisher)(nil)

// NewNATSPublisher はNATSサーバーへ接続してNATSPublisherを生成する。
func NewNATSPublisher(natsURL string, logger *slog.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(natsURL,
		nats.Name("ethicheck"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return &NATSPublisher{conn: conn, logger: logger}, nil
}

// Publish はイベントを ethicheck.<type> サブジェクトへ発行する。
func (p *NATSPublisher) Publish(_ context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.conn.Publish(event.Type.Subject(), data); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	return nil
}

// Subscribe は全イベントを購読し、デコードしたイベントをhandlerへ渡す。
// 不正なペイロードはログに記録して読み飛ばす。
func (p *NATSPublisher) Subscribe(handler func(Event)) (*nats.Subscription, error) {
	sub, err := p.conn.Subscribe(subjectPrefix+">", func(msg *nats.Msg) {
		event, err := Decode(msg.Data)
		if err != nil {
			p.logger.Warn("dropping malformed event",
				slog.String("subject", msg.Subject),
				slog.String("error", err.Error()),
			)
			return
		}
		handler(event)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}
	return sub, nil
}

// Close は未送信メッセージを送り切ってから接続を閉じる。
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

// Decode はJSONペイロードをEventに変換する。
func Decode(data []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return Event{}, fmt.Errorf("failed to decode event: %w", err)
	}
	if event.Type == "" {
		return Event{}, fmt.Errorf("event type is empty")
	}
	return event, nil
}
