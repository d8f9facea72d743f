// Package events 把对局事件发布到 NATS，供外部统计或通知服务订阅
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/palemoky/shswrite/internal/types"
)

// 事件类型，同时作为 subject 后缀
const (
	EventRoundStarted  = "round.started"
	EventRoundFinished = "round.finished"
)

// Config NATS 连接配置
type Config struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
	Clock         clockwork.Clock // 事件时间戳，为空时使用真实时钟
}

// Envelope 事件信封
type Envelope struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	RoundID   string          `json:"round_id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// conn 发布所需的最小连接接口，*nats.Conn 满足它
type conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// Publisher NATS 对局事件发布者，实现 types.RoundObserver
type Publisher struct {
	conn   conn
	prefix string
	clock  clockwork.Clock
}

// Connect 连接 NATS 并创建发布者
func Connect(cfg Config) (*Publisher, error) {
	opts := []nats.Option{
		nats.Name("shswrite"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Error().Err(err).Msg("📣 NATS 连接断开")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("📣 NATS 已重新连接")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error().Err(err).Msg("❌ NATS 错误")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return newPublisher(nc, cfg.SubjectPrefix, cfg.Clock), nil
}

func newPublisher(c conn, prefix string, clock clockwork.Clock) *Publisher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Publisher{conn: c, prefix: prefix, clock: clock}
}

// Subject 事件类型对应的 subject
func (p *Publisher) Subject(eventType string) string {
	if p.prefix == "" {
		return eventType
	}
	return p.prefix + "." + eventType
}

// RoundStarted 发布一局开始事件
func (p *Publisher) RoundStarted(ctx context.Context, ev types.RoundStarted) error {
	return p.publish(ctx, EventRoundStarted, ev.RoundID, ev)
}

// RoundFinished 发布一局完成事件
func (p *Publisher) RoundFinished(ctx context.Context, res types.RoundResult) error {
	return p.publish(ctx, EventRoundFinished, res.RoundID, res)
}

func (p *Publisher) publish(ctx context.Context, eventType, roundID string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	data, err := json.Marshal(Envelope{
		EventID:   uuid.NewString(),
		EventType: eventType,
		RoundID:   roundID,
		Timestamp: p.clock.Now().UTC(),
		Payload:   raw,
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	subject := p.Subject(eventType)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", subject, err)
	}

	log.Debug().Str("subject", subject).Str("round", roundID).Msg("📣 对局事件已发布")
	return nil
}

// Close 排空并关闭连接
func (p *Publisher) Close() error {
	return p.conn.Drain()
}
