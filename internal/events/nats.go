package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/d60-Lab/warbler/config"
	"github.com/d60-Lab/warbler/internal/service"
	"github.com/d60-Lab/warbler/pkg/logger"
)

// msgPublisher 由 *nats.Conn 实现
type msgPublisher interface {
	PublishMsg(m *nats.Msg) error
}

// NatsPublisher 把领域事件以 JSON 发到 <prefix>.<type>
type NatsPublisher struct {
	conn   msgPublisher
	prefix string
}

func NewNatsPublisher(conn msgPublisher, prefix string) *NatsPublisher {
	if prefix == "" {
		prefix = "warbler"
	}
	return &NatsPublisher{conn: conn, prefix: prefix}
}

func (p *NatsPublisher) Subject(t service.EventType) string {
	return p.prefix + "." + string(t)
}

func (p *NatsPublisher) Publish(ctx context.Context, e service.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := &nats.Msg{
		Subject: p.Subject(e.Type),
		Data:    data,
		Header:  nats.Header{},
	}
	// 把 trace context 带给订阅方
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))
	return p.conn.PublishMsg(msg)
}

// Connect 按配置连接 NATS。未启用时返回 NopPublisher 和空 close。
func Connect(cfg config.NATSConfig) (service.EventPublisher, func(), error) {
	if !cfg.Enabled {
		return service.NopPublisher{}, func() {}, nil
	}
	nc, err := nats.Connect(cfg.URL,
		nats.Name("warbler"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect nats %s: %w", cfg.URL, err)
	}
	logger.Info("connected to nats", zap.String("url", nc.ConnectedUrl()))
	return NewNatsPublisher(nc, cfg.SubjectPrefix), func() {
		if err := nc.Drain(); err != nil {
			logger.Warn("nats drain failed", zap.Error(err))
		}
	}, nil
}
