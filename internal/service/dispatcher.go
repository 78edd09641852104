package service

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/d60-Lab/warbler/internal/metrics"
	"github.com/d60-Lab/warbler/pkg/logger"
)

const publishTimeout = 5 * time.Second

// EventDispatcher 本地异步事件投递：请求路径只入队，worker 负责发布。
// 队列满时丢弃并告警，不阻塞请求。
type EventDispatcher struct {
	publisher EventPublisher
	ch        chan Event
	metrics   *metrics.Metrics

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewEventDispatcher(publisher EventPublisher, queueSize int, m *metrics.Metrics) *EventDispatcher {
	if queueSize <= 0 {
		queueSize = 10000
	}
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &EventDispatcher{
		publisher: publisher,
		ch:        make(chan Event, queueSize),
		metrics:   m,
		stopCh:    make(chan struct{}),
	}
}

// Start 启动 worker，返回的函数停止 worker 并在 ctx 到期前排空队列
func (d *EventDispatcher) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 4
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
	return func(ctx context.Context) error {
		d.stopOnce.Do(func() { close(d.stopCh) })
		done := make(chan struct{})
		go func() {
			d.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			logger.Warn("event dispatcher stopped with pending events", zap.Int("pending", len(d.ch)))
			return ctx.Err()
		}
	}
}

func (d *EventDispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case e := <-d.ch:
			d.publish(e)
		case <-d.stopCh:
			// 停止后把剩余事件发完
			for {
				select {
				case e := <-d.ch:
					d.publish(e)
				default:
					return
				}
			}
		}
	}
}

func (d *EventDispatcher) publish(e Event) {
	parent := context.Background()
	if e.span.IsValid() {
		parent = trace.ContextWithRemoteSpanContext(parent, e.span)
	}
	ctx, cancel := context.WithTimeout(parent, publishTimeout)
	defer cancel()
	if err := d.publisher.Publish(ctx, e); err != nil {
		d.metrics.RecordEvent(string(e.Type), "failed")
		logger.Warn("publish event failed",
			zap.String("type", string(e.Type)),
			zap.String("actor", e.ActorID),
			zap.Error(err),
		)
		return
	}
	d.metrics.RecordEvent(string(e.Type), "published")
	d.metrics.SetEventQueueLength(len(d.ch))
}

func (d *EventDispatcher) Enqueue(e Event) {
	select {
	case d.ch <- e:
	default:
		d.metrics.RecordEvent(string(e.Type), "dropped")
		logger.Warn("event queue full, drop",
			zap.String("type", string(e.Type)),
			zap.String("actor", e.ActorID),
			zap.String("subject", e.SubjectID),
		)
	}
}

// QueueLen 返回当前队列长度（采样值）。
func (d *EventDispatcher) QueueLen() int { return len(d.ch) }
