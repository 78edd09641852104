package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/warbler/internal/metrics"
)

func TestEventDispatcher_PublishesAndDrains(t *testing.T) {
	pub := &recordingPublisher{}
	m := metrics.NewMetrics()
	d := NewEventDispatcher(pub, 10, m)

	for i := 0; i < 5; i++ {
		d.Enqueue(newEvent(context.Background(), EventMessageCreated, "u1", "m"))
	}
	stop := d.Start(2)
	require.NoError(t, stop(context.Background()))

	assert.Len(t, pub.types(), 5)
	assert.Equal(t, 0, d.QueueLen())
	assert.Equal(t, 5.0, testutil.ToFloat64(m.EventsTotal.WithLabelValues(string(EventMessageCreated), "published")))
}

func TestEventDispatcher_DropsWhenFull(t *testing.T) {
	pub := &recordingPublisher{}
	m := metrics.NewMetrics()
	d := NewEventDispatcher(pub, 2, m)

	// 未启动 worker，第三个事件入队失败
	d.Enqueue(newEvent(context.Background(), EventFollowed, "a", "b"))
	d.Enqueue(newEvent(context.Background(), EventFollowed, "a", "c"))
	d.Enqueue(newEvent(context.Background(), EventFollowed, "a", "d"))

	assert.Equal(t, 2, d.QueueLen())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsTotal.WithLabelValues(string(EventFollowed), "dropped")))
}

func TestEventDispatcher_PublishFailureIsCounted(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	m := metrics.NewMetrics()
	d := NewEventDispatcher(pub, 4, m)
	stop := d.Start(1)

	d.Enqueue(newEvent(context.Background(), EventUserRegistered, "u1", "u1"))
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.EventsTotal.WithLabelValues(string(EventUserRegistered), "failed")) == 1
	}, time.Second, 10*time.Millisecond)
	require.NoError(t, stop(context.Background()))
}

func TestEventDispatcher_NilPublisher(t *testing.T) {
	d := NewEventDispatcher(nil, 0, nil)
	stop := d.Start(0)
	d.Enqueue(newEvent(context.Background(), EventUserDeleted, "u1", "u1"))
	assert.NoError(t, stop(context.Background()))
}
