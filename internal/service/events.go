package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
)

type EventType string

const (
	EventUserRegistered EventType = "user.registered"
	EventUserUpdated    EventType = "user.updated"
	EventUserDeleted    EventType = "user.deleted"
	EventFollowed       EventType = "user.followed"
	EventUnfollowed     EventType = "user.unfollowed"
	EventMessageCreated EventType = "message.created"
	EventMessageDeleted EventType = "message.deleted"
	EventMessageLiked   EventType = "message.liked"
	EventMessageUnliked EventType = "message.unliked"
)

// Event 领域事件。ActorID 为操作者，SubjectID 为被操作对象（用户或消息）。
type Event struct {
	Type       EventType `json:"type"`
	ActorID    string    `json:"actor_id"`
	SubjectID  string    `json:"subject_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`

	// 产生事件的请求 span，发布时作为父 span 传播
	span trace.SpanContext
}

func newEvent(ctx context.Context, t EventType, actorID, subjectID string) Event {
	return Event{
		Type:       t,
		ActorID:    actorID,
		SubjectID:  subjectID,
		OccurredAt: time.Now().UTC(),
		span:       trace.SpanContextFromContext(ctx),
	}
}

// EventPublisher 把事件投递到外部（NATS 或丢弃）
type EventPublisher interface {
	Publish(ctx context.Context, e Event) error
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
