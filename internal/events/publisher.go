// Package events fans task mutations out to Redis pub/sub so WebSocket
// clients and downstream services (chat, notifications) can react to them.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/gofer/internal/domain"
	redisstore "github.com/gosuda/gofer/internal/store/redis"
)

const defaultPublishTimeout = 5 * time.Second

// Broker abstracts the Redis pub/sub publish operation.
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Publisher delivers TaskEvents on a best-effort basis. A failed publish is
// logged and never reported to the caller: the mutation has already committed.
type Publisher struct {
	broker  Broker
	timeout time.Duration
}

// NewPublisher returns a publisher over broker. A nil broker yields a
// publisher that drops every event, which is what runs when Redis is not
// configured.
func NewPublisher(broker Broker) *Publisher {
	return &Publisher{broker: broker, timeout: defaultPublishTimeout}
}

// Channels lists where an event is delivered: the task itself, both
// participants, and the public feed for approved tasks or tasks an edit just
// withdrew from it.
func Channels(ev domain.TaskEvent) []string {
	channels := []string{
		redisstore.TaskChannel(ev.TaskID),
		redisstore.UserChannel(ev.OwnerID),
	}
	if ev.AssigneeID != nil {
		channels = append(channels, redisstore.UserChannel(*ev.AssigneeID))
	}
	if ev.ModerationStatus == domain.ModerationApproved || ev.Withdrawn() {
		channels = append(channels, redisstore.FeedChannel)
	}
	return channels
}

func (p *Publisher) Publish(ctx context.Context, ev domain.TaskEvent) {
	if p == nil || p.broker == nil {
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("task_id", ev.TaskID.String()).Msg("events.Publish: marshal")
		return
	}

	// The request may be cancelled the moment its response is written.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	for _, channel := range Channels(ev) {
		if pubErr := p.broker.Publish(ctx, channel, payload); pubErr != nil {
			log.Warn().Err(pubErr).
				Str("channel", channel).
				Str("event", string(ev.Type)).
				Msg("events.Publish: failed to publish task event")
		}
	}
}
