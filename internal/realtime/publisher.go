// Package realtime delivers "order fired" and "status changed" notifications
// to subscribers grouped by store and kitchen station. Transport is Redis
// pub/sub; a local hub bridges messages to in-process subscribers (kitchen
// display sessions). Everything here runs after commit and never rolls back
// into the transaction that produced the event.
package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Event names pushed to channels.
const (
	EventOrderFired   = "order:fired"
	EventStatusUpdate = "status_update"
)

// Message is the wire envelope for every channel push.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Publisher fans events out to Redis channels. Failures are logged and
// swallowed — this is an at-most-once path.
type Publisher struct {
	rdb *redis.Client
	hub *Hub
}

func NewPublisher(rdb *redis.Client, hub *Hub) *Publisher {
	return &Publisher{rdb: rdb, hub: hub}
}

// Publish marshals payload into a Message and pushes it to the channel.
func (p *Publisher) Publish(ctx context.Context, channel, eventType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Str("channel", channel).Err(err).Msg("fanout marshal failed")
		return
	}
	msg, err := json.Marshal(Message{Type: eventType, Payload: data})
	if err != nil {
		log.Error().Str("channel", channel).Err(err).Msg("fanout envelope failed")
		return
	}
	if p.rdb != nil {
		if err := p.rdb.Publish(ctx, channel, msg).Err(); err != nil {
			log.Warn().Str("channel", channel).Err(err).Msg("fanout publish failed")
		}
	}
	if p.hub != nil {
		p.hub.Deliver(channel, msg)
	}
}

// RunBridge consumes the Redis pattern subscription covering all store
// channels and re-delivers messages into the local hub, so subscribers on
// this process see events published by other server instances. Blocks until
// ctx is cancelled.
func (p *Publisher) RunBridge(ctx context.Context) {
	if p.rdb == nil || p.hub == nil {
		return
	}
	sub := p.rdb.PSubscribe(ctx, "store:*")
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("realtime bridge shutting down")
			return
		case m, ok := <-ch:
			if !ok {
				// Redis connection dropped; go-redis re-subscribes, but give
				// it a beat before spinning.
				time.Sleep(time.Second)
				continue
			}
			p.hub.Deliver(m.Channel, []byte(m.Payload))
		}
	}
}
