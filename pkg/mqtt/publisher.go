package mqtt

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/urmzd/glowcup/pkg/dispatch"
	"github.com/urmzd/glowcup/pkg/store"
)

// Sink is where the Publisher sends encoded messages. *Client implements it.
type Sink interface {
	Publish(topic string, payload []byte, retained bool) error
}

// Snapshots is the subset of the state store the Publisher follows.
type Snapshots interface {
	Subscribe() chan store.Snapshot
	Unsubscribe(ch chan store.Snapshot)
}

// Publisher mirrors snapshots and dispatch records to a Sink.
// Publish failures are logged and never block the controller.
type Publisher struct {
	sink    Sink
	topics  Topics
	records chan dispatch.Record
}

// NewPublisher creates a Publisher writing under topics.
func NewPublisher(sink Sink, topics Topics) *Publisher {
	return &Publisher{
		sink:    sink,
		topics:  topics,
		records: make(chan dispatch.Record, 32),
	}
}

// Run publishes every snapshot as a retained message, and every queued
// dispatch record, until ctx is done. Intermediate snapshots may be
// skipped; the latest one always wins.
func (p *Publisher) Run(ctx context.Context, snapshots Snapshots) {
	ch := snapshots.Subscribe()
	defer snapshots.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			p.publish(p.topics.State(), snap, true)
		case rec := <-p.records:
			p.publish(p.topics.Dispatch(), rec, false)
		}
	}
}

// HandleDispatch queues a completed dispatch for Run. Records are dropped
// when the queue is full.
func (p *Publisher) HandleDispatch(rec dispatch.Record) {
	select {
	case p.records <- rec:
	default:
		log.Warn().Str("dispatch", rec.ID.String()).Msg("MQTT dispatch queue full, dropping record")
	}
}

func (p *Publisher) publish(topic string, v any, retained bool) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to encode MQTT payload")
		return
	}
	if err := p.sink.Publish(topic, payload, retained); err != nil {
		log.Warn().Err(err).Str("topic", topic).Msg("MQTT publish failed")
	}
}
