// Package events carries the in-process pub/sub bus between the submission
// ledger, the ranking projector, and the websocket fan-out. Delivery is
// best-effort: no persistence, no replay, subscribers that go away are
// simply dropped.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"ctf-scoreboard-service/internal/domain"
)

const (
	// TopicSolveRecorded is published by the ledger after a committed correct solve.
	TopicSolveRecorded = "ledger.solve.recorded"
	// TopicRankingUpdated carries fresh per-tier ranking snapshots to viewers.
	TopicRankingUpdated = "ranking.updated"
	// TopicSolveNotice carries solve notifications to viewers, emitted after
	// the ranking for the tier has been refreshed.
	TopicSolveNotice = "solve.notice"
)

// Bus wraps a watermill gochannel pub/sub with JSON payloads.
type Bus struct {
	pubsub *gochannel.GoChannel
}

func NewBus(logger *slog.Logger) *Bus {
	ps := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, watermill.NewSlogLogger(logger))
	return &Bus{pubsub: ps}
}

func (b *Bus) Close() error {
	return b.pubsub.Close()
}

// PublishSolveRecorded hands a committed solve to the projector.
func (b *Bus) PublishSolveRecorded(notice domain.SolveNotice) error {
	return b.publish(TopicSolveRecorded, notice)
}

// PublishRanking fans a refreshed snapshot out to viewers.
func (b *Bus) PublishRanking(snapshot domain.RankingSnapshot) error {
	return b.publish(TopicRankingUpdated, snapshot)
}

// PublishSolveNotice fans a solve notification out to viewers.
func (b *Bus) PublishSolveNotice(notice domain.SolveNotice) error {
	return b.publish(TopicSolveNotice, notice)
}

func (b *Bus) publish(topic string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", topic, err)
	}
	return b.pubsub.Publish(topic, message.NewMessage(watermill.NewUUID(), raw))
}

// Subscribe returns a message channel for topic, closed when ctx is done.
// Consumers must Ack every message.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topic)
}

// DecodeSolveNotice unmarshals a solve payload from either solve topic.
func DecodeSolveNotice(msg *message.Message) (domain.SolveNotice, error) {
	var notice domain.SolveNotice
	if err := json.Unmarshal(msg.Payload, &notice); err != nil {
		return domain.SolveNotice{}, fmt.Errorf("decode solve notice: %w", err)
	}
	return notice, nil
}

// DecodeRankingSnapshot unmarshals a ranking payload.
func DecodeRankingSnapshot(msg *message.Message) (domain.RankingSnapshot, error) {
	var snapshot domain.RankingSnapshot
	if err := json.Unmarshal(msg.Payload, &snapshot); err != nil {
		return domain.RankingSnapshot{}, fmt.Errorf("decode ranking snapshot: %w", err)
	}
	return snapshot, nil
}
