package app

import (
	"context"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"

	"ctf-scoreboard-service/internal/domain"
	"ctf-scoreboard-service/internal/events"
)

// QuestionInvalidator evicts a cached question after its point value changed.
type QuestionInvalidator interface {
	Invalidate(ctx context.Context, questionID string) error
}

// Projector consumes committed solves from the bus, refreshes the ranking
// index for the affected tier, and republishes both the snapshot and the
// solve notice to viewers. It runs outside the submission transaction so
// fan-out cost never adds to submission latency; a burst of solves for one
// tier simply produces a burst of refreshes, each serving the final state.
type Projector struct {
	bus     *events.Bus
	ranking *RankingIndex
	cache   QuestionInvalidator
	log     *slog.Logger
}

func NewProjector(bus *events.Bus, ranking *RankingIndex, cache QuestionInvalidator, log *slog.Logger) *Projector {
	return &Projector{bus: bus, ranking: ranking, cache: cache, log: log}
}

// Start subscribes to solve events and consumes them in the background
// until ctx is cancelled. The subscription is live once Start returns.
func (p *Projector) Start(ctx context.Context) error {
	msgs, err := p.bus.Subscribe(ctx, events.TopicSolveRecorded)
	if err != nil {
		return err
	}
	go p.loop(ctx, msgs)
	return nil
}

func (p *Projector) loop(ctx context.Context, msgs <-chan *message.Message) {
	for msg := range msgs {
		notice, err := events.DecodeSolveNotice(msg)
		msg.Ack()
		if err != nil {
			p.log.Error("projector: bad solve payload", "error", err)
			continue
		}
		p.project(ctx, notice)
	}
}

func (p *Projector) project(ctx context.Context, notice domain.SolveNotice) {
	if p.cache != nil {
		if err := p.cache.Invalidate(ctx, notice.QuestionID); err != nil {
			p.log.Warn("projector: invalidate question cache", "question", notice.QuestionID, "error", err)
		}
	}

	snapshot, err := p.ranking.Refresh(ctx, notice.Tier)
	if err != nil {
		p.log.Error("projector: refresh ranking", "tier", notice.Tier, "error", err)
		return
	}
	if err := p.bus.PublishRanking(snapshot); err != nil {
		p.log.Warn("projector: publish ranking", "tier", notice.Tier, "error", err)
	}
	if err := p.bus.PublishSolveNotice(notice); err != nil {
		p.log.Warn("projector: publish solve notice", "question", notice.QuestionID, "error", err)
	}
}
