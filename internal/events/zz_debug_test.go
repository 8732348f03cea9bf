package events_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"ctf-scoreboard-service/internal/domain"
	"ctf-scoreboard-service/internal/events"
)

func TestDebugFanoutTwoSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus := events.NewBus(slog.Default())
	defer bus.Close()

	r1, _ := bus.Subscribe(ctx, events.TopicRankingUpdated)
	s1, _ := bus.Subscribe(ctx, events.TopicSolveNotice)
	r2, _ := bus.Subscribe(ctx, events.TopicRankingUpdated)
	s2, _ := bus.Subscribe(ctx, events.TopicSolveNotice)

	if err := bus.PublishRanking(domain.RankingSnapshot{Tier: domain.TierBeginner}); err != nil {
		t.Fatal(err)
	}
	if err := bus.PublishSolveNotice(domain.SolveNotice{Tier: domain.TierBeginner, DisplayName: "Alice"}); err != nil {
		t.Fatal(err)
	}

	check := func(name string, ch <-chan *message.Message) {
		select {
		case msg := <-ch:
			msg.Ack()
			t.Logf("%s got %s", name, msg.Payload)
		case <-time.After(2 * time.Second):
			t.Errorf("%s timed out", name)
		}
	}
	check("r1", r1)
	check("r2", r2)
	check("s1", s1)
	check("s2", s2)
}
