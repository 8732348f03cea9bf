package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"ctf-scoreboard-service/internal/app"
	"ctf-scoreboard-service/internal/domain"
	"ctf-scoreboard-service/internal/infra/memory"
)

func TestSnapshotTotalOrder(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	store.Seed([]domain.Participant{
		{ID: "p-late", DisplayName: "Late", Tier: domain.TierBeginner, Score: 50, SolveCount: 1, RegisteredAt: time.Unix(3000, 0)},
		{ID: "p-top", DisplayName: "Top", Tier: domain.TierBeginner, Score: 100, SolveCount: 2, RegisteredAt: time.Unix(2000, 0)},
		{ID: "p-early", DisplayName: "Early", Tier: domain.TierBeginner, Score: 50, SolveCount: 1, RegisteredAt: time.Unix(1000, 0)},
		{ID: "p-busy", DisplayName: "Busy", Tier: domain.TierBeginner, Score: 50, SolveCount: 3, RegisteredAt: time.Unix(4000, 0)},
		{ID: "p-other-tier", DisplayName: "Other", Tier: domain.TierIntermediate, Score: 999, RegisteredAt: time.Unix(0, 0)},
	}, nil)

	index := app.NewRankingIndex(store)
	snapshot, err := index.Snapshot(ctx, domain.TierBeginner)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	wantOrder := []string{"p-top", "p-busy", "p-early", "p-late"}
	if len(snapshot.Entries) != len(wantOrder) {
		t.Fatalf("expected %d entries, got %d", len(wantOrder), len(snapshot.Entries))
	}
	for i, id := range wantOrder {
		entry := snapshot.Entries[i]
		if entry.ParticipantID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, entry.ParticipantID)
		}
		if entry.Rank != i+1 {
			t.Fatalf("position %d: expected rank %d, got %d", i, i+1, entry.Rank)
		}
	}
}

func TestSnapshotIdentityTieBreakIsStable(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	same := time.Unix(1000, 0)
	store.Seed([]domain.Participant{
		{ID: "zeta", Tier: domain.TierBeginner, Score: 10, SolveCount: 1, RegisteredAt: same},
		{ID: "alpha", Tier: domain.TierBeginner, Score: 10, SolveCount: 1, RegisteredAt: same},
	}, nil)

	index := app.NewRankingIndex(store)
	for i := 0; i < 5; i++ {
		snapshot, err := index.Refresh(ctx, domain.TierBeginner)
		if err != nil {
			t.Fatalf("refresh: %v", err)
		}
		if snapshot.Entries[0].ParticipantID != "alpha" || snapshot.Entries[1].ParticipantID != "zeta" {
			t.Fatalf("identity tie-break unstable: %+v", snapshot.Entries)
		}
	}
}

func TestRefreshReflectsNewState(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	store.Seed([]domain.Participant{
		{ID: "p1", Tier: domain.TierBeginner, RegisteredAt: time.Unix(1000, 0)},
	}, []domain.Question{
		{ID: "q1", Answer: "42", Points: 100, Tier: domain.TierBeginner},
	})

	index := app.NewRankingIndex(store)
	if _, err := index.Snapshot(ctx, domain.TierBeginner); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	ledger := newTestLedger(store)
	if _, err := ledger.Submit(ctx, "p1", "q1", "42"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	snapshot, err := index.Refresh(ctx, domain.TierBeginner)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if snapshot.Entries[0].Score != 100 || snapshot.Entries[0].SolveCount != 1 {
		t.Fatalf("refresh did not pick up committed solve: %+v", snapshot.Entries[0])
	}
}

func TestRankOf(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	store.Seed([]domain.Participant{
		{ID: "p1", Tier: domain.TierBeginner, Score: 100, RegisteredAt: time.Unix(1000, 0)},
		{ID: "p2", Tier: domain.TierBeginner, Score: 50, RegisteredAt: time.Unix(2000, 0)},
	}, nil)

	index := app.NewRankingIndex(store)
	entry, ok, err := index.RankOf(ctx, "p2")
	if err != nil || !ok {
		t.Fatalf("rank of p2: ok=%v err=%v", ok, err)
	}
	if entry.Rank != 2 || entry.Score != 50 {
		t.Fatalf("unexpected entry %+v", entry)
	}

	if _, _, err := index.RankOf(ctx, "ghost"); !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
