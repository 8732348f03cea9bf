package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"ctf-scoreboard-service/internal/domain"
)

// RankingIndex maintains the ranked view per tier. Snapshots are cached and
// recomputed on each refresh trigger; the order is total: score desc, solve
// count desc, registration time asc, id asc.
type RankingIndex struct {
	store Store
	now   func() time.Time

	mu    sync.RWMutex
	cache map[domain.Tier]domain.RankingSnapshot
}

func NewRankingIndex(store Store) *RankingIndex {
	return &RankingIndex{
		store: store,
		now:   time.Now,
		cache: make(map[domain.Tier]domain.RankingSnapshot),
	}
}

// WithClock is test-only for deterministic timestamps.
func (r *RankingIndex) WithClock(now func() time.Time) *RankingIndex {
	r.now = now
	return r
}

// Refresh recomputes and caches the snapshot for one tier.
func (r *RankingIndex) Refresh(ctx context.Context, tier domain.Tier) (domain.RankingSnapshot, error) {
	participants, err := r.store.ParticipantsByTier(ctx, tier)
	if err != nil {
		return domain.RankingSnapshot{}, err
	}

	sort.Slice(participants, func(i, j int) bool {
		a, b := participants[i], participants[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.SolveCount != b.SolveCount {
			return a.SolveCount > b.SolveCount
		}
		if !a.RegisteredAt.Equal(b.RegisteredAt) {
			return a.RegisteredAt.Before(b.RegisteredAt)
		}
		return a.ID < b.ID
	})

	entries := make([]domain.RankingEntry, 0, len(participants))
	for i, p := range participants {
		entries = append(entries, domain.RankingEntry{
			Rank:          i + 1,
			ParticipantID: p.ID,
			DisplayName:   p.DisplayName,
			Score:         p.Score,
			SolveCount:    p.SolveCount,
			Tier:          p.Tier,
		})
	}

	snapshot := domain.RankingSnapshot{Tier: tier, Entries: entries, UpdatedAt: r.now()}
	r.mu.Lock()
	r.cache[tier] = snapshot
	r.mu.Unlock()
	return snapshot, nil
}

// Snapshot returns the cached ranked view for a tier, computing it on first
// use. It is eventually consistent with the latest committed solve: the
// projector refreshes the cache after every accepted correct submission.
func (r *RankingIndex) Snapshot(ctx context.Context, tier domain.Tier) (domain.RankingSnapshot, error) {
	r.mu.RLock()
	snapshot, ok := r.cache[tier]
	r.mu.RUnlock()
	if ok {
		return snapshot, nil
	}
	return r.Refresh(ctx, tier)
}

// RankOf locates a participant in their tier's snapshot. A participant not
// present in the tier yields ok=false rather than a stale rank.
func (r *RankingIndex) RankOf(ctx context.Context, participantID string) (domain.RankingEntry, bool, error) {
	participant, err := r.store.Participant(ctx, participantID)
	if err != nil {
		return domain.RankingEntry{}, false, err
	}
	snapshot, err := r.Snapshot(ctx, participant.Tier)
	if err != nil {
		return domain.RankingEntry{}, false, err
	}
	for _, entry := range snapshot.Entries {
		if entry.ParticipantID == participantID {
			return entry, true, nil
		}
	}
	return domain.RankingEntry{}, false, nil
}
