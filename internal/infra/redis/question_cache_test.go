package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"ctf-scoreboard-service/internal/domain"
	"ctf-scoreboard-service/internal/infra/memory"
)

func newTestCache(t *testing.T) (*QuestionCache, *countingLoader, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	store := memory.NewStore()
	store.Seed(nil, []domain.Question{
		{ID: "q1", CategoryID: "crypto", Title: "warmup", Answer: "flag{secret}", Points: 100, Tier: domain.TierBeginner},
	})
	loader := &countingLoader{QuestionLoader: store}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewQuestionCache(client, loader, time.Minute), loader, mr
}

func TestQuestionCachedAfterFirstLoad(t *testing.T) {
	ctx := context.Background()
	cache, loader, _ := newTestCache(t)

	q, err := cache.Question(ctx, "q1")
	if err != nil {
		t.Fatalf("question: %v", err)
	}
	if q.Title != "warmup" || q.Points != 100 {
		t.Fatalf("unexpected question %+v", q)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}

	if _, err := cache.Question(ctx, "q1"); err != nil {
		t.Fatalf("question: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
}

func TestAnswerNeverCached(t *testing.T) {
	ctx := context.Background()
	cache, _, mr := newTestCache(t)

	q, err := cache.Question(ctx, "q1")
	if err != nil {
		t.Fatalf("question: %v", err)
	}
	if q.Answer != "" {
		t.Fatalf("answer leaked through the cache: %q", q.Answer)
	}
	if stored := mr.HGet("question:q1", "answer"); stored != "" {
		t.Fatalf("answer stored in redis: %q", stored)
	}
}

func TestInvalidateForcesRefetch(t *testing.T) {
	ctx := context.Background()
	cache, loader, mr := newTestCache(t)

	if _, err := cache.Question(ctx, "q1"); err != nil {
		t.Fatalf("question: %v", err)
	}
	if err := cache.Invalidate(ctx, "q1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists("question:q1") {
		t.Fatal("expected key removed")
	}
	if _, err := cache.Question(ctx, "q1"); err != nil {
		t.Fatalf("question: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidation, loader calls=%d", loader.calls)
	}
}

type countingLoader struct {
	QuestionLoader
	calls int
}

func (l *countingLoader) Question(ctx context.Context, id string) (domain.Question, error) {
	l.calls++
	return l.QuestionLoader.Question(ctx, id)
}
