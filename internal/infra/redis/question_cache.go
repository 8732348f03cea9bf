// Package redis caches question metadata for the viewer read path. The
// canonical point value always comes from the ledger store inside the
// submission transaction; this cache only serves question listings, and the
// projector evicts an entry whenever its question's points decay.
package redis

import (
	"context"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"ctf-scoreboard-service/internal/domain"
)

// QuestionLoader fetches question state from the backing store on cache miss.
type QuestionLoader interface {
	Question(ctx context.Context, id string) (domain.Question, error)
}

// QuestionCache stores one hash per question:
// HSET question:{id} title {t} category {c} tier {tier} points {p} solved {n}
// The canonical answer is deliberately never cached.
type QuestionCache struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionCache(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Question returns the cached public view of a question, loading and caching
// it on miss. The Answer field is always empty on the returned value.
func (c *QuestionCache) Question(ctx context.Context, id string) (domain.Question, error) {
	key := c.key(id)

	fields, err := c.client.HGetAll(ctx, key).Result()
	if err == nil && len(fields) > 0 {
		return questionFromFields(id, fields), nil
	}

	result, err, _ := c.sf.Do(id, func() (interface{}, error) {
		// Re-check in case another goroutine filled it.
		fields, err := c.client.HGetAll(ctx, key).Result()
		if err == nil && len(fields) > 0 {
			return questionFromFields(id, fields), nil
		}

		question, err := c.loader.Question(ctx, id)
		if err != nil {
			return domain.Question{}, err
		}

		pipe := c.client.Pipeline()
		pipe.HSet(ctx, key,
			"title", question.Title,
			"category", question.CategoryID,
			"tier", string(question.Tier),
			"points", question.Points,
			"solved", question.SolvedCount,
		)
		if ttl := c.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		_, _ = pipe.Exec(ctx)

		question.Answer = ""
		return question, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

// Invalidate drops the cached entry so the next read refetches the decayed
// point value.
func (c *QuestionCache) Invalidate(ctx context.Context, id string) error {
	return c.client.Del(ctx, c.key(id)).Err()
}

func (c *QuestionCache) key(id string) string {
	return "question:" + id
}

func questionFromFields(id string, fields map[string]string) domain.Question {
	points, _ := strconv.Atoi(fields["points"])
	solved, _ := strconv.Atoi(fields["solved"])
	return domain.Question{
		ID:          id,
		CategoryID:  fields["category"],
		Title:       fields["title"],
		Points:      points,
		Tier:        domain.Tier(fields["tier"]),
		SolvedCount: solved,
	}
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
