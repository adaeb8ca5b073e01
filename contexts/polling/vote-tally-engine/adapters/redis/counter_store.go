package redisadapter

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"livepoll/contexts/polling/vote-tally-engine/domain/entities"
	domainerrors "livepoll/contexts/polling/vote-tally-engine/domain/errors"
	"livepoll/contexts/polling/vote-tally-engine/ports"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix keys each sorted set by the bare poll id, which keeps the
// keys readable by deployments that predate the prefix option.
const DefaultKeyPrefix = ""

// CounterStore keeps one sorted set per poll: members are option ids and
// scores are vote counts. ZINCRBY is atomic on the server, so concurrent
// increments never lose updates.
type CounterStore struct {
	client    redis.Cmdable
	keyPrefix string
	logger    *slog.Logger
}

func NewCounterStore(client redis.Cmdable, keyPrefix string, logger *slog.Logger) *CounterStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &CounterStore{
		client:    client,
		keyPrefix: keyPrefix,
		logger:    logger,
	}
}

func (c *CounterStore) Increment(ctx context.Context, pollID string, optionID string, delta int64) (int64, error) {
	score, err := c.client.ZIncrBy(ctx, c.key(pollID), float64(delta), optionID).Result()
	if err != nil {
		return 0, c.logError("tally_redis_zincrby_failed", err,
			"poll_id", pollID,
			"option_id", optionID,
			"delta", delta,
		)
	}
	return int64(math.Round(score)), nil
}

func (c *CounterStore) Range(ctx context.Context, pollID string) ([]entities.OptionCount, error) {
	rows, err := c.client.ZRangeWithScores(ctx, c.key(pollID), 0, -1).Result()
	if err != nil {
		return nil, c.logError("tally_redis_zrange_failed", err, "poll_id", pollID)
	}
	items := make([]entities.OptionCount, 0, len(rows))
	for _, row := range rows {
		member, ok := row.Member.(string)
		if !ok {
			member = fmt.Sprint(row.Member)
		}
		items = append(items, entities.OptionCount{
			OptionID: member,
			Count:    int64(math.Round(row.Score)),
		})
	}
	return items, nil
}

func (c *CounterStore) key(pollID string) string {
	return c.keyPrefix + pollID
}

func (c *CounterStore) logError(event string, err error, attrs ...any) error {
	fields := []any{
		"event", event,
		"module", "polling/vote-tally-engine",
		"layer", "adapter",
		"error", err.Error(),
	}
	fields = append(fields, attrs...)
	c.logger.Error("redis counter operation failed", fields...)
	return fmt.Errorf("%w: %v", domainerrors.ErrStoreUnavailable, err)
}

var _ ports.CounterStore = (*CounterStore)(nil)
