package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"

	"wingo/events"
	"wingo/models"
	"wingo/service"
)

// DefaultHistorySize is the number of results kept per game
const DefaultHistorySize = 100

var _ service.ResultCache = (*ResultCache)(nil)

// ResultCache keeps the newest resolved rounds of each game in a capped redis list
type ResultCache struct {
	client *redis.Client
	size   int64
}

// NewRedisClient connects to redis and verifies the connection
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.WithField("addr", addr).Info("Connected to Redis")
	return client, nil
}

// NewResultCache creates a cache holding up to size results per game
func NewResultCache(client *redis.Client, size int) *ResultCache {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &ResultCache{client: client, size: int64(size)}
}

func resultsKey(gameKind models.GameKind) string {
	return fmt.Sprintf("wingo:results:%s", gameKind)
}

// Push prepends a resolved round and trims the list to its cap
func (c *ResultCache) Push(ctx context.Context, round *models.Round) error {
	data, err := json.Marshal(round)
	if err != nil {
		return fmt.Errorf("failed to encode round: %w", err)
	}

	key := resultsKey(round.GameKind)
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, data)
		pipe.LTrim(ctx, key, 0, c.size-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to push result: %w", err)
	}
	return nil
}

// Recent returns up to limit results, newest first
func (c *ResultCache) Recent(ctx context.Context, gameKind models.GameKind, limit int) ([]*models.Round, error) {
	if limit <= 0 {
		return []*models.Round{}, nil
	}

	values, err := c.client.LRange(ctx, resultsKey(gameKind), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read results: %w", err)
	}

	rounds := make([]*models.Round, 0, len(values))
	for _, value := range values {
		var round models.Round
		if err := json.Unmarshal([]byte(value), &round); err != nil {
			return nil, fmt.Errorf("failed to decode cached round: %w", err)
		}
		rounds = append(rounds, &round)
	}
	return rounds, nil
}

// SubscribeToBus records every resolved round as it is committed
func (c *ResultCache) SubscribeToBus(bus *events.Bus) {
	bus.Subscribe(events.EventTypeRoundResolved, func(ctx context.Context, event events.Event) {
		e, ok := event.(events.RoundResolvedEvent)
		if !ok {
			return
		}

		result := e.Result
		resolvedAt := e.ResolvedAt
		round := &models.Round{
			ID:         e.RoundID,
			GameKind:   e.GameKind,
			Phase:      resolvedPhase(e.GameKind),
			Result:     &result,
			CreatedAt:  resolvedAt,
			ResolvedAt: &resolvedAt,
		}
		if err := c.Push(ctx, round); err != nil {
			log.WithError(err).WithField("roundID", e.RoundID).Warn("Failed to cache round result")
		}
	})
}

func resolvedPhase(gameKind models.GameKind) models.Phase {
	if gameKind == models.GameKindCrash {
		return models.PhaseCrashed
	}
	return models.PhaseCooldown
}
