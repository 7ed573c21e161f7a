// Package cache puts a Redis read-through cache in front of repository ports.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/uqar-pharmacy/moneybox/internal/core/domain"
	portsrepo "github.com/uqar-pharmacy/moneybox/internal/core/ports/repositories"
	"github.com/uqar-pharmacy/moneybox/internal/middleware"
)

const (
	activeRateKeyPrefix = "fx:active"
	generationKeyPrefix = "fx:gen"
)

// setIfGeneration fills KEYS[1] only while the pair generation in KEYS[2] still
// equals ARGV[1], so a load that raced with a rate write cannot repopulate the key.
var setIfGeneration = redis.NewScript(`
local gen = redis.call("GET", KEYS[2]) or "0"
if gen ~= ARGV[1] then
	return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`)

// ExchangeRateCache caches active rate lookups. Writes go straight to the wrapped
// repository and evict the pairs they touched once the unit commits.
type ExchangeRateCache struct {
	portsrepo.ExchangeRateRepositoryFacade
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewExchangeRateCache wraps repo. A nil client disables caching; a non-positive
// ttl falls back to five minutes.
func NewExchangeRateCache(repo portsrepo.ExchangeRateRepositoryFacade, client *redis.Client, ttl time.Duration) *ExchangeRateCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ExchangeRateCache{ExchangeRateRepositoryFacade: repo, client: client, ttl: ttl}
}

var _ portsrepo.ExchangeRateRepositoryFacade = (*ExchangeRateCache)(nil)

func activeRateKey(from, to string) string {
	return strings.Join([]string{activeRateKeyPrefix, from, to}, ":")
}

func generationKey(from, to string) string {
	return strings.Join([]string{generationKeyPrefix, from, to}, ":")
}

// generation reads the pair's write counter. A missing key is generation "0".
func (c *ExchangeRateCache) generation(ctx context.Context, key string) (string, error) {
	gen, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return gen, err
}

// FindActiveRate serves the pair from Redis, loading it once per key on a miss.
// Not-found results are not cached. The loaded row is only stored when no rate
// write for the pair committed since the load started.
func (c *ExchangeRateCache) FindActiveRate(ctx context.Context, fromCurrencyCode, toCurrencyCode string) (*domain.ExchangeRate, error) {
	if c.client == nil {
		return c.ExchangeRateRepositoryFacade.FindActiveRate(ctx, fromCurrencyCode, toCurrencyCode)
	}
	logger := middleware.GetLoggerFromCtx(ctx)
	key := activeRateKey(fromCurrencyCode, toCurrencyCode)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var rate domain.ExchangeRate
		if err := json.Unmarshal(payload, &rate); err == nil {
			return &rate, nil
		}
		logger.Warn("Discarding unreadable cached exchange rate", slog.String("key", key))
	} else if !errors.Is(err, redis.Nil) {
		logger.Warn("Exchange rate cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}

	genKey := generationKey(fromCurrencyCode, toCurrencyCode)
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		gen, genErr := c.generation(ctx, genKey)
		rate, err := c.ExchangeRateRepositoryFacade.FindActiveRate(ctx, fromCurrencyCode, toCurrencyCode)
		if err != nil {
			return nil, err
		}
		if genErr != nil {
			logger.Warn("Exchange rate cache generation read failed", slog.String("key", genKey), slog.String("error", genErr.Error()))
			return rate, nil
		}
		if raw, err := json.Marshal(rate); err == nil {
			err := setIfGeneration.Run(ctx, c.client, []string{key, genKey}, gen, raw, c.ttl.Milliseconds()).Err()
			if err != nil {
				logger.Warn("Exchange rate cache write failed", slog.String("key", key), slog.String("error", err.Error()))
			}
		}
		return rate, nil
	})
	if err != nil {
		return nil, err
	}
	rate := *v.(*domain.ExchangeRate)
	return &rate, nil
}

// RunInRateTx evicts every pair written through the unit after it commits and
// bumps the pair generations so in-flight loads of the old rows are not stored.
func (c *ExchangeRateCache) RunInRateTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.ExchangeRateTx) error) error {
	if c.client == nil {
		return c.ExchangeRateRepositoryFacade.RunInRateTx(ctx, fn)
	}
	tracked := &trackingRateTx{}
	err := c.ExchangeRateRepositoryFacade.RunInRateTx(ctx, func(ctx context.Context, tx portsrepo.ExchangeRateTx) error {
		tracked.ExchangeRateTx = tx
		return fn(ctx, tracked)
	})
	if err != nil {
		return err
	}
	pairs := tracked.pairs()
	if len(pairs) == 0 {
		return nil
	}
	_, err = c.client.TxPipelined(context.WithoutCancel(ctx), func(pipe redis.Pipeliner) error {
		for _, p := range pairs {
			pipe.Incr(ctx, generationKey(p.from, p.to))
			pipe.Del(ctx, activeRateKey(p.from, p.to))
		}
		return nil
	})
	if err != nil {
		middleware.GetLoggerFromCtx(ctx).Error("Failed to evict cached exchange rates",
			slog.String("error", err.Error()), slog.Int("pairs", len(pairs)))
	}
	return nil
}

type pair struct{ from, to string }

type trackingRateTx struct {
	portsrepo.ExchangeRateTx
	mu      sync.Mutex
	touched map[pair]struct{}
}

func (t *trackingRateTx) touch(from, to string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.touched == nil {
		t.touched = make(map[pair]struct{})
	}
	t.touched[pair{from, to}] = struct{}{}
}

func (t *trackingRateTx) pairs() []pair {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]pair, 0, len(t.touched))
	for p := range t.touched {
		out = append(out, p)
	}
	return out
}

func (t *trackingRateTx) DeactivateActiveRate(ctx context.Context, fromCurrencyCode, toCurrencyCode string, userID string, now time.Time) (*domain.ExchangeRate, error) {
	t.touch(fromCurrencyCode, toCurrencyCode)
	return t.ExchangeRateTx.DeactivateActiveRate(ctx, fromCurrencyCode, toCurrencyCode, userID, now)
}

func (t *trackingRateTx) SaveExchangeRate(ctx context.Context, rate domain.ExchangeRate) error {
	t.touch(rate.FromCurrencyCode, rate.ToCurrencyCode)
	return t.ExchangeRateTx.SaveExchangeRate(ctx, rate)
}
