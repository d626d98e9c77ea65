package questions

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-room-service/internal/domain"
)

// CachedBank caches a BankProvider's result with a TTL so rooms generating
// close together don't each hit the backing store. Concurrent cache fills
// are collapsed into one load.
type CachedBank struct {
	provider BankProvider
	ttl      time.Duration
	clock    func() time.Time
	sf       singleflight.Group
	rnd      *rand.Rand

	mu        sync.RWMutex
	bank      map[domain.Difficulty][]domain.Question
	expiresAt time.Time
}

func NewCachedBank(provider BankProvider, ttl time.Duration) *CachedBank {
	return &CachedBank{
		provider: provider,
		ttl:      ttl,
		clock:    time.Now,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *CachedBank) Bank(ctx context.Context) (map[domain.Difficulty][]domain.Question, error) {
	now := c.clock()

	c.mu.RLock()
	if c.bank != nil && c.expiresAt.After(now) {
		bank := c.bank
		c.mu.RUnlock()
		return bank, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do("bank", func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if c.bank != nil && c.expiresAt.After(now) {
			bank := c.bank
			c.mu.RUnlock()
			return bank, nil
		}
		c.mu.RUnlock()

		bank, err := c.provider.Bank(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.bank = bank
		c.expiresAt = now.Add(c.ttlWithJitter())
		c.mu.Unlock()
		return bank, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(map[domain.Difficulty][]domain.Question), nil
}

func (c *CachedBank) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
