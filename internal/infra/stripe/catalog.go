package stripe

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"dealflow-api/internal/domain/plans"
)

// PriceSource fetches a price from the provider.
type PriceSource interface {
	GetPrice(ctx context.Context, priceID string) (plans.Price, error)
}

// Catalog caches prices for a short TTL. Concurrent misses for one id share
// a single provider call, which is not cancelled with the caller that
// started it.
type Catalog struct {
	src   PriceSource
	cache *expirable.LRU[string, plans.Price]
	group singleflight.Group
}

func NewCatalog(src PriceSource, size int, ttl time.Duration) *Catalog {
	if size <= 0 {
		size = 256
	}
	return &Catalog{
		src:   src,
		cache: expirable.NewLRU[string, plans.Price](size, nil, ttl),
	}
}

func (c *Catalog) GetPrice(ctx context.Context, priceID string) (plans.Price, error) {
	if p, ok := c.cache.Get(priceID); ok {
		return p, nil
	}
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(priceID, func() (any, error) {
		p, err := c.src.GetPrice(shared, priceID)
		if err != nil {
			return plans.Price{}, err
		}
		c.cache.Add(priceID, p)
		return p, nil
	})
	select {
	case <-ctx.Done():
		return plans.Price{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return plans.Price{}, res.Err
		}
		return res.Val.(plans.Price), nil
	}
}

func (c *Catalog) Invalidate(priceID string) {
	c.cache.Remove(priceID)
}
