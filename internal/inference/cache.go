package inference

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/OldStager01/crop-yield-predictor/pkg/models"
)

// Cache memoises predictions per feature record. A nil *Cache is valid and
// never hits.
type Cache struct {
	lru *lru.Cache[models.FeatureRecord, float64]
}

// NewCache returns nil when size is not positive.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		return nil, nil
	}
	c, err := lru.New[models.FeatureRecord, float64](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: c}, nil
}

func (c *Cache) Get(rec models.FeatureRecord) (float64, bool) {
	if c == nil {
		return 0, false
	}
	return c.lru.Get(rec)
}

func (c *Cache) Add(rec models.FeatureRecord, value float64) {
	if c == nil {
		return
	}
	c.lru.Add(rec, value)
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}
