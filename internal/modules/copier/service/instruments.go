package service

import (
	"sync"

	"copy_bot/internal/models"
)

// InstrumentCache — метаданные перпов, загружаются один раз на старте.
type InstrumentCache struct {
	mu sync.RWMutex
	m  map[string]models.InstrumentMeta
}

func NewInstrumentCache() *InstrumentCache {
	return &InstrumentCache{m: make(map[string]models.InstrumentMeta)}
}

func (c *InstrumentCache) Load(list []models.InstrumentMeta) {
	m := make(map[string]models.InstrumentMeta, len(list))
	for _, meta := range list {
		if !meta.TickSize.IsPositive() {
			meta.TickSize = models.DefaultTickSize
		}
		m[meta.Symbol] = meta
	}
	c.mu.Lock()
	c.m = m
	c.mu.Unlock()
}

// Get — метаданные символа; ok=false означает дефолты (4 знака, тик 0.01).
func (c *InstrumentCache) Get(symbol string) (models.InstrumentMeta, bool) {
	c.mu.RLock()
	meta, ok := c.m[symbol]
	c.mu.RUnlock()
	if !ok {
		return models.DefaultInstrument(symbol), false
	}
	return meta, true
}

func (c *InstrumentCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
