package memory

import (
	"context"
	"sync"

	"github.com/sanosuguru/go-theatre-seat-reservation/internal/domain/hall"
	"github.com/sanosuguru/go-theatre-seat-reservation/internal/domain/performance"
)

// Catalog は performance.Catalog のインメモリ実装
type Catalog struct {
	mu           sync.RWMutex
	performances map[string]performance.Performance
}

func NewCatalog() *Catalog {
	return &Catalog{performances: make(map[string]performance.Performance)}
}

// Put は公演を登録または置き換える
func (c *Catalog) Put(p performance.Performance) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.performances[p.ID] = p
}

func (c *Catalog) GetByID(ctx context.Context, id string) (*performance.Performance, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.performances[id]
	if !ok {
		return nil, performance.ErrPerformanceNotFound
	}
	return &p, nil
}

func (c *Catalog) HallGeometry(ctx context.Context, performanceID string) (hall.Geometry, error) {
	p, err := c.GetByID(ctx, performanceID)
	if err != nil {
		return hall.Geometry{}, err
	}
	return p.Geometry, nil
}

var _ performance.Catalog = (*Catalog)(nil)
