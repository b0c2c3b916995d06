package application

import (
	"context"
	"time"
)

// AvailabilityCache は公演ごとの空席数キャッシュ
type AvailabilityCache interface {
	GetAvailableCount(ctx context.Context, performanceID string) (int, error)
	SetAvailableCount(ctx context.Context, performanceID string, count int, ttl time.Duration) error
	Invalidate(ctx context.Context, performanceID string) error
}
