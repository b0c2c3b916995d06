package application

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-theatre-seat-reservation/internal/domain/performance"
	"github.com/sanosuguru/go-theatre-seat-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-theatre-seat-reservation/internal/domain/seat"
	redisinfra "github.com/sanosuguru/go-theatre-seat-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-theatre-seat-reservation/internal/pkg/logger"
)

const defaultSeatCacheTTL = 30 * time.Second

// SeatAvailability は公演の座席状況
type SeatAvailability struct {
	PerformanceID string
	PlayTitle     string
	ShowTime      time.Time
	Rows          int
	SeatsPerRow   int
	Capacity      int
	Taken         []seat.Coordinate
	Available     int
}

// AvailabilityService は空席状況の参照を提供する
type AvailabilityService struct {
	catalog  performance.Catalog
	store    reservation.Store
	cache    AvailabilityCache
	cacheTTL time.Duration
}

func NewAvailabilityService(catalog performance.Catalog, store reservation.Store, cache AvailabilityCache, cacheTTL time.Duration) *AvailabilityService {
	if cacheTTL <= 0 {
		cacheTTL = defaultSeatCacheTTL
	}
	return &AvailabilityService{catalog: catalog, store: store, cache: cache, cacheTTL: cacheTTL}
}

// SeatAvailability は確保済み座席と空席数を返す
func (s *AvailabilityService) SeatAvailability(ctx context.Context, performanceID string) (*SeatAvailability, error) {
	p, err := s.catalog.GetByID(ctx, performanceID)
	if err != nil {
		if errors.Is(err, performance.ErrPerformanceNotFound) {
			return nil, err
		}
		return nil, reservation.StorageError("公演取得", err)
	}
	taken, err := s.store.TakenSeats(ctx, performanceID)
	if err != nil {
		return nil, err
	}
	return &SeatAvailability{
		PerformanceID: p.ID,
		PlayTitle:     p.PlayTitle,
		ShowTime:      p.ShowTime,
		Rows:          p.Geometry.Rows,
		SeatsPerRow:   p.Geometry.SeatsPerRow,
		Capacity:      p.Geometry.Capacity(),
		Taken:         taken,
		Available:     availableSeats(p, taken),
	}, nil
}

// AvailableCount は空席数を返す（キャッシュ優先）
func (s *AvailabilityService) AvailableCount(ctx context.Context, performanceID string) (int, error) {
	log := logger.FromContext(ctx)

	// キャッシュから取得を試みる
	if s.cache != nil {
		count, err := s.cache.GetAvailableCount(ctx, performanceID)
		if err == nil {
			log.Debug("キャッシュヒット", zap.String("performance_id", performanceID), zap.Int("count", count))
			return count, nil
		}
		if !errors.Is(err, redisinfra.ErrCacheMiss) {
			log.Warn("キャッシュ取得エラー", zap.Error(err))
		}
	}

	view, err := s.SeatAvailability(ctx, performanceID)
	if err != nil {
		return 0, err
	}

	// キャッシュに保存
	if s.cache != nil {
		if cacheErr := s.cache.SetAvailableCount(ctx, performanceID, view.Available, s.cacheTTL); cacheErr != nil {
			log.Warn("キャッシュ保存エラー", zap.Error(cacheErr))
		}
	}
	return view.Available, nil
}

// availableSeats はグリッド内の確保済み座席だけを差し引く
func availableSeats(p *performance.Performance, taken []seat.Coordinate) int {
	n := p.Geometry.Capacity()
	for _, c := range taken {
		if seat.Validate(c, p.Geometry) == nil {
			n--
		}
	}
	return n
}
