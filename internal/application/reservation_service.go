package application

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-theatre-seat-reservation/internal/domain/performance"
	"github.com/sanosuguru/go-theatre-seat-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-theatre-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-theatre-seat-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-theatre-seat-reservation/internal/pkg/metrics"
)

const (
	defaultCommitTimeout = 5 * time.Second
	defaultListLimit     = 20
	maxListLimit         = 100
)

// ReservationService は予約の受付・キャンセル・参照を行う
// 状態を持たないため全リクエストで共有できる
type ReservationService struct {
	catalog       performance.Catalog
	store         reservation.Store
	cache         AvailabilityCache
	metrics       *metrics.Metrics
	commitTimeout time.Duration
}

// NewReservationService は ReservationService を作成する
// cache と m は nil でもよい
func NewReservationService(catalog performance.Catalog, store reservation.Store, cache AvailabilityCache, m *metrics.Metrics, commitTimeout time.Duration) *ReservationService {
	if commitTimeout <= 0 {
		commitTimeout = defaultCommitTimeout
	}
	return &ReservationService{
		catalog:       catalog,
		store:         store,
		cache:         cache,
		metrics:       m,
		commitTimeout: commitTimeout,
	}
}

type BookInput struct {
	PerformanceID   string
	RequestingParty string
	Seats           []seat.Coordinate
}

// Book は指定された全座席を1件の予約として確保する
// 1座席でも確保できなければ何も書き込まずにエラーを返す（リトライはしない）
func (s *ReservationService) Book(ctx context.Context, input BookInput) (*reservation.Reservation, error) {
	log := logger.FromContext(ctx).With(
		zap.String("performance_id", input.PerformanceID),
		zap.String("requesting_party", input.RequestingParty),
		zap.Int("seat_count", len(input.Seats)),
	)

	res, err := s.book(ctx, input)
	status := BookingStatus(err)
	if s.metrics != nil {
		s.metrics.ReservationsTotal.WithLabelValues(status).Inc()
	}

	switch status {
	case metrics.StatusSuccess:
		log.Info("予約を確定しました", zap.String("reservation_id", res.ID))
		s.invalidate(ctx, input.PerformanceID)
	case metrics.StatusConflict:
		log.Warn("座席が競合しました", zap.Error(err))
	case metrics.StatusStorageUnavailable:
		log.Error("予約の保存に失敗しました", zap.Error(err))
	default:
		log.Debug("予約リクエストを拒否しました", zap.String("status", status), zap.Error(err))
	}
	return res, err
}

func (s *ReservationService) book(ctx context.Context, input BookInput) (*reservation.Reservation, error) {
	if input.RequestingParty == "" {
		return nil, reservation.ErrRequestingPartyRequired
	}
	if len(input.Seats) == 0 {
		return nil, reservation.ErrSeatsRequired
	}

	// ホールの寸法は予約のたびに読み直す
	geometry, err := s.catalog.HallGeometry(ctx, input.PerformanceID)
	if err != nil {
		if errors.Is(err, performance.ErrPerformanceNotFound) {
			return nil, err
		}
		return nil, reservation.StorageError("ホール寸法の取得", err)
	}

	var failures []reservation.SeatFailure
	for _, c := range input.Seats {
		if verr := seat.Validate(c, geometry); verr != nil {
			failures = append(failures, reservation.SeatFailure{Coordinate: c, Err: verr})
		}
	}
	if len(failures) > 0 {
		return nil, &reservation.ValidationError{Failures: failures}
	}

	if dups := seat.Duplicates(input.Seats); len(dups) > 0 {
		return nil, &reservation.DuplicateSeatError{Seats: dups}
	}

	return s.commit(ctx, reservation.Draft{
		PerformanceID:   input.PerformanceID,
		RequestingParty: input.RequestingParty,
		Seats:           input.Seats,
	})
}

// commit は呼び出し元のキャンセルから切り離し、commitTimeout で打ち切る
func (s *ReservationService) commit(ctx context.Context, d reservation.Draft) (*reservation.Reservation, error) {
	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.commitTimeout)
	defer cancel()

	start := time.Now()
	res, err := s.store.TryCommit(commitCtx, d)
	if err != nil && !isDomainOutcome(err) {
		err = reservation.StorageError("予約コミット", err)
	}
	if s.metrics != nil {
		s.metrics.CommitDuration.WithLabelValues(BookingStatus(err)).Observe(time.Since(start).Seconds())
	}
	return res, err
}

// isDomainOutcome はストアが返しうる業務上の結果かを返す
func isDomainOutcome(err error) bool {
	return errors.Is(err, reservation.ErrSeatConflict) ||
		errors.Is(err, reservation.ErrStorageUnavailable) ||
		errors.Is(err, performance.ErrPerformanceNotFound)
}

// BookingStatus は予約結果をメトリクスのラベル値に変換する
func BookingStatus(err error) string {
	switch {
	case err == nil:
		return metrics.StatusSuccess
	case errors.Is(err, reservation.ErrSeatConflict):
		return metrics.StatusConflict
	case errors.Is(err, reservation.ErrValidationFailed):
		return metrics.StatusValidationFailed
	case errors.Is(err, reservation.ErrDuplicateSeatInRequest):
		return metrics.StatusDuplicateSeat
	case errors.Is(err, performance.ErrPerformanceNotFound):
		return metrics.StatusUnknownPerformance
	case errors.Is(err, reservation.ErrReservationNotFound):
		return metrics.StatusNotFound
	case errors.Is(err, reservation.ErrStorageUnavailable):
		return metrics.StatusStorageUnavailable
	default:
		return metrics.StatusInvalidRequest
	}
}

// Cancel は予約と全チケットをまとめて取り消す
func (s *ReservationService) Cancel(ctx context.Context, id string) error {
	log := logger.FromContext(ctx).With(zap.String("reservation_id", id))

	err := s.cancel(ctx, id)
	if s.metrics != nil {
		s.metrics.CancellationsTotal.WithLabelValues(BookingStatus(err)).Inc()
	}
	switch {
	case err == nil:
		log.Info("予約をキャンセルしました")
	case errors.Is(err, reservation.ErrReservationNotFound):
		log.Debug("キャンセル対象の予約がありません")
	default:
		log.Error("予約のキャンセルに失敗しました", zap.Error(err))
	}
	return err
}

func (s *ReservationService) cancel(ctx context.Context, id string) error {
	res, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}

	cancelCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.commitTimeout)
	defer cancel()
	if err := s.store.Cancel(cancelCtx, id); err != nil {
		return err
	}
	s.invalidate(ctx, res.PerformanceID)
	return nil
}

func (s *ReservationService) GetReservation(ctx context.Context, id string) (*reservation.Reservation, error) {
	return s.store.GetByID(ctx, id)
}

// ListReservations は予約者自身の予約を新しい順に返す
func (s *ReservationService) ListReservations(ctx context.Context, party string, limit, offset int) ([]*reservation.Reservation, error) {
	if party == "" {
		return nil, reservation.ErrRequestingPartyRequired
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListByRequestingParty(ctx, party, limit, offset)
}

func (s *ReservationService) invalidate(ctx context.Context, performanceID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(context.WithoutCancel(ctx), performanceID); err != nil {
		logger.FromContext(ctx).Warn("キャッシュ無効化エラー",
			zap.String("performance_id", performanceID), zap.Error(err))
	}
}
