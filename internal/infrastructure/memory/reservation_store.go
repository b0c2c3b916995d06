package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sanosuguru/go-theatre-seat-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-theatre-seat-reservation/internal/domain/seat"
)

// InsertHook はチケットを1枚書き込む直前に呼ばれる（障害注入用）
// エラーを返すとバッチ全体が取り消される
type InsertHook func(index int, c seat.Coordinate) error

// performanceSeats は1公演分の確保済み座席
// mu は確認と書き込みの間だけ保持する
type performanceSeats struct {
	mu    sync.Mutex
	taken map[seat.Coordinate]string // 座席 -> reservation_id
}

// ReservationStore は reservation.Store のインメモリ実装
// 公演ごとのミューテックスで確認と書き込みを不可分にする
type ReservationStore struct {
	perfMu       sync.Mutex
	performances map[string]*performanceSeats

	resMu        sync.RWMutex
	reservations map[string]*reservation.Reservation

	now        func() time.Time
	insertHook InsertHook
}

// Option は ReservationStore の設定
type Option func(*ReservationStore)

// WithInsertHook は障害注入用のフックを設定する
func WithInsertHook(h InsertHook) Option {
	return func(s *ReservationStore) { s.insertHook = h }
}

// WithClock は作成日時の時計を差し替える
func WithClock(now func() time.Time) Option {
	return func(s *ReservationStore) { s.now = now }
}

func NewReservationStore(opts ...Option) *ReservationStore {
	s := &ReservationStore{
		performances: make(map[string]*performanceSeats),
		reservations: make(map[string]*reservation.Reservation),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ReservationStore) seatsFor(performanceID string) *performanceSeats {
	s.perfMu.Lock()
	defer s.perfMu.Unlock()
	ps, ok := s.performances[performanceID]
	if !ok {
		ps = &performanceSeats{taken: make(map[seat.Coordinate]string)}
		s.performances[performanceID] = ps
	}
	return ps
}

// TryCommit は予約と全チケットを不可分に保存する
func (s *ReservationStore) TryCommit(ctx context.Context, d reservation.Draft) (*reservation.Reservation, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, reservation.StorageError("コミット", err)
	}

	ps := s.seatsFor(d.PerformanceID)
	ps.mu.Lock()
	defer ps.mu.Unlock()

	var conflicts []seat.Coordinate
	for _, c := range d.Seats {
		if _, taken := ps.taken[c]; taken {
			conflicts = append(conflicts, c)
		}
	}
	if len(conflicts) > 0 {
		seat.Sort(conflicts)
		return nil, &reservation.ConflictError{PerformanceID: d.PerformanceID, Seats: conflicts}
	}

	res := reservation.NewReservation(uuid.NewString(), d, s.now())
	staged := make([]seat.Coordinate, 0, len(d.Seats))
	for i, c := range d.Seats {
		if s.insertHook != nil {
			if err := s.insertHook(i, c); err != nil {
				for _, undo := range staged {
					delete(ps.taken, undo)
				}
				return nil, reservation.StorageError("チケット書き込み", err)
			}
		}
		ps.taken[c] = res.ID
		res.Tickets[i].ID = uuid.NewString()
		staged = append(staged, c)
	}

	s.resMu.Lock()
	s.reservations[res.ID] = res
	s.resMu.Unlock()

	return cloneReservation(res), nil
}

// Cancel は予約と全チケットをまとめて削除する
func (s *ReservationStore) Cancel(ctx context.Context, id string) error {
	s.resMu.RLock()
	res, ok := s.reservations[id]
	s.resMu.RUnlock()
	if !ok {
		return reservation.ErrReservationNotFound
	}

	ps := s.seatsFor(res.PerformanceID)
	ps.mu.Lock()
	defer ps.mu.Unlock()

	s.resMu.Lock()
	defer s.resMu.Unlock()
	// ロック取得までの間に別のキャンセルが完了している可能性がある
	if _, ok := s.reservations[id]; !ok {
		return reservation.ErrReservationNotFound
	}
	for _, t := range res.Tickets {
		delete(ps.taken, t.Coordinate())
	}
	delete(s.reservations, id)
	return nil
}

func (s *ReservationStore) GetByID(ctx context.Context, id string) (*reservation.Reservation, error) {
	s.resMu.RLock()
	defer s.resMu.RUnlock()
	res, ok := s.reservations[id]
	if !ok {
		return nil, reservation.ErrReservationNotFound
	}
	return cloneReservation(res), nil
}

func (s *ReservationStore) ListByRequestingParty(ctx context.Context, party string, limit, offset int) ([]*reservation.Reservation, error) {
	s.resMu.RLock()
	var matched []*reservation.Reservation
	for _, res := range s.reservations {
		if res.RequestingParty == party {
			matched = append(matched, cloneReservation(res))
		}
	}
	s.resMu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if offset >= len(matched) {
		return []*reservation.Reservation{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (s *ReservationStore) TakenSeats(ctx context.Context, performanceID string) ([]seat.Coordinate, error) {
	ps := s.seatsFor(performanceID)
	ps.mu.Lock()
	coords := make([]seat.Coordinate, 0, len(ps.taken))
	for c := range ps.taken {
		coords = append(coords, c)
	}
	ps.mu.Unlock()

	seat.Sort(coords)
	return coords, nil
}

func (s *ReservationStore) CountReservations(ctx context.Context) (int, error) {
	s.resMu.RLock()
	defer s.resMu.RUnlock()
	return len(s.reservations), nil
}

func cloneReservation(r *reservation.Reservation) *reservation.Reservation {
	c := *r
	c.Tickets = append([]reservation.Ticket(nil), r.Tickets...)
	return &c
}

var _ reservation.Store = (*ReservationStore)(nil)
