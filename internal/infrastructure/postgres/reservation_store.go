package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sanosuguru/go-theatre-seat-reservation/internal/domain/performance"
	"github.com/sanosuguru/go-theatre-seat-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-theatre-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-theatre-seat-reservation/internal/domain/transaction"
)

// ticketRow は予約とチケットを結合した1行
type ticketRow struct {
	ReservationID   string    `db:"reservation_id"`
	RequestingParty string    `db:"requesting_party"`
	CreatedAt       time.Time `db:"created_at"`
	TicketID        string    `db:"ticket_id"`
	PerformanceID   string    `db:"performance_id"`
	Row             int       `db:"row"`
	Seat            int       `db:"seat"`
}

type insertedTicket struct {
	ID   string `db:"id"`
	Row  int    `db:"row"`
	Seat int    `db:"seat"`
}

// ReservationStore は reservation.Store の PostgreSQL 実装
// 座席の一意性は tickets の一意制約 (performance_id, row, seat) に任せ、
// 行ロックを取らずに書き込みを試みる
type ReservationStore struct {
	db  *sqlx.DB
	txm transaction.Manager
}

func NewReservationStore(db *sqlx.DB, txm transaction.Manager) *ReservationStore {
	return &ReservationStore{db: db, txm: txm}
}

const selectTicketRows = `
SELECT r.id AS reservation_id, r.requesting_party, r.created_at,
       t.id AS ticket_id, t.performance_id, t."row", t.seat
FROM reservations r
JOIN tickets t ON t.reservation_id = r.id`

// TryCommit は予約1件とチケットN件を1トランザクションで書き込む
// 既に確保済みの座席は ON CONFLICT DO NOTHING で弾かれ、
// 返ってこなかった座席が競合座席となる（その場合はロールバック）
func (s *ReservationStore) TryCommit(ctx context.Context, d reservation.Draft) (*reservation.Reservation, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	// 書き込み順を揃えて同時実行時のデッドロックを避ける
	ordered := append([]seat.Coordinate(nil), d.Seats...)
	seat.Sort(ordered)
	rows := make([]int64, len(ordered))
	cols := make([]int64, len(ordered))
	for i, c := range ordered {
		rows[i] = int64(c.Row)
		cols[i] = int64(c.Seat)
	}

	var res *reservation.Reservation
	err := transaction.Run(ctx, s.txm, func(tx transaction.Tx) error {
		sqlTx := UnwrapTx(tx)

		var head struct {
			ID        string    `db:"id"`
			CreatedAt time.Time `db:"created_at"`
		}
		if err := sqlTx.GetContext(ctx, &head,
			`INSERT INTO reservations (requesting_party) VALUES ($1) RETURNING id, created_at`,
			d.RequestingParty,
		); err != nil {
			return err
		}

		var inserted []insertedTicket
		if err := sqlTx.SelectContext(ctx, &inserted, `
			INSERT INTO tickets (reservation_id, performance_id, "row", seat)
			SELECT $1, $2::uuid, t.r, t.s
			FROM unnest($3::int[], $4::int[]) AS t(r, s)
			ON CONFLICT (performance_id, "row", seat) DO NOTHING
			RETURNING id, "row", seat`,
			head.ID, d.PerformanceID, pq.Array(rows), pq.Array(cols),
		); err != nil {
			return err
		}

		if len(inserted) < len(ordered) {
			return &reservation.ConflictError{
				PerformanceID: d.PerformanceID,
				Seats:         missingSeats(ordered, inserted),
			}
		}

		res = reservation.NewReservation(head.ID, d, head.CreatedAt)
		ids := make(map[seat.Coordinate]string, len(inserted))
		for _, t := range inserted {
			ids[seat.Coordinate{Row: t.Row, Seat: t.Seat}] = t.ID
		}
		for i := range res.Tickets {
			res.Tickets[i].ID = ids[res.Tickets[i].Coordinate()]
		}
		return nil
	})
	if err == nil {
		return res, nil
	}

	var conflict *reservation.ConflictError
	switch {
	case errors.As(err, &conflict):
		return nil, conflict
	case isForeignKeyViolation(err), isInvalidID(err):
		return nil, performance.ErrPerformanceNotFound
	case isUniqueViolation(err):
		// 制約の遅延検査などで一意制約違反が直接返った場合は改めて競合座席を調べる
		return nil, s.conflictFromStore(d.PerformanceID, ordered, err)
	default:
		return nil, reservation.StorageError("予約コミット", err)
	}
}

// conflictFromStore は確保済み座席を読み直して ConflictError を組み立てる
func (s *ReservationStore) conflictFromStore(performanceID string, requested []seat.Coordinate, cause error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	taken, err := s.TakenSeats(ctx, performanceID)
	if err != nil {
		return reservation.StorageError("競合座席の取得", cause)
	}
	takenSet := make(map[seat.Coordinate]struct{}, len(taken))
	for _, c := range taken {
		takenSet[c] = struct{}{}
	}
	var conflicts []seat.Coordinate
	for _, c := range requested {
		if _, ok := takenSet[c]; ok {
			conflicts = append(conflicts, c)
		}
	}
	if len(conflicts) == 0 {
		return reservation.StorageError("予約コミット", cause)
	}
	return &reservation.ConflictError{PerformanceID: performanceID, Seats: conflicts}
}

// missingSeats は要求した座席のうち挿入されなかったものを (列, 座席番号) 順で返す
func missingSeats(requested []seat.Coordinate, inserted []insertedTicket) []seat.Coordinate {
	got := make(map[seat.Coordinate]struct{}, len(inserted))
	for _, t := range inserted {
		got[seat.Coordinate{Row: t.Row, Seat: t.Seat}] = struct{}{}
	}
	var missing []seat.Coordinate
	for _, c := range requested {
		if _, ok := got[c]; !ok {
			missing = append(missing, c)
		}
	}
	seat.Sort(missing)
	return missing
}

// Cancel は予約を削除する（チケットは ON DELETE CASCADE で同時に消える）
func (s *ReservationStore) Cancel(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = $1`, id)
	if err != nil {
		if isInvalidID(err) {
			return reservation.ErrReservationNotFound
		}
		return reservation.StorageError("予約キャンセル", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return reservation.StorageError("予約キャンセル", err)
	}
	if n == 0 {
		return reservation.ErrReservationNotFound
	}
	return nil
}

func (s *ReservationStore) GetByID(ctx context.Context, id string) (*reservation.Reservation, error) {
	var rows []ticketRow
	query := selectTicketRows + ` WHERE r.id = $1 ORDER BY t."row", t.seat`
	if err := s.db.SelectContext(ctx, &rows, query, id); err != nil {
		if isInvalidID(err) {
			return nil, reservation.ErrReservationNotFound
		}
		return nil, reservation.StorageError("予約取得", err)
	}
	list := groupRows(rows)
	if len(list) == 0 {
		return nil, reservation.ErrReservationNotFound
	}
	return list[0], nil
}

func (s *ReservationStore) ListByRequestingParty(ctx context.Context, party string, limit, offset int) ([]*reservation.Reservation, error) {
	var rows []ticketRow
	query := `
WITH page AS (
    SELECT id FROM reservations
    WHERE requesting_party = $1
    ORDER BY created_at DESC, id DESC
    LIMIT $2 OFFSET $3
)` + selectTicketRows + `
JOIN page p ON p.id = r.id
ORDER BY r.created_at DESC, r.id DESC, t."row", t.seat`
	if err := s.db.SelectContext(ctx, &rows, query, party, limit, offset); err != nil {
		return nil, reservation.StorageError("予約一覧取得", err)
	}
	return groupRows(rows), nil
}

func (s *ReservationStore) TakenSeats(ctx context.Context, performanceID string) ([]seat.Coordinate, error) {
	coords := []seat.Coordinate{}
	if err := s.db.SelectContext(ctx, &coords,
		`SELECT "row", seat FROM tickets WHERE performance_id = $1 ORDER BY "row", seat`,
		performanceID,
	); err != nil {
		if isInvalidID(err) {
			return nil, performance.ErrPerformanceNotFound
		}
		return nil, reservation.StorageError("確保済み座席取得", err)
	}
	return coords, nil
}

func (s *ReservationStore) CountReservations(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM reservations`); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, reservation.StorageError("予約数取得", err)
	}
	return n, nil
}

// groupRows は並び順を保ったまま行を予約単位にまとめる
func groupRows(rows []ticketRow) []*reservation.Reservation {
	result := []*reservation.Reservation{}
	index := make(map[string]*reservation.Reservation)
	for _, row := range rows {
		res, ok := index[row.ReservationID]
		if !ok {
			res = &reservation.Reservation{
				ID:              row.ReservationID,
				PerformanceID:   row.PerformanceID,
				RequestingParty: row.RequestingParty,
				CreatedAt:       row.CreatedAt,
			}
			index[row.ReservationID] = res
			result = append(result, res)
		}
		res.Tickets = append(res.Tickets, reservation.Ticket{
			ID:            row.TicketID,
			ReservationID: row.ReservationID,
			PerformanceID: row.PerformanceID,
			Row:           row.Row,
			Seat:          row.Seat,
		})
	}
	return result
}

var _ reservation.Store = (*ReservationStore)(nil)
