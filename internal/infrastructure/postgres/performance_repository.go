package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-theatre-seat-reservation/internal/domain/hall"
	"github.com/sanosuguru/go-theatre-seat-reservation/internal/domain/performance"
)

type performanceRow struct {
	ID          string    `db:"id"`
	PlayTitle   string    `db:"play_title"`
	HallID      string    `db:"hall_id"`
	HallName    string    `db:"hall_name"`
	ShowTime    time.Time `db:"show_time"`
	Rows        int       `db:"rows"`
	SeatsPerRow int       `db:"seats_in_row"`
}

// PerformanceRepository は公演カタログの PostgreSQL 実装
type PerformanceRepository struct{ db *sqlx.DB }

func NewPerformanceRepository(db *sqlx.DB) *PerformanceRepository {
	return &PerformanceRepository{db: db}
}

const selectPerformance = `
SELECT p.id, p.play_title, p.show_time,
       h.id AS hall_id, h.name AS hall_name, h.rows, h.seats_in_row
FROM performances p
JOIN theatre_halls h ON h.id = p.theatre_hall_id
WHERE p.id = $1`

func (r *PerformanceRepository) GetByID(ctx context.Context, id string) (*performance.Performance, error) {
	var row performanceRow
	if err := r.db.GetContext(ctx, &row, selectPerformance, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
			return nil, performance.ErrPerformanceNotFound
		}
		return nil, err
	}
	return row.toEntity(), nil
}

// HallGeometry はホールの現在の行数・列数を毎回読み直す
func (r *PerformanceRepository) HallGeometry(ctx context.Context, performanceID string) (hall.Geometry, error) {
	p, err := r.GetByID(ctx, performanceID)
	if err != nil {
		return hall.Geometry{}, err
	}
	return p.Geometry, nil
}

// CreateHall はホールを登録しIDを返す
func (r *PerformanceRepository) CreateHall(ctx context.Context, name string, g hall.Geometry) (string, error) {
	if err := g.Validate(); err != nil {
		return "", err
	}
	var id string
	err := r.db.GetContext(ctx, &id,
		`INSERT INTO theatre_halls (name, rows, seats_in_row) VALUES ($1, $2, $3) RETURNING id`,
		name, g.Rows, g.SeatsPerRow,
	)
	return id, err
}

// CreatePerformance は公演を登録しIDを返す
func (r *PerformanceRepository) CreatePerformance(ctx context.Context, hallID, playTitle string, showTime time.Time) (string, error) {
	var id string
	err := r.db.GetContext(ctx, &id,
		`INSERT INTO performances (play_title, theatre_hall_id, show_time) VALUES ($1, $2, $3) RETURNING id`,
		playTitle, hallID, showTime,
	)
	return id, err
}

func (row *performanceRow) toEntity() *performance.Performance {
	return &performance.Performance{
		ID:        row.ID,
		PlayTitle: row.PlayTitle,
		HallID:    row.HallID,
		HallName:  row.HallName,
		ShowTime:  row.ShowTime,
		Geometry:  hall.Geometry{Rows: row.Rows, SeatsPerRow: row.SeatsPerRow},
	}
}

var _ performance.Catalog = (*PerformanceRepository)(nil)
