package reservation

import (
	"context"

	"github.com/sanosuguru/go-theatre-seat-reservation/internal/domain/seat"
)

// Store は予約とチケットの永続化境界
// (公演, 列, 座席) の一意性を保証する唯一の場所
type Store interface {
	// TryCommit は予約1件とチケットN件を1つの単位として永続化する
	// 既に確保済みの座席が1つでもあれば *ConflictError を返し、何も書き込まない
	TryCommit(ctx context.Context, draft Draft) (*Reservation, error)

	// Cancel は予約と全チケットをまとめて削除し、座席を解放する
	Cancel(ctx context.Context, id string) error

	// GetByID はIDから予約を取得する
	GetByID(ctx context.Context, id string) (*Reservation, error)

	// ListByRequestingParty は予約者の予約一覧を新しい順に取得する
	ListByRequestingParty(ctx context.Context, party string, limit, offset int) ([]*Reservation, error)

	// TakenSeats は公演で確保済みの座席を (列, 座席番号) 順に返す
	TakenSeats(ctx context.Context, performanceID string) ([]seat.Coordinate, error)

	// CountReservations は保存されている予約数を返す
	CountReservations(ctx context.Context) (int, error)
}
