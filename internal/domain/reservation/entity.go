package reservation

import (
	"time"

	"github.com/sanosuguru/go-theatre-seat-reservation/internal/domain/seat"
)

// Reservation は1つの公演に対する1回の予約取引を表す
// チケット集合は空でなく、常にまとめて書き込まれる
type Reservation struct {
	ID              string
	PerformanceID   string
	RequestingParty string
	CreatedAt       time.Time
	Tickets         []Ticket
}

// Ticket は予約内で確保された1座席を表す
type Ticket struct {
	ID            string
	ReservationID string
	PerformanceID string
	Row           int
	Seat          int
}

// Coordinate はチケットの座席位置を返す
func (t Ticket) Coordinate() seat.Coordinate {
	return seat.Coordinate{Row: t.Row, Seat: t.Seat}
}

// Seats は予約に含まれる座席を返す
func (r *Reservation) Seats() []seat.Coordinate {
	coords := make([]seat.Coordinate, len(r.Tickets))
	for i, t := range r.Tickets {
		coords[i] = t.Coordinate()
	}
	return coords
}

// Draft はストアへのコミット要求
// 座席はジオメトリ検証と重複除去が済んでいる前提
type Draft struct {
	PerformanceID   string
	RequestingParty string
	Seats           []seat.Coordinate
}

// Validate はドラフトの必須項目を検証する
func (d Draft) Validate() error {
	if d.PerformanceID == "" {
		return ErrPerformanceIDRequired
	}
	if d.RequestingParty == "" {
		return ErrRequestingPartyRequired
	}
	if len(d.Seats) == 0 {
		return ErrSeatsRequired
	}
	return nil
}

// NewReservation はドラフトからチケット付きの予約を組み立てる（ID は呼び出し側で付与）
func NewReservation(id string, d Draft, createdAt time.Time) *Reservation {
	tickets := make([]Ticket, len(d.Seats))
	for i, c := range d.Seats {
		tickets[i] = Ticket{
			ReservationID: id,
			PerformanceID: d.PerformanceID,
			Row:           c.Row,
			Seat:          c.Seat,
		}
	}
	return &Reservation{
		ID:              id,
		PerformanceID:   d.PerformanceID,
		RequestingParty: d.RequestingParty,
		CreatedAt:       createdAt,
		Tickets:         tickets,
	}
}
