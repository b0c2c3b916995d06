package performance

import (
	"time"

	"github.com/sanosuguru/go-theatre-seat-reservation/internal/domain/hall"
)

// Performance は特定のホールで特定の日時に行われる1回の公演を表す
// カタログ側で作成され、予約コアからは読み取り専用
type Performance struct {
	ID        string
	PlayTitle string
	HallID    string
	HallName  string
	ShowTime  time.Time
	Geometry  hall.Geometry
}
