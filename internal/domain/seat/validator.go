package seat

import (
	"github.com/sanosuguru/go-theatre-seat-reservation/internal/domain/hall"
)

// Validate は座席がホールのグリッド内にあるかを検証する
// 列を先に検査し、両方が範囲外の場合は列の違反を返す
func Validate(c Coordinate, g hall.Geometry) *OutOfRangeError {
	if c.Row < 1 || c.Row > g.Rows {
		return &OutOfRangeError{Field: FieldRow, Value: c.Row, Min: 1, Max: g.Rows}
	}
	if c.Seat < 1 || c.Seat > g.SeatsPerRow {
		return &OutOfRangeError{Field: FieldSeat, Value: c.Seat, Min: 1, Max: g.SeatsPerRow}
	}
	return nil
}
