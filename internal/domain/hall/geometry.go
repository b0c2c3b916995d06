package hall

import "errors"

var (
	ErrInvalidRows        = errors.New("列数は1以上である必要があります")
	ErrInvalidSeatsPerRow = errors.New("1列あたりの座席数は1以上である必要があります")
)

// Geometry はホールの座席グリッド（列数 × 1列あたりの座席数）を表す
// 公演に使われている間は不変として扱う
type Geometry struct {
	Rows        int
	SeatsPerRow int
}

// NewGeometry は検証済みの Geometry を作成する
func NewGeometry(rows, seatsPerRow int) (Geometry, error) {
	g := Geometry{Rows: rows, SeatsPerRow: seatsPerRow}
	if err := g.Validate(); err != nil {
		return Geometry{}, err
	}
	return g, nil
}

// Capacity はホールの総座席数を返す
func (g Geometry) Capacity() int {
	return g.Rows * g.SeatsPerRow
}

// Validate はグリッドの寸法を検証する
func (g Geometry) Validate() error {
	if g.Rows <= 0 {
		return ErrInvalidRows
	}
	if g.SeatsPerRow <= 0 {
		return ErrInvalidSeatsPerRow
	}
	return nil
}
