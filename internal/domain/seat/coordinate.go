package seat

import (
	"fmt"
	"sort"
)

// Coordinate はホール内の物理座席（列, 座席番号）を表す
type Coordinate struct {
	Row  int `json:"row"`
	Seat int `json:"seat"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Seat)
}

// Less は (列, 座席番号) の順で比較する
func (c Coordinate) Less(o Coordinate) bool {
	if c.Row != o.Row {
		return c.Row < o.Row
	}
	return c.Seat < o.Seat
}

// Sort は座席を (列, 座席番号) 順に並べ替える
func Sort(coords []Coordinate) {
	sort.Slice(coords, func(i, j int) bool { return coords[i].Less(coords[j]) })
}

// Duplicates はリクエスト内で重複している座席を返す（初出順、各座席1回）
func Duplicates(coords []Coordinate) []Coordinate {
	seen := make(map[Coordinate]int, len(coords))
	var dups []Coordinate
	for _, c := range coords {
		seen[c]++
		if seen[c] == 2 {
			dups = append(dups, c)
		}
	}
	return dups
}
