package performance

import (
	"context"

	"github.com/sanosuguru/go-theatre-seat-reservation/internal/domain/hall"
)

// Catalog は公演カタログの読み取りインターフェース
type Catalog interface {
	// GetByID はIDから公演を取得する
	GetByID(ctx context.Context, id string) (*Performance, error)

	// HallGeometry は公演が使用するホールの現在のグリッドを取得する
	// 予約のたびに呼び出し、リクエストをまたいでキャッシュしない
	HallGeometry(ctx context.Context, performanceID string) (hall.Geometry, error)
}
