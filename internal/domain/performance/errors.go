package performance

import "errors"

// Performance ドメインのエラー定義
var (
	ErrPerformanceNotFound = errors.New("公演が見つかりません")
)
