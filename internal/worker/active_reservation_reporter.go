package worker

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-theatre-seat-reservation/internal/pkg/logger"
)

// ReservationCounter は保存されている予約数を返す
type ReservationCounter interface {
	CountReservations(ctx context.Context) (int, error)
}

// ActiveReservationReporter は予約数を定期的に数えてゲージに反映するワーカー
type ActiveReservationReporter struct {
	counter  ReservationCounter
	gauge    prometheus.Gauge
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewActiveReservationReporter は新しいレポーターを作成
func NewActiveReservationReporter(counter ReservationCounter, gauge prometheus.Gauge, interval time.Duration) *ActiveReservationReporter {
	return &ActiveReservationReporter{
		counter:  counter,
		gauge:    gauge,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start はレポーターを開始（起動直後に1回反映してから定期実行）
func (r *ActiveReservationReporter) Start(ctx context.Context) {
	logger.Info("予約数レポーター開始", zap.Duration("interval", r.interval))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	defer close(r.doneCh)

	r.report(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Info("予約数レポーター停止（コンテキストキャンセル）")
			return
		case <-r.stopCh:
			logger.Info("予約数レポーター停止（シグナル受信）")
			return
		case <-ticker.C:
			r.report(ctx)
		}
	}
}

// Stop はレポーターを停止
func (r *ActiveReservationReporter) Stop() {
	close(r.stopCh)
	<-r.doneCh
}

// report は予約数を取得してゲージを更新する（失敗してもワーカーは止めない）
func (r *ActiveReservationReporter) report(ctx context.Context) {
	n, err := r.counter.CountReservations(ctx)
	if err != nil {
		logger.Get().Error("予約数の取得に失敗", zap.Error(err))
		return
	}
	r.gauge.Set(float64(n))
	logger.Get().Debug("予約数を更新", zap.Int("count", n))
}
