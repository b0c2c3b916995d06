package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockReservationCounter はReservationCounterのモック
type MockReservationCounter struct {
	mock.Mock
}

func (m *MockReservationCounter) CountReservations(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func newGauge() prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{Name: "active_reservations_test"})
}

func TestNewActiveReservationReporter(t *testing.T) {
	r := NewActiveReservationReporter(new(MockReservationCounter), newGauge(), time.Minute)

	assert.NotNil(t, r)
	assert.Equal(t, time.Minute, r.interval)
	assert.NotNil(t, r.stopCh)
	assert.NotNil(t, r.doneCh)
}

func TestActiveReservationReporter_Report(t *testing.T) {
	t.Run("予約数がゲージに反映される", func(t *testing.T) {
		counter := new(MockReservationCounter)
		counter.On("CountReservations", mock.Anything).Return(7, nil)
		gauge := newGauge()
		r := NewActiveReservationReporter(counter, gauge, time.Minute)

		r.report(context.Background())

		assert.Equal(t, 7.0, testutil.ToFloat64(gauge))
		counter.AssertExpectations(t)
	})

	t.Run("取得失敗時はゲージを変更しない", func(t *testing.T) {
		counter := new(MockReservationCounter)
		counter.On("CountReservations", mock.Anything).Return(0, errors.New("db down"))
		gauge := newGauge()
		gauge.Set(3)
		r := NewActiveReservationReporter(counter, gauge, time.Minute)

		r.report(context.Background())

		assert.Equal(t, 3.0, testutil.ToFloat64(gauge))
	})
}

func TestActiveReservationReporter_StartStop(t *testing.T) {
	t.Run("Stopで停止する", func(t *testing.T) {
		var calls atomic.Int32
		counter := new(MockReservationCounter)
		counter.On("CountReservations", mock.Anything).Return(1, nil).Run(func(mock.Arguments) { calls.Add(1) })
		gauge := newGauge()
		r := NewActiveReservationReporter(counter, gauge, 10*time.Millisecond)

		go r.Start(context.Background())
		assert.Eventually(t, func() bool {
			return calls.Load() >= 2
		}, time.Second, 5*time.Millisecond)

		done := make(chan struct{})
		go func() {
			r.Stop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Stop がタイムアウトしました")
		}
		assert.Equal(t, 1.0, testutil.ToFloat64(gauge))
	})

	t.Run("コンテキストのキャンセルで停止する", func(t *testing.T) {
		counter := new(MockReservationCounter)
		counter.On("CountReservations", mock.Anything).Return(0, nil)
		r := NewActiveReservationReporter(counter, newGauge(), time.Hour)
		ctx, cancel := context.WithCancel(context.Background())

		go r.Start(ctx)
		cancel()

		select {
		case <-r.doneCh:
		case <-time.After(time.Second):
			t.Fatal("ワーカーが停止しませんでした")
		}
	})
}
