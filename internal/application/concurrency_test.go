package application

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-theatre-seat-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-theatre-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-theatre-seat-reservation/internal/infrastructure/memory"
)

// randomSeats は 10x15 のグリッドから重複なしで n 席を選ぶ
func randomSeats(r *rand.Rand, n int, exclude map[seat.Coordinate]bool) []seat.Coordinate {
	var out []seat.Coordinate
	for len(out) < n {
		c := seat.Coordinate{Row: r.Intn(10) + 1, Seat: r.Intn(15) + 1}
		if exclude[c] {
			continue
		}
		exclude[c] = true
		out = append(out, c)
	}
	return out
}

// TestConcurrentBooking_OverlappingSeats は重なる座席を同時に予約したとき
// 一方だけが成功し、もう一方は重なった座席を示して失敗することを1000回確認する
func TestConcurrentBooking_OverlappingSeats(t *testing.T) {
	ctx := context.Background()
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	for run := 0; run < 1000; run++ {
		used := map[seat.Coordinate]bool{}
		shared := randomSeats(r, r.Intn(3)+1, used)
		a := append(append([]seat.Coordinate{}, shared...), randomSeats(r, r.Intn(3), used)...)
		b := append(append([]seat.Coordinate{}, shared...), randomSeats(r, r.Intn(3), used)...)
		r.Shuffle(len(a), func(i, j int) { a[i], a[j] = a[j], a[i] })
		r.Shuffle(len(b), func(i, j int) { b[i], b[j] = b[j], b[i] })

		store := memory.NewReservationStore()
		svc := NewReservationService(newCatalog(), store, nil, nil, time.Second)

		var wg sync.WaitGroup
		start := make(chan struct{})
		errs := make([]error, 2)
		for i, seats := range [][]seat.Coordinate{a, b} {
			wg.Add(1)
			go func(i int, seats []seat.Coordinate) {
				defer wg.Done()
				<-start
				_, errs[i] = svc.Book(ctx, BookInput{
					PerformanceID:   testPerformanceID,
					RequestingParty: "party",
					Seats:           seats,
				})
			}(i, seats)
		}
		close(start)
		wg.Wait()

		var successes int
		var conflict *reservation.ConflictError
		for _, err := range errs {
			if err == nil {
				successes++
				continue
			}
			require.ErrorAs(t, err, &conflict, "run %d", run)
		}
		require.Equal(t, 1, successes, "run %d", run)

		want := append([]seat.Coordinate{}, shared...)
		seat.Sort(want)
		require.Equal(t, want, conflict.Seats, "run %d", run)

		// 確保済み座席は勝者の座席と一致し、同じ座席が2回現れない
		taken, err := store.TakenSeats(ctx, testPerformanceID)
		require.NoError(t, err)
		winner := a
		if errs[0] != nil {
			winner = b
		}
		assert.Len(t, taken, len(winner))
		assert.Empty(t, seat.Duplicates(taken))
	}
}

// TestConcurrentBooking_ManyClients は同じ座席を多数が奪い合っても1件だけ確定することを確認する
func TestConcurrentBooking_ManyClients(t *testing.T) {
	ctx := context.Background()
	svc := NewReservationService(newCatalog(), memory.NewReservationStore(), nil, nil, time.Second)

	const clients = 100
	var wg sync.WaitGroup
	var mu sync.Mutex
	var successes, conflicts int
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Book(ctx, book(seat.Coordinate{Row: 1, Seat: 1}, seat.Coordinate{Row: 1, Seat: 2}))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if assert.ErrorIs(t, err, reservation.ErrSeatConflict) {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, clients-1, conflicts)
}
