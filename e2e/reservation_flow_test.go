package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-theatre-seat-reservation/internal/domain/hall"
)

// TestServer はE2Eテスト用のサーバー
type TestServer struct {
	Echo *echo.Echo
}

// Request はHTTPリクエストを実行
func (s *TestServer) Request(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

// createPerformance は rows x seatsInRow のホールで公演を作成する
func createPerformance(t *testing.T, rows, seatsInRow int) string {
	t.Helper()
	ctx := context.Background()
	hallID, err := catalogRepo.CreateHall(ctx, "グローブ座", hall.Geometry{Rows: rows, SeatsPerRow: seatsInRow})
	require.NoError(t, err)
	perfID, err := catalogRepo.CreatePerformance(ctx, hallID, "ハムレット", time.Now().Add(7*24*time.Hour))
	require.NoError(t, err)
	return perfID
}

func bookBody(performanceID string, seats ...[2]int) map[string]interface{} {
	tickets := make([]map[string]int, len(seats))
	for i, s := range seats {
		tickets[i] = map[string]int{"row": s[0], "seat": s[1]}
	}
	return map[string]interface{}{"performance_id": performanceID, "tickets": tickets}
}

// TestE2E_HealthCheck はヘルスチェックをテスト
func TestE2E_HealthCheck(t *testing.T) {
	server := getTestServer(t)

	rec := server.Request(http.MethodGet, "/health", nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
}

// TestE2E_CompleteReservationJourney は予約からキャンセル・再予約までの流れをテスト
func TestE2E_CompleteReservationJourney(t *testing.T) {
	server := getTestServer(t)
	perfID := createPerformance(t, 10, 15)
	user := map[string]string{"X-User-ID": "e2e-user-yamada"}
	var firstID string

	t.Run("1席の予約が成功する", func(t *testing.T) {
		rec := server.Request(http.MethodPost, "/api/v1/reservations", bookBody(perfID, [2]int{5, 5}), user)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		firstID = resp["id"].(string)
		tickets := resp["tickets"].([]interface{})
		require.Len(t, tickets, 1)
		assert.Equal(t, float64(5), tickets[0].(map[string]interface{})["row"])
	})

	t.Run("範囲外の列は400で詳細が返る", func(t *testing.T) {
		rec := server.Request(http.MethodPost, "/api/v1/reservations", bookBody(perfID, [2]int{11, 1}), user)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		details := resp["details"].([]interface{})
		require.Len(t, details, 1)
		d := details[0].(map[string]interface{})
		assert.Equal(t, "row", d["field"])
		assert.Equal(t, float64(11), d["value"])
		assert.Equal(t, float64(10), d["max"])
	})

	t.Run("リクエスト内の重複は400", func(t *testing.T) {
		rec := server.Request(http.MethodPost, "/api/v1/reservations", bookBody(perfID, [2]int{6, 6}, [2]int{6, 6}), user)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("一部競合は409で競合座席のみ返り残りも確保されない", func(t *testing.T) {
		rec := server.Request(http.MethodPost, "/api/v1/reservations", bookBody(perfID, [2]int{5, 5}, [2]int{6, 6}), user)
		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Contains(t, rec.Body.String(), `"seats":[{"row":5,"seat":5}]`)

		rec = server.Request(http.MethodGet, fmt.Sprintf("/api/v1/performances/%s/seats", perfID), nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"taken_places":[{"row":5,"seat":5}]`)
		assert.Contains(t, rec.Body.String(), `"tickets_available":149`)
	})

	t.Run("キャンセル後に再予約できる", func(t *testing.T) {
		rec := server.Request(http.MethodDelete, "/api/v1/reservations/"+firstID, nil, user)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = server.Request(http.MethodDelete, "/api/v1/reservations/"+firstID, nil, user)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = server.Request(http.MethodPost, "/api/v1/reservations", bookBody(perfID, [2]int{5, 5}), user)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("空席数は予約後の値を返す", func(t *testing.T) {
		rec := server.Request(http.MethodGet, fmt.Sprintf("/api/v1/performances/%s/seats/available/count", perfID), nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"available_count":149}`, rec.Body.String())
	})

	t.Run("自分の予約一覧を取得できる", func(t *testing.T) {
		rec := server.Request(http.MethodGet, "/api/v1/reservations?limit=10", nil, user)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp []map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Len(t, resp, 1)
	})
}

// TestE2E_UnknownPerformance は存在しない公演への予約をテスト
func TestE2E_UnknownPerformance(t *testing.T) {
	server := getTestServer(t)

	rec := server.Request(http.MethodPost, "/api/v1/reservations",
		bookBody("00000000-0000-0000-0000-000000000000", [2]int{1, 1}),
		map[string]string{"X-User-ID": "u"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// TestE2E_ConcurrentBooking は同じ座席への同時予約で1件だけ成功することをテスト
func TestE2E_ConcurrentBooking(t *testing.T) {
	server := getTestServer(t)
	perfID := createPerformance(t, 5, 5)

	const clients = 20
	var wg sync.WaitGroup
	codes := make([]int, clients)
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := server.Request(http.MethodPost, "/api/v1/reservations",
				bookBody(perfID, [2]int{3, 3}, [2]int{3, 4}),
				map[string]string{"X-User-ID": fmt.Sprintf("user-%d", i)})
			codes[i] = rec.Code
		}(i)
	}
	wg.Wait()

	var created, conflicts int
	for _, c := range codes {
		switch c {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicts++
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, clients-1, conflicts)
}
