package e2e

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/sanosuguru/go-theatre-seat-reservation/internal/api"
	"github.com/sanosuguru/go-theatre-seat-reservation/internal/api/handler"
	"github.com/sanosuguru/go-theatre-seat-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-theatre-seat-reservation/internal/application"
	"github.com/sanosuguru/go-theatre-seat-reservation/internal/config"
	"github.com/sanosuguru/go-theatre-seat-reservation/internal/infrastructure/postgres"
	redisinfra "github.com/sanosuguru/go-theatre-seat-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-theatre-seat-reservation/internal/pkg/metrics"
)

var (
	testServer  *TestServer
	testDB      *sqlx.DB
	catalogRepo *postgres.PerformanceRepository
	redisClient *redis.Client
)

// TestMain はE2Eテストのエントリポイント
// パッケージ全体で1回だけサーバーを起動することで高速化
func TestMain(m *testing.M) {
	cfg := config.Load()

	// DB接続
	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		os.Exit(0) // DB未起動時はスキップ
	}
	if err := postgres.RunMigrations(db.DB, "../migrations"); err != nil {
		db.Close()
		os.Exit(0)
	}
	testDB = db

	// Redis接続（なければキャッシュなしで実行）
	var cache application.AvailabilityCache
	rc := redisinfra.NewClient(&cfg.Redis)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	if err := redisinfra.Ping(ctx, rc); err == nil {
		redisClient = rc
		cache = redisinfra.NewAvailabilityCache(rc)
	} else {
		rc.Close()
	}
	cancel()

	// サービス初期化
	catalogRepo = postgres.NewPerformanceRepository(db)
	store := postgres.NewReservationStore(db, postgres.NewTxManager(db))
	met := metrics.NewWithRegistry(prometheus.NewRegistry())

	reservationService := application.NewReservationService(catalogRepo, store, cache, met, cfg.Reservation.CommitTimeout)
	availabilityService := application.NewAvailabilityService(catalogRepo, store, cache, cfg.Reservation.SeatCacheTTL)

	// Echo セットアップ
	e := echo.New()
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	middleware.SetupMiddleware(e, met)
	handler.Routes{
		Reservation: handler.NewReservationHandler(reservationService),
		Performance: handler.NewPerformanceHandler(availabilityService),
		Health:      handler.NewHealthHandler(map[string]handler.HealthCheck{"postgres": db.PingContext}),
	}.Register(e)

	testServer = &TestServer{Echo: e}

	// テスト実行
	code := m.Run()

	// 最終クリーンアップ
	cleanupTables()
	if redisClient != nil {
		redisClient.Close()
	}
	db.Close()

	os.Exit(code)
}

// cleanupTables はテーブルをクリーンアップ
func cleanupTables() {
	testDB.Exec("TRUNCATE TABLE tickets, reservations, performances, theatre_halls CASCADE")
	if redisClient != nil {
		iter := redisClient.Scan(context.Background(), 0, "seats:available:*", 100).Iterator()
		for iter.Next(context.Background()) {
			redisClient.Del(context.Background(), iter.Val())
		}
	}
}

// getTestServer は共有サーバーを取得（テスト前にテーブルをクリーンアップ）
func getTestServer(t *testing.T) *TestServer {
	t.Helper()
	if testServer == nil {
		t.Skip("テスト環境が利用できません")
	}
	cleanupTables()
	return testServer
}
