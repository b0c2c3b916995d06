package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-theatre-seat-reservation/internal/api"
	"github.com/sanosuguru/go-theatre-seat-reservation/internal/api/handler"
	"github.com/sanosuguru/go-theatre-seat-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-theatre-seat-reservation/internal/application"
	"github.com/sanosuguru/go-theatre-seat-reservation/internal/config"
	"github.com/sanosuguru/go-theatre-seat-reservation/internal/infrastructure/postgres"
	redisinfra "github.com/sanosuguru/go-theatre-seat-reservation/internal/infrastructure/redis"
	"github.com/sanosuguru/go-theatre-seat-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-theatre-seat-reservation/internal/pkg/metrics"
	"github.com/sanosuguru/go-theatre-seat-reservation/internal/worker"
)

func main() {
	// .env があれば読み込む（本番では環境変数を直接設定する）
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.Init(cfg.Env)
	defer logger.Sync()

	if err := run(cfg); err != nil {
		log.Fatal("起動エラー", zap.Error(err))
	}
}

func run(cfg *config.Config) error {
	// DB接続
	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.RunMigrations(db.DB, cfg.Database.MigrationsPath); err != nil {
		return err
	}

	// Redis接続（空席数キャッシュ。落ちていても予約は受け付ける）
	redisClient := redisinfra.NewClient(&cfg.Redis)
	defer redisClient.Close()
	if err := redisinfra.Ping(context.Background(), redisClient); err != nil {
		logger.Warn("Redisに接続できません。キャッシュなしで起動します", zap.Error(err))
	}

	m := metrics.Init()

	// サービス初期化
	catalog := postgres.NewPerformanceRepository(db)
	store := postgres.NewReservationStore(db, postgres.NewTxManager(db))
	cache := redisinfra.NewAvailabilityCache(redisClient)

	reservationService := application.NewReservationService(catalog, store, cache, m, cfg.Reservation.CommitTimeout)
	availabilityService := application.NewAvailabilityService(catalog, store, cache, cfg.Reservation.SeatCacheTTL)

	routes := handler.Routes{
		Reservation: handler.NewReservationHandler(reservationService),
		Performance: handler.NewPerformanceHandler(availabilityService),
		Health: handler.NewHealthHandler(map[string]handler.HealthCheck{
			"postgres": func(ctx context.Context) error { return postgres.Ping(ctx, db) },
			"redis":    func(ctx context.Context) error { return redisinfra.Ping(ctx, redisClient) },
		}),
	}

	// Echo インスタンス作成
	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	middleware.SetupMiddleware(e, m)
	routes.Register(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), middleware.MetricsBasicAuth(cfg.Metrics))

	// バックグラウンドワーカー
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reporter := worker.NewActiveReservationReporter(store, m.ActiveReservations, cfg.Reservation.GaugeRefreshInterval)
	go reporter.Start(ctx)

	// サーバー起動
	errCh := make(chan error, 1)
	go func() {
		logger.Info("サーバー起動", zap.String("port", cfg.Server.Port))
		if err := e.Start(fmt.Sprintf(":%s", cfg.Server.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// シグナル待機
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("サーバー起動エラー: %w", err)
	}

	logger.Info("サーバーをシャットダウンしています...")
	reporter.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("サーバーシャットダウンエラー: %w", err)
	}

	logger.Info("サーバーが正常にシャットダウンしました")
	return nil
}
