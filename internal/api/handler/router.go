package handler

import "github.com/labstack/echo/v4"

// Routes はAPIのハンドラー一式
type Routes struct {
	Reservation *ReservationHandler
	Performance *PerformanceHandler
	Health      *HealthHandler
}

// Register はルーティングを登録する
func (r Routes) Register(e *echo.Echo) {
	e.GET("/health", r.Health.Check)

	v1 := e.Group("/api/v1")
	v1.GET("/health", r.Health.Check)

	v1.POST("/reservations", r.Reservation.Create)
	v1.GET("/reservations", r.Reservation.List)
	v1.GET("/reservations/:id", r.Reservation.GetByID)
	v1.DELETE("/reservations/:id", r.Reservation.Cancel)

	v1.GET("/performances/:id/seats", r.Performance.GetSeats)
	v1.GET("/performances/:id/seats/available/count", r.Performance.CountAvailable)
}
