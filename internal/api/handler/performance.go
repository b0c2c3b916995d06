package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-theatre-seat-reservation/internal/application"
	"github.com/sanosuguru/go-theatre-seat-reservation/internal/domain/seat"
)

type PerformanceHandler struct {
	service AvailabilityServiceInterface
}

func NewPerformanceHandler(s AvailabilityServiceInterface) *PerformanceHandler {
	return &PerformanceHandler{service: s}
}

type SeatAvailabilityResponse struct {
	PerformanceID string            `json:"performance_id"`
	PlayTitle     string            `json:"play_title"`
	ShowTime      time.Time         `json:"show_time"`
	Rows          int               `json:"rows"`
	SeatsInRow    int               `json:"seats_in_row"`
	Capacity      int               `json:"capacity"`
	TakenPlaces   []seat.Coordinate `json:"taken_places"`
	Available     int               `json:"tickets_available"`
}

func toSeatAvailabilityResponse(v *application.SeatAvailability) SeatAvailabilityResponse {
	return SeatAvailabilityResponse{
		PerformanceID: v.PerformanceID,
		PlayTitle:     v.PlayTitle,
		ShowTime:      v.ShowTime,
		Rows:          v.Rows,
		SeatsInRow:    v.SeatsPerRow,
		Capacity:      v.Capacity,
		TakenPlaces:   v.Taken,
		Available:     v.Available,
	}
}

// GetSeats godoc
// @Summary 公演の座席状況を取得
// @Tags performances
// @Produce json
// @Param id path string true "公演ID"
// @Success 200 {object} SeatAvailabilityResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /performances/{id}/seats [get]
func (h *PerformanceHandler) GetSeats(c echo.Context) error {
	v, err := h.service.SeatAvailability(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSeatAvailabilityResponse(v))
}

// CountAvailable godoc
// @Summary 公演の空席数を取得
// @Tags performances
// @Produce json
// @Param id path string true "公演ID"
// @Success 200 {object} map[string]int
// @Failure 404 {object} api.ErrorResponse
// @Router /performances/{id}/seats/available/count [get]
func (h *PerformanceHandler) CountAvailable(c echo.Context) error {
	n, err := h.service.AvailableCount(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"available_count": n})
}
