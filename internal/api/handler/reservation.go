package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-theatre-seat-reservation/internal/application"
	"github.com/sanosuguru/go-theatre-seat-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-theatre-seat-reservation/internal/domain/seat"
)

const headerUserID = "X-User-ID"

type ReservationHandler struct {
	service ReservationServiceInterface
}

func NewReservationHandler(s ReservationServiceInterface) *ReservationHandler {
	return &ReservationHandler{service: s}
}

type TicketRequest struct {
	Row  int `json:"row" example:"5"`
	Seat int `json:"seat" example:"5"`
}

type CreateReservationRequest struct {
	PerformanceID string          `json:"performance_id" validate:"required" example:"550e8400-e29b-41d4-a716-446655440000"`
	Tickets       []TicketRequest `json:"tickets" validate:"required,min=1"`
}

type TicketResponse struct {
	ID   string `json:"id"`
	Row  int    `json:"row"`
	Seat int    `json:"seat"`
}

type ReservationResponse struct {
	ID              string           `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	PerformanceID   string           `json:"performance_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	RequestingParty string           `json:"requesting_party" example:"user-123"`
	Tickets         []TicketResponse `json:"tickets"`
	CreatedAt       time.Time        `json:"created_at"`
}

func toReservationResponse(r *reservation.Reservation) ReservationResponse {
	tickets := make([]TicketResponse, len(r.Tickets))
	for i, t := range r.Tickets {
		tickets[i] = TicketResponse{ID: t.ID, Row: t.Row, Seat: t.Seat}
	}
	return ReservationResponse{
		ID:              r.ID,
		PerformanceID:   r.PerformanceID,
		RequestingParty: r.RequestingParty,
		Tickets:         tickets,
		CreatedAt:       r.CreatedAt,
	}
}

func requestingParty(c echo.Context) (string, error) {
	party := c.Request().Header.Get(headerUserID)
	if party == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "ユーザーIDが必要です")
	}
	return party, nil
}

// Create godoc
// @Summary 座席を予約
// @Description 指定した全座席をまとめて予約します（1席でも確保できなければ何も予約しません）
// @Tags reservations
// @Accept json
// @Produce json
// @Param X-User-ID header string true "ユーザーID"
// @Param request body CreateReservationRequest true "予約情報"
// @Success 201 {object} ReservationResponse
// @Failure 400 {object} api.ErrorResponse "範囲外・重複座席"
// @Failure 401 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse "公演が存在しない"
// @Failure 409 {object} api.ErrorResponse "座席が既に予約済み"
// @Failure 503 {object} api.ErrorResponse
// @Router /reservations [post]
func (h *ReservationHandler) Create(c echo.Context) error {
	party, err := requestingParty(c)
	if err != nil {
		return err
	}
	var req CreateReservationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	seats := make([]seat.Coordinate, len(req.Tickets))
	for i, t := range req.Tickets {
		seats[i] = seat.Coordinate{Row: t.Row, Seat: t.Seat}
	}
	r, err := h.service.Book(c.Request().Context(), application.BookInput{
		PerformanceID:   req.PerformanceID,
		RequestingParty: party,
		Seats:           seats,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toReservationResponse(r))
}

// GetByID godoc
// @Summary 予約を取得
// @Tags reservations
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} ReservationResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /reservations/{id} [get]
func (h *ReservationHandler) GetByID(c echo.Context) error {
	r, err := h.service.GetReservation(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReservationResponse(r))
}

// List godoc
// @Summary 自分の予約一覧を取得
// @Tags reservations
// @Produce json
// @Param X-User-ID header string true "ユーザーID"
// @Param limit query int false "取得件数（最大100）" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} ReservationResponse
// @Failure 401 {object} api.ErrorResponse
// @Router /reservations [get]
func (h *ReservationHandler) List(c echo.Context) error {
	party, err := requestingParty(c)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	reservations, err := h.service.ListReservations(c.Request().Context(), party, limit, offset)
	if err != nil {
		return err
	}
	resp := make([]ReservationResponse, len(reservations))
	for i, r := range reservations {
		resp[i] = toReservationResponse(r)
	}
	return c.JSON(http.StatusOK, resp)
}

// Cancel godoc
// @Summary 予約をキャンセル
// @Description 予約と全チケットを取り消し、座席を解放します
// @Tags reservations
// @Param id path string true "予約ID"
// @Success 204
// @Failure 404 {object} api.ErrorResponse
// @Router /reservations/{id} [delete]
func (h *ReservationHandler) Cancel(c echo.Context) error {
	if err := h.service.Cancel(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
