package handler

import (
	"context"

	"github.com/sanosuguru/go-theatre-seat-reservation/internal/application"
	"github.com/sanosuguru/go-theatre-seat-reservation/internal/domain/reservation"
)

// ReservationServiceInterface は予約サービスのインターフェース
type ReservationServiceInterface interface {
	Book(ctx context.Context, input application.BookInput) (*reservation.Reservation, error)
	Cancel(ctx context.Context, id string) error
	GetReservation(ctx context.Context, id string) (*reservation.Reservation, error)
	ListReservations(ctx context.Context, party string, limit, offset int) ([]*reservation.Reservation, error)
}

// AvailabilityServiceInterface は空席照会サービスのインターフェース
type AvailabilityServiceInterface interface {
	SeatAvailability(ctx context.Context, performanceID string) (*application.SeatAvailability, error)
	AvailableCount(ctx context.Context, performanceID string) (int, error)
}
