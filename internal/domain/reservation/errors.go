package reservation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sanosuguru/go-theatre-seat-reservation/internal/domain/seat"
)

// Reservation ドメインのエラー定義
var (
	ErrReservationNotFound     = errors.New("予約が見つかりません")
	ErrPerformanceIDRequired   = errors.New("公演IDは必須です")
	ErrRequestingPartyRequired = errors.New("予約者IDは必須です")
	ErrSeatsRequired           = errors.New("座席は1つ以上指定する必要があります")
	ErrValidationFailed        = errors.New("座席の検証に失敗しました")
	ErrDuplicateSeatInRequest  = errors.New("同じ座席がリクエスト内で重複しています")
	ErrSeatConflict            = errors.New("座席は既に予約されています")
	ErrStorageUnavailable      = errors.New("ストレージが利用できません")
)

// SeatFailure は1座席分の検証失敗
type SeatFailure struct {
	Coordinate seat.Coordinate
	Err        *seat.OutOfRangeError
}

// ValidationError はリクエスト内の全ての範囲外座席を保持する
type ValidationError struct {
	Failures []SeatFailure
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = fmt.Sprintf("%s: %s", f.Coordinate, f.Err)
	}
	return fmt.Sprintf("%s: %s", ErrValidationFailed, strings.Join(msgs, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// DuplicateSeatError はリクエスト内で重複した座席を保持する
type DuplicateSeatError struct {
	Seats []seat.Coordinate
}

func (e *DuplicateSeatError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDuplicateSeatInRequest, joinCoordinates(e.Seats))
}

func (e *DuplicateSeatError) Is(target error) bool {
	return target == ErrDuplicateSeatInRequest
}

// ConflictError はコミット時点で既に確保されていた座席を全て保持する
type ConflictError struct {
	PerformanceID string
	Seats         []seat.Coordinate
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s", ErrSeatConflict, joinCoordinates(e.Seats))
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrSeatConflict
}

// StorageError はストレージ障害を ErrStorageUnavailable として包む
func StorageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, op, err)
}

func joinCoordinates(coords []seat.Coordinate) string {
	parts := make([]string, len(coords))
	for i, c := range coords {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}
