package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-theatre-seat-reservation/internal/domain/performance"
	"github.com/sanosuguru/go-theatre-seat-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-theatre-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-theatre-seat-reservation/internal/pkg/logger"
)

// ErrorResponse はエラーレスポンスの統一フォーマット
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    int               `json:"code,omitempty"`
	Details []SeatErrorDetail `json:"details,omitempty"`
	Seats   []seat.Coordinate `json:"seats,omitempty"`
}

// SeatErrorDetail は範囲外座席1件分の詳細
type SeatErrorDetail struct {
	Row     int    `json:"row"`
	Seat    int    `json:"seat"`
	Field   string `json:"field"`
	Value   int    `json:"value"`
	Min     int    `json:"min"`
	Max     int    `json:"max"`
	Message string `json:"message"`
}

// CustomHTTPErrorHandler はカスタムエラーハンドラー
// ハンドラーが返したドメインエラーをHTTPステータスに変換する
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	resp := toErrorResponse(err)

	// エラーログを出力（5xx エラーの場合）
	if resp.Code >= 500 {
		logger.FromContext(c.Request().Context()).Error("サーバーエラー",
			zap.Int("status", resp.Code),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err),
		)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(resp.Code)
	} else {
		err = c.JSON(resp.Code, resp)
	}
	if err != nil {
		logger.Error("エラーレスポンス送信失敗", zap.Error(err))
	}
}

func toErrorResponse(err error) ErrorResponse {
	var (
		he       *echo.HTTPError
		verr     *reservation.ValidationError
		dup      *reservation.DuplicateSeatError
		conflict *reservation.ConflictError
	)

	switch {
	case errors.As(err, &he):
		message := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			message = m
		}
		return ErrorResponse{Error: message, Code: he.Code}

	case errors.As(err, &verr):
		details := make([]SeatErrorDetail, len(verr.Failures))
		for i, f := range verr.Failures {
			details[i] = SeatErrorDetail{
				Row:     f.Coordinate.Row,
				Seat:    f.Coordinate.Seat,
				Field:   string(f.Err.Field),
				Value:   f.Err.Value,
				Min:     f.Err.Min,
				Max:     f.Err.Max,
				Message: f.Err.Error(),
			}
		}
		return ErrorResponse{Error: reservation.ErrValidationFailed.Error(), Code: http.StatusBadRequest, Details: details}

	case errors.As(err, &dup):
		return ErrorResponse{Error: reservation.ErrDuplicateSeatInRequest.Error(), Code: http.StatusBadRequest, Seats: dup.Seats}

	case errors.As(err, &conflict):
		return ErrorResponse{Error: reservation.ErrSeatConflict.Error(), Code: http.StatusConflict, Seats: conflict.Seats}

	case errors.Is(err, performance.ErrPerformanceNotFound),
		errors.Is(err, reservation.ErrReservationNotFound):
		return ErrorResponse{Error: err.Error(), Code: http.StatusNotFound}

	case errors.Is(err, reservation.ErrPerformanceIDRequired),
		errors.Is(err, reservation.ErrRequestingPartyRequired),
		errors.Is(err, reservation.ErrSeatsRequired):
		return ErrorResponse{Error: err.Error(), Code: http.StatusBadRequest}

	case errors.Is(err, reservation.ErrStorageUnavailable):
		// 内部のエラー内容はクライアントに返さない
		return ErrorResponse{Error: reservation.ErrStorageUnavailable.Error(), Code: http.StatusServiceUnavailable}

	default:
		return ErrorResponse{Error: "内部サーバーエラー", Code: http.StatusInternalServerError}
	}
}
