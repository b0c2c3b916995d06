package seat

import (
	"errors"
	"fmt"
)

// ErrSeatOutOfRange は座席がホールのグリッド外にあることを表す
var ErrSeatOutOfRange = errors.New("座席がホールの範囲外です")

// Field は範囲外となった軸
type Field string

const (
	FieldRow  Field = "row"
	FieldSeat Field = "seat"
)

// OutOfRangeError はどの軸がどの値で範囲外になったかを保持する
type OutOfRangeError struct {
	Field Field
	Value int
	Min   int
	Max   int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s=%d は範囲外です（有効範囲: %d〜%d）", e.Field, e.Value, e.Min, e.Max)
}

func (e *OutOfRangeError) Is(target error) bool {
	return target == ErrSeatOutOfRange
}
