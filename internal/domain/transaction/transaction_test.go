package transaction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockManager struct {
	mock.Mock
}

func (m *MockManager) Begin(ctx context.Context) (Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Tx), args.Error(1)
}

type MockTx struct {
	mock.Mock
}

func (m *MockTx) Commit() error {
	return m.Called().Error(0)
}

func (m *MockTx) Rollback() error {
	return m.Called().Error(0)
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("成功時はコミットされる", func(t *testing.T) {
		tx := new(MockTx)
		tx.On("Commit").Return(nil)
		m := new(MockManager)
		m.On("Begin", ctx).Return(tx, nil)

		err := Run(ctx, m, func(Tx) error { return nil })

		assert.NoError(t, err)
		tx.AssertExpectations(t)
		tx.AssertNotCalled(t, "Rollback")
	})

	t.Run("fn が失敗した場合はロールバックされる", func(t *testing.T) {
		tx := new(MockTx)
		tx.On("Rollback").Return(nil)
		m := new(MockManager)
		m.On("Begin", ctx).Return(tx, nil)
		fnErr := errors.New("boom")

		err := Run(ctx, m, func(Tx) error { return fnErr })

		assert.ErrorIs(t, err, fnErr)
		tx.AssertNotCalled(t, "Commit")
		tx.AssertExpectations(t)
	})

	t.Run("開始に失敗した場合は fn を呼ばない", func(t *testing.T) {
		m := new(MockManager)
		m.On("Begin", ctx).Return(nil, errors.New("pool exhausted"))
		called := false

		err := Run(ctx, m, func(Tx) error { called = true; return nil })

		assert.Error(t, err)
		assert.False(t, called)
	})

	t.Run("コミット失敗はエラーとして返る", func(t *testing.T) {
		tx := new(MockTx)
		tx.On("Commit").Return(errors.New("serialization failure"))
		tx.On("Rollback").Return(nil)
		m := new(MockManager)
		m.On("Begin", ctx).Return(tx, nil)

		err := Run(ctx, m, func(Tx) error { return nil })

		assert.Error(t, err)
		tx.AssertExpectations(t)
	})
}
