package services

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockQueue struct {
	mock.Mock
}

func (m *mockQueue) RemoveOldTerminal(ctx context.Context, expiration time.Time, batchSize int) (int64, error) {
	args := m.Called(ctx, expiration, batchSize)
	return args.Get(0).(int64), args.Error(1)
}

func Test_NewQueueCleaner_WithoutRetention_ShouldFail(t *testing.T) {
	_, err := NewQueueCleaner(&mockQueue{}, 0)
	assert.Error(t, err)
}

func Test_QueueCleaner_Clean_ShouldUseRetentionWindow(t *testing.T) {
	assert := assert.New(t)
	now := time.Date(2026, 5, 20, 3, 0, 0, 0, time.UTC)

	queue := &mockQueue{}
	queue.On("RemoveOldTerminal", mock.Anything, now.AddDate(0, 0, -7), cleanupBatchSize).Return(int64(12), nil).Once()

	cleaner, err := NewQueueCleaner(queue, 7)
	require.NoError(t, err)
	cleaner.now = func() time.Time { return now }

	removed, err := cleaner.Clean(context.Background())
	assert.NoError(err)
	assert.Equal(int64(12), removed)
	queue.AssertExpectations(t)
}

func Test_QueueCleaner_Clean_ShouldReturnStoreErrors(t *testing.T) {
	queue := &mockQueue{}
	queue.On("RemoveOldTerminal", mock.Anything, mock.Anything, mock.Anything).Return(int64(0), errors.New("database is locked"))

	cleaner, err := NewQueueCleaner(queue, 30)
	require.NoError(t, err)

	_, err = cleaner.Clean(context.Background())
	assert.ErrorContains(t, err, "locked")
}

func Test_QueueCleaner_Start_WithInvalidSpec_ShouldFail(t *testing.T) {
	cleaner, err := NewQueueCleaner(&mockQueue{}, 30)
	require.NoError(t, err)

	assert.Error(t, cleaner.Start("not a cron spec"))
}
