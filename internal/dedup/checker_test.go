package dedup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/maxaizer/job-finder/internal/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockQueue struct {
	mock.Mock
}

func (m *mockQueue) ExistsByURL(ctx context.Context, kind entities.ItemKind, url string) (bool, error) {
	args := m.Called(ctx, kind, url)
	return args.Bool(0), args.Error(1)
}

type mockResults struct {
	mock.Mock
}

func (m *mockResults) ExistsByURL(ctx context.Context, url string) (bool, error) {
	args := m.Called(ctx, url)
	return args.Bool(0), args.Error(1)
}

func Test_Cache_CheckAndSet(t *testing.T) {
	assert := assert.New(t)
	cache := NewCache(time.Minute)

	_, known := cache.Check("https://a.example/1")
	assert.False(known)

	cache.Set("https://A.example/1/?utm_source=x", true)
	exists, known := cache.Check("https://a.example/1")
	assert.True(known)
	assert.True(exists)

	cache.Set("https://a.example/2", false)
	exists, known = cache.Check("https://a.example/2")
	assert.True(known)
	assert.False(exists)
	assert.Equal(2, cache.Len())
}

func Test_Cache_EntriesShouldExpire(t *testing.T) {
	cache := NewCache(20 * time.Millisecond)
	cache.Set("https://a.example/1", true)

	time.Sleep(40 * time.Millisecond)

	_, known := cache.Check("https://a.example/1")
	assert.False(t, known)
}

func Test_Checker_Exists_CachedPositive_ShouldSkipStore(t *testing.T) {
	queue := &mockQueue{}
	results := &mockResults{}
	checker := NewChecker(NewCache(time.Minute), queue, results)

	checker.MarkSeen("https://a.example/1")

	exists, err := checker.Exists(context.Background(), "https://a.example/1/")
	require.NoError(t, err)
	assert.True(t, exists)
	queue.AssertNotCalled(t, "ExistsByURL", mock.Anything, mock.Anything, mock.Anything)
	results.AssertNotCalled(t, "ExistsByURL", mock.Anything, mock.Anything)
}

func Test_Checker_Exists_CachedNegative_ShouldRecheckStore(t *testing.T) {
	ctx := context.Background()
	queue := &mockQueue{}
	results := &mockResults{}
	checker := NewChecker(NewCache(time.Minute), queue, results)

	queue.On("ExistsByURL", ctx, entities.KindPosting, "https://a.example/1").Return(false, nil).Once()
	results.On("ExistsByURL", ctx, "https://a.example/1").Return(false, nil).Once()

	exists, err := checker.Exists(ctx, "https://a.example/1")
	require.NoError(t, err)
	assert.False(t, exists)

	// Another worker saved the match in the meantime.
	queue.On("ExistsByURL", ctx, entities.KindPosting, "https://a.example/1").Return(false, nil).Once()
	results.On("ExistsByURL", ctx, "https://a.example/1").Return(true, nil).Once()

	exists, err = checker.Exists(ctx, "https://a.example/1")
	require.NoError(t, err)
	assert.True(t, exists)

	queue.AssertExpectations(t)
	results.AssertExpectations(t)
}

func Test_Checker_Exists_QueuedPosting_ShouldNotQueryResults(t *testing.T) {
	ctx := context.Background()
	queue := &mockQueue{}
	results := &mockResults{}
	checker := NewChecker(NewCache(time.Minute), queue, results)

	queue.On("ExistsByURL", ctx, entities.KindPosting, "https://a.example/1").Return(true, nil)

	exists, err := checker.Exists(ctx, "https://a.example/1?utm_medium=mail")
	require.NoError(t, err)
	assert.True(t, exists)
	results.AssertNotCalled(t, "ExistsByURL", mock.Anything, mock.Anything)
}

func Test_Checker_Exists_StoreError_ShouldPropagate(t *testing.T) {
	ctx := context.Background()
	queue := &mockQueue{}
	results := &mockResults{}
	checker := NewChecker(NewCache(time.Minute), queue, results)

	queue.On("ExistsByURL", ctx, entities.KindPosting, "https://a.example/1").Return(false, errors.New("db is down"))

	_, err := checker.Exists(ctx, "https://a.example/1")
	assert.Error(t, err)

	_, known := checker.cache.Check("https://a.example/1")
	assert.False(t, known)
}
