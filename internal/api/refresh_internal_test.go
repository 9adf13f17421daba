package api

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRefreshCoordinator_SingleFlight(t *testing.T) {
	var coordinator refreshCoordinator

	var calls atomic.Int32
	release := make(chan struct{})

	revalidate := func(ctx context.Context) error {
		calls.Add(1)
		<-release
		return nil
	}

	const n = 10

	var wg sync.WaitGroup
	results := make([]bool, n)

	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = coordinator.refresh(context.Background(), revalidate)
		}()
	}

	// let every caller reach the coordinator before the shared
	// revalidation settles
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load(), "concurrent callers must share one revalidation")
	for i, ok := range results {
		assert.True(t, ok, "caller %d must observe the shared outcome", i)
	}
}

func TestRefreshCoordinator_FailureSharedWithoutSideEffects(t *testing.T) {
	var coordinator refreshCoordinator

	ok := coordinator.refresh(context.Background(), func(ctx context.Context) error {
		return errors.New("backend rejected the token")
	})

	assert.False(t, ok)
}

func TestRefreshCoordinator_NewOperationAfterSettlement(t *testing.T) {
	var coordinator refreshCoordinator

	var calls atomic.Int32
	revalidate := func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}

	assert.True(t, coordinator.refresh(context.Background(), revalidate))
	assert.True(t, coordinator.refresh(context.Background(), revalidate))

	assert.Equal(t, int32(2), calls.Load(), "a settled operation must not be reused")
}

func TestRefreshCoordinator_DetachedFromCallerCancellation(t *testing.T) {
	var coordinator refreshCoordinator

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	observed := make(chan error, 1)
	ok := coordinator.refresh(ctx, func(ctx context.Context) error {
		observed <- ctx.Err()
		return nil
	})

	assert.True(t, ok)
	assert.NoError(t, <-observed, "shared revalidation must not inherit the caller's cancellation")
}
