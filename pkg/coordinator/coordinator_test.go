package coordinator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-quiz-generator-be/internal/pkg/logger"
)

// downStore fails every call, as an unreachable network store would.
type downStore struct{}

var errDown = errors.New("dial tcp 127.0.0.1:6379: connect: connection refused")

func (downStore) SetNX(context.Context, string, string, time.Duration) (bool, error) {
	return false, errDown
}

func (downStore) CompareAndDelete(context.Context, string, string) (bool, error) {
	return false, errDown
}

func (downStore) Set(context.Context, string, string, time.Duration) error {
	return errDown
}

func (downStore) Get(context.Context, string) (string, bool, error) {
	return "", false, errDown
}

func (downStore) Del(context.Context, string) error {
	return errDown
}

func (downStore) Ping(context.Context) error {
	return errDown
}

func newMemoryCoordinator() *Coordinator {
	return New(NewMemoryStore(), DefaultConfig(), logger.NewNopLogger())
}

func TestAcquireLock_MutualExclusion(t *testing.T) {
	c := newMemoryCoordinator()
	ctx := context.Background()

	const callers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		acquired int
		held     int
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := c.AcquireLock(ctx, "quiz-1", time.Minute)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				acquired++
			} else if errors.Is(err, ErrLockHeld) {
				held++
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, acquired)
	assert.Equal(t, callers-1, held)
}

func TestGuard_ReleaseAllowsReacquire(t *testing.T) {
	c := newMemoryCoordinator()
	ctx := context.Background()

	g, err := c.AcquireLock(ctx, "quiz-1", 0)
	require.NoError(t, err)

	_, err = c.AcquireLock(ctx, "quiz-1", 0)
	require.ErrorIs(t, err, ErrLockHeld)

	g.Release(ctx)
	g.Release(ctx)

	g2, err := c.AcquireLock(ctx, "quiz-1", 0)
	require.NoError(t, err)
	assert.NotEqual(t, g.Token(), g2.Token())
}

func TestGuard_ReleaseIgnoresCancelledContext(t *testing.T) {
	c := newMemoryCoordinator()

	g, err := c.AcquireLock(context.Background(), "quiz-1", 0)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g.Release(ctx)

	locked, err := c.IsLocked(context.Background(), "quiz-1")
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestGuard_StaleOwnerCannotReleaseNewLock(t *testing.T) {
	c := newMemoryCoordinator()
	ctx := context.Background()

	stale := c.Resume("quiz-1", "not-the-owner")
	_, err := c.AcquireLock(ctx, "quiz-1", 0)
	require.NoError(t, err)

	stale.Release(ctx)

	locked, err := c.IsLocked(ctx, "quiz-1")
	require.NoError(t, err)
	assert.True(t, locked)
}

func TestResume_ReleasesAdmissionLock(t *testing.T) {
	c := newMemoryCoordinator()
	ctx := context.Background()

	g, err := c.AcquireLock(ctx, "quiz-1", 0)
	require.NoError(t, err)

	worker := c.Resume("quiz-1", g.Token())
	worker.Release(ctx)

	_, err = c.AcquireLock(ctx, "quiz-1", 0)
	assert.NoError(t, err)
}

func TestProgress_RoundTrip(t *testing.T) {
	c := newMemoryCoordinator()
	ctx := context.Background()

	_, err := c.GetProgress(ctx, "quiz-1")
	require.ErrorIs(t, err, ErrProgressNotFound)

	c.SetProgress(ctx, "quiz-1", Progress{Status: StatusProcessing, Progress: 40, Message: "Generating"})
	got, err := c.GetProgress(ctx, "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, got.Status)
	assert.Equal(t, 40, got.Progress)
	assert.Nil(t, got.Error)

	c.SetProgress(ctx, "quiz-1", Progress{Status: StatusCompleted, Progress: 150, TotalQuestions: 5})
	got, err = c.GetProgress(ctx, "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
	assert.Equal(t, 5, got.TotalQuestions)

	require.NoError(t, c.DeleteProgress(ctx, "quiz-1"))
	_, err = c.GetProgress(ctx, "quiz-1")
	assert.ErrorIs(t, err, ErrProgressNotFound)
}

func TestDegradedMode(t *testing.T) {
	c := New(downStore{}, DefaultConfig(), logger.NewNopLogger())
	ctx := context.Background()

	g1, err := c.AcquireLock(ctx, "quiz-1", 0)
	require.NoError(t, err)
	assert.True(t, g1.Degraded())

	// No real exclusion while the store is down.
	g2, err := c.AcquireLock(ctx, "quiz-1", 0)
	require.NoError(t, err)
	assert.True(t, g2.Degraded())

	assert.NotPanics(t, func() {
		c.SetProgress(ctx, "quiz-1", Progress{Status: StatusPending})
		g1.Release(ctx)
	})

	_, err = c.GetProgress(ctx, "quiz-1")
	assert.ErrorIs(t, err, ErrCoordinationUnavailable)
	assert.ErrorIs(t, c.Ping(ctx), ErrCoordinationUnavailable)
}

func TestKeys(t *testing.T) {
	c := newMemoryCoordinator()
	assert.Equal(t, "quiz:lock:abc", c.lockKey("abc"))
	assert.Equal(t, "quiz:progress:abc", c.progressKey("abc"))
}
