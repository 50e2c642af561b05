package badger

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/docpipe/core"
	"github.com/poiesic/docpipe/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock drives the queue's time source from a test.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newQueueFixture(t *testing.T, lockDuration time.Duration) (*Stores, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	stores := NewMemoryStores(t,
		WithLockDuration(lockDuration),
		WithClock(clock.Now),
	)
	return stores, clock
}

func enqueueOperation(t *testing.T, queue *OperationQueue) *core.Operation {
	t.Helper()
	p := core.NewPipeline("default", core.DefaultSteps())
	op := core.NewOperation(p)
	require.NoError(t, queue.Enqueue(context.Background(), op))
	return op
}

func TestClaimLocksOperation(t *testing.T) {
	stores, _ := newQueueFixture(t, time.Minute)
	ctx := context.Background()
	op := enqueueOperation(t, stores.Queue)

	claimed, err := stores.Queue.Claim(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, op.ID, claimed[0].ID)
	require.NotNil(t, claimed[0].LastAttempt)

	// Locked: a second claim inside the lock window sees nothing.
	again, err := stores.Queue.Claim(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestClaimRecoversExpiredLock(t *testing.T) {
	stores, clock := newQueueFixture(t, time.Minute)
	ctx := context.Background()
	enqueueOperation(t, stores.Queue)

	first, err := stores.Queue.Claim(ctx, 1)
	require.NoError(t, err)
	require.Len(t, first, 1)

	clock.Advance(61 * time.Second)

	second, err := stores.Queue.Claim(ctx, 1)
	require.NoError(t, err)
	require.Len(t, second, 1, "stale lock should be re-claimable")
	assert.Equal(t, first[0].ID, second[0].ID)
}

func TestClaimRespectsBatchSize(t *testing.T) {
	stores, _ := newQueueFixture(t, time.Minute)
	ctx := context.Background()
	for range 5 {
		enqueueOperation(t, stores.Queue)
	}

	claimed, err := stores.Queue.Claim(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, claimed, 3)

	rest, err := stores.Queue.Claim(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, rest, 2)
}

func TestCompleteVerifiesClaimTimestamp(t *testing.T) {
	stores, clock := newQueueFixture(t, time.Minute)
	ctx := context.Background()
	enqueueOperation(t, stores.Queue)

	claimed, err := stores.Queue.Claim(ctx, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	firstClaim := *claimed[0].LastAttempt

	// Lock expires and another worker reclaims.
	clock.Advance(2 * time.Minute)
	reclaimed, err := stores.Queue.Claim(ctx, 1)
	require.NoError(t, err)
	require.Len(t, reclaimed, 1)

	// The original worker's completion must be rejected.
	err = stores.Queue.Complete(ctx, claimed[0].ID, firstClaim)
	assert.ErrorIs(t, err, storage.ErrLockContention)

	// The current holder's completion succeeds.
	err = stores.Queue.Complete(ctx, reclaimed[0].ID, *reclaimed[0].LastAttempt)
	require.NoError(t, err)

	// Completing twice is reported distinctly.
	err = stores.Queue.Complete(ctx, reclaimed[0].ID, *reclaimed[0].LastAttempt)
	assert.ErrorIs(t, err, storage.ErrOperationComplete)
}

func TestCompletedOperationNotClaimable(t *testing.T) {
	stores, clock := newQueueFixture(t, time.Minute)
	ctx := context.Background()
	enqueueOperation(t, stores.Queue)

	claimed, err := stores.Queue.Claim(ctx, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.NoError(t, stores.Queue.Complete(ctx, claimed[0].ID, *claimed[0].LastAttempt))

	clock.Advance(time.Hour)
	again, err := stores.Queue.Claim(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestReleaseRecordsFailureAndDelaysRetry(t *testing.T) {
	stores, clock := newQueueFixture(t, time.Minute)
	ctx := context.Background()
	enqueueOperation(t, stores.Queue)

	claimed, err := stores.Queue.Claim(ctx, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	id := claimed[0].ID

	require.NoError(t, stores.Queue.Release(ctx, id, "embedding service throttled", 30*time.Second))

	op, err := stores.Queue.GetOperation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, op.FailureCount)
	assert.Equal(t, "embedding service throttled", op.LastFailureReason)
	assert.Nil(t, op.LastAttempt)
	require.NotNil(t, op.NotBefore)

	// Not claimable until the delay elapses.
	early, err := stores.Queue.Claim(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, early)

	clock.Advance(31 * time.Second)
	late, err := stores.Queue.Claim(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, late, 1)
}

func TestToPoisonMovesOperation(t *testing.T) {
	stores, _ := newQueueFixture(t, time.Minute)
	ctx := context.Background()
	op := enqueueOperation(t, stores.Queue)

	require.NoError(t, stores.Queue.ToPoison(ctx, op.ID, "unsupported content type"))

	// Gone from the live queue.
	claimed, err := stores.Queue.Claim(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, claimed)

	// Still retrievable by id.
	found, err := stores.Queue.GetOperation(ctx, op.ID)
	require.NoError(t, err)
	assert.Equal(t, "unsupported content type", found.LastFailureReason)

	poisoned, err := stores.Queue.Poisoned(ctx)
	require.NoError(t, err)
	require.Len(t, poisoned, 1)
	assert.Equal(t, op.ID, poisoned[0].ID)

	byContent, err := stores.Queue.PoisonedByContent(ctx, op.ContentID)
	require.NoError(t, err)
	assert.Len(t, byContent, 1)

	none, err := stores.Queue.PoisonedByContent(ctx, "some-other-pipeline")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCancelByContent(t *testing.T) {
	stores, _ := newQueueFixture(t, time.Minute)
	ctx := context.Background()

	p := core.NewPipeline("default", core.DefaultSteps())
	first := core.NewOperation(p)
	second := core.NewOperation(p)
	require.NoError(t, stores.Queue.Enqueue(ctx, first))
	require.NoError(t, stores.Queue.Enqueue(ctx, second))

	other := enqueueOperation(t, stores.Queue)

	n, err := stores.Queue.CancelByContent(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Cancelled operations are never handed to workers.
	claimed, err := stores.Queue.Claim(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, other.ID, claimed[0].ID)

	// Cancelling again affects nothing.
	n, err = stores.Queue.CancelByContent(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestGetOperationNotFound(t *testing.T) {
	stores, _ := newQueueFixture(t, time.Minute)
	_, err := stores.Queue.GetOperation(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestEnqueueIsIdempotent(t *testing.T) {
	stores, _ := newQueueFixture(t, time.Minute)
	ctx := context.Background()
	op := enqueueOperation(t, stores.Queue)
	require.NoError(t, stores.Queue.Enqueue(ctx, op))

	claimed, err := stores.Queue.Claim(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, claimed, 1)
}

func TestWithPoisonSuffixValidation(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()

	_, err = NewOperationQueue(backend, WithPoisonSuffix("Not Valid!"))
	assert.ErrorIs(t, err, core.ErrInvalidPoisonSuffix)

	q, err := NewOperationQueue(backend, WithPoisonSuffix("dead-letter"))
	require.NoError(t, err)
	assert.NotNil(t, q)
}
