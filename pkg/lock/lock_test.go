package lock

import (
	"context"
	"testing"
	"time"

	"rentmate/pkg/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time { return c.now }

func TestMemoryLocker_Exclusive(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLocker(clock.Fixed(time.Now()))

	release, err := l.Acquire(ctx, InitiateKey("u1"), time.Second)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, InitiateKey("u1"), time.Second)
	assert.ErrorIs(t, err, ErrLocked)

	_, err = l.Acquire(ctx, InitiateKey("u2"), time.Second)
	assert.NoError(t, err, "different keys must not contend")

	require.NoError(t, release(ctx))
	_, err = l.Acquire(ctx, InitiateKey("u1"), time.Second)
	assert.NoError(t, err)
}

func TestMemoryLocker_Expiry(t *testing.T) {
	ctx := context.Background()
	c := &stepClock{now: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)}
	l := NewMemoryLocker(c)

	staleRelease, err := l.Acquire(ctx, "k", 5*time.Second)
	require.NoError(t, err)

	c.now = c.now.Add(6 * time.Second)
	_, err = l.Acquire(ctx, "k", 5*time.Second)
	require.NoError(t, err, "expired lease must be reclaimable")

	// The stale holder must not release the new lease.
	require.NoError(t, staleRelease(ctx))
	_, err = l.Acquire(ctx, "k", 5*time.Second)
	assert.ErrorIs(t, err, ErrLocked)
}
