package risk

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKillSwitch(t *testing.T) {
	k := NewKillSwitch()

	t.Run("Starts Inactive", func(t *testing.T) {
		assert.False(t, k.Active())
		status := k.Status()
		assert.False(t, status.Active)
		assert.Empty(t, status.Reason)
	})

	t.Run("Activate Records Reason", func(t *testing.T) {
		k.Activate("flash crash")
		assert.True(t, k.Active())
		status := k.Status()
		assert.True(t, status.Active)
		assert.Equal(t, "flash crash", status.Reason)
		assert.False(t, status.ActivatedAt.IsZero())
	})

	t.Run("Activate Is Idempotent", func(t *testing.T) {
		first := k.Status().ActivatedAt
		k.Activate("second reason")
		status := k.Status()
		assert.Equal(t, "flash crash", status.Reason, "first activation wins")
		assert.Equal(t, first, status.ActivatedAt)
	})

	t.Run("Deactivate Clears State", func(t *testing.T) {
		k.Deactivate()
		assert.False(t, k.Active())
		status := k.Status()
		assert.Empty(t, status.Reason)
		assert.True(t, status.ActivatedAt.IsZero())
	})

	t.Run("Deactivate When Inactive Is A Noop", func(t *testing.T) {
		k.Deactivate()
		assert.False(t, k.Active())
	})
}

func TestKillSwitch_ChangeHandler(t *testing.T) {
	k := NewKillSwitch()

	var mu sync.Mutex
	var flips []bool
	k.SetChangeHandler(func(active bool, reason string) {
		mu.Lock()
		flips = append(flips, active)
		mu.Unlock()
	})

	k.Activate("halt")
	k.Activate("again") // idempotent, no second callback
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(flips) == 1 && flips[0]
	}, time.Second, 10*time.Millisecond)

	k.Deactivate()
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(flips) == 2 && !flips[1]
	}, time.Second, 10*time.Millisecond)
}
