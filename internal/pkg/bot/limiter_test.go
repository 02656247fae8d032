package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter(t *testing.T) {
	l := newLimiter(time.Hour)
	assert.True(t, l.allow(1))
	assert.False(t, l.allow(1))
	assert.True(t, l.allow(2))
}

func TestLimiter_Disabled(t *testing.T) {
	l := newLimiter(0)
	for i := 0; i < 5; i++ {
		assert.True(t, l.allow(1))
	}
	var nl *limiter
	assert.True(t, nl.allow(1))
}

func TestLimiter_Refills(t *testing.T) {
	l := newLimiter(10 * time.Millisecond)
	assert.True(t, l.allow(1))
	assert.False(t, l.allow(1))
	time.Sleep(30 * time.Millisecond)
	assert.True(t, l.allow(1))
}

func TestLimiter_Resets(t *testing.T) {
	l := newLimiter(time.Hour)
	for i := 0; i < maxTrackedUsers; i++ {
		l.allow(int64(i))
	}
	assert.True(t, l.allow(int64(maxTrackedUsers)))
	assert.Equal(t, 1, len(l.users))
}
