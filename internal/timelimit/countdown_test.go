package timelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountdown_ExpiresOnce(t *testing.T) {
	c := New(1)
	fired := 0
	c.OnExpire(func() { fired++ })

	c.Advance(0.5)
	assert.Zero(t, c.Elapsed(), "not started")

	c.Start()
	c.Advance(0.5)
	assert.Equal(t, 0.5, c.Remaining())
	assert.Equal(t, 0.5, c.Progress())
	assert.False(t, c.Expired())

	c.Advance(0.75)
	assert.True(t, c.Expired())
	assert.False(t, c.Running())
	assert.Equal(t, 1.0, c.Elapsed(), "clamped to the limit")
	assert.Equal(t, 1.0, c.Progress())

	c.Advance(1)
	assert.Equal(t, 1, fired)
}

func TestCountdown_StopHoldsTime(t *testing.T) {
	c := New(10)
	c.OnExpire(func() { t.Fatal("stopped countdown must not expire") })
	c.Start()
	c.Advance(3)
	c.Stop()
	c.Advance(20)
	assert.Equal(t, 3.0, c.Elapsed())
	assert.Equal(t, 7.0, c.Remaining())
}
