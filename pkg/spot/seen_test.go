package spot

import (
	"testing"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/stretchr/testify/assert"
)

func TestSeenCacheMarkAndSweep(t *testing.T) {
	cooldown := time.Hour
	c := NewSeenCache(log.NewNopLogger(), cooldown)
	t0 := time.Now()

	assert.False(t, c.Seen("ae595d"))
	c.Mark("ae595d", t0)
	c.Mark("3e232e", t0.Add(30*time.Minute))
	assert.True(t, c.Seen("ae595d"))
	assert.Equal(t, 2, c.Len())

	// exactly at the cooldown boundary nothing is evicted
	assert.Equal(t, 0, c.Sweep(t0.Add(cooldown)))
	assert.True(t, c.Seen("ae595d"))

	// just past the boundary only the older entry goes
	assert.Equal(t, 1, c.Sweep(t0.Add(cooldown+time.Nanosecond)))
	assert.False(t, c.Seen("ae595d"))
	assert.True(t, c.Seen("3e232e"))
}

func TestSeenCacheMarkRefreshesCooldown(t *testing.T) {
	c := NewSeenCache(log.NewNopLogger(), time.Hour)
	t0 := time.Now()
	c.Mark("ae595d", t0)
	c.Mark("ae595d", t0.Add(50*time.Minute))
	assert.Equal(t, 0, c.Sweep(t0.Add(90*time.Minute)))
	assert.True(t, c.Seen("ae595d"))
}
