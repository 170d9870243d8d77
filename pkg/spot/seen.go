package spot

import (
	"sync"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// SeenCache remembers when each aircraft was last reported, so aircraft
// loitering in the spotting area are not re-reported until the cooldown has
// passed. In-memory only, not persisted across restarts.
type SeenCache struct {
	logger   log.Logger
	cooldown time.Duration

	mtx     sync.Mutex
	entries map[string]time.Time
}

func NewSeenCache(logger log.Logger, cooldown time.Duration) *SeenCache {
	return &SeenCache{
		logger:   log.With(logger, "component", "seen"),
		cooldown: cooldown,
		entries:  map[string]time.Time{},
	}
}

// Seen reports whether hex is still inside its cooldown window.
func (c *SeenCache) Seen(hex string) bool {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	_, ok := c.entries[hex]
	return ok
}

// Mark records that hex was reported at now, starting a fresh cooldown.
func (c *SeenCache) Mark(hex string, now time.Time) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.entries[hex] = now
}

// Sweep evicts every entry whose cooldown expired before now and returns the
// number evicted. Runs at the start of each poll cycle so an aircraft whose
// cooldown just lapsed can be re-reported within the same cycle.
func (c *SeenCache) Sweep(now time.Time) int {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	evicted := 0
	for hex, lastNotified := range c.entries {
		if now.Sub(lastNotified) > c.cooldown {
			level.Debug(c.logger).Log("msg", "cooldown expired", "hex", hex)
			delete(c.entries, hex)
			evicted++
		}
	}
	return evicted
}

// Len returns the number of aircraft currently in cooldown.
func (c *SeenCache) Len() int {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return len(c.entries)
}
