package spot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airspotter/pkg/feed"
	"airspotter/pkg/metrics"
)

type stubFeed struct {
	records []feed.Aircraft
	err     error
}

func (f *stubFeed) Nearby(_ context.Context) ([]feed.Aircraft, error) {
	return f.records, f.err
}

func newTestSpotter(t *testing.T, f Feed, watchlist *Watchlist, rules GlobalRules) *Spotter {
	t.Helper()
	logger := log.NewNopLogger()
	return &Spotter{
		logger:    logger,
		config:    Config{PollInterval: time.Hour, Cooldown: time.Hour, Rules: rules},
		feed:      f,
		watchlist: watchlist,
		seen:      NewSeenCache(logger, time.Hour),
		queue:     NewQueue(),
		metrics:   metrics.NewWith(prometheus.NewRegistry()),
	}
}

func rawMilitary(hex string) feed.Aircraft {
	flags := 1
	return feed.Aircraft{
		Hex:     hex,
		Lat:     f64P(51.3),
		Lon:     f64P(0.1),
		DBFlags: &flags,
	}
}

func TestCheckSpotsRecordIsolation(t *testing.T) {
	bad := rawMilitary("broken")
	bad.Lat = nil
	f := &stubFeed{records: []feed.Aircraft{
		rawMilitary("aaa111"),
		bad,
		rawMilitary("bbb222"),
	}}
	s := newTestSpotter(t, f, NewWatchlist(log.NewNopLogger()), spotEverything)

	s.CheckSpots(context.Background())

	// the failing record skips without affecting its siblings, FIFO order kept
	first, ok := s.queue.Pop()
	require.True(t, ok)
	assert.Equal(t, "aaa111", first.Hex)
	second, ok := s.queue.Pop()
	require.True(t, ok)
	assert.Equal(t, "bbb222", second.Hex)
	_, ok = s.queue.Pop()
	assert.False(t, ok)
}

func TestCheckSpotsFetchFailureIsEmptyCycle(t *testing.T) {
	f := &stubFeed{err: errors.New("connection refused")}
	s := newTestSpotter(t, f, NewWatchlist(log.NewNopLogger()), spotEverything)
	s.CheckSpots(context.Background())
	assert.Equal(t, 0, s.queue.Len())
}

func TestCheckSpotsAcceptRefreshesSeen(t *testing.T) {
	f := &stubFeed{records: []feed.Aircraft{rawMilitary("aaa111")}}
	s := newTestSpotter(t, f, NewWatchlist(log.NewNopLogger()), spotEverything)

	s.CheckSpots(context.Background())
	assert.Equal(t, 1, s.queue.Len())
	assert.True(t, s.seen.Seen("aaa111"))

	// the same aircraft in the next cycle is inside its cooldown
	s.CheckSpots(context.Background())
	assert.Equal(t, 1, s.queue.Len())
}

func TestCheckSpotsAttachesOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "herc.jpg"), []byte("jpg"), 0o644))
	w := loadTestWatchlist(t, "aaa111,IA,,Hercules,herc.jpg\nbbb222,IA,,No image,missing.jpg\n")

	f := &stubFeed{records: []feed.Aircraft{rawMilitary("aaa111"), rawMilitary("bbb222")}}
	s := newTestSpotter(t, f, w, GlobalRules{})
	s.config.ImageDir = dir

	s.CheckSpots(context.Background())

	first, ok := s.queue.Pop()
	require.True(t, ok)
	assert.Equal(t, "Hercules", first.Description)
	assert.Equal(t, filepath.Join(dir, "herc.jpg"), first.ImagePath)

	// a missing image file drops only the image
	second, ok := s.queue.Pop()
	require.True(t, ok)
	assert.Equal(t, "No image", second.Description)
	assert.Empty(t, second.ImagePath)
}

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()
	_, ok := q.Pop()
	assert.False(t, ok)

	q.Push(&Sighting{Hex: "one"})
	q.Push(&Sighting{Hex: "two"})
	assert.Equal(t, 2, q.Len())

	s, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "one", s.Hex)
	s, ok = q.Pop()
	require.True(t, ok)
	assert.Equal(t, "two", s.Hex)
}

func TestSpotterRunAndStop(t *testing.T) {
	f := &stubFeed{records: []feed.Aircraft{rawMilitary("aaa111")}}
	s := NewSpotter(log.NewNopLogger(), Config{
		PollInterval: time.Hour,
		Cooldown:     time.Hour,
		Rules:        spotEverything,
	}, f, NewWatchlist(log.NewNopLogger()), NewQueue(), metrics.NewWith(prometheus.NewRegistry()))

	// the first check fires immediately at startup
	require.Eventually(t, func() bool { return s.queue.Len() == 1 }, time.Second, 10*time.Millisecond)
	s.Stop()
}
