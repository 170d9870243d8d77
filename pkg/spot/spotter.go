package spot

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"airspotter/pkg/feed"
	"airspotter/pkg/metrics"
)

// Feed supplies one snapshot of nearby aircraft per poll cycle.
type Feed interface {
	Nearby(ctx context.Context) ([]feed.Aircraft, error)
}

// Config holds the spotter's timing, rule and image settings.
type Config struct {
	PollInterval time.Duration
	Cooldown     time.Duration
	ImageDir     string
	Rules        GlobalRules
}

// Spotter drives the poll cycle: fetch a snapshot, sweep the seen cache,
// normalize and classify every record, and queue accepted sightings for the
// notifier. A failed or malformed fetch is treated as an empty cycle and the
// loop keeps running; only Stop ends it.
type Spotter struct {
	logger    log.Logger
	config    Config
	feed      Feed
	watchlist *Watchlist
	seen      *SeenCache
	queue     *Queue
	metrics   *metrics.Metrics
	shutdown  chan struct{}
	done      chan struct{}
}

func NewSpotter(logger log.Logger, config Config, f Feed, watchlist *Watchlist, queue *Queue, m *metrics.Metrics) *Spotter {
	s := &Spotter{
		logger:    log.With(logger, "component", "spotter"),
		config:    config,
		feed:      f,
		watchlist: watchlist,
		seen:      NewSeenCache(logger, config.Cooldown),
		queue:     queue,
		metrics:   m,
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	go s.run()
	level.Info(s.logger).Log("msg", "spotter initialized")
	return s
}

func (s *Spotter) run() {
	t := time.NewTicker(s.config.PollInterval)
	defer func() {
		t.Stop()
		level.Info(s.logger).Log("msg", "run loop shut down")
		close(s.done)
	}()
	level.Info(s.logger).Log("msg", "run loop started", "interval", s.config.PollInterval)
	// check immediately at startup rather than waiting a full interval
	s.CheckSpots(context.Background())
	for {
		select {
		case <-s.shutdown:
			level.Info(s.logger).Log("msg", "run loop shutting down")
			return
		case <-t.C:
			s.CheckSpots(context.Background())
		}
	}
}

func (s *Spotter) Stop() {
	level.Info(s.logger).Log("msg", "stop called")
	close(s.shutdown)
	<-s.done
	level.Info(s.logger).Log("msg", "shutdown complete")
}

// CheckSpots runs one poll cycle. Every record is processed independently: a
// record that fails normalization is logged and skipped without affecting
// its siblings.
func (s *Spotter) CheckSpots(ctx context.Context) {
	level.Info(s.logger).Log("msg", "checking for aircraft")
	s.metrics.PollCycles.Inc()
	records, err := s.feed.Nearby(ctx)
	if err != nil {
		level.Error(s.logger).Log("msg", "error fetching snapshot, treating cycle as empty", "err", err)
		s.metrics.FetchFailures.Inc()
		records = nil
	}
	if evicted := s.seen.Sweep(time.Now()); evicted > 0 {
		level.Debug(s.logger).Log("msg", "evicted expired seen entries", "evicted", evicted)
	}
	for _, raw := range records {
		s.metrics.RecordsSeen.Inc()
		sighting, err := Normalize(s.logger, raw)
		if err != nil {
			level.Warn(s.logger).Log("msg", "error processing raw aircraft record, skipping",
				"hex", raw.Hex, "err", err)
			s.metrics.NormalizeFailures.Inc()
			continue
		}
		decision := Classify(sighting, s.watchlist, s.seen, s.config.Rules)
		if !decision.Notify {
			level.Debug(s.logger).Log("msg", "sighting suppressed", "hex", sighting.Hex,
				"rule", decision.Rule)
			continue
		}
		s.attachOverrides(sighting, decision)
		s.queue.Push(sighting)
		s.seen.Mark(sighting.Hex, time.Now())
		s.metrics.SpotsQueued.Inc()
		s.metrics.QueueDepth.Set(float64(s.queue.Len()))
		level.Info(s.logger).Log("msg", "aircraft added to queue", "hex", sighting.Hex,
			"rule", decision.Rule)
	}
}

// attachOverrides copies watchlist override metadata onto an accepted
// sighting. Image refs resolve against the configured image directory; a
// missing file drops only the image.
func (s *Spotter) attachOverrides(sighting *Sighting, decision Decision) {
	if decision.Description != "" {
		sighting.Description = decision.Description
	}
	if decision.Image == "" {
		return
	}
	fullPath := filepath.Join(s.config.ImageDir, decision.Image)
	if info, err := os.Stat(fullPath); err != nil || info.IsDir() {
		level.Error(s.logger).Log("msg", "cannot add image to aircraft, no file found",
			"hex", sighting.Hex, "path", fullPath)
		return
	}
	sighting.ImagePath = fullPath
}
