package notifier

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"golang.org/x/time/rate"

	"airspotter/pkg/metrics"
	"airspotter/pkg/spot"
)

// maxReportLength is the post length limit; longer reports are skipped.
const maxReportLength = 280

// Media is one attachment for a posted report.
type Media struct {
	Filename string
	Data     []byte
}

// Poster publishes a formatted report to the outbound social feed.
type Poster interface {
	Post(ctx context.Context, text string, media []Media) error
}

// Locator describes coordinates for report text.
type Locator interface {
	Describe(ctx context.Context, latitude, longitude float64) string
}

// Screenshotter captures a map image for an aircraft hex address.
type Screenshotter interface {
	Capture(ctx context.Context, hex string) ([]byte, error)
}

// Notifier drains the outbound queue and posts one report per accepted
// sighting, spaced by the configured post interval. A nil Poster runs in
// dry-run mode, logging report text without posting. A nil Screenshotter
// disables map screenshots.
type Notifier struct {
	logger   log.Logger
	queue    *spot.Queue
	poster   Poster
	locator  Locator
	shots    Screenshotter
	limiter  *rate.Limiter
	metrics  *metrics.Metrics
	shutdown chan struct{}
	done     chan struct{}
}

func New(logger log.Logger, queue *spot.Queue, poster Poster, locator Locator, shots Screenshotter,
	postInterval time.Duration, m *metrics.Metrics) *Notifier {
	n := &Notifier{
		logger:   log.With(logger, "component", "notifier"),
		queue:    queue,
		poster:   poster,
		locator:  locator,
		shots:    shots,
		limiter:  rate.NewLimiter(rate.Every(postInterval), 1),
		metrics:  m,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	go n.run()
	level.Info(n.logger).Log("msg", "notifier initialized", "postInterval", postInterval)
	return n
}

func (n *Notifier) run() {
	t := time.NewTicker(200 * time.Millisecond)
	defer func() {
		t.Stop()
		level.Info(n.logger).Log("msg", "run loop shut down")
		close(n.done)
	}()
	level.Info(n.logger).Log("msg", "run loop started")
	for {
		select {
		case <-n.shutdown:
			level.Info(n.logger).Log("msg", "run loop shutting down")
			return
		case <-t.C:
			n.drain(context.Background())
		}
	}
}

func (n *Notifier) Stop() {
	level.Info(n.logger).Log("msg", "stop called")
	close(n.shutdown)
	<-n.done
	level.Info(n.logger).Log("msg", "shutdown complete")
}

func (n *Notifier) drain(ctx context.Context) {
	for {
		select {
		case <-n.shutdown:
			return
		default:
		}
		sighting, ok := n.queue.Pop()
		if !ok {
			return
		}
		n.metrics.QueueDepth.Set(float64(n.queue.Len()))
		n.report(ctx, sighting)
	}
}

func (n *Notifier) report(ctx context.Context, sighting *spot.Sighting) {
	location := n.locator.Describe(ctx, sighting.Position.Latitude, sighting.Position.Longitude)
	text := FormatReport(sighting, location)
	level.Info(n.logger).Log("msg", "generated report text", "text", text)
	if utf8.RuneCountInString(text) > maxReportLength {
		level.Error(n.logger).Log("msg", "report is too long, skipping",
			"length", utf8.RuneCountInString(text), "limit", maxReportLength)
		return
	}
	if n.poster == nil {
		level.Warn(n.logger).Log("msg", "posting is disabled, report not sent")
		return
	}
	if err := n.limiter.Wait(ctx); err != nil {
		return
	}
	if err := n.poster.Post(ctx, text, n.gatherMedia(ctx, sighting)); err != nil {
		level.Error(n.logger).Log("msg", "error posting report", "hex", sighting.Hex, "err", err)
		n.metrics.PostsFailed.Inc()
		return
	}
	n.metrics.PostsSent.Inc()
	level.Info(n.logger).Log("msg", "report posted", "hex", sighting.Hex)
}

// gatherMedia collects the optional map screenshot and watchlist image.
// Either failing drops only that attachment.
func (n *Notifier) gatherMedia(ctx context.Context, sighting *spot.Sighting) []Media {
	var media []Media
	if n.shots != nil {
		shot, err := n.shots.Capture(ctx, sighting.Hex)
		if err != nil {
			level.Warn(n.logger).Log("msg", "error capturing map screenshot", "hex", sighting.Hex,
				"err", err)
		} else {
			media = append(media, Media{Filename: "screenshot.png", Data: shot})
		}
	}
	if sighting.ImagePath != "" {
		data, err := os.ReadFile(sighting.ImagePath)
		if err != nil {
			level.Warn(n.logger).Log("msg", "error reading watchlist image, check if file exists",
				"path", sighting.ImagePath, "err", err)
		} else {
			media = append(media, Media{Filename: sighting.ImagePath, Data: data})
		}
	}
	return media
}

// FormatReport renders the report text for one accepted sighting: the
// watchlist description (or the type code), optional callsign, identifiers,
// location, altitude, speed and a tracking link.
func FormatReport(sighting *spot.Sighting, location string) string {
	head := sighting.Description
	if head == "" {
		head = sighting.TypeCode
	}
	callsign := ""
	if sighting.Callsign != "" {
		callsign = ", callsign " + sighting.Callsign
	}
	altitude := "Altitude unknown"
	if sighting.Altitude != nil {
		altitude = fmt.Sprintf("Altitude %d ft", *sighting.Altitude)
	}
	link := "https://globe.adsbexchange.com/?icao=" + sighting.Hex
	return fmt.Sprintf("%s%s, hex ID %s, RN %s, is %s. %s, %s. %s",
		head, callsign, strings.ToUpper(sighting.Hex), sighting.Registration, location,
		altitude, sighting.Speed, link)
}
