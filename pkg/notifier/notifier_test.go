package notifier

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airspotter/pkg/metrics"
	"airspotter/pkg/spot"
)

func testSighting() *spot.Sighting {
	altitude := 1200
	return &spot.Sighting{
		Hex:          "3e232e",
		TypeCode:     "C25A",
		Registration: "D-IENE",
		Position:     spot.Position{Latitude: 51.374119, Longitude: 0.0354},
		Altitude:     &altitude,
		Speed:        "ground speed 177.6 knots",
		Callsign:     "DIENE",
	}
}

func TestFormatReport(t *testing.T) {
	got := FormatReport(testSighting(), "near 51.3741, 0.0354")
	assert.Equal(t, "C25A, callsign DIENE, hex ID 3E232E, RN D-IENE, is near 51.3741, 0.0354."+
		" Altitude 1200 ft, ground speed 177.6 knots. https://globe.adsbexchange.com/?icao=3e232e", got)
}

func TestFormatReportDescriptionReplacesTypeCode(t *testing.T) {
	s := testSighting()
	s.Description = "Cessna Citation CJ2"
	got := FormatReport(s, "near the airfield")
	assert.True(t, strings.HasPrefix(got, "Cessna Citation CJ2, callsign"))
	assert.NotContains(t, got, "C25A")
}

func TestFormatReportOptionalFields(t *testing.T) {
	s := testSighting()
	s.Callsign = ""
	s.Altitude = nil
	got := FormatReport(s, "near the airfield")
	assert.NotContains(t, got, "callsign")
	assert.Contains(t, got, "Altitude unknown")
}

type stubPoster struct {
	posted chan string
}

func (p *stubPoster) Post(_ context.Context, text string, _ []Media) error {
	p.posted <- text
	return nil
}

type stubLocator struct{}

func (stubLocator) Describe(_ context.Context, _, _ float64) string { return "near the airfield" }

func TestNotifierDrainsQueue(t *testing.T) {
	queue := spot.NewQueue()
	queue.Push(testSighting())
	poster := &stubPoster{posted: make(chan string, 1)}

	n := New(log.NewNopLogger(), queue, poster, stubLocator{}, nil, time.Second,
		metrics.NewWith(prometheus.NewRegistry()))
	defer n.Stop()

	select {
	case text := <-poster.posted:
		assert.Contains(t, text, "hex ID 3E232E")
	case <-time.After(2 * time.Second):
		t.Fatal("report was not posted")
	}
	assert.Equal(t, 0, queue.Len())
}

func TestNotifierSkipsOverlongReports(t *testing.T) {
	queue := spot.NewQueue()
	long := testSighting()
	long.Description = strings.Repeat("very long description ", 20)
	queue.Push(long)
	queue.Push(testSighting())
	poster := &stubPoster{posted: make(chan string, 2)}

	n := New(log.NewNopLogger(), queue, poster, stubLocator{}, nil, time.Second,
		metrics.NewWith(prometheus.NewRegistry()))
	defer n.Stop()

	// only the second, valid report goes out
	select {
	case text := <-poster.posted:
		require.NotContains(t, text, "very long description")
	case <-time.After(2 * time.Second):
		t.Fatal("report was not posted")
	}
}
