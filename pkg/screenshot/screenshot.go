package screenshot

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

const (
	defaultZoom    = 12
	captureTimeout = 30 * time.Second
)

// Screenshotter captures map screenshots of an aircraft's position and
// flight path from the public globe view, using headless Chrome.
type Screenshotter struct {
	logger log.Logger
	zoom   int
}

func New(logger log.Logger, zoom int) *Screenshotter {
	s := &Screenshotter{
		logger: log.With(logger, "component", "screenshot"),
		zoom:   zoom,
	}
	if zoom < 1 || zoom > 20 {
		level.Warn(s.logger).Log("msg", "screenshot zoom should be an integer from 1 to 20,"+
			" using default", "zoom", zoom, "default", defaultZoom)
		s.zoom = defaultZoom
	}
	return s
}

// Capture renders the globe map for hex and screenshots the map layer. The
// fixed sleep lets the map canvas finish rendering tiles before capture.
func (s *Screenshotter) Capture(ctx context.Context, hex string) ([]byte, error) {
	start := time.Now()
	url := fmt.Sprintf("https://globe.adsbexchange.com/?icao=%s&zoom=%d", hex, s.zoom)
	level.Debug(s.logger).Log("msg", "getting browser screenshot", "hex", hex, "url", url)

	browserCtx, cancelBrowser := chromedp.NewContext(ctx)
	defer cancelBrowser()
	runCtx, cancelRun := context.WithTimeout(browserCtx, captureTimeout)
	defer cancelRun()

	var buf []byte
	err := chromedp.Run(runCtx,
		chromedp.EmulateViewport(1200, 800),
		chromedp.Navigate(url),
		chromedp.WaitVisible("div.ol-layer", chromedp.ByQuery),
		chromedp.Evaluate(hideAdBanners, nil),
		chromedp.Sleep(5*time.Second),
		chromedp.Screenshot("div.ol-layer", &buf, chromedp.NodeVisible, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to capture map screenshot for %s: %w", hex, err)
	}
	level.Debug(s.logger).Log("msg", "screenshot generated", "hex", hex,
		"duration", time.Since(start))
	return buf, nil
}

const hideAdBanners = `
	(function() {
		var selectors = [".FIOnDemandWrapper"];
		for (var i = 0; i < selectors.length; i++) {
			var el = document.querySelector(selectors[i]);
			if (el) el.style.display = "none";
		}
	})();
`
