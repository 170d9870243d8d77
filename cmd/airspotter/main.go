package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/prometheus/common/version"

	"airspotter/pkg/cfg"
	"airspotter/pkg/feed"
	"airspotter/pkg/location"
	"airspotter/pkg/metrics"
	"airspotter/pkg/notifier"
	"airspotter/pkg/screenshot"
	"airspotter/pkg/spot"
)

func main() {
	var (
		printVersion  = flag.Bool("version", false, "Print this builds version information")
		configFile    = flag.String("config.file", "./config/airspotter.yml", "yaml file to load")
		watchlistFile = flag.String("watchlist.file", "./config/watchlist.csv", "watchlist csv file to load")
		imageDir      = flag.String("image.dir", "./images", "directory searched for image files named in the watchlist")
		disablePosts  = flag.Bool("disable-posts", false, "Log report text instead of posting, useful for testing without API credentials")
	)
	flag.Parse()

	if *printVersion {
		fmt.Println(version.Print("airspotter"))
		os.Exit(0)
	}

	var logger log.Logger
	logger = log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestamp, "caller", log.DefaultCaller)

	config, err := cfg.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed parsing config: %v\n", err)
		os.Exit(1)
	}

	shutdown := make(chan struct{})
	go sig(logger, shutdown)

	m := metrics.New()
	metrics.ListenAndServe(logger, config.Metrics.ListenAddr)

	locator, err := location.New(logger, config.Location)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init the locator: %v\n", err)
		os.Exit(1)
	}

	var poster notifier.Poster
	if *disablePosts {
		level.Warn(logger).Log("msg", "posting is disabled, reports will only be logged")
	} else {
		twitter, err := notifier.NewTwitterPoster(logger, config.Notifier.ConsumerKey,
			config.Notifier.ConsumerSecret, config.Notifier.AccessToken,
			config.Notifier.AccessTokenSecret)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to init the poster: %v\n", err)
			os.Exit(1)
		}
		poster = twitter
	}

	var shots notifier.Screenshotter
	if config.Notifier.EnableScreenshot {
		shots = screenshot.New(logger, config.Notifier.ScreenshotZoom)
	}

	watchlist := spot.LoadWatchlist(logger, *watchlistFile)
	queue := spot.NewQueue()
	spotter := spot.NewSpotter(logger, spot.Config{
		PollInterval: config.ADSB.PollInterval(),
		Cooldown:     config.ADSB.Cooldown(),
		ImageDir:     *imageDir,
		Rules: spot.GlobalRules{
			SpotUnknown:     config.ADSB.SpotUnknown,
			SpotMilitary:    config.ADSB.SpotMilitary,
			SpotInteresting: config.ADSB.SpotInteresting,
		},
	}, feed.NewClient(logger, config.ADSB), watchlist, queue, m)
	n := notifier.New(logger, queue, poster, locator, shots, config.Notifier.PostInterval(), m)

	<-shutdown
	spotter.Stop()
	n.Stop()
	level.Info(logger).Log("msg", "shutdown complete")
	os.Exit(0)
}

func sig(logger log.Logger, shutdown chan struct{}) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	buf := make([]byte, 1<<20)
	for {
		select {
		case sig := <-sigs:
			switch sig {
			case syscall.SIGINT, syscall.SIGTERM:
				level.Info(logger).Log("msg", "=== received SIGINT/SIGTERM ===")
				close(shutdown)
				return
			case syscall.SIGQUIT:
				stacklen := runtime.Stack(buf, true)
				level.Info(logger).Log("msg", fmt.Sprintf("=== received SIGQUIT ===\n*** goroutine dump...\n%s\n*** end", buf[:stacklen]))
			}
		}
	}
}
