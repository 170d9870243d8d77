package cfg

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full airspotter configuration, loaded once at startup.
// Interval values are integer seconds, matching the config file format.
type Config struct {
	ADSB     ADSBConfig     `yaml:"adsb"`
	Location LocationConfig `yaml:"location"`
	Notifier NotifierConfig `yaml:"notifier"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ADSBConfig controls the feed request and the global spotting rules.
type ADSBConfig struct {
	APIKey                string  `yaml:"api_key"`
	Lat                   float64 `yaml:"lat"`
	Lon                   float64 `yaml:"lon"`
	RadiusNM              int     `yaml:"radius"`
	PollIntervalSeconds   int     `yaml:"poll_interval"`
	CooldownSeconds       int     `yaml:"cooldown"`
	RequestTimeoutSeconds int     `yaml:"request_timeout"`
	SpotUnknown           bool    `yaml:"spot_unknown"`
	SpotMilitary          bool    `yaml:"spot_military"`
	SpotInteresting       bool    `yaml:"spot_interesting"`
}

func (c ADSBConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

func (c ADSBConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

func (c ADSBConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// LocationConfig selects how spot locations are described. Invalid values
// degrade to coordinate descriptions at Locator construction rather than
// failing startup, except for an incomplete pelias endpoint which is fatal.
type LocationConfig struct {
	Type             string `yaml:"type"`
	Description      string `yaml:"description"`
	PeliasHost       string `yaml:"pelias_host"`
	PeliasPort       int    `yaml:"pelias_port"`
	PeliasPointLayer string `yaml:"pelias_point_layer"`
	PeliasAreaLayer  string `yaml:"pelias_area_layer"`
}

type NotifierConfig struct {
	PostIntervalSeconds int    `yaml:"post_interval"`
	ConsumerKey         string `yaml:"consumer_key"`
	ConsumerSecret      string `yaml:"consumer_secret"`
	AccessToken         string `yaml:"access_token"`
	AccessTokenSecret   string `yaml:"access_token_secret"`
	EnableScreenshot    bool   `yaml:"enable_screenshot"`
	ScreenshotZoom      int    `yaml:"screenshot_zoom"`
}

func (c NotifierConfig) PostInterval() time.Duration {
	return time.Duration(c.PostIntervalSeconds) * time.Second
}

type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Load reads, defaults and validates the configuration file at path.
// A missing or unreadable file is a startup-only fatal error.
func Load(path string) (*Config, error) {
	config := &Config{}
	config.setDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

func (c *Config) setDefaults() {
	c.ADSB.RadiusNM = 25
	c.ADSB.PollIntervalSeconds = 60
	c.ADSB.CooldownSeconds = 3600
	c.ADSB.RequestTimeoutSeconds = 4
	c.ADSB.SpotUnknown = true
	c.ADSB.SpotMilitary = true
	c.ADSB.SpotInteresting = true

	c.Location.Type = "coordinate"

	c.Notifier.PostIntervalSeconds = 5
	c.Notifier.ScreenshotZoom = 12
}

func (c *Config) validate() error {
	if c.ADSB.APIKey == "" {
		return fmt.Errorf("adsb api_key must be set")
	}
	if c.ADSB.Lat < -90 || c.ADSB.Lat > 90 {
		return fmt.Errorf("adsb lat must be a value >= -90 and <= 90, got %v", c.ADSB.Lat)
	}
	if c.ADSB.Lon < -180 || c.ADSB.Lon > 180 {
		return fmt.Errorf("adsb lon must be a value >= -180 and <= 180, got %v", c.ADSB.Lon)
	}
	if c.ADSB.RadiusNM < 1 || c.ADSB.RadiusNM > 250 {
		return fmt.Errorf("adsb radius must be an integer between 1 and 250, got %d", c.ADSB.RadiusNM)
	}
	if c.ADSB.PollIntervalSeconds < 1 {
		return fmt.Errorf("adsb poll_interval must be at least 1 second")
	}
	if c.ADSB.CooldownSeconds < 1 {
		return fmt.Errorf("adsb cooldown must be at least 1 second")
	}
	if c.ADSB.RequestTimeoutSeconds < 1 {
		return fmt.Errorf("adsb request_timeout must be at least 1 second")
	}
	if c.Notifier.PostIntervalSeconds < 1 {
		return fmt.Errorf("notifier post_interval must be at least 1 second")
	}
	if c.Notifier.EnableScreenshot {
		if c.Notifier.ScreenshotZoom < 1 || c.Notifier.ScreenshotZoom > 20 {
			return fmt.Errorf("notifier screenshot_zoom must be an integer from 1 to 20, got %d",
				c.Notifier.ScreenshotZoom)
		}
	}
	return nil
}
