package location

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"golang.org/x/time/rate"

	"airspotter/pkg/cfg"
)

// Location description modes.
const (
	ModeManual     = "manual"
	ModeCoordinate = "coordinate"
	ModePelias     = "pelias"
	ModeGeonames   = "3geonames"
)

const geonamesURL = "https://api.3geonames.org"

var peliasValidLayers = map[string]struct{}{
	"venue": {}, "address": {}, "street": {}, "country": {}, "macroregion": {},
	"region": {}, "macrocounty": {}, "county": {}, "locality": {}, "localadmin": {},
	"borough": {}, "neighbourhood": {}, "coarse": {},
}

// Locator turns coordinates into a human-readable location description for
// reports. Geocoder failures always fall back to a coordinate string, they
// never fail the report.
type Locator struct {
	logger     log.Logger
	mode       string
	manual     string
	peliasBase string
	pointLayer string
	areaLayer  string
	httpClient *http.Client
	// paces requests to the free 3geonames API
	pace *rate.Limiter
}

// New builds a Locator from config. Most invalid settings degrade to
// coordinate mode with a warning; a pelias mode without a usable endpoint is
// a startup error.
func New(logger log.Logger, config cfg.LocationConfig) (*Locator, error) {
	l := &Locator{
		logger:     log.With(logger, "component", "location"),
		mode:       config.Type,
		manual:     config.Description,
		httpClient: &http.Client{Timeout: 4 * time.Second},
		pace:       rate.NewLimiter(rate.Every(time.Second), 1),
	}
	switch l.mode {
	case ModeManual:
		if l.manual == "" {
			level.Warn(l.logger).Log("msg", "location type is manual but no description is set,"+
				" reverting to coordinate descriptions")
			l.mode = ModeCoordinate
		}
	case ModePelias:
		if config.PeliasHost == "" || config.PeliasPort == 0 {
			return nil, fmt.Errorf("location type is pelias but pelias_host/pelias_port are not set")
		}
		l.peliasBase = fmt.Sprintf("%s:%d", config.PeliasHost, config.PeliasPort)
		l.pointLayer = validLayer(l.logger, config.PeliasPointLayer)
		l.areaLayer = validLayer(l.logger, config.PeliasAreaLayer)
		if !l.probePelias() {
			level.Error(l.logger).Log("msg", "pelias API did not respond as expected, reverting"+
				" to coordinate descriptions")
			l.mode = ModeCoordinate
		}
	case ModeGeonames, ModeCoordinate:
	default:
		level.Warn(l.logger).Log("msg", "location type is not set to a valid value, defaulting"+
			" to coordinate", "type", l.mode)
		l.mode = ModeCoordinate
	}
	level.Info(l.logger).Log("msg", "locator initialized", "mode", l.mode)
	return l, nil
}

func validLayer(logger log.Logger, layer string) string {
	if layer == "" {
		return ""
	}
	if _, ok := peliasValidLayers[layer]; !ok {
		level.Warn(logger).Log("msg", "not a valid pelias layer, ignoring", "layer", layer)
		return ""
	}
	return layer
}

// probePelias checks connectivity and response shape with an arbitrary
// coordinate. It does not check whether the instance has coverage for the
// configured spotting area.
func (l *Locator) probePelias() bool {
	url := l.peliasBase + "/v1/reverse?point.lat=51.5081124&point.lon=-0.0759493"
	resp, err := l.httpClient.Get(url)
	if err != nil {
		level.Error(l.logger).Log("msg", "error connecting to pelias API", "err", err)
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		level.Error(l.logger).Log("msg", "pelias API returned bad status", "status", resp.StatusCode)
		return false
	}
	var reply map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return false
	}
	for _, key := range []string{"geocoding", "type", "features"} {
		if _, ok := reply[key]; !ok {
			return false
		}
	}
	return true
}

// Describe returns a human-readable description of the given coordinates.
func (l *Locator) Describe(ctx context.Context, latitude, longitude float64) string {
	coordString := fmt.Sprintf("%v, %v", round4(latitude), round4(longitude))
	switch l.mode {
	case ModeManual:
		return l.manual
	case ModePelias:
		point, area := l.reverseGeocodePelias(ctx, latitude, longitude)
		switch {
		case point == "" && area == "":
			level.Warn(l.logger).Log("msg", "no reverse geocoding results, defaulting to"+
				" coordinate location")
		case area == "":
			return fmt.Sprintf("near %s", point)
		case point == "":
			return fmt.Sprintf("over %s", area)
		default:
			return fmt.Sprintf("over %s, near %s", area, point)
		}
	case ModeGeonames:
		if description := l.reverseGeocodeGeonames(ctx, latitude, longitude); description != "" {
			return description
		}
	}
	return fmt.Sprintf("near %s", coordString)
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

type peliasReply struct {
	Features []struct {
		Properties struct {
			Name string `json:"name"`
		} `json:"properties"`
	} `json:"features"`
}

func (l *Locator) reverseGeocodePelias(ctx context.Context, latitude, longitude float64) (point, area string) {
	base := fmt.Sprintf("%s/v1/reverse?point.lat=%v&point.lon=%v", l.peliasBase, latitude, longitude)
	if l.pointLayer != "" {
		point = l.peliasFeatureName(ctx, base+"&layers="+l.pointLayer)
		if point == "" {
			level.Warn(l.logger).Log("msg", "no point feature found")
		}
	}
	if l.areaLayer != "" {
		area = l.peliasFeatureName(ctx, base+"&layers="+l.areaLayer)
		if area == "" {
			level.Warn(l.logger).Log("msg", "no area feature found")
		}
	}
	return point, area
}

func (l *Locator) peliasFeatureName(ctx context.Context, url string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ""
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		level.Error(l.logger).Log("msg", "error connecting to pelias API", "err", err)
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		level.Error(l.logger).Log("msg", "pelias API returned bad status", "status", resp.StatusCode)
		return ""
	}
	var reply peliasReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		level.Error(l.logger).Log("msg", "failed to parse pelias reply", "err", err)
		return ""
	}
	if len(reply.Features) == 0 {
		return ""
	}
	return reply.Features[0].Properties.Name
}

type geonamesReply struct {
	Nearest struct {
		Name string `json:"name"`
		City string `json:"city"`
	} `json:"nearest"`
}

// reverseGeocodeGeonames looks coordinates up via the free 3geonames API,
// preferring "name, city", then city alone. Requests are rate-paced; the
// provider returns HTML instead of JSON when it throttles.
func (l *Locator) reverseGeocodeGeonames(ctx context.Context, latitude, longitude float64) string {
	if err := l.pace.Wait(ctx); err != nil {
		return ""
	}
	url := fmt.Sprintf("%s/%v,%v.json", geonamesURL, latitude, longitude)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ""
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		level.Error(l.logger).Log("msg", "error connecting to 3geonames API", "err", err)
		return ""
	}
	defer resp.Body.Close()
	var reply geonamesReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		level.Error(l.logger).Log("msg", "3geonames API did not return JSON, likely rate limited",
			"err", err)
		return ""
	}
	switch {
	case reply.Nearest.Name != "" && reply.Nearest.City != "" && reply.Nearest.Name != reply.Nearest.City:
		return fmt.Sprintf("near %s, %s", reply.Nearest.Name, reply.Nearest.City)
	case reply.Nearest.Name != "":
		return fmt.Sprintf("near %s", reply.Nearest.Name)
	case reply.Nearest.City != "":
		level.Info(l.logger).Log("msg", "3geonames did not return a place name, using city")
		return fmt.Sprintf("near %s", reply.Nearest.City)
	}
	level.Warn(l.logger).Log("msg", "3geonames returned neither name nor city, falling back to"+
		" coordinate string")
	return ""
}
