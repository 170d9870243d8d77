package spot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"airspotter/pkg/feed"
)

const (
	// UnknownType is the type code sentinel for aircraft the feed cannot type.
	UnknownType = "Unknown aircraft type"
	// UnknownReg is the registration sentinel for aircraft with no known
	// registration number. The spot_unknown rule keys off this value.
	UnknownReg = "unknown"

	unknownSpeed = "speed unknown"

	groundSentinel = "ground"
)

// Position holds validated latitude/longitude coordinates.
type Position struct {
	Latitude  float64
	Longitude float64
}

// NewPosition validates coordinate ranges. Out-of-range values fail the
// whole record, they are never coerced.
func NewPosition(latitude, longitude float64) (Position, error) {
	if latitude > 90 || latitude < -90 {
		return Position{}, fmt.Errorf("%v is an invalid latitude value, must be between -90 and 90", latitude)
	}
	if longitude > 180 || longitude < -180 {
		return Position{}, fmt.Errorf("%v is an invalid longitude value, must be between -180 and 180", longitude)
	}
	return Position{Latitude: latitude, Longitude: longitude}, nil
}

// Sighting is one validated aircraft observation from a poll cycle. All
// fields are fixed at normalization except Description and ImagePath, which
// the spotter fills in from a watchlist match when the sighting is accepted.
type Sighting struct {
	Hex          string
	TypeCode     string
	Registration string
	Position     Position
	Grounded     bool
	Altitude     *int // feet, nil when grounded or unknown
	Speed        string
	Callsign     string // empty when the feed has no real callsign
	Military     bool
	Interesting  bool

	Description string
	ImagePath   string
}

// Normalize converts one raw feed record into a Sighting. A missing hex
// address or invalid coordinates fail the record; anything else degrades to
// an unknown-value sentinel so the record stays usable for classification.
func Normalize(logger log.Logger, raw feed.Aircraft) (*Sighting, error) {
	hex := strings.TrimSpace(raw.Hex)
	if hex == "" {
		return nil, fmt.Errorf("record has no hex address")
	}

	s := &Sighting{
		Hex:          hex,
		TypeCode:     UnknownType,
		Registration: UnknownReg,
		Speed:        unknownSpeed,
	}
	if raw.Type != nil && strings.TrimSpace(*raw.Type) != "" {
		s.TypeCode = strings.TrimSpace(*raw.Type)
	}
	if raw.Registration != nil && strings.TrimSpace(*raw.Registration) != "" {
		s.Registration = strings.TrimSpace(*raw.Registration)
	}

	s.Grounded, s.Altitude = parseAltitude(logger, hex, raw.BarometerAltitude)
	s.Military, s.Interesting = parseFlags(raw)

	if raw.Lat == nil || raw.Lon == nil {
		return nil, fmt.Errorf("aircraft with hex %s has no lat/lon coordinates", hex)
	}
	position, err := NewPosition(*raw.Lat, *raw.Lon)
	if err != nil {
		return nil, fmt.Errorf("aircraft with hex %s has invalid coordinates: %w", hex, err)
	}
	s.Position = position

	// First available of ground speed, true airspeed, indicated airspeed.
	switch {
	case raw.GroundSpeed != nil:
		s.Speed = fmt.Sprintf("ground speed %v knots", *raw.GroundSpeed)
	case raw.TrueAirspeed != nil:
		s.Speed = fmt.Sprintf("true airspeed %v knots", *raw.TrueAirspeed)
	case raw.IndicatedAirspeed != nil:
		s.Speed = fmt.Sprintf("indicated airspeed %v knots", *raw.IndicatedAirspeed)
	}

	if raw.Flight != nil {
		callsign := strings.TrimSpace(*raw.Flight)
		// A callsign equal to the registration means the feed has no real
		// callsign for this aircraft.
		if callsign != "" && callsign != s.Registration {
			s.Callsign = callsign
		}
	}

	return s, nil
}

// parseAltitude reads the number-or-"ground" altitude field. When the
// aircraft is grounded no altitude parse is attempted. An unparsable or
// missing altitude on an airborne aircraft downgrades to altitude unknown.
func parseAltitude(logger log.Logger, hex string, token interface{}) (grounded bool, altitude *int) {
	switch v := token.(type) {
	case string:
		if v == groundSentinel {
			return true, nil
		}
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return false, &n
		}
		level.Warn(logger).Log("msg", "could not parse altitude", "hex", hex, "alt_baro", v)
	case float64:
		n := int(v)
		return false, &n
	default:
		level.Warn(logger).Log("msg", "could not parse altitude", "hex", hex, "alt_baro", fmt.Sprintf("%v", v))
	}
	return false, nil
}

// parseFlags derives the military/interesting designations. Newer feed
// schemas send a dbFlags bitfield, older ones a pair of booleans. A missing
// field means false, never an error.
func parseFlags(raw feed.Aircraft) (military, interesting bool) {
	if raw.DBFlags != nil {
		return *raw.DBFlags&1 != 0, *raw.DBFlags&2 != 0
	}
	if raw.Military != nil {
		military = *raw.Military
	}
	if raw.Interesting != nil {
		interesting = *raw.Interesting
	}
	return military, interesting
}
