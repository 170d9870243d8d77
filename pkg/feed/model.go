package feed

import (
	"encoding/json"
)

// Snapshot is one reply from the ADS-B Exchange API, containing every
// aircraft currently tracked inside the configured radius.
type Snapshot struct {
	Now      float64    `json:"now"`
	Total    int        `json:"total"`
	Aircraft []Aircraft `json:"ac"`
}

// Aircraft is one raw, mostly-optional record from the feed. It is consumed
// once per poll cycle and never retained; the spot package normalizes it
// into a validated Sighting.
type Aircraft struct {
	Hex               string   `json:"hex"`
	Type              *string  `json:"t,omitempty"`
	Registration      *string  `json:"r,omitempty"`
	Flight            *string  `json:"flight,omitempty"`
	Lat               *float64 `json:"lat,omitempty"`
	Lon               *float64 `json:"lon,omitempty"`
	GroundSpeed       *float64 `json:"gs,omitempty"`
	TrueAirspeed      *float64 `json:"tas,omitempty"`
	IndicatedAirspeed *float64 `json:"ias,omitempty"`
	Squawk            *string  `json:"squawk,omitempty"`
	Emergency         *string  `json:"emergency,omitempty"`
	Category          *string  `json:"category,omitempty"`

	// DBFlags is a bitfield: bit 0 marks military aircraft, bit 1 marks
	// aircraft curated as interesting. Older feed schemas send the two
	// boolean fields below instead.
	DBFlags     *int  `json:"dbFlags,omitempty"`
	Military    *bool `json:"mil,omitempty"`
	Interesting *bool `json:"interesting,omitempty"`

	// This field might be a number, a string (usually "ground"), or nil
	BarometerAltitude json.Token `json:"alt_baro,omitempty"`
}
