package spot

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/dimchansky/utfbom"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// Kind selects one of the three independent watchlist namespaces. The same
// literal key may appear in more than one namespace without conflict.
type Kind int

const (
	KindAddress Kind = iota
	KindRegistration
	KindType
)

// Watchlist CSV kind codes, column two of each row.
const (
	kindCodeAddress      = "IA"
	kindCodeRegistration = "RN"
	kindCodeType         = "TC"
)

// WatchlistEntry holds the optional override metadata for one watched key.
// MilOnly is only meaningful for type-code entries.
type WatchlistEntry struct {
	Description string
	Image       string
	MilOnly     bool
}

// Watchlist maps aircraft identifiers to override metadata. Loaded once at
// startup, read-only afterwards.
type Watchlist struct {
	logger         log.Logger
	byAddress      map[string]WatchlistEntry
	byRegistration map[string]WatchlistEntry
	byType         map[string]WatchlistEntry
}

func NewWatchlist(logger log.Logger) *Watchlist {
	return &Watchlist{
		logger:         log.With(logger, "component", "watchlist"),
		byAddress:      map[string]WatchlistEntry{},
		byRegistration: map[string]WatchlistEntry{},
		byType:         map[string]WatchlistEntry{},
	}
}

// LoadWatchlist reads the watchlist CSV at path. A missing file is not an
// error: spotting falls back to the global config rules alone.
func LoadWatchlist(logger log.Logger, path string) *Watchlist {
	w := NewWatchlist(logger)
	level.Info(w.logger).Log("msg", "loading watchlist", "path", path)
	file, err := os.Open(path)
	if err != nil {
		level.Warn(w.logger).Log("msg", "watchlist file not found, aircraft will only be spotted"+
			" based on global config rules", "path", path, "err", err)
		return w
	}
	defer file.Close()
	w.load(utfbom.SkipOnly(file))
	return w
}

// load populates the three namespaces from CSV rows. Each row is validated
// independently: a malformed row is counted and skipped, never aborting the
// rest of the load. Duplicate keys within one namespace are last-row-wins.
func (w *Watchlist) load(r io.Reader) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rowCount := 0
	errorCount := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		rowCount++
		if err != nil {
			errorCount++
			level.Warn(w.logger).Log("msg", "error reading watchlist row", "row", rowCount, "err", err)
			continue
		}
		if len(row) > 0 && row[0] == "Key" {
			// title row
			continue
		}
		if len(row) < 5 {
			errorCount++
			level.Warn(w.logger).Log("msg", "watchlist row is missing columns", "row", rowCount)
			continue
		}
		key := strings.TrimSpace(row[0])
		entry := WatchlistEntry{
			Description: strings.TrimSpace(row[3]),
			Image:       strings.TrimSpace(row[4]),
		}
		switch strings.TrimSpace(row[1]) {
		case kindCodeAddress:
			w.byAddress[key] = entry
			level.Info(w.logger).Log("msg", "added ICAO address watchlist entry", "key", key,
				"description", entry.Description, "image", entry.Image)
		case kindCodeRegistration:
			w.byRegistration[key] = entry
			level.Info(w.logger).Log("msg", "added registration watchlist entry", "key", key,
				"description", entry.Description, "image", entry.Image)
		case kindCodeType:
			entry.MilOnly = strings.EqualFold(strings.TrimSpace(row[2]), "y")
			w.byType[key] = entry
			level.Info(w.logger).Log("msg", "added type code watchlist entry", "key", key,
				"milOnly", entry.MilOnly, "description", entry.Description, "image", entry.Image)
		default:
			errorCount++
			level.Warn(w.logger).Log("msg", "watchlist row has an unrecognized kind", "row", rowCount,
				"kind", row[1])
		}
	}
	if errorCount > 0 {
		level.Warn(w.logger).Log("msg", "skipped invalid watchlist rows", "skipped", errorCount)
	}
	level.Info(w.logger).Log("msg", "watchlist loaded", "entries", w.Len())
}

// Lookup returns the entry for key in the given namespace.
func (w *Watchlist) Lookup(kind Kind, key string) (WatchlistEntry, bool) {
	var entry WatchlistEntry
	var ok bool
	switch kind {
	case KindAddress:
		entry, ok = w.byAddress[key]
	case KindRegistration:
		entry, ok = w.byRegistration[key]
	case KindType:
		entry, ok = w.byType[key]
	}
	return entry, ok
}

// Len returns the total entry count across all three namespaces.
func (w *Watchlist) Len() int {
	return len(w.byAddress) + len(w.byRegistration) + len(w.byType)
}
