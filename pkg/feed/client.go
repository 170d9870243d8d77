package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"airspotter/pkg/cfg"
)

const rapidAPIHost = "adsbexchange-com1.p.rapidapi.com"

// Client fetches snapshots of nearby aircraft from the ADS-B Exchange API
// via RapidAPI. The request URL is fixed at construction from the configured
// center coordinates and radius.
type Client struct {
	logger     log.Logger
	url        string
	apiKey     string
	httpClient *http.Client
}

func NewClient(logger log.Logger, config cfg.ADSBConfig) *Client {
	c := &Client{
		logger: log.With(logger, "component", "feed"),
		url: fmt.Sprintf("https://%s/v2/lat/%v/lon/%v/dist/%d/",
			rapidAPIHost, config.Lat, config.Lon, config.RadiusNM),
		apiKey: config.APIKey,
		httpClient: &http.Client{
			Timeout: config.RequestTimeout(),
		},
	}
	level.Debug(c.logger).Log("msg", "feed client created", "url", c.url)
	return c
}

// Nearby fetches one snapshot and returns its raw aircraft records. The API
// reports an empty spotting area as a null list, which is returned as an
// empty slice rather than an error.
func (c *Client) Nearby(ctx context.Context) ([]Aircraft, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-RapidAPI-Host", rapidAPIHost)
	req.Header.Set("X-RapidAPI-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch snapshot: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot body: %w", err)
	}

	snapshot := &Snapshot{}
	if err := json.Unmarshal(body, snapshot); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}

	if snapshot.Aircraft == nil {
		level.Info(c.logger).Log("msg", "no aircraft detected in spotting area")
		return []Aircraft{}, nil
	}
	level.Info(c.logger).Log("msg", "snapshot fetched", "aircraft", len(snapshot.Aircraft))
	return snapshot.Aircraft, nil
}
