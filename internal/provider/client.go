// Package provider implements the client for the external menu provider
// API. Requests are keyed by (location, meal type, date); the weekly
// endpoint returns every day of the serving week containing the requested
// date, or an effectively-empty payload when the location is closed.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"menupipe/internal/domain"
)

// Client issues menu requests against a provider base URL.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient creates a Client for the given base URL with the given request
// timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
	}
}

// URL builds the weekly-menu endpoint for a fetch unit.
func (c *Client) URL(unit domain.FetchUnit) string {
	return fmt.Sprintf("%s/menu/api/weeks/school/%s/menu-type/%s/%04d/%02d/%02d/",
		c.baseURL, unit.Location, unit.Meal,
		unit.Date.Year(), int(unit.Date.Month()), unit.Date.Day())
}

// Fetch issues one request for the unit. A payload with no real dishes, or
// one the provider silently redirected to a different location, is returned
// as a closed marker rather than an error. Transport and HTTP failures are
// errors; the caller decides whether to retry or skip the unit.
func (c *Client) Fetch(ctx context.Context, unit domain.FetchUnit) (*RawMenu, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(unit), nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", unit, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", unit, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: provider returned HTTP %d", unit, resp.StatusCode)
	}

	var week WeekMenu
	if err := json.NewDecoder(resp.Body).Decode(&week); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", unit, err)
	}

	// The provider falls back to another location's menu instead of
	// returning an error when the requested one is closed.
	if week.LocationSlug != "" && week.LocationSlug != unit.Location {
		return &RawMenu{
			Unit:   unit,
			Closed: true,
			Reason: fmt.Sprintf("provider answered for %s", week.LocationSlug),
		}, nil
	}

	if week.empty() {
		return &RawMenu{Unit: unit, Closed: true, Reason: "no menu items"}, nil
	}

	return &RawMenu{Unit: unit, Week: &week}, nil
}

// empty reports whether no day in the payload carries a real dish.
func (w *WeekMenu) empty() bool {
	for _, day := range w.Days {
		for _, item := range day.Items {
			if item.Food != nil {
				return false
			}
		}
	}
	return true
}
