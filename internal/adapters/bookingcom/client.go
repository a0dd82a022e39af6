// Package bookingcom is the outbound client for the Booking.com demand API.
package bookingcom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"wanderbook/internal/adapters/observability"
	"wanderbook/internal/domain"
)

const (
	DefaultBaseURL       = "https://demandapi-sandbox.booking.com/3.1"
	placeholderKey       = "YOUR_API_KEY_HERE"
	placeholderAffiliate = "YOUR_AFFILIATE_ID_HERE"
	service              = "bookingcom"
)

type Client struct {
	base      string
	hc        *http.Client
	key       string
	affiliate string
	rl        *rate.Limiter
}

// New never fails: missing or placeholder credentials leave the client unconfigured,
// and every call then returns domain.ErrProviderNotConfigured.
func New(base, key, affiliate string, rps int) *Client {
	if base == "" {
		base = DefaultBaseURL
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base:      strings.TrimRight(base, "/"),
		hc:        &http.Client{Timeout: 30 * time.Second},
		key:       strings.TrimSpace(key),
		affiliate: strings.TrimSpace(affiliate),
		rl:        rate.NewLimiter(rate.Limit(rps), rps),
	}
}

func (c *Client) Configured() bool {
	return c.key != "" && c.key != placeholderKey &&
		c.affiliate != "" && c.affiliate != placeholderAffiliate
}

func (c *Client) Mode() string {
	if c.Configured() {
		return "real"
	}
	return "mock"
}

func (c *Client) BaseURL() string { return c.base }

func (c *Client) SupportedDestinations() []string { return DestinationNames() }

// ---- Public API ----

type searchPayload struct {
	Booker   booker   `json:"booker"`
	CheckIn  string   `json:"checkin"`
	CheckOut string   `json:"checkout"`
	City     int64    `json:"city"`
	Guests   guests   `json:"guests"`
	Extras   []string `json:"extras"`
}

type booker struct {
	Country  string `json:"country"`
	Platform string `json:"platform"`
}

type guests struct {
	Adults   int `json:"number_of_adults"`
	Children int `json:"number_of_children"`
	Rooms    int `json:"number_of_rooms"`
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

// SearchHotels returns at most domain.MaxSearchResults normalized hotels.
// Entries that can't be mapped are logged and skipped.
func (c *Client) SearchHotels(ctx context.Context, q domain.SearchQuery) ([]domain.Hotel, error) {
	if !c.Configured() {
		return nil, domain.ErrProviderNotConfigured
	}
	cityID, ok := LookupDestination(q.Destination)
	if !ok {
		return nil, &domain.UnsupportedDestinationError{Destination: q.Destination, Supported: sampleDestinations()}
	}

	payload := searchPayload{
		Booker:   booker{Country: "us", Platform: "desktop"},
		CheckIn:  q.CheckIn,
		CheckOut: q.CheckOut,
		City:     cityID,
		Guests:   guests{Adults: q.NumAdults, Children: q.NumChildren, Rooms: q.NumRooms},
		Extras:   []string{"products", "extra_charges", "images"},
	}
	var env envelope
	if err := c.do(ctx, http.MethodPost, "accommodations/search", payload, &env); err != nil {
		return nil, err
	}
	var entries []any
	if err := json.Unmarshal(env.Data, &entries); err != nil {
		return nil, errors.Wrap(domain.ErrUnexpectedResponse, "search: data is not a list")
	}

	out := make([]domain.Hotel, 0, min(len(entries), domain.MaxSearchResults))
	for i, raw := range entries {
		if len(out) == domain.MaxSearchResults {
			break
		}
		h, err := mapAccommodation(raw, q.Destination, 0, true)
		if err != nil {
			log.Warn().Err(err).Int("index", i).Str("destination", q.Destination).Msg("skipping malformed accommodation")
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

func (c *Client) GetHotelDetails(ctx context.Context, id int64) (domain.Hotel, error) {
	if !c.Configured() {
		return domain.Hotel{}, domain.ErrProviderNotConfigured
	}
	var env envelope
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("accommodations/%d", id), nil, &env); err != nil {
		return domain.Hotel{}, err
	}
	var raw any
	if err := json.Unmarshal(env.Data, &raw); err != nil {
		return domain.Hotel{}, errors.Wrap(domain.ErrUnexpectedResponse, "details: undecodable data")
	}
	h, err := mapAccommodation(raw, "", id, false)
	if err != nil {
		return domain.Hotel{}, errors.Mark(errors.Wrapf(err, "details for %d", id), domain.ErrUnexpectedResponse)
	}
	return h, nil
}

// ---- Internals ----

// do performs one rate-limited call and decodes a 2xx JSON body into out.
// There are no retries: failures go straight back to the caller's fallback policy.
func (c *Client) do(ctx context.Context, method, endpoint string, payload, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return errors.Mark(errors.Wrap(err, "rate limiter"), domain.ErrProviderUnavailable)
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+"/"+endpoint, body)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("X-Affiliate-Id", c.affiliate)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "wanderbook/1.0")

	label := endpointLabel(endpoint)
	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal(service, label, 0, time.Since(start))
		return errors.Mark(errors.Wrapf(err, "%s %s", method, label), domain.ErrProviderUnavailable)
	}
	defer resp.Body.Close()
	observability.ObserveExternal(service, label, resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errors.Wrapf(domain.ErrHotelNotFound, "%s %s", method, label)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		// read a small error body for diagnostics
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Error().Int("status", resp.StatusCode).Str("endpoint", label).
			Str("body", strings.TrimSpace(string(b))).Msg("booking.com api error")
		return errors.Wrapf(domain.ErrProviderUnavailable, "%s %s: status %d", method, label, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Mark(errors.Wrapf(err, "decode %s", label), domain.ErrUnexpectedResponse)
	}
	return nil
}

// endpointLabel keeps metric cardinality bounded by dropping ids.
func endpointLabel(endpoint string) string {
	if strings.HasPrefix(endpoint, "accommodations/") && endpoint != "accommodations/search" {
		return "accommodations/{id}"
	}
	return endpoint
}
