// Package identity exchanges login-session ids with the external identity provider.
package identity

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"wanderbook/internal/adapters/observability"
	"wanderbook/internal/domain"
)

const service = "identity"

type Client struct {
	url string
	hc  *http.Client
}

func New(sessionURL string) *Client {
	return &Client{url: sessionURL, hc: &http.Client{Timeout: 10 * time.Second}}
}

// ExchangeSession resolves a provider session id to the identity behind it.
// A 4xx answer means the id is not valid and maps to ErrNotAuthenticated.
func (c *Client) ExchangeSession(ctx context.Context, sessionID string) (domain.ExternalIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return domain.ExternalIdentity{}, errors.Wrap(err, "build request")
	}
	req.Header.Set("X-Session-ID", sessionID)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal(service, "session-data", 0, time.Since(start))
		return domain.ExternalIdentity{}, errors.Mark(errors.Wrap(err, "session-data"), domain.ErrProviderUnavailable)
	}
	defer resp.Body.Close()
	observability.ObserveExternal(service, "session-data", resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return domain.ExternalIdentity{}, errors.Wrapf(domain.ErrNotAuthenticated, "session-data: status %d", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Error().Int("status", resp.StatusCode).Str("body", strings.TrimSpace(string(b))).Msg("identity provider error")
		return domain.ExternalIdentity{}, errors.Wrapf(domain.ErrProviderUnavailable, "session-data: status %d", resp.StatusCode)
	}

	var out domain.ExternalIdentity
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.ExternalIdentity{}, errors.Mark(errors.Wrap(err, "decode session-data"), domain.ErrUnexpectedResponse)
	}
	return out, nil
}
