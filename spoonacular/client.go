// Package spoonacular is the client for the upstream recipe API. A single
// logical request is tried against an ordered list of API keys so that one
// key's exhausted quota does not take the service down.
package spoonacular

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/plateful/plateful/apperr"
)

// errQuota marks a per-key quota failure (upstream 402 or 429). It is the only
// failure class the fallback loop recovers from.
var errQuota = errors.New("key quota exhausted")

const DefaultBaseURL = "https://api.spoonacular.com/recipes"

const defaultAttemptTimeout = 10 * time.Second

// Client fetches from the upstream recipe API with key fallback. Keys are
// loaded once at startup and never mutated afterwards, so a Client is safe for
// concurrent use.
type Client struct {
	BaseURL string
	Keys    []string
	HTTP    *http.Client
	Logger  *logrus.Logger

	// AttemptTimeout bounds the wait for each key attempt separately, so a
	// stalled key cannot block the whole fallback loop.
	AttemptTimeout time.Duration
}

func NewClient(keys []string, logger *logrus.Logger) *Client {
	return &Client{
		BaseURL:        DefaultBaseURL,
		Keys:           keys,
		HTTP:           &http.Client{},
		Logger:         logger,
		AttemptTimeout: defaultAttemptTimeout,
	}
}

// Fetch executes pathAndQuery against the upstream API, trying each configured
// key in order. A 2xx response wins immediately. 402 and 429 mean the key's
// quota is spent and the next key is tried. Any other failure is terminal and
// is returned without trying the remaining keys.
func (c *Client) Fetch(ctx context.Context, pathAndQuery string) ([]byte, error) {
	if len(c.Keys) == 0 {
		return nil, apperr.ErrNoCredentials
	}
	for i, key := range c.Keys {
		body, err := c.attempt(ctx, pathAndQuery, key)
		if err == nil {
			return body, nil
		}
		if errors.Is(err, errQuota) {
			c.Logger.WithFields(logrus.Fields{
				"key_index": i,
				"path":      pathAndQuery,
			}).Warn("spoonacular key quota exhausted, trying next key")
			continue
		}
		return nil, err
	}
	return nil, apperr.ErrCredentialsExhausted
}

// attempt issues one GET with one key. Quota-class statuses come back as
// errQuota so Fetch can advance to the next key.
func (c *Client) attempt(ctx context.Context, pathAndQuery, key string) ([]byte, error) {
	timeout := c.AttemptTimeout
	if timeout <= 0 {
		timeout = defaultAttemptTimeout
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sep := "?"
	if strings.Contains(pathAndQuery, "?") {
		sep = "&"
	}
	fullURL := c.BaseURL + pathAndQuery + sep + "apiKey=" + url.QueryEscape(key)

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrUpstream, "")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrUpstream, "could not reach recipe service")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrUpstream, "could not read recipe service response")
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusPaymentRequired || resp.StatusCode == http.StatusTooManyRequests:
		return nil, errQuota
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperr.ErrUpstreamNotFound
	default:
		return nil, apperr.WithMessage(apperr.ErrUpstream, fmt.Sprintf("recipe service returned status %d", resp.StatusCode))
	}
}

// Random fetches a batch of random recipes and returns the upstream "recipes"
// array untouched.
func (c *Client) Random(ctx context.Context, number int) (json.RawMessage, error) {
	body, err := c.Fetch(ctx, fmt.Sprintf("/random?number=%d", number))
	if err != nil {
		return nil, err
	}
	var payload struct {
		Recipes json.RawMessage `json:"recipes"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, apperr.Wrap(err, apperr.ErrUpstream, "could not parse recipe service response")
	}
	return payload.Recipes, nil
}

// Search runs a complex search and returns the upstream "results" array.
func (c *Client) Search(ctx context.Context, query string) (json.RawMessage, error) {
	body, err := c.Fetch(ctx, "/complexSearch?query="+url.QueryEscape(query))
	if err != nil {
		return nil, err
	}
	var payload struct {
		Results json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, apperr.Wrap(err, apperr.ErrUpstream, "could not parse recipe service response")
	}
	return payload.Results, nil
}

// ByID fetches the full detail object for one upstream recipe.
func (c *Client) ByID(ctx context.Context, id int) (json.RawMessage, error) {
	body, err := c.Fetch(ctx, fmt.Sprintf("/%d/information", id))
	if err != nil {
		return nil, err
	}
	return body, nil
}
