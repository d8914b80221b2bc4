// internal/geocode/geocode.go
//
// Intake – address geocoder.
//
// Context
//   After the postcode widget fills the address, the form asks this client
//   for coordinates.  It calls a Kakao-style local address search:
//
//       GET {base}/v2/local/search/address.json?query=<address>
//       Authorization: KakaoAK <api key>
//
//       {"documents": [{"x": "127.0276", "y": "37.4979", …}, …]}
//
//   x is the longitude and y the latitude; both stay textual so the form
//   validator decides whether they parse.  Transient failures (5xx, 429,
//   connection errors) are retried by go-retryablehttp.
//
//------------------------------------------------------------------------------

package geocode

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

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/yanizio/intake/internal/form"
)

// ErrNoAPIKey is returned by New when no key is configured.
var ErrNoAPIKey = errors.New("geocode: api key is empty")

const searchPath = "/v2/local/search/address.json"

// Options configures a Client.  Zero values pick the defaults in New.
type Options struct {
	BaseURL  string
	APIKey   string
	RetryMax int
	Timeout  time.Duration

	// RetryWaitMin and RetryWaitMax bound the backoff between attempts.
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

// Client implements form.Geocoder.
type Client struct {
	base   string
	apiKey string
	http   *retryablehttp.Client
}

// New returns a client for opt.
func New(opt Options) (*Client, error) {
	if opt.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if opt.BaseURL == "" {
		opt.BaseURL = "https://dapi.kakao.com"
	}
	if opt.Timeout <= 0 {
		opt.Timeout = 3 * time.Second
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = opt.RetryMax
	if opt.RetryWaitMin > 0 {
		rc.RetryWaitMin = opt.RetryWaitMin
	}
	if opt.RetryWaitMax > 0 {
		rc.RetryWaitMax = opt.RetryWaitMax
	}
	rc.HTTPClient.Timeout = opt.Timeout
	rc.Logger = zapLeveled{zap.S().Named("geocode")}

	return &Client{
		base:   strings.TrimRight(opt.BaseURL, "/"),
		apiKey: opt.APIKey,
		http:   rc,
	}, nil
}

type searchResponse struct {
	Documents []struct {
		X string `json:"x"`
		Y string `json:"y"`
	} `json:"documents"`
}

// Coordinates returns every candidate for address, best first.  No match
// is an empty slice, not an error.
func (c *Client) Coordinates(ctx context.Context, address string) ([]form.Coordinate, error) {
	u := c.base + searchPath + "?" + url.Values{"query": {address}}.Encode()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "KakaoAK "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode %q: %w", address, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("geocode %q: status %d: %s", address, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var body searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return nil, fmt.Errorf("geocode %q: decode: %w", address, err)
	}

	out := make([]form.Coordinate, 0, len(body.Documents))
	for _, d := range body.Documents {
		out = append(out, form.Coordinate{Longitude: d.X, Latitude: d.Y})
	}
	return out, nil
}

// zapLeveled adapts a sugared logger to retryablehttp.LeveledLogger.
type zapLeveled struct{ l *zap.SugaredLogger }

func (z zapLeveled) Error(msg string, kv ...interface{}) { z.l.Errorw(msg, kv...) }
func (z zapLeveled) Info(msg string, kv ...interface{})  { z.l.Debugw(msg, kv...) }
func (z zapLeveled) Debug(msg string, kv ...interface{}) { z.l.Debugw(msg, kv...) }
func (z zapLeveled) Warn(msg string, kv ...interface{})  { z.l.Warnw(msg, kv...) }
