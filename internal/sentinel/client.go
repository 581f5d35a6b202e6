// Package sentinel is the imagery session backed by the Copernicus Data Space Sentinel Hub
// APIs (catalog, statistical and process).
package sentinel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/imagery"
	"github.com/AnneIsabelleRodrigues/AgroAnalysis/internal/properties"
)

const (
	DefaultBaseURL  = "https://sh.dataspace.copernicus.eu"
	DefaultTokenURL = "https://identity.dataspace.copernicus.eu/auth/realms/CDSE/protocol/openid-connect/token"

	catalogPath    = "/api/v1/catalog/1.0.0/search"
	statisticsPath = "/api/v1/statistics"
	processPath    = "/api/v1/process"
)

var ErrUnauthorized = errors.New("unauthorized access, check your client ID and secret")

type Config struct {
	BaseURL       string
	TokenURL      string
	ClientIDs     []string
	ClientSecrets []string
	// Timeout bounds every HTTP request, token fetches included.
	Timeout time.Duration
	Logger  *slog.Logger
	// HTTPClient supplies the transport for tokens and API calls.
	HTTPClient *http.Client
}

// ConfigFromEnv reads the COPERNICUS_* variables. Client ids and secrets are comma separated
// lists of credential pairs.
func ConfigFromEnv() Config {
	return Config{
		BaseURL:       properties.CopernicusBaseURL(),
		TokenURL:      properties.CopernicusTokenURL(),
		ClientIDs:     splitList(properties.CopernicusClientID()),
		ClientSecrets: splitList(properties.CopernicusClientSecret()),
	}
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Client implements imagery.Session. Requests rotate to the next credential pair when the
// service answers 401 or 403.
type Client struct {
	baseURL string
	clients []*http.Client
	logger  *slog.Logger

	mu     sync.Mutex
	active int
}

var _ imagery.Session = (*Client)(nil)

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if len(cfg.ClientIDs) == 0 || len(cfg.ClientSecrets) == 0 {
		return nil, fmt.Errorf("missing required credentials: COPERNICUS_CLIENT_ID, COPERNICUS_CLIENT_SECRET")
	}
	if len(cfg.ClientIDs) != len(cfg.ClientSecrets) {
		return nil, fmt.Errorf("mismatched number of client IDs (%d) and secrets (%d)", len(cfg.ClientIDs), len(cfg.ClientSecrets))
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{}
	}
	base = &http.Client{Transport: base.Transport, Timeout: cfg.Timeout}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		logger:  cfg.Logger.With("component", "sentinel"),
	}
	for i, id := range cfg.ClientIDs {
		cc := &clientcredentials.Config{
			ClientID:     id,
			ClientSecret: cfg.ClientSecrets[i],
			TokenURL:     cfg.TokenURL,
		}
		httpClient := cc.Client(ctx)
		httpClient.Timeout = cfg.Timeout
		c.clients = append(c.clients, httpClient)
	}
	return c, nil
}

// StatusError is a non-200 answer of the service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

func transientStatus(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500
}

// post sends payload as JSON and returns the body of a 200 answer.
func (c *Client) post(ctx context.Context, op, image, path string, payload any, accept string) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	c.mu.Lock()
	start := c.active
	c.mu.Unlock()

	for n := 0; n < len(c.clients); n++ {
		idx := (start + n) % len(c.clients)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", accept)

		began := time.Now()
		resp, err := c.clients[idx].Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &imagery.RemoteComputeError{Op: op, Image: image, Err: ctx.Err()}
			}
			var re *oauth2.RetrieveError
			if errors.As(err, &re) && re.Response != nil && (re.Response.StatusCode == http.StatusUnauthorized || re.Response.StatusCode == http.StatusForbidden) {
				c.logger.Warn("credential rejected by token endpoint, rotating", "credential", idx)
				continue
			}
			return nil, &imagery.RemoteComputeError{Op: op, Image: image, Transient: true, Err: err}
		}
		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, &imagery.RemoteComputeError{Op: op, Image: image, Transient: true, Err: fmt.Errorf("failed to read response body: %w", err)}
		}
		c.logger.Debug("request", "op", op, "image", image, "status", resp.StatusCode, "took", time.Since(began))

		switch {
		case resp.StatusCode == http.StatusOK:
			c.mu.Lock()
			c.active = idx
			c.mu.Unlock()
			return raw, nil
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			c.logger.Warn("credential rejected, rotating", "credential", idx, "status", resp.StatusCode)
			continue
		default:
			return nil, &imagery.RemoteComputeError{
				Op:        op,
				Image:     image,
				Transient: transientStatus(resp.StatusCode),
				Err:       &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))},
			}
		}
	}
	return nil, &imagery.RemoteComputeError{Op: op, Image: image, Err: ErrUnauthorized}
}

// calculatePixels converts a distance in degrees to a pixel count at resolution meters.
func calculatePixels(distance float64, resolution float64) int {
	pixels := distance * (111_000.0 / resolution)
	if pixels < 1 {
		return 1
	}
	if pixels > 2500 {
		return 2500
	}
	return int(pixels)
}
