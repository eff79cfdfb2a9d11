// Package danfoss is a client for the Danfoss Ally cloud API.
package danfoss

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hometemp/internal/core"
)

const (
	DefaultBaseURL = "https://api.danfoss.com"
	DefaultTimeout = 30 * time.Second

	tokenPath   = "/oauth2/token"
	devicesPath = "/ally/devices"
)

var (
	ErrMissingAccessToken = errors.New("token response has no access_token")
	ErrMissingExpiresIn   = errors.New("token response has no expires_in")
	ErrMissingResult      = errors.New("devices response has no result")
	ErrMissingDeviceID    = errors.New("device has no id")
	ErrEmptyToken         = errors.New("no bearer token to present")
)

// Config contains Danfoss Ally API configuration
type Config struct {
	APIKey    string
	APISecret string
	BaseURL   string        // defaults to DefaultBaseURL
	Timeout   time.Duration // per-request timeout, defaults to DefaultTimeout
}

// Client talks to the Ally API. It implements core.TokenSource and core.DeviceSource
// and keeps no token state of its own.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new Ally API client
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// AcquireToken performs a client-credentials grant against the token endpoint
func (c *Client) AcquireToken(ctx context.Context) (core.Token, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return core.Token{}, &core.AuthError{Kind: core.KindNetwork, Err: fmt.Errorf("failed to create token request: %w", err)}
	}

	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Basic "+basicCredentials(c.config.APIKey, c.config.APISecret))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return core.Token{}, &core.AuthError{Kind: core.KindNetwork, Err: fmt.Errorf("failed to send token request: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.Token{}, &core.AuthError{Kind: core.KindNetwork, Err: fmt.Errorf("failed to read token response: %w", err)}
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return core.Token{}, &core.AuthError{Kind: core.KindNetwork, Err: statusError(resp.StatusCode, respBody)}
	}
	if resp.StatusCode != http.StatusOK {
		return core.Token{}, &core.AuthError{Kind: core.KindDecode, Err: statusError(resp.StatusCode, respBody)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(respBody, &tr); err != nil {
		return core.Token{}, &core.AuthError{Kind: core.KindDecode, Err: fmt.Errorf("failed to parse token response: %w", err)}
	}
	token, err := tr.token()
	if err != nil {
		return core.Token{}, &core.AuthError{Kind: core.KindDecode, Err: err}
	}

	return token, nil
}

// FetchDevices retrieves the device list with the given bearer token
func (c *Client) FetchDevices(ctx context.Context, token core.Token) ([]core.Device, error) {
	if token.IsZero() {
		return nil, &core.FetchError{Kind: core.KindUnauthorized, Err: ErrEmptyToken}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+devicesPath, nil)
	if err != nil {
		return nil, &core.FetchError{Kind: core.KindNetwork, Err: fmt.Errorf("failed to create devices request: %w", err)}
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &core.FetchError{Kind: core.KindNetwork, Err: fmt.Errorf("failed to send devices request: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &core.FetchError{Kind: core.KindNetwork, Err: fmt.Errorf("failed to read devices response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &core.FetchError{Kind: core.KindUnauthorized, Err: statusError(resp.StatusCode, respBody)}
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, &core.FetchError{Kind: core.KindNetwork, Err: statusError(resp.StatusCode, respBody)}
	case resp.StatusCode != http.StatusOK:
		return nil, &core.FetchError{Kind: core.KindDecode, Err: statusError(resp.StatusCode, respBody)}
	}

	var dr devicesResponse
	if err := json.Unmarshal(respBody, &dr); err != nil {
		return nil, &core.FetchError{Kind: core.KindDecode, Err: fmt.Errorf("failed to parse devices response: %w", err)}
	}

	devices, err := dr.devices()
	if err != nil {
		return nil, &core.FetchError{Kind: core.KindDecode, Err: err}
	}

	return devices, nil
}

// basicCredentials encodes key:secret for a Basic authorization header
func basicCredentials(key, secret string) string {
	return base64.StdEncoding.EncodeToString([]byte(key + ":" + secret))
}

func statusError(code int, body []byte) error {
	const maxBody = 512
	if len(body) > maxBody {
		body = body[:maxBody]
	}
	return fmt.Errorf("API request failed with status %d: %s", code, strings.TrimSpace(string(body)))
}

// Ensure Client satisfies the collaborator interfaces
var (
	_ core.TokenSource  = (*Client)(nil)
	_ core.DeviceSource = (*Client)(nil)
)
