package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ServicePrincipal is the non-human identity used for automated
// authentication against the platform.
type ServicePrincipal struct {
	TenantId     string
	ClientId     string
	ClientSecret string
}

var ErrAuthenticationFailed = errors.New("service principal authentication failed")

// Tokens are refreshed this long before their exp claim to avoid handing
// out a token that expires mid-request.
const expirySkew = 2 * time.Minute

// Credential exchanges a service principal for bearer tokens via the
// client-credentials grant and caches the token until it nears expiry.
// There is no retry or fallback: an invalid secret, unknown principal, or
// missing permission surfaces directly as an error.
type Credential struct {
	authEndpoint string
	principal    ServicePrincipal

	mu      sync.Mutex
	token   string
	expires time.Time

	http *http.Client
}

func NewCredential(authEndpoint string, principal ServicePrincipal) *Credential {
	return &Credential{authEndpoint: authEndpoint, principal: principal, http: http.DefaultClient}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *Credential) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.expires.Add(-expirySkew)) {
		return c.token, nil
	}

	token, expires, err := c.exchange(ctx)
	if err != nil {
		return "", err
	}

	c.token = token
	c.expires = expires
	return c.token, nil
}

func (c *Credential) exchange(ctx context.Context) (string, time.Time, error) {
	endpoint, err := url.JoinPath(c.authEndpoint, c.principal.TenantId, "oauth2/token")
	if err != nil {
		return "", time.Time{}, fmt.Errorf("error formatting token endpoint url: %w", err)
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.principal.ClientId)
	form.Set("client_secret", c.principal.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("error creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.http.Do(req)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("error sending token request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden || res.StatusCode == http.StatusBadRequest {
		slog.Error("token exchange rejected", "tenant_id", c.principal.TenantId, "client_id", c.principal.ClientId, "code", res.StatusCode)
		return "", time.Time{}, fmt.Errorf("%w: token endpoint returned status %d", ErrAuthenticationFailed, res.StatusCode)
	}
	if res.StatusCode != http.StatusOK {
		return "", time.Time{}, fmt.Errorf("token endpoint returned status %d", res.StatusCode)
	}

	var tokenRes tokenResponse
	err = json.NewDecoder(res.Body).Decode(&tokenRes)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("error parsing token response: %w", err)
	}
	if tokenRes.AccessToken == "" {
		return "", time.Time{}, fmt.Errorf("token endpoint returned empty access token")
	}

	expires := tokenExpiry(tokenRes)

	slog.Info("service principal token acquired", "client_id", c.principal.ClientId, "expires", expires)

	return tokenRes.AccessToken, expires, nil
}

// The token's own exp claim is authoritative when present, expires_in is
// the fallback for opaque tokens.
func tokenExpiry(res tokenResponse) time.Time {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	_, _, err := parser.ParseUnverified(res.AccessToken, claims)
	if err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}

	if res.ExpiresIn > 0 {
		return time.Now().Add(time.Duration(res.ExpiresIn) * time.Second)
	}

	return time.Now().Add(expirySkew)
}
