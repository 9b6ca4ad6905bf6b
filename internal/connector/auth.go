package connector

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fairyhunter13/freight-price-movement-agent/internal/domain"
)

// tokenExpirySlack is subtracted from expires_in so tokens are refreshed
// before the upstream rejects them.
const tokenExpirySlack = 60 * time.Second

// authenticator decorates outgoing requests with credentials.
// invalidate drops any cached credential after a 401 so the next apply
// re-authenticates; the request is then retried exactly once.
type authenticator interface {
	apply(ctx domain.Context, req *http.Request) error
	invalidate()
}

type noAuth struct{}

func (noAuth) apply(domain.Context, *http.Request) error { return nil }
func (noAuth) invalidate()                               {}

type basicAuth struct {
	username string
	password string
}

func (a basicAuth) apply(_ domain.Context, req *http.Request) error {
	req.SetBasicAuth(a.username, a.password)
	return nil
}
func (basicAuth) invalidate() {}

type apiKeyAuth struct {
	header string
	key    string
}

func (a apiKeyAuth) apply(_ domain.Context, req *http.Request) error {
	req.Header.Set(a.header, a.key)
	return nil
}
func (apiKeyAuth) invalidate() {}

// oauth2Auth implements the client-credentials grant with a cached token.
type oauth2Auth struct {
	tokenURL     string
	clientID     string
	clientSecret string
	scope        string
	client       *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time

	now func() time.Time
}

func newOAuth2(tokenURL, clientID, clientSecret, scope string, client *http.Client) *oauth2Auth {
	return &oauth2Auth{
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		scope:        scope,
		client:       client,
		now:          time.Now,
	}
}

func (a *oauth2Auth) apply(ctx domain.Context, req *http.Request) error {
	token, err := a.currentToken(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

func (a *oauth2Auth) invalidate() {
	a.mu.Lock()
	a.token = ""
	a.expiresAt = time.Time{}
	a.mu.Unlock()
}

func (a *oauth2Auth) currentToken(ctx domain.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.token != "" && a.now().Before(a.expiresAt) {
		return a.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", a.clientID)
	form.Set("client_secret", a.clientSecret)
	if a.scope != "" {
		form.Set("scope", a.scope)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", domain.Wrap(domain.KindAuthentication, "build token request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", domain.Wrap(domain.KindAuthentication, "token endpoint unreachable", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", domain.Wrap(domain.KindAuthentication, "read token response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", domain.Ef(domain.KindAuthentication, "token endpoint returned %d", resp.StatusCode).
			WithDetail("status_code", resp.StatusCode)
	}

	var payload struct {
		AccessToken string      `json:"access_token"`
		ExpiresIn   json.Number `json:"expires_in"`
		TokenType   string      `json:"token_type"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", domain.Wrap(domain.KindAuthentication, "malformed token response", err)
	}
	if payload.AccessToken == "" {
		return "", domain.E(domain.KindAuthentication, "token response carries no access_token")
	}

	ttl := 3600 * time.Second
	if secs, err := payload.ExpiresIn.Int64(); err == nil && secs > 0 {
		ttl = time.Duration(secs) * time.Second
	}
	a.token = payload.AccessToken
	a.expiresAt = a.now().Add(ttl - tokenExpirySlack)
	return a.token, nil
}

// authFromParams builds the authenticator selected by the auth_type
// connection parameter. An absent auth_type means unauthenticated.
func authFromParams(params map[string]any, client *http.Client) (authenticator, error) {
	switch typ := strings.ToLower(strParam(params, "auth_type", "none")); typ {
	case "none":
		return noAuth{}, nil
	case "basic":
		u := strParam(params, "username", "")
		p := strParam(params, "password", "")
		if u == "" {
			return nil, domain.E(domain.KindConfiguration, "basic auth requires username")
		}
		return basicAuth{username: u, password: p}, nil
	case "api_key":
		key := strParam(params, "api_key", "")
		if key == "" {
			return nil, domain.E(domain.KindConfiguration, "api_key auth requires api_key")
		}
		return apiKeyAuth{header: strParam(params, "header_name", "X-API-Key"), key: key}, nil
	case "oauth2":
		tokenURL := strParam(params, "token_url", "")
		clientID := strParam(params, "client_id", "")
		clientSecret := strParam(params, "client_secret", "")
		if tokenURL == "" || clientID == "" || clientSecret == "" {
			return nil, domain.E(domain.KindConfiguration, "oauth2 auth requires token_url, client_id and client_secret")
		}
		return newOAuth2(tokenURL, clientID, clientSecret, strParam(params, "scope", ""), client), nil
	default:
		return nil, domain.Ef(domain.KindConfiguration, "unsupported auth_type %q", typ)
	}
}

// httpError maps a non-2xx response to the taxonomy: 401 authentication,
// 403 authorization, everything else a data source failure carrying the
// status code for retry classification.
func httpError(op string, status int) error {
	switch status {
	case http.StatusUnauthorized:
		return domain.Ef(domain.KindAuthentication, "%s: upstream rejected credentials", op).
			WithDetail("status_code", status)
	case http.StatusForbidden:
		return domain.Ef(domain.KindAuthorization, "%s: upstream denied access", op).
			WithDetail("status_code", status)
	default:
		return domain.Ef(domain.KindDataSource, "%s: upstream returned %d", op, status).
			WithDetail("status_code", status)
	}
}
