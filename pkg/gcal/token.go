package gcal

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenEndpoint = "https://oauth2.googleapis.com/token"

// tokenSource exchanges signed service-account assertions for access tokens
// and caches them until shortly before expiry.
type tokenSource struct {
	clientEmail string
	privateKey  *rsa.PrivateKey
	scopes      []string
	subject     string
	httpClient  *http.Client
	endpoint    string

	mu      sync.Mutex
	token   string
	expires time.Time
}

func newTokenSource(clientEmail, pemKey string, scopes []string, subject string, httpClient *http.Client, endpoint string) (*tokenSource, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(pemKey))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	if endpoint == "" {
		endpoint = tokenEndpoint
	}
	return &tokenSource{
		clientEmail: clientEmail,
		privateKey:  key,
		scopes:      scopes,
		subject:     subject,
		httpClient:  httpClient,
		endpoint:    endpoint,
	}, nil
}

// Token returns a valid bearer token, minting a new one when the cached
// token is within a minute of expiry.
func (ts *tokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.token != "" && time.Until(ts.expires) > time.Minute {
		return ts.token, nil
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":   ts.clientEmail,
		"scope": strings.Join(ts.scopes, " "),
		"aud":   tokenEndpoint,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
	if ts.subject != "" {
		claims["sub"] = ts.subject
	}
	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(ts.privateKey)
	if err != nil {
		return "", fmt.Errorf("sign assertion: %w", err)
	}

	form := url.Values{}
	form.Set("grant_type", "urn:ietf:params:oauth:grant-type:jwt-bearer")
	form.Set("assertion", assertion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token exchange status: %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	ts.token = body.AccessToken
	ts.expires = now.Add(time.Duration(body.ExpiresIn) * time.Second)
	return ts.token, nil
}
