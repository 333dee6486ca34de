package social

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/clout9/backend/pkg/config"
	"github.com/clout9/backend/pkg/telemetry"
)

// Provider error codes surfaced to clients
const (
	CodeWrongGoogleToken   = 12
	CodeWrongFacebookToken = 13
	CodeWrongAppleToken    = 14
)

// Error is a provider verification failure with a client-facing code
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// UserInfo is the identity a provider vouches for. UID is set only for
// Apple, which keys accounts on the opaque subject rather than email.
type UserInfo struct {
	Email string
	Name  string
	UID   string
}

// Client verifies third-party login tokens against Google, Facebook
// and Apple.
type Client struct {
	cfg    *config.SocialConfig
	client *http.Client
}

// NewClient creates a social login client. The HTTP timeout comes from
// configuration so a slow provider cannot hold login requests open.
func NewClient(cfg *config.SocialConfig) *Client {
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// GoogleUserInfo resolves a Google access token to the account it
// belongs to.
func (c *Client) GoogleUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	ctx, span := telemetry.StartSpan(ctx, "social.google_userinfo")
	defer span.End()

	u := c.cfg.GoogleUserinfoURL + "?access_token=" + url.QueryEscape(accessToken)
	data, err := c.getJSON(ctx, u)
	if err != nil {
		return nil, err
	}
	if _, bad := data["error"]; bad {
		return nil, &Error{Code: CodeWrongGoogleToken, Message: "wrong google token / this google token is already expired."}
	}
	return &UserInfo{
		Email: stringField(data, "email"),
		Name:  stringField(data, "name"),
	}, nil
}

// FacebookUserInfo resolves a Facebook access token to the account it
// belongs to.
func (c *Client) FacebookUserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	ctx, span := telemetry.StartSpan(ctx, "social.facebook_userinfo")
	defer span.End()

	u := c.cfg.FacebookGraphURL + "?fields=email,name&access_token=" + url.QueryEscape(accessToken)
	data, err := c.getJSON(ctx, u)
	if err != nil {
		return nil, err
	}
	if _, bad := data["error"]; bad {
		return nil, &Error{Code: CodeWrongFacebookToken, Message: "wrong facebook token / this facebook token is already expired."}
	}
	return &UserInfo{
		Email: stringField(data, "email"),
		Name:  stringField(data, "name"),
	}, nil
}

// AppleUserInfo exchanges a Sign in with Apple authorization code for
// the identity it represents. The id_token signature is not verified:
// the token arrives directly from Apple over TLS in the same exchange.
func (c *Client) AppleUserInfo(ctx context.Context, code string) (*UserInfo, error) {
	ctx, span := telemetry.StartSpan(ctx, "social.apple_token_exchange")
	defer span.End()

	clientSecret, err := c.appleClientSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to build Apple client secret: %w", err)
	}

	form := url.Values{}
	form.Set("client_id", c.cfg.AppleClientID)
	form.Set("client_secret", clientSecret)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", c.cfg.AppleRedirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AppleTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var tokenResp struct {
		IDToken string `json:"id_token"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil || tokenResp.IDToken == "" {
		return nil, &Error{Code: CodeWrongAppleToken, Message: "wrong apple token / this apple token is already expired."}
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenResp.IDToken, claims); err != nil {
		return nil, &Error{Code: CodeWrongAppleToken, Message: "wrong apple token / this apple token is already expired."}
	}

	return &UserInfo{
		Email: stringField(claims, "email"),
		Name:  stringField(claims, "name"),
		UID:   stringField(claims, "sub"),
	}, nil
}

// appleClientSecret signs a short-lived ES256 assertion identifying the
// app to Apple's token endpoint.
func (c *Client) appleClientSecret() (string, error) {
	key, err := jwt.ParseECPrivateKeyFromPEM([]byte(c.cfg.ApplePrivateKey))
	if err != nil {
		return "", err
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"iss": c.cfg.AppleTeamID,
		"iat": now.Unix(),
		"exp": now.Add(180 * 24 * time.Hour).Unix(),
		"aud": "https://appleid.apple.com",
		"sub": c.cfg.AppleClientID,
	})
	token.Header["kid"] = c.cfg.AppleKeyID
	return token.SignedString(key)
}

func (c *Client) getJSON(ctx context.Context, url string) (map[string]interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var data map[string]interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to decode provider response: %w", err)
	}
	return data, nil
}

func stringField(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}
