package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	// Production service hosts
	DefaultAccountServiceURL = "https://account-public-service-prod.ol.epicgames.com"
	DefaultFriendsServiceURL = "https://friends-public-service-prod.ol.epicgames.com"

	// Account service paths
	tokenPath               = "/account/api/oauth/token"
	deviceAuthorizationPath = "/account/api/oauth/deviceAuthorization"
	killSessionPath         = "/account/api/oauth/sessions/kill/"

	// Friends service path prefix
	friendsPath = "/friends/api/v1/"

	// DefaultTimeout bounds every outbound call
	DefaultTimeout = 10 * time.Second

	// maxBodySize caps how much of a response body is read
	maxBodySize = 1 << 20
)

// Operation names carried by TransportError and UpstreamError
const (
	OpClientToken      = "get client token"
	OpCreateDeviceCode = "create device code"
	OpPollToken        = "poll token"
	OpGetFriends       = "get friends"
	OpRemoveFriend     = "remove friend"
	OpKillSession      = "kill session"
)

// Config holds the platform client settings
type Config struct {
	Credential        ClientCredential
	AccountServiceURL string
	FriendsServiceURL string
	Timeout           time.Duration
}

// Client issues calls to the account and friends services. It holds no
// per-user state and is safe for concurrent use.
type Client struct {
	httpClient      *http.Client
	credential      ClientCredential
	clientCreds     *clientcredentials.Config
	accountURL      string
	friendsURL      string
	timeout         time.Duration
	logger          *slog.Logger
	onRevokeFailure func(ctx context.Context, err error)
}

// NewClient creates a platform client
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.Credential.ID == "" {
		return nil, ErrMissingClientID
	}
	if cfg.Credential.Secret == "" {
		return nil, ErrMissingClientSecret
	}

	accountURL, err := cleanServiceURL(cfg.AccountServiceURL, DefaultAccountServiceURL)
	if err != nil {
		return nil, fmt.Errorf("account service: %w", err)
	}
	friendsURL, err := cleanServiceURL(cfg.FriendsServiceURL, DefaultFriendsServiceURL)
	if err != nil {
		return nil, fmt.Errorf("friends service: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		credential: cfg.Credential,
		clientCreds: &clientcredentials.Config{
			ClientID:     cfg.Credential.ID,
			ClientSecret: cfg.Credential.Secret,
			TokenURL:     accountURL + tokenPath,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		accountURL: accountURL,
		friendsURL: friendsURL,
		timeout:    timeout,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.onRevokeFailure == nil {
		c.onRevokeFailure = func(ctx context.Context, err error) {
			c.logger.WarnContext(ctx, "failed to kill platform session", slog.String("error", err.Error()))
		}
	}

	return c, nil
}

func cleanServiceURL(raw, fallback string) (string, error) {
	if raw == "" {
		raw = fallback
	}
	raw = strings.TrimSuffix(raw, "/")
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidServiceURL, raw)
	}
	return raw, nil
}

// GetClientToken obtains an application-level bearer token with the
// client_credentials grant
func (c *Client) GetClientToken(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := c.clientCreds.Token(ctx)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			c.logUpstream(ctx, OpClientToken, retrieveErr.Response.StatusCode)
			return "", &UpstreamError{
				Op:     OpClientToken,
				Status: retrieveErr.Response.StatusCode,
				Body:   string(retrieveErr.Body),
			}
		}
		return "", &TransportError{Op: OpClientToken, Err: err}
	}

	return token.AccessToken, nil
}

// CreateDeviceCode requests a new device authorization using a client token
func (c *Client) CreateDeviceCode(ctx context.Context, clientToken string) (*DeviceAuthorization, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.accountURL+deviceAuthorizationPath, nil)
	if err != nil {
		return nil, fmt.Errorf("creating device code request: %w", err)
	}
	req.Header.Set("Authorization", "bearer "+clientToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	status, body, err := c.do(req, OpCreateDeviceCode)
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		c.logUpstream(ctx, OpCreateDeviceCode, status)
		return nil, &UpstreamError{Op: OpCreateDeviceCode, Status: status, Body: string(body)}
	}

	var auth DeviceAuthorization
	if err := json.Unmarshal(body, &auth); err != nil {
		return nil, fmt.Errorf("parsing device code response: %w", err)
	}

	return &auth, nil
}

// PollToken makes one device_code token request and returns the raw answer.
// Non-2xx statuses are not errors here.
func (c *Client) PollToken(ctx context.Context, deviceCode string) (*PollResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data := url.Values{
		"grant_type":  {"device_code"},
		"device_code": {deviceCode},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.accountURL+tokenPath, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Authorization", c.credential.BasicAuth())
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	status, body, err := c.do(req, OpPollToken)
	if err != nil {
		return nil, err
	}

	return &PollResponse{StatusCode: status, Body: body}, nil
}

// GetFriends fetches the friends summary of an account
func (c *Client) GetFriends(ctx context.Context, accountID, accessToken string) (*FriendsSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.friendsURL + friendsPath + url.PathEscape(accountID) + "/summary"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating friends request: %w", err)
	}
	req.Header.Set("Authorization", "bearer "+accessToken)

	status, body, err := c.do(req, OpGetFriends)
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		c.logUpstream(ctx, OpGetFriends, status)
		return nil, &UpstreamError{Op: OpGetFriends, Status: status, Body: string(body)}
	}

	var summary FriendsSummary
	if err := json.Unmarshal(body, &summary); err != nil {
		return nil, fmt.Errorf("parsing friends summary: %w", err)
	}
	if summary.Friends == nil {
		summary.Friends = []Friend{}
	}

	return &summary, nil
}

// RemoveFriend deletes one friendship
func (c *Client) RemoveFriend(ctx context.Context, accountID, friendID, accessToken string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := c.friendsURL + friendsPath + url.PathEscape(accountID) + "/friends/" + url.PathEscape(friendID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating remove friend request: %w", err)
	}
	req.Header.Set("Authorization", "bearer "+accessToken)

	status, body, err := c.do(req, OpRemoveFriend)
	if err != nil {
		return err
	}
	if !isSuccess(status) {
		c.logUpstream(ctx, OpRemoveFriend, status, slog.String("friend_id", friendID))
		return &UpstreamError{Op: OpRemoveFriend, Target: friendID, Status: status, Body: string(body)}
	}

	return nil
}

// KillSession revokes the user's platform session. It is best-effort: a
// failure is handed to the revocation hook and never returned.
func (c *Client) KillSession(ctx context.Context, accessToken string) {
	if err := c.killSession(ctx, accessToken); err != nil {
		c.onRevokeFailure(ctx, err)
	}
}

func (c *Client) killSession(ctx context.Context, accessToken string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.accountURL+killSessionPath+url.PathEscape(accessToken), nil)
	if err != nil {
		return fmt.Errorf("creating kill session request: %w", err)
	}
	req.Header.Set("Authorization", "bearer "+accessToken)

	status, body, err := c.do(req, OpKillSession)
	if err != nil {
		return err
	}
	if !isSuccess(status) {
		return &UpstreamError{Op: OpKillSession, Status: status, Body: string(body)}
	}

	return nil
}

// do sends the request and reads the whole body while the call's deadline
// is still live
func (c *Client) do(req *http.Request, op string) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return 0, nil, &TransportError{Op: op, Err: fmt.Errorf("reading response: %w", err)}
	}

	return resp.StatusCode, body, nil
}

func (c *Client) logUpstream(ctx context.Context, op string, status int, attrs ...any) {
	args := append([]any{slog.String("op", op), slog.Int("status", status)}, attrs...)
	c.logger.ErrorContext(ctx, "platform call failed", args...)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
