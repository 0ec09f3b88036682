// Package slack is a minimal client for the two Slack surfaces the
// reconciler needs: the workspace Web API (users.list, chat.postMessage) and
// the SCIM provisioning API (Users listing, revoke-by-id).
package slack

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/boompig/slack-ldap-sync/internal/config"
	"github.com/boompig/slack-ldap-sync/internal/domain"
)

var (
	_ domain.PlatformClient = (*Client)(nil)
	_ domain.SessionRevoker = (*Client)(nil)
	_ domain.Messenger      = (*Client)(nil)
)

// Client talks to one Slack workspace. All calls are synchronous; message
// sends are rate-limited to stay inside chat.postMessage limits during
// owner fan-outs.
type Client struct {
	httpClient *http.Client
	cfg        config.SlackConfig
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// New creates a Client from workspace configuration.
func New(cfg config.SlackConfig, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
		},
		cfg: cfg,
		// chat.postMessage allows roughly one message per second with
		// small bursts.
		limiter: rate.NewLimiter(rate.Limit(1), 3),
		logger:  logger,
	}
}

// webAPIEnvelope is the common Web API response wrapper.
type webAPIEnvelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// member is the users.list member shape, reduced to the fields the
// reconciler classifies on.
type member struct {
	ID                string `json:"id"`
	IsRestricted      bool   `json:"is_restricted"`
	IsUltraRestricted bool   `json:"is_ultra_restricted"`
	IsOwner           bool   `json:"is_owner"`
	Profile           struct {
		Email string `json:"email"`
	} `json:"profile"`
}

// ListAccounts retrieves the workspace member listing via users.list.
// The listing has no first-class active flag, so every account is marked
// active; restricted and ultra-restricted members are guests.
func (c *Client) ListAccounts(ctx context.Context) ([]domain.PlatformAccount, error) {
	q := url.Values{}
	q.Set("token", c.cfg.Token)
	q.Set("limit", "9999")
	q.Set("presence", "false")
	q.Set("include_locale", "false")

	var resp struct {
		webAPIEnvelope
		Members []member `json:"members"`
	}
	if err := c.getJSON(ctx, c.cfg.Subdomain+"/api/users.list?"+q.Encode(), nil, &resp); err != nil {
		return nil, domain.ErrPlatformUnavailable("users.list: %v", err)
	}
	if !resp.OK {
		return nil, domain.ErrPlatformUnavailable("users.list: %s", resp.Error)
	}

	accounts := make([]domain.PlatformAccount, 0, len(resp.Members))
	for _, m := range resp.Members {
		accounts = append(accounts, domain.PlatformAccount{
			ID:      m.ID,
			Email:   domain.NormalizeEmail(m.Profile.Email),
			Active:  true,
			IsGuest: m.IsRestricted || m.IsUltraRestricted,
			IsOwner: m.IsOwner,
		})
	}
	return accounts, nil
}

// scimUser is the SCIM v1 Users resource, reduced to the fields the
// reconciler needs.
type scimUser struct {
	ID     string `json:"id"`
	Active bool   `json:"active"`
	Emails []struct {
		Value   string `json:"value"`
		Primary bool   `json:"primary"`
	} `json:"emails"`
}

// ListProvisionedAccounts retrieves the SCIM Users listing, which carries
// identity-provider emails and a real active flag. A resource with no email
// is a schema violation and fails the listing rather than being dropped.
func (c *Client) ListProvisionedAccounts(ctx context.Context) ([]domain.PlatformAccount, error) {
	var resp struct {
		Resources []scimUser `json:"Resources"`
	}
	if err := c.getJSON(ctx, c.cfg.APIHost+"/scim/v1/Users?count=999999", c.scimHeaders(), &resp); err != nil {
		return nil, domain.ErrPlatformUnavailable("scim list users: %v", err)
	}

	accounts := make([]domain.PlatformAccount, 0, len(resp.Resources))
	for _, u := range resp.Resources {
		if len(u.Emails) == 0 || u.Emails[0].Value == "" {
			return nil, domain.ErrPlatformUnavailable("scim user %s has no email address", u.ID)
		}
		accounts = append(accounts, domain.PlatformAccount{
			ID:     u.ID,
			Email:  domain.NormalizeEmail(u.Emails[0].Value),
			Active: u.Active,
		})
	}
	return accounts, nil
}

// RevokeAccount deletes one account via the SCIM API. The platform expires
// the account's web and mobile sessions as part of the same call. Deleting
// an already-deleted account returns 404, which is treated as success so
// retried cycles stay idempotent.
func (c *Client) RevokeAccount(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.cfg.APIHost+"/scim/v1/Users/"+url.PathEscape(id), nil)
	if err != nil {
		return fmt.Errorf("create revoke request: %w", err)
	}
	for k, v := range c.scimHeaders() {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("scim delete user %s: %w", id, err)
	}
	defer resp.Body.Close() //nolint:errcheck
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		c.logger.Debug("account already revoked", "account_id", id)
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("scim delete user %s: status %d", id, resp.StatusCode)
	}
	return nil
}

// SendDirectMessage posts one direct message via chat.postMessage, addressed
// by account ID, using the configured display name and icon.
func (c *Client) SendDirectMessage(ctx context.Context, accountID, text string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("message rate limiter: %w", err)
	}

	q := url.Values{}
	q.Set("token", c.cfg.Token)
	q.Set("channel", accountID)
	q.Set("text", text)
	q.Set("username", c.cfg.NotifyUsername)
	q.Set("icon_emoji", c.cfg.IconEmoji)

	var resp webAPIEnvelope
	if err := c.getJSON(ctx, c.cfg.Subdomain+"/api/chat.postMessage?"+q.Encode(), nil, &resp); err != nil {
		return fmt.Errorf("chat.postMessage to %s: %w", accountID, err)
	}
	if !resp.OK {
		return fmt.Errorf("chat.postMessage to %s: %s", accountID, resp.Error)
	}
	return nil
}

// getJSON issues a GET and decodes the JSON response body into out.
// Non-2xx statuses are errors.
func (c *Client) getJSON(ctx context.Context, rawURL string, headers map[string]string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) scimHeaders() map[string]string {
	return map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + c.cfg.Token,
	}
}
