package slack

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boompig/slack-ldap-sync/internal/config"
	"github.com/boompig/slack-ldap-sync/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(srv *httptest.Server) *Client {
	return New(config.SlackConfig{
		Token:          "xoxp-test",
		APIHost:        srv.URL,
		Subdomain:      srv.URL,
		NotifyUsername: "slack reaper",
		IconEmoji:      ":scream_cat:",
	}, testLogger())
}

func TestClient_ListAccounts(t *testing.T) {
	t.Run("maps_members", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/users.list", r.URL.Path)
			assert.Equal(t, "xoxp-test", r.URL.Query().Get("token"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"ok": true,
				"members": [
					{"id": "U001", "is_owner": true, "profile": {"email": "Owner@X.com"}},
					{"id": "U002", "is_restricted": true, "profile": {"email": "guest@x.com"}},
					{"id": "U003", "is_ultra_restricted": true, "profile": {"email": "ultra@x.com"}},
					{"id": "U004", "deleted": true, "profile": {"email": "emp@x.com"}}
				]
			}`))
		}))
		defer srv.Close()

		accounts, err := newTestClient(srv).ListAccounts(context.Background())

		require.NoError(t, err)
		require.Len(t, accounts, 4)
		assert.Equal(t, "owner@x.com", accounts[0].Email, "emails are normalized at ingestion")
		assert.True(t, accounts[0].IsOwner)
		assert.True(t, accounts[1].IsGuest, "restricted members are guests")
		assert.True(t, accounts[2].IsGuest, "ultra-restricted members are guests")
		for _, a := range accounts {
			assert.True(t, a.Active, "every listed member is treated as active, deleted included")
		}
	})

	t.Run("api_error_envelope", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"ok": false, "error": "invalid_auth"}`))
		}))
		defer srv.Close()

		_, err := newTestClient(srv).ListAccounts(context.Background())

		require.Error(t, err)
		var unavailable *domain.PlatformUnavailableError
		assert.True(t, errors.As(err, &unavailable))
		assert.Contains(t, err.Error(), "invalid_auth")
	})

	t.Run("transport_error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := newTestClient(srv).ListAccounts(context.Background())

		require.Error(t, err)
		var unavailable *domain.PlatformUnavailableError
		assert.True(t, errors.As(err, &unavailable))
	})
}

func TestClient_ListProvisionedAccounts(t *testing.T) {
	t.Run("maps_scim_resources", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/scim/v1/Users", r.URL.Path)
			assert.Equal(t, "Bearer xoxp-test", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"totalResults": 2,
				"Resources": [
					{"id": "U001", "active": true, "emails": [{"value": "Emp@X.com", "primary": true}]},
					{"id": "U002", "active": false, "emails": [{"value": "gone@x.com"}]}
				]
			}`))
		}))
		defer srv.Close()

		accounts, err := newTestClient(srv).ListProvisionedAccounts(context.Background())

		require.NoError(t, err)
		require.Len(t, accounts, 2)
		assert.Equal(t, "emp@x.com", accounts[0].Email)
		assert.True(t, accounts[0].Active)
		assert.False(t, accounts[1].Active)
	})

	t.Run("resource_without_email_fails_fast", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"Resources": [{"id": "U001", "active": true, "emails": []}]}`))
		}))
		defer srv.Close()

		_, err := newTestClient(srv).ListProvisionedAccounts(context.Background())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "no email")
	})
}

func TestClient_RevokeAccount(t *testing.T) {
	t.Run("deletes_by_id", func(t *testing.T) {
		var gotMethod, gotPath string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotPath = r.URL.Path
			assert.Equal(t, "Bearer xoxp-test", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		err := newTestClient(srv).RevokeAccount(context.Background(), "U123")

		require.NoError(t, err)
		assert.Equal(t, http.MethodDelete, gotMethod)
		assert.Equal(t, "/scim/v1/Users/U123", gotPath)
	})

	t.Run("already_revoked_is_success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		err := newTestClient(srv).RevokeAccount(context.Background(), "U123")

		assert.NoError(t, err, "revoking an already-revoked account is idempotent")
	})

	t.Run("server_error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		err := newTestClient(srv).RevokeAccount(context.Background(), "U123")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 500")
	})
}

func TestClient_SendDirectMessage(t *testing.T) {
	t.Run("posts_with_display_identity", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/chat.postMessage", r.URL.Path)
			q := r.URL.Query()
			assert.Equal(t, "UOWN", q.Get("channel"))
			assert.Equal(t, "hello", q.Get("text"))
			assert.Equal(t, "slack reaper", q.Get("username"))
			assert.Equal(t, ":scream_cat:", q.Get("icon_emoji"))
			_, _ = w.Write([]byte(`{"ok": true}`))
		}))
		defer srv.Close()

		err := newTestClient(srv).SendDirectMessage(context.Background(), "UOWN", "hello")

		require.NoError(t, err)
	})

	t.Run("rejected_recipient", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"ok": false, "error": "channel_not_found"}`))
		}))
		defer srv.Close()

		err := newTestClient(srv).SendDirectMessage(context.Background(), "UOWN", "hello")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "channel_not_found")
	})
}
