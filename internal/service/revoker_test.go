package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boompig/slack-ldap-sync/internal/domain"
)

func TestRevoker_RevokeAll(t *testing.T) {
	candidate := domain.RevocationCandidate{ID: "U001", Email: "gone@x.com", Reason: domain.ReasonAbsent}
	owners := map[string]bool{"UOWN": true}

	t.Run("revokes_and_notifies_owners", func(t *testing.T) {
		sessions := &mockSessions{}
		messenger := &mockMessenger{}
		r := NewRevoker(sessions, messenger, true, false, testLogger())

		processed, failed := r.RevokeAll(context.Background(), []domain.RevocationCandidate{candidate}, owners)

		assert.Equal(t, 1, processed)
		assert.Zero(t, failed)
		assert.Equal(t, []string{"U001"}, sessions.revoked)
		require.Len(t, messenger.sent, 1)
		assert.Equal(t, "UOWN", messenger.sent[0].recipient)
		assert.Contains(t, messenger.sent[0].text, "gone@x.com")
		assert.Contains(t, messenger.sent[0].text, "sessions expired")
	})

	t.Run("failed_revoke_skips_candidate_only", func(t *testing.T) {
		sessions := &mockSessions{
			revokeFn: func(_ context.Context, id string) error {
				if id == "U001" {
					return errTest
				}
				return nil
			},
		}
		messenger := &mockMessenger{}
		r := NewRevoker(sessions, messenger, true, false, testLogger())

		candidates := []domain.RevocationCandidate{
			candidate,
			{ID: "U002", Email: "also-gone@x.com", Reason: domain.ReasonAbsent},
		}
		processed, failed := r.RevokeAll(context.Background(), candidates, owners)

		assert.Equal(t, 1, processed)
		assert.Equal(t, 1, failed)
		assert.Equal(t, []string{"U001", "U002"}, sessions.revoked, "second candidate still attempted")
		require.Len(t, messenger.sent, 1, "no notification for the failed candidate")
		assert.Contains(t, messenger.sent[0].text, "also-gone@x.com")
	})

	t.Run("notify_failure_does_not_cancel_revoke", func(t *testing.T) {
		sessions := &mockSessions{}
		messenger := &mockMessenger{
			sendFn: func(_ context.Context, accountID, _ string) error {
				if accountID == "UOWN1" {
					return errTest
				}
				return nil
			},
		}
		r := NewRevoker(sessions, messenger, true, false, testLogger())

		processed, failed := r.RevokeAll(context.Background(), []domain.RevocationCandidate{candidate},
			map[string]bool{"UOWN1": true, "UOWN2": true})

		assert.Equal(t, 1, processed)
		assert.Zero(t, failed, "notify errors are non-fatal")
		assert.ElementsMatch(t, []string{"UOWN1", "UOWN2"}, messenger.recipients(), "remaining recipients still attempted")
	})

	t.Run("capability_limited_mode_notifies_without_revoking", func(t *testing.T) {
		sessions := &mockSessions{}
		messenger := &mockMessenger{}
		r := NewRevoker(sessions, messenger, false, false, testLogger())

		processed, failed := r.RevokeAll(context.Background(), []domain.RevocationCandidate{candidate}, owners)

		assert.Equal(t, 1, processed)
		assert.Zero(t, failed)
		assert.Empty(t, sessions.revoked, "no revoke call without SCIM")
		require.Len(t, messenger.sent, 1)
		assert.Contains(t, messenger.sent[0].text, "disabled manually")
	})

	t.Run("dry_run_touches_nothing", func(t *testing.T) {
		sessions := &mockSessions{}
		messenger := &mockMessenger{}
		r := NewRevoker(sessions, messenger, true, true, testLogger())

		processed, failed := r.RevokeAll(context.Background(), []domain.RevocationCandidate{candidate}, owners)

		assert.Equal(t, 1, processed)
		assert.Zero(t, failed)
		assert.Empty(t, sessions.revoked)
		assert.Empty(t, messenger.sent)
	})
}

func TestRevoker_NotifyOwners(t *testing.T) {
	messenger := &mockMessenger{}
	r := NewRevoker(&mockSessions{}, messenger, true, false, testLogger())

	r.NotifyOwners(context.Background(), "something broke", map[string]bool{"UOWN": true})

	require.Len(t, messenger.sent, 1)
	assert.True(t, strings.HasPrefix(messenger.sent[0].text, "```"), "messages are sent preformatted")
	assert.Contains(t, messenger.sent[0].text, "something broke")
}
