package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/boompig/slack-ldap-sync/internal/domain"
)

// Revoker performs the revoke-or-notify side effect for each candidate and
// reports the outcome to workspace owners.
//
// In SCIM-capable mode a candidate is revoked by ID (the platform expires
// its sessions in the same call) and owners are told what happened. In
// capability-limited mode no revoke is possible: owners are told manual
// action is required, and the candidate's sessions stay valid until someone
// disables the account by hand.
type Revoker struct {
	sessions  domain.SessionRevoker
	messenger domain.Messenger
	scim      bool
	dryRun    bool
	logger    *slog.Logger
}

// NewRevoker creates a Revoker. scimCapable selects revoke-by-id versus
// notify-only mode; dryRun logs candidates without any platform mutation or
// message.
func NewRevoker(sessions domain.SessionRevoker, messenger domain.Messenger, scimCapable, dryRun bool, logger *slog.Logger) *Revoker {
	return &Revoker{
		sessions:  sessions,
		messenger: messenger,
		scim:      scimCapable,
		dryRun:    dryRun,
		logger:    logger,
	}
}

// RevokeAll processes every candidate in turn. A failed revoke skips that
// candidate only; the rest are still attempted. processed counts candidates
// handled without error, whatever the mode did for them: a revoke, a
// manual-action notification, or a dry-run log line.
func (r *Revoker) RevokeAll(ctx context.Context, candidates []domain.RevocationCandidate, owners map[string]bool) (processed, failed int) {
	for _, c := range candidates {
		if err := r.revoke(ctx, c, owners); err != nil {
			r.logger.Error("revocation failed", "account_id", c.ID, "email", c.Email, "error", err)
			failed++
			continue
		}
		processed++
	}
	return processed, failed
}

func (r *Revoker) revoke(ctx context.Context, c domain.RevocationCandidate, owners map[string]bool) error {
	if r.dryRun {
		r.logger.Info("dry run: would revoke account", "account_id", c.ID, "email", c.Email, "reason", c.Reason, "scim_capable", r.scim)
		return nil
	}

	if !r.scim {
		msg := fmt.Sprintf("slack_id: %s  email: %s  This account is invalid because %s. SCIM is not available, so it must be disabled manually.", c.ID, c.Email, c.Reason)
		r.logger.Warn(msg)
		r.notifyOwners(ctx, msg, owners)
		return nil
	}

	if err := r.sessions.RevokeAccount(ctx, c.ID); err != nil {
		return domain.ErrRevoke("revoke account %s (%s): %v", c.ID, c.Email, err)
	}
	msg := fmt.Sprintf("slack_id: %s  email: %s  This account has had its sessions expired and is disabled because %s.", c.ID, c.Email, c.Reason)
	r.logger.Info(msg)

	// Notification failure never cancels a completed revoke.
	r.notifyOwners(ctx, msg, owners)
	return nil
}

// NotifyOwners sends text as a direct message to every current owner.
// Best-effort fan-out: a rejected recipient is logged and the remaining
// recipients are still attempted.
func (r *Revoker) NotifyOwners(ctx context.Context, text string, owners map[string]bool) {
	r.notifyOwners(ctx, text, owners)
}

func (r *Revoker) notifyOwners(ctx context.Context, text string, owners map[string]bool) {
	for id := range owners {
		if err := r.messenger.SendDirectMessage(ctx, id, "```"+text+"```"); err != nil {
			notifyErr := domain.ErrNotify("notify owner %s: %v", id, err)
			r.logger.Error("owner notification failed", "owner_id", id, "error", notifyErr)
		}
	}
}
