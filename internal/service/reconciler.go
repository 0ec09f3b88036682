package service

import (
	"log/slog"

	"github.com/boompig/slack-ldap-sync/internal/domain"
)

// Reconciler computes the set of accounts to revoke: active, non-guest,
// non-bot platform accounts whose email is absent from the directory set.
// The failsafe ratio bounds how much of the workspace one cycle may revoke.
type Reconciler struct {
	failsafe  float64
	botSuffix string
	logger    *slog.Logger
}

// NewReconciler creates a Reconciler. failsafe is the maximum fraction of
// platform accounts revocable in one cycle, in [0,1], fixed for the process
// lifetime.
func NewReconciler(failsafe float64, botSuffix string, logger *slog.Logger) *Reconciler {
	return &Reconciler{failsafe: failsafe, botSuffix: botSuffix, logger: logger}
}

// Reconcile selects revocation candidates from the snapshot and returns them
// with the candidate ratio.
//
// An empty snapshot is an error, never ratio 0: a platform that reports no
// accounts at all is itself suspect and must not pass the guard silently.
// When the ratio exceeds the failsafe the whole cycle is aborted with
// FailsafeExceededError before any side effect; the guard is evaluated
// against the entire candidate set, never incrementally. An empty or
// truncated directory set is indistinguishable here from "everyone actually
// left the company", and the ratio bound is the only defense against that
// ambiguity.
func (r *Reconciler) Reconcile(accounts []domain.PlatformAccount, dir domain.DirectorySet, guests map[string]bool) ([]domain.RevocationCandidate, float64, error) {
	if len(accounts) == 0 {
		return nil, 0, domain.ErrPlatformUnavailable("platform returned an empty account snapshot")
	}

	var candidates []domain.RevocationCandidate
	for _, a := range accounts {
		if !a.Active {
			continue
		}
		if guests[a.ID] {
			continue
		}
		if a.IsBot(r.botSuffix) {
			continue
		}
		if dir.Contains(a.Email) {
			continue
		}
		candidates = append(candidates, domain.RevocationCandidate{
			ID:     a.ID,
			Email:  a.Email,
			Reason: domain.ReasonAbsent,
		})
	}

	ratio := float64(len(candidates)) / float64(len(accounts))
	if ratio > r.failsafe {
		return nil, ratio, domain.ErrFailsafeExceeded(
			"refusing to revoke %d of %d accounts (%.2f exceeds the %.2f failsafe); no accounts were revoked",
			len(candidates), len(accounts), ratio, r.failsafe)
	}

	r.logger.Debug("reconciliation complete",
		"accounts", len(accounts),
		"directory_members", dir.Len(),
		"candidates", len(candidates),
		"ratio", ratio,
	)
	return candidates, ratio, nil
}
