// Package service contains the reconciliation engine: platform inventory,
// candidate selection with the failsafe guard, revocation, and the
// supervisor loop that drives one cycle per interval.
package service

import (
	"context"
	"log/slog"

	"github.com/boompig/slack-ldap-sync/internal/domain"
)

// Snapshot is one cycle's view of the workspace: the account list to
// reconcile plus guest and owner classifications. Classifications are
// derived fresh each cycle, never stored.
type Snapshot struct {
	Accounts []domain.PlatformAccount
	Guests   map[string]bool
	Owners   map[string]bool
}

// InventorySource produces one platform snapshot per cycle.
type InventorySource interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

var _ InventorySource = (*Inventory)(nil)

// Inventory retrieves the workspace account list and classifies it. In SCIM
// mode the provisioning listing (with its real active flag) is the account
// list and the member listing contributes guest/owner flags; in legacy mode
// the member listing serves both purposes and every account counts as
// active.
type Inventory struct {
	platform domain.PlatformClient
	useSCIM  bool
	logger   *slog.Logger
}

// NewInventory creates an Inventory over the given platform client.
func NewInventory(platform domain.PlatformClient, useSCIM bool, logger *slog.Logger) *Inventory {
	return &Inventory{platform: platform, useSCIM: useSCIM, logger: logger}
}

// Snapshot retrieves and classifies the workspace account list.
func (inv *Inventory) Snapshot(ctx context.Context) (*Snapshot, error) {
	members, err := inv.platform.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Accounts: members,
		Guests:   ClassifyGuests(members),
		Owners:   ClassifyOwners(members),
	}

	if inv.useSCIM {
		provisioned, err := inv.platform.ListProvisionedAccounts(ctx)
		if err != nil {
			return nil, err
		}
		// The provisioning listing has no guest/owner flags; carry them
		// over from the member listing by ID.
		for i := range provisioned {
			provisioned[i].IsGuest = snap.Guests[provisioned[i].ID]
			provisioned[i].IsOwner = snap.Owners[provisioned[i].ID]
		}
		snap.Accounts = provisioned
	}

	inv.logger.Debug("platform snapshot taken",
		"accounts", len(snap.Accounts),
		"guests", len(snap.Guests),
		"owners", len(snap.Owners),
	)
	return snap, nil
}

// ClassifyGuests returns the IDs of guest accounts. An account is a guest if
// the platform marks it restricted or ultra-restricted.
func ClassifyGuests(accounts []domain.PlatformAccount) map[string]bool {
	guests := make(map[string]bool)
	for _, a := range accounts {
		if a.IsGuest {
			guests[a.ID] = true
		}
	}
	return guests
}

// ClassifyOwners returns the IDs of workspace owners.
func ClassifyOwners(accounts []domain.PlatformAccount) map[string]bool {
	owners := make(map[string]bool)
	for _, a := range accounts {
		if a.IsOwner {
			owners[a.ID] = true
		}
	}
	return owners
}
