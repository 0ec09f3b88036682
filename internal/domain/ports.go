package domain

import "context"

// DirectoryEnumerator walks the authoritative directory and returns the full
// set of active member emails. The read is all-or-nothing: a partial
// enumeration must fail, never return a truncated set.
// Implemented by directory.Enumerator.
type DirectoryEnumerator interface {
	FetchActiveMembers(ctx context.Context) (DirectorySet, error)
}

// PlatformClient retrieves workspace account listings.
// Implemented by slack.Client.
type PlatformClient interface {
	// ListAccounts returns the workspace member listing, including guest
	// and owner flags. It carries no first-class active flag, so every
	// returned account is marked active.
	ListAccounts(ctx context.Context) ([]PlatformAccount, error)
	// ListProvisionedAccounts returns the provisioning-style (SCIM)
	// listing, which includes identity-provider emails and an
	// active/inactive flag, but no guest or owner flags.
	ListProvisionedAccounts(ctx context.Context) ([]PlatformAccount, error)
}

// SessionRevoker revokes one workspace account by ID. The platform expires
// the account's sessions as a side effect of the same call. Revoking an
// already-revoked account is not an error.
// Implemented by slack.Client.
type SessionRevoker interface {
	RevokeAccount(ctx context.Context, id string) error
}

// Messenger sends a direct message to one workspace account.
// Implemented by slack.Client.
type Messenger interface {
	SendDirectMessage(ctx context.Context, accountID, text string) error
}
