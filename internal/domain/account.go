// Package domain defines core types, interfaces, and errors for the
// workspace reconciler.
package domain

import "strings"

// PlatformAccount is a read-only snapshot of one workspace account, taken
// fresh each cycle. Email is normalized at ingestion.
type PlatformAccount struct {
	ID      string
	Email   string
	Active  bool
	IsGuest bool
	IsOwner bool
}

// IsBot reports whether the account's email carries the designated
// bot-account suffix. An empty suffix matches nothing.
func (a PlatformAccount) IsBot(suffix string) bool {
	return suffix != "" && strings.HasSuffix(a.Email, suffix)
}

// RevocationCandidate is an account selected for revocation in the current
// cycle, with a human-readable justification. Never persisted.
type RevocationCandidate struct {
	ID     string
	Email  string
	Reason string
}

// ReasonAbsent is the justification attached to every candidate: the
// account's email was not found in the authoritative directory.
const ReasonAbsent = "they do not exist in the corporate directory"

// DirectorySet is the set of active directory member emails, normalized.
// Duplicates collapse; order is irrelevant.
type DirectorySet map[string]struct{}

// Add inserts an email after normalization.
func (s DirectorySet) Add(email string) {
	if e := NormalizeEmail(email); e != "" {
		s[e] = struct{}{}
	}
}

// Contains reports membership. The argument must already be normalized;
// normalization happens at ingestion, not at comparison time.
func (s DirectorySet) Contains(email string) bool {
	_, ok := s[email]
	return ok
}

// Len returns the number of distinct members.
func (s DirectorySet) Len() int { return len(s) }

// NormalizeEmail lower-cases and trims an email for comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
