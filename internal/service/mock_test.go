package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/boompig/slack-ldap-sync/internal/domain"
)

var errTest = errors.New("test error")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// === Platform Client Mock ===

type mockPlatform struct {
	listAccountsFn    func(ctx context.Context) ([]domain.PlatformAccount, error)
	listProvisionedFn func(ctx context.Context) ([]domain.PlatformAccount, error)
}

func (m *mockPlatform) ListAccounts(ctx context.Context) ([]domain.PlatformAccount, error) {
	if m.listAccountsFn != nil {
		return m.listAccountsFn(ctx)
	}
	panic("unexpected call to mockPlatform.ListAccounts")
}

func (m *mockPlatform) ListProvisionedAccounts(ctx context.Context) ([]domain.PlatformAccount, error) {
	if m.listProvisionedFn != nil {
		return m.listProvisionedFn(ctx)
	}
	panic("unexpected call to mockPlatform.ListProvisionedAccounts")
}

// === Directory Enumerator Mock ===

type mockDirectory struct {
	fetchFn func(ctx context.Context) (domain.DirectorySet, error)
}

func (m *mockDirectory) FetchActiveMembers(ctx context.Context) (domain.DirectorySet, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx)
	}
	panic("unexpected call to mockDirectory.FetchActiveMembers")
}

// === Session Revoker Mock ===

type mockSessions struct {
	mu       sync.Mutex
	revokeFn func(ctx context.Context, id string) error
	revoked  []string
}

func (m *mockSessions) RevokeAccount(ctx context.Context, id string) error {
	m.mu.Lock()
	m.revoked = append(m.revoked, id)
	m.mu.Unlock()
	if m.revokeFn != nil {
		return m.revokeFn(ctx, id)
	}
	return nil
}

// === Messenger Mock ===

type sentMessage struct {
	recipient string
	text      string
}

type mockMessenger struct {
	mu     sync.Mutex
	sendFn func(ctx context.Context, accountID, text string) error
	sent   []sentMessage
}

func (m *mockMessenger) SendDirectMessage(ctx context.Context, accountID, text string) error {
	m.mu.Lock()
	m.sent = append(m.sent, sentMessage{recipient: accountID, text: text})
	m.mu.Unlock()
	if m.sendFn != nil {
		return m.sendFn(ctx, accountID, text)
	}
	return nil
}

func (m *mockMessenger) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, s := range m.sent {
		out = append(out, s.recipient)
	}
	return out
}

// === Inventory Source Mock ===

type mockInventory struct {
	snapshotFn func(ctx context.Context) (*Snapshot, error)
}

func (m *mockInventory) Snapshot(ctx context.Context) (*Snapshot, error) {
	if m.snapshotFn != nil {
		return m.snapshotFn(ctx)
	}
	panic("unexpected call to mockInventory.Snapshot")
}
