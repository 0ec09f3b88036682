// Package directory enumerates active members of the authoritative LDAP
// directory via cursor-based (RFC 2696 simple paged results) searches.
package directory

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"

	"github.com/go-ldap/ldap/v3"

	"github.com/boompig/slack-ldap-sync/internal/config"
	"github.com/boompig/slack-ldap-sync/internal/domain"
)

var _ domain.DirectoryEnumerator = (*Enumerator)(nil)

// Conn is the subset of *ldap.Conn the enumerator needs. Extracted so tests
// can drive the paging loop without a live server.
type Conn interface {
	Bind(username, password string) error
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	Close() error
}

// DialFunc opens a directory connection. The default dials the configured
// URL with TLS 1.2 as a floor.
type DialFunc func(url string) (Conn, error)

// Enumerator walks the directory one page at a time and accumulates the set
// of active member emails. A connection lives for one enumeration only.
type Enumerator struct {
	cfg    config.LDAPConfig
	dial   DialFunc
	logger *slog.Logger
}

// NewEnumerator creates an Enumerator for the given directory configuration.
func NewEnumerator(cfg config.LDAPConfig, logger *slog.Logger) *Enumerator {
	return &Enumerator{
		cfg: cfg,
		dial: func(url string) (Conn, error) {
			return ldap.DialURL(url, ldap.DialWithTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12}))
		},
		logger: logger,
	}
}

// NewEnumeratorWithDialer creates an Enumerator with a custom dialer.
func NewEnumeratorWithDialer(cfg config.LDAPConfig, dial DialFunc, logger *slog.Logger) *Enumerator {
	e := NewEnumerator(cfg, logger)
	e.dial = dial
	return e
}

// FetchActiveMembers enumerates every directory member matched by the
// configured filter and returns their normalized emails as a set.
//
// The read is all-or-nothing. A server that answers without the paging
// control gets PagingUnsupportedError rather than a silent partial result: a
// truncated directory view makes real employees appear absent and is the
// single most dangerous failure mode for the reconciler downstream. A server
// that returns the same continuation cookie twice is making no forward
// progress and gets DirectoryUnavailableError.
func (e *Enumerator) FetchActiveMembers(ctx context.Context) (domain.DirectorySet, error) {
	conn, err := e.dial(e.cfg.URL)
	if err != nil {
		return nil, domain.ErrDirectoryUnavailable("dial %s: %v", e.cfg.URL, err)
	}
	defer conn.Close() //nolint:errcheck

	if err := conn.Bind(e.cfg.BindDN, e.cfg.BindPassword); err != nil {
		return nil, domain.ErrDirectoryUnavailable("bind as %s: %v", e.cfg.BindDN, err)
	}

	paging := ldap.NewControlPaging(uint32(e.cfg.PageSize)) //nolint:gosec // page size is validated positive at startup
	members := domain.DirectorySet{}
	var prevCookie []byte
	pages := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, domain.ErrDirectoryUnavailable("enumeration canceled after %d pages: %v", pages, err)
		}

		req := ldap.NewSearchRequest(
			e.cfg.BaseDN,
			ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
			e.cfg.SearchFilter,
			e.cfg.Attributes,
			[]ldap.Control{paging},
		)
		res, err := conn.Search(req)
		if err != nil {
			return nil, domain.ErrDirectoryUnavailable("search page %d: %v", pages+1, err)
		}
		pages++

		for _, entry := range res.Entries {
			if v := entry.GetAttributeValue(e.cfg.EmailAttribute); v != "" {
				members.Add(v)
			}
		}

		ctl := ldap.FindControl(res.Controls, ldap.ControlTypePaging)
		if ctl == nil {
			return nil, domain.ErrPagingUnsupported("server ignored the RFC 2696 paging control on page %d", pages)
		}
		resp, ok := ctl.(*ldap.ControlPaging)
		if !ok {
			return nil, domain.ErrPagingUnsupported("server returned a malformed paging control on page %d", pages)
		}
		if len(resp.Cookie) == 0 {
			break
		}
		if bytes.Equal(resp.Cookie, prevCookie) {
			return nil, domain.ErrDirectoryUnavailable("server repeated the paging cookie on page %d, no forward progress", pages)
		}
		prevCookie = append(prevCookie[:0], resp.Cookie...)
		paging.SetCookie(resp.Cookie)
	}

	e.logger.Debug("directory enumeration complete", "pages", pages, "members", members.Len())
	return members, nil
}

// String identifies the directory for log output without credentials.
func (e *Enumerator) String() string {
	return fmt.Sprintf("ldap(%s %s)", e.cfg.URL, e.cfg.BaseDN)
}
