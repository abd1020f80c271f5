// Package browser abstracts the browser we inspect behind a Backend
// interface so the rest of the tool never talks to the DevTools protocol
// directly. Two implementations exist: a CDP-backed one that attaches to a
// live Chromium, and an in-memory one used as a fallback and in tests.
package browser

import (
	"context"
	"errors"
	"time"
)

// ErrNoActiveTab is returned when no page-type tab can be resolved.
var ErrNoActiveTab = errors.New("no active tab")

// SameSite is a cookie's same-site policy.
type SameSite string

const (
	SameSiteStrict        SameSite = "strict"
	SameSiteLax           SameSite = "lax"
	SameSiteNoRestriction SameSite = "no_restriction"
)

// Cookie is a single cookie as observed in the browser's jar. The browser
// owns the authoritative copy; we only observe it and issue mutation
// requests.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Secure   bool
	HTTPOnly bool
	SameSite SameSite

	// Expires is nil for session cookies.
	Expires  *time.Time
	HostOnly bool
	Session  bool
	// StoreID names the cookie store holding the cookie. Over CDP this is
	// the partition key's top-level site; empty for unpartitioned cookies.
	StoreID string
}

// TabInfo describes one open browser tab.
type TabInfo struct {
	ID    string
	URL   string
	Title string
}

// StorageArea selects which per-page storage a StorageOp targets.
type StorageArea string

const (
	AreaLocal   StorageArea = "local"
	AreaSession StorageArea = "session"
)

// OpKind enumerates the storage operations a backend may run in a tab.
// Keeping this a closed set means the privileged side never ships
// arbitrary code into the page.
type OpKind int

const (
	OpReadAll OpKind = iota
	OpSet
	OpDelete
	OpClear
)

func (k OpKind) String() string {
	switch k {
	case OpReadAll:
		return "read_all"
	case OpSet:
		return "set"
	case OpDelete:
		return "delete"
	case OpClear:
		return "clear"
	default:
		return "unknown"
	}
}

// StorageOp is one request against a tab's localStorage or sessionStorage.
// Key and Value are only meaningful for the op kinds that use them.
type StorageOp struct {
	Kind  OpKind
	Area  StorageArea
	Key   string
	Value string
}

// Backend is the capability surface the adapters are built on.
//
// All calls are blocking and honor ctx cancellation as far as the
// underlying browser API does; failures are propagated unchanged with no
// retry.
type Backend interface {
	// Tabs lists open page tabs, most recently focused first.
	Tabs(ctx context.Context) ([]TabInfo, error)
	// ActiveTab resolves the currently focused tab, or ErrNoActiveTab.
	ActiveTab(ctx context.Context) (TabInfo, error)

	// Cookies returns every cookie visible in the browser's jar.
	Cookies(ctx context.Context) ([]Cookie, error)
	// SetCookie creates or overwrites a cookie. URL is the request URL the
	// cookie API requires; callers infer it from domain/path/secure.
	SetCookie(ctx context.Context, url string, c Cookie) error
	// DeleteCookie removes cookies matching name plus the optional
	// domain/path narrowing.
	DeleteCookie(ctx context.Context, name, url, domain, path string) error

	// EvalStorageOp runs a storage op in the given tab and returns the
	// page's storage contents for OpReadAll (nil for the other kinds).
	EvalStorageOp(ctx context.Context, tabID string, op StorageOp) (map[string]string, error)

	Close() error
}
