package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Memory is an in-process Backend with its own cookie jar and per-tab
// storage areas. It backs tests and serves as the fallback when no real
// browser is reachable.
type Memory struct {
	mu      sync.Mutex
	cookies []Cookie
	tabs    []TabInfo
	areas   map[string]map[StorageArea]map[string]string

	// FailWith, when non-nil, makes every call return this error. Used to
	// exercise propagation paths in tests.
	FailWith error
}

// NewMemory returns an empty in-memory backend with no tabs.
func NewMemory() *Memory {
	return &Memory{
		areas: make(map[string]map[StorageArea]map[string]string),
	}
}

// AddTab registers a tab. The first tab added is the active one.
func (m *Memory) AddTab(id, url, title string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tabs = append(m.tabs, TabInfo{ID: id, URL: url, Title: title})
	if _, ok := m.areas[id]; !ok {
		m.areas[id] = map[StorageArea]map[string]string{
			AreaLocal:   {},
			AreaSession: {},
		}
	}
}

// SeedStorage preloads a tab's storage area, creating the tab if needed.
func (m *Memory) SeedStorage(tabID string, area StorageArea, entries map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.areas[tabID]; !ok {
		m.areas[tabID] = map[StorageArea]map[string]string{
			AreaLocal:   {},
			AreaSession: {},
		}
	}
	for k, v := range entries {
		m.areas[tabID][area][k] = v
	}
}

// SeedCookies appends cookies to the jar without going through SetCookie.
func (m *Memory) SeedCookies(cookies ...Cookie) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cookies = append(m.cookies, cookies...)
}

func (m *Memory) Tabs(ctx context.Context) ([]TabInfo, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TabInfo, len(m.tabs))
	copy(out, m.tabs)
	return out, nil
}

func (m *Memory) ActiveTab(ctx context.Context) (TabInfo, error) {
	if m.FailWith != nil {
		return TabInfo{}, m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tabs) == 0 {
		return TabInfo{}, ErrNoActiveTab
	}
	return m.tabs[0], nil
}

func (m *Memory) Cookies(ctx context.Context) ([]Cookie, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Cookie, len(m.cookies))
	copy(out, m.cookies)
	return out, nil
}

func (m *Memory) SetCookie(ctx context.Context, url string, c Cookie) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.cookies {
		if existing.Name == c.Name && sameDomain(existing.Domain, c.Domain) && existing.Path == c.Path {
			m.cookies[i] = c
			return nil
		}
	}
	m.cookies = append(m.cookies, c)
	return nil
}

func (m *Memory) DeleteCookie(ctx context.Context, name, url, domain, path string) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.cookies[:0]
	for _, c := range m.cookies {
		if c.Name == name &&
			(domain == "" || sameDomain(c.Domain, domain)) &&
			(path == "" || c.Path == path) {
			continue
		}
		kept = append(kept, c)
	}
	m.cookies = kept
	return nil
}

func (m *Memory) EvalStorageOp(ctx context.Context, tabID string, op StorageOp) (map[string]string, error) {
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	areas, ok := m.areas[tabID]
	if !ok {
		return nil, fmt.Errorf("unknown tab %q", tabID)
	}
	area := areas[op.Area]

	switch op.Kind {
	case OpReadAll:
		out := make(map[string]string, len(area))
		for k, v := range area {
			out[k] = v
		}
		return out, nil
	case OpSet:
		area[op.Key] = op.Value
		return nil, nil
	case OpDelete:
		delete(area, op.Key)
		return nil, nil
	case OpClear:
		areas[op.Area] = map[string]string{}
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown storage op kind %d", op.Kind)
	}
}

func (m *Memory) Close() error { return nil }

// sameDomain compares cookie domains ignoring a single leading dot.
func sameDomain(a, b string) bool {
	return strings.TrimPrefix(a, ".") == strings.TrimPrefix(b, ".")
}
