// Package dashboard holds the cookie dashboard's filter, sort, and
// selection logic. The visible list is always recomputed from the full
// cookie list plus the filter inputs, never incrementally patched, so a
// stale view cannot survive an update cycle.
package dashboard

import (
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/tabjar/tabjar/internal/browser"
)

// DomainAll selects no domain filtering.
const DomainAll = "all"

// SortField names a cookie attribute the list can be ordered by.
type SortField string

const (
	SortByName    SortField = "name"
	SortByValue   SortField = "value"
	SortByDomain  SortField = "domain"
	SortByPath    SortField = "path"
	SortByExpires SortField = "expires"
)

// State is the dashboard's full input state. Zero value means: no search
// term, all domains, expired-only off, sort by name ascending, nothing
// selected.
type State struct {
	Cookies     []browser.Cookie
	Search      string
	Domain      string
	ExpiredOnly bool
	SortField   SortField
	Descending  bool

	Selected map[string]struct{}
}

// SelectionKey identifies a cookie for selection purposes. The "-"
// separator can collide when a domain or name contains hyphens; acceptable
// for a debugging tool.
func SelectionKey(c browser.Cookie) string {
	return c.Domain + "-" + c.Name
}

// DomainOptions returns "all" followed by every distinct cookie domain,
// sorted.
func (s *State) DomainOptions() []string {
	domains := lo.Uniq(lo.Map(s.Cookies, func(c browser.Cookie, _ int) string {
		return c.Domain
	}))
	sort.Strings(domains)
	return append([]string{DomainAll}, domains...)
}

// Visible applies the filter pipeline and sort to the full cookie list:
// search term (case-insensitive substring on name, value, or domain), then
// exact domain match unless "all", then the expired-only check against now,
// then a stable sort on the selected field.
func (s *State) Visible(now time.Time) []browser.Cookie {
	cookies := s.Cookies

	if term := strings.ToLower(strings.TrimSpace(s.Search)); term != "" {
		cookies = lo.Filter(cookies, func(c browser.Cookie, _ int) bool {
			return strings.Contains(strings.ToLower(c.Name), term) ||
				strings.Contains(strings.ToLower(c.Value), term) ||
				strings.Contains(strings.ToLower(c.Domain), term)
		})
	}

	if s.Domain != "" && s.Domain != DomainAll {
		cookies = lo.Filter(cookies, func(c browser.Cookie, _ int) bool {
			return c.Domain == s.Domain
		})
	}

	if s.ExpiredOnly {
		cookies = lo.Filter(cookies, func(c browser.Cookie, _ int) bool {
			return c.Expires != nil && c.Expires.Before(now)
		})
	}

	out := make([]browser.Cookie, len(cookies))
	copy(out, cookies)

	field := s.SortField
	if field == "" {
		field = SortByName
	}
	sort.SliceStable(out, func(i, j int) bool {
		less := fieldLess(out[i], out[j], field)
		if s.Descending {
			return fieldLess(out[j], out[i], field)
		}
		return less
	})

	return out
}

// ToggleSelect flips a cookie's selection state.
func (s *State) ToggleSelect(c browser.Cookie) {
	if s.Selected == nil {
		s.Selected = make(map[string]struct{})
	}
	key := SelectionKey(c)
	if _, ok := s.Selected[key]; ok {
		delete(s.Selected, key)
	} else {
		s.Selected[key] = struct{}{}
	}
}

// IsSelected reports whether a cookie is currently selected.
func (s *State) IsSelected(c browser.Cookie) bool {
	_, ok := s.Selected[SelectionKey(c)]
	return ok
}

// SelectAllVisible marks every currently visible cookie selected.
func (s *State) SelectAllVisible(now time.Time) {
	if s.Selected == nil {
		s.Selected = make(map[string]struct{})
	}
	for _, c := range s.Visible(now) {
		s.Selected[SelectionKey(c)] = struct{}{}
	}
}

// ClearSelection empties the selection set.
func (s *State) ClearSelection() {
	s.Selected = nil
}

// SelectedCookies resolves the selection keys against the full cookie list.
func (s *State) SelectedCookies() []browser.Cookie {
	return lo.Filter(s.Cookies, func(c browser.Cookie, _ int) bool {
		_, ok := s.Selected[SelectionKey(c)]
		return ok
	})
}

func fieldLess(a, b browser.Cookie, field SortField) bool {
	switch field {
	case SortByValue:
		return a.Value < b.Value
	case SortByDomain:
		return a.Domain < b.Domain
	case SortByPath:
		return a.Path < b.Path
	case SortByExpires:
		return expiryOf(a).Before(expiryOf(b))
	default:
		return a.Name < b.Name
	}
}

// expiryOf orders session cookies (no expiry) before everything else.
func expiryOf(c browser.Cookie) time.Time {
	if c.Expires == nil {
		return time.Time{}
	}
	return *c.Expires
}
