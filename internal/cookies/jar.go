// Package cookies adapts the browser's cookie jar into the get/set/delete/
// enumerate surface the dashboard and CLI work against.
package cookies

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tabjar/tabjar/internal/browser"
)

// Jar wraps a browser backend's cookie API. All operations delegate to the
// backend; failures propagate unchanged with no local retry.
type Jar struct {
	backend browser.Backend
}

// NewJar returns a Jar over the given backend.
func NewJar(backend browser.Backend) *Jar {
	return &Jar{backend: backend}
}

// SetOptions carries the optional attributes for Set.
type SetOptions struct {
	Domain   string
	Path     string
	Secure   bool
	HTTPOnly bool
	SameSite browser.SameSite
	// Expires is nil for a session cookie.
	Expires *time.Time
}

// InferURL builds the request URL the cookie API requires from a cookie's
// domain, path and secure flag: https iff secure, a single leading dot
// stripped from the domain, path defaulting to "/".
func InferURL(domain, path string, secure bool) string {
	scheme := "http"
	if secure {
		scheme = "https"
	}
	host := strings.TrimPrefix(domain, ".")
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("%s://%s%s", scheme, host, path)
}

// Set creates or overwrites a cookie.
func (j *Jar) Set(ctx context.Context, name, value string, opts SetOptions) error {
	if opts.Path == "" {
		opts.Path = "/"
	}
	c := browser.Cookie{
		Name:     name,
		Value:    value,
		Domain:   opts.Domain,
		Path:     opts.Path,
		Secure:   opts.Secure,
		HTTPOnly: opts.HTTPOnly,
		SameSite: opts.SameSite,
		Expires:  opts.Expires,
		Session:  opts.Expires == nil,
	}
	return j.backend.SetCookie(ctx, InferURL(opts.Domain, opts.Path, opts.Secure), c)
}

// Get returns the cookie with the given name and domain, or false if no
// such cookie is visible.
func (j *Jar) Get(ctx context.Context, name, domain string) (browser.Cookie, bool, error) {
	all, err := j.backend.Cookies(ctx)
	if err != nil {
		return browser.Cookie{}, false, err
	}
	for _, c := range all {
		if c.Name == name && domainsEqual(c.Domain, domain) {
			return c, true, nil
		}
	}
	return browser.Cookie{}, false, nil
}

// Has reports whether a cookie with the given name and domain exists.
func (j *Jar) Has(ctx context.Context, name, domain string) (bool, error) {
	_, ok, err := j.Get(ctx, name, domain)
	return ok, err
}

// Delete removes the cookie with the given name, narrowed by domain and
// path when non-empty.
func (j *Jar) Delete(ctx context.Context, name, domain, path string) error {
	url := ""
	if domain != "" {
		url = InferURL(domain, path, false)
	}
	return j.backend.DeleteCookie(ctx, name, url, domain, path)
}

// All returns every visible cookie grouped by domain.
func (j *Jar) All(ctx context.Context) (map[string][]browser.Cookie, error) {
	all, err := j.backend.Cookies(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]browser.Cookie)
	for _, c := range all {
		out[c.Domain] = append(out[c.Domain], c)
	}
	return out, nil
}

// Entries returns a flat map of every visible cookie keyed "domain:name".
func (j *Jar) Entries(ctx context.Context) (map[string]browser.Cookie, error) {
	all, err := j.backend.Cookies(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]browser.Cookie, len(all))
	for _, c := range all {
		out[c.Domain+":"+c.Name] = c
	}
	return out, nil
}

// Keys returns the sorted "domain:name" keys of every visible cookie.
func (j *Jar) Keys(ctx context.Context) ([]string, error) {
	entries, err := j.Entries(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Find returns the first cookie matching pred, or false if none matches.
func (j *Jar) Find(ctx context.Context, pred func(browser.Cookie) bool) (browser.Cookie, bool, error) {
	all, err := j.backend.Cookies(ctx)
	if err != nil {
		return browser.Cookie{}, false, err
	}
	for _, c := range all {
		if pred(c) {
			return c, true, nil
		}
	}
	return browser.Cookie{}, false, nil
}

// Filter returns every cookie matching pred.
func (j *Jar) Filter(ctx context.Context, pred func(browser.Cookie) bool) ([]browser.Cookie, error) {
	all, err := j.backend.Cookies(ctx)
	if err != nil {
		return nil, err
	}
	var out []browser.Cookie
	for _, c := range all {
		if pred(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

// Clear deletes every cookie currently visible, sequentially. The first
// failure propagates and abandons the remaining deletes.
func (j *Jar) Clear(ctx context.Context) error {
	all, err := j.backend.Cookies(ctx)
	if err != nil {
		return err
	}
	for _, c := range all {
		if err := j.Delete(ctx, c.Name, c.Domain, c.Path); err != nil {
			return err
		}
	}
	return nil
}

func domainsEqual(a, b string) bool {
	return strings.TrimPrefix(strings.ToLower(a), ".") == strings.TrimPrefix(strings.ToLower(b), ".")
}
