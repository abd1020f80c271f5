package cookies

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tabjar/tabjar/internal/browser"
)

func newTestJar(t *testing.T) (*Jar, *browser.Memory) {
	t.Helper()
	backend := browser.NewMemory()
	return NewJar(backend), backend
}

func TestInferURL(t *testing.T) {
	tests := []struct {
		name   string
		domain string
		path   string
		secure bool
		want   string
	}{
		{"plain domain", "example.com", "/", false, "http://example.com/"},
		{"secure uses https", "example.com", "/", true, "https://example.com/"},
		{"leading dot is stripped", ".example.com", "/", false, "http://example.com/"},
		{"only one dot is stripped", "..example.com", "/", false, "http://.example.com/"},
		{"empty path defaults to root", "example.com", "", false, "http://example.com/"},
		{"path is preserved", "example.com", "/app/sub", true, "https://example.com/app/sub"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := InferURL(tt.domain, tt.path, tt.secure)
			if got != tt.want {
				t.Errorf("InferURL(%q, %q, %t) = %q, want %q", tt.domain, tt.path, tt.secure, got, tt.want)
			}
		})
	}
}

func TestSetAndGet(t *testing.T) {
	jar, _ := newTestJar(t)
	ctx := context.Background()

	exp := time.Now().Add(time.Hour)
	err := jar.Set(ctx, "sid", "abc", SetOptions{
		Domain:   "example.com",
		Secure:   true,
		HTTPOnly: true,
		SameSite: browser.SameSiteLax,
		Expires:  &exp,
	})
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	c, ok, err := jar.Get(ctx, "sid", "example.com")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("expected cookie to exist")
	}
	if c.Value != "abc" {
		t.Errorf("value = %q, want %q", c.Value, "abc")
	}
	if c.Path != "/" {
		t.Errorf("path = %q, want default %q", c.Path, "/")
	}
	if !c.Secure || !c.HTTPOnly {
		t.Errorf("flags = secure:%t httpOnly:%t, want both true", c.Secure, c.HTTPOnly)
	}
	if c.Session {
		t.Error("cookie with expiry should not be a session cookie")
	}

	t.Run("get with dotted domain matches", func(t *testing.T) {
		_, ok, err := jar.Get(ctx, "sid", ".example.com")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !ok {
			t.Error("expected dotted domain to match")
		}
	})

	t.Run("missing cookie", func(t *testing.T) {
		_, ok, err := jar.Get(ctx, "nope", "example.com")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if ok {
			t.Error("expected cookie to be absent")
		}
	})
}

func TestHas(t *testing.T) {
	jar, backend := newTestJar(t)
	ctx := context.Background()
	backend.SeedCookies(browser.Cookie{Name: "a", Domain: "x.com", Path: "/"})

	ok, err := jar.Has(ctx, "a", "x.com")
	if err != nil {
		t.Fatalf("Has failed: %v", err)
	}
	if !ok {
		t.Error("expected Has to report true")
	}

	ok, err = jar.Has(ctx, "a", "y.com")
	if err != nil {
		t.Fatalf("Has failed: %v", err)
	}
	if ok {
		t.Error("expected Has to report false for another domain")
	}
}

func TestAllGroupsByDomain(t *testing.T) {
	jar, backend := newTestJar(t)
	ctx := context.Background()
	backend.SeedCookies(
		browser.Cookie{Name: "a", Domain: "x.com", Path: "/"},
		browser.Cookie{Name: "b", Domain: "x.com", Path: "/"},
		browser.Cookie{Name: "c", Domain: "y.com", Path: "/"},
	)

	all, err := jar.All(ctx)
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 domains, got %d", len(all))
	}
	if len(all["x.com"]) != 2 {
		t.Errorf("expected 2 cookies for x.com, got %d", len(all["x.com"]))
	}
	if len(all["y.com"]) != 1 {
		t.Errorf("expected 1 cookie for y.com, got %d", len(all["y.com"]))
	}
}

func TestEntriesAndKeys(t *testing.T) {
	jar, backend := newTestJar(t)
	ctx := context.Background()
	backend.SeedCookies(
		browser.Cookie{Name: "b", Domain: "x.com", Path: "/"},
		browser.Cookie{Name: "a", Domain: "y.com", Path: "/"},
	)

	entries, err := jar.Entries(ctx)
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if _, ok := entries["x.com:b"]; !ok {
		t.Error(`expected key "x.com:b" in entries`)
	}
	if _, ok := entries["y.com:a"]; !ok {
		t.Error(`expected key "y.com:a" in entries`)
	}

	keys, err := jar.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	want := []string{"x.com:b", "y.com:a"}
	if len(keys) != len(want) {
		t.Fatalf("Keys() = %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestFindAndFilter(t *testing.T) {
	jar, backend := newTestJar(t)
	ctx := context.Background()
	backend.SeedCookies(
		browser.Cookie{Name: "a", Domain: "x.com", Path: "/", Secure: true},
		browser.Cookie{Name: "b", Domain: "x.com", Path: "/"},
		browser.Cookie{Name: "c", Domain: "y.com", Path: "/", Secure: true},
	)

	found, ok, err := jar.Find(ctx, func(c browser.Cookie) bool { return c.Domain == "y.com" })
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if !ok || found.Name != "c" {
		t.Errorf("Find returned %q (ok=%t), want c", found.Name, ok)
	}

	_, ok, err = jar.Find(ctx, func(c browser.Cookie) bool { return c.Domain == "z.com" })
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if ok {
		t.Error("expected Find to miss")
	}

	secure, err := jar.Filter(ctx, func(c browser.Cookie) bool { return c.Secure })
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	if len(secure) != 2 {
		t.Errorf("Filter returned %d cookies, want 2", len(secure))
	}
}

func TestDelete(t *testing.T) {
	jar, backend := newTestJar(t)
	ctx := context.Background()
	backend.SeedCookies(
		browser.Cookie{Name: "a", Domain: "x.com", Path: "/"},
		browser.Cookie{Name: "a", Domain: "y.com", Path: "/"},
	)

	if err := jar.Delete(ctx, "a", "x.com", "/"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	ok, err := jar.Has(ctx, "a", "x.com")
	if err != nil {
		t.Fatalf("Has failed: %v", err)
	}
	if ok {
		t.Error("expected x.com cookie to be gone")
	}

	ok, err = jar.Has(ctx, "a", "y.com")
	if err != nil {
		t.Fatalf("Has failed: %v", err)
	}
	if !ok {
		t.Error("expected y.com cookie to survive")
	}
}

func TestClear(t *testing.T) {
	jar, backend := newTestJar(t)
	ctx := context.Background()
	backend.SeedCookies(
		browser.Cookie{Name: "a", Domain: "x.com", Path: "/"},
		browser.Cookie{Name: "b", Domain: "y.com", Path: "/"},
		browser.Cookie{Name: "c", Domain: "z.com", Path: "/"},
	)

	if err := jar.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	keys, err := jar.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("expected empty jar, got %v", keys)
	}
}

func TestBackendErrorsPropagate(t *testing.T) {
	jar, backend := newTestJar(t)
	ctx := context.Background()
	wantErr := errors.New("devtools went away")
	backend.FailWith = wantErr

	if _, _, err := jar.Get(ctx, "a", "x.com"); !errors.Is(err, wantErr) {
		t.Errorf("Get error = %v, want %v", err, wantErr)
	}
	if err := jar.Set(ctx, "a", "v", SetOptions{Domain: "x.com"}); !errors.Is(err, wantErr) {
		t.Errorf("Set error = %v, want %v", err, wantErr)
	}
	if err := jar.Clear(ctx); !errors.Is(err, wantErr) {
		t.Errorf("Clear error = %v, want %v", err, wantErr)
	}
	if _, err := jar.All(ctx); !errors.Is(err, wantErr) {
		t.Errorf("All error = %v, want %v", err, wantErr)
	}

	// The error text must come through unchanged, no wrapping layers hiding it.
	if _, err := jar.Keys(ctx); err == nil || !strings.Contains(err.Error(), "devtools went away") {
		t.Errorf("Keys error = %v, want it to carry the backend message", err)
	}
}
