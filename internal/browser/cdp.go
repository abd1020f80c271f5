package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

// CDPOptions controls how the CDP backend reaches a browser.
//
// If RemoteURL is set, the backend attaches to an already-running browser's
// DevTools endpoint. Otherwise a browser is launched locally (via chromedp's
// exec allocator), which is mostly useful for scratch sessions and tests.
type CDPOptions struct {
	// RemoteURL is a DevTools websocket or HTTP endpoint, e.g.
	// "ws://127.0.0.1:9222". Attach with --remote-debugging-port on Chrome.
	RemoteURL string
	// ChromePath optionally overrides the Chrome/Chromium executable path.
	// If empty, chromedp will try to find a browser on PATH / default locations.
	ChromePath string
	// Headless controls whether a locally launched Chrome runs without a
	// visible window. Ignored when attaching to RemoteURL.
	Headless bool
}

// CDP is the live-browser Backend. It keeps one chromedp context per tab it
// has touched so that evaluating in a tab never closes it.
type CDP struct {
	browserCtx context.Context

	cancelAlloc   context.CancelFunc
	cancelBrowser context.CancelFunc

	mu   sync.Mutex
	tabs map[string]context.Context
}

// NewCDP connects to (or launches) a browser and returns a ready backend.
func NewCDP(ctx context.Context, opts CDPOptions) (*CDP, error) {
	var allocCtx context.Context
	var cancelAlloc context.CancelFunc

	if opts.RemoteURL != "" {
		log.Printf("Attaching to browser at %s", opts.RemoteURL)
		allocCtx, cancelAlloc = chromedp.NewRemoteAllocator(ctx, opts.RemoteURL)
	} else {
		allocatorOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
		allocatorOpts = append(allocatorOpts,
			chromedp.NoDefaultBrowserCheck,
			chromedp.NoFirstRun,
		)
		if opts.ChromePath != "" {
			allocatorOpts = append(allocatorOpts, chromedp.ExecPath(opts.ChromePath))
		}
		if opts.Headless {
			allocatorOpts = append(allocatorOpts, chromedp.Headless)
		} else {
			allocatorOpts = append(allocatorOpts, chromedp.Flag("headless", false))
		}
		allocCtx, cancelAlloc = chromedp.NewExecAllocator(ctx, allocatorOpts...)
	}

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// Establish the connection up front so later calls fail fast.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	c := &CDP{
		browserCtx:    browserCtx,
		cancelAlloc:   cancelAlloc,
		cancelBrowser: cancelBrowser,
		tabs:          make(map[string]context.Context),
	}

	// The context chromedp.Run just started has its own tab; register it so
	// tab-scoped calls can reuse it instead of spawning another.
	if t := chromedp.FromContext(browserCtx).Target; t != nil {
		c.tabs[string(t.TargetID)] = browserCtx
	}

	return c, nil
}

func (c *CDP) Close() error {
	c.cancelBrowser()
	c.cancelAlloc()
	return nil
}

// Tabs lists open page targets. The browser reports targets most recently
// focused first.
func (c *CDP) Tabs(ctx context.Context) ([]TabInfo, error) {
	infos, err := chromedp.Targets(c.browserCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}

	var out []TabInfo
	for _, info := range infos {
		if info.Type != "page" {
			continue
		}
		out = append(out, TabInfo{
			ID:    string(info.TargetID),
			URL:   info.URL,
			Title: info.Title,
		})
	}
	return out, nil
}

// ActiveTab resolves the most recently focused page tab.
//
// Some pages leave the target title blank; in that case we fall back to
// parsing <title> out of the page HTML.
func (c *CDP) ActiveTab(ctx context.Context) (TabInfo, error) {
	tabs, err := c.Tabs(ctx)
	if err != nil {
		return TabInfo{}, err
	}
	if len(tabs) == 0 {
		return TabInfo{}, ErrNoActiveTab
	}

	tab := tabs[0]
	if strings.TrimSpace(tab.Title) == "" {
		tabCtx, err := c.tabContext(tab.ID)
		if err != nil {
			return tab, nil
		}
		var html string
		if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err == nil {
			if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
				tab.Title = strings.TrimSpace(doc.Find("title").First().Text())
			}
		}
	}
	return tab, nil
}

func (c *CDP) Cookies(ctx context.Context) ([]Cookie, error) {
	var raw []*network.Cookie
	err := chromedp.Run(c.browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		raw, err = storage.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to get cookies: %w", err)
	}

	out := make([]Cookie, 0, len(raw))
	for _, rc := range raw {
		out = append(out, fromCDPCookie(rc))
	}
	return out, nil
}

func (c *CDP) SetCookie(ctx context.Context, url string, ck Cookie) error {
	err := chromedp.Run(c.browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		p := network.SetCookie(ck.Name, ck.Value).
			WithURL(url).
			WithDomain(ck.Domain).
			WithPath(ck.Path).
			WithSecure(ck.Secure).
			WithHTTPOnly(ck.HTTPOnly)
		if ck.SameSite != "" {
			p = p.WithSameSite(toCDPSameSite(ck.SameSite))
		}
		if ck.Expires != nil {
			exp := cdp.TimeSinceEpoch(*ck.Expires)
			p = p.WithExpires(&exp)
		}
		return p.Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("failed to set cookie %q: %w", ck.Name, err)
	}
	return nil
}

func (c *CDP) DeleteCookie(ctx context.Context, name, url, domain, path string) error {
	err := chromedp.Run(c.browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		p := network.DeleteCookies(name)
		if url != "" {
			p = p.WithURL(url)
		}
		if domain != "" {
			p = p.WithDomain(domain)
		}
		if path != "" {
			p = p.WithPath(path)
		}
		return p.Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("failed to delete cookie %q: %w", name, err)
	}
	return nil
}

// EvalStorageOp evaluates one storage op inside the given tab. The op kinds
// are a closed set; no caller-supplied code ever reaches the page.
func (c *CDP) EvalStorageOp(ctx context.Context, tabID string, op StorageOp) (map[string]string, error) {
	expr, err := storageExpr(op)
	if err != nil {
		return nil, err
	}

	tabCtx, err := c.tabContext(tabID)
	if err != nil {
		return nil, err
	}

	if op.Kind == OpReadAll {
		var result map[string]string
		if err := chromedp.Run(tabCtx, chromedp.Evaluate(expr, &result)); err != nil {
			return nil, fmt.Errorf("storage %s failed in tab %s: %w", op.Kind, tabID, err)
		}
		return result, nil
	}

	if err := chromedp.Run(tabCtx, chromedp.Evaluate(expr, nil)); err != nil {
		return nil, fmt.Errorf("storage %s failed in tab %s: %w", op.Kind, tabID, err)
	}
	return nil, nil
}

// tabContext returns a chromedp context attached to tabID, creating and
// caching it on first use. Cached contexts live until Close so the tab is
// never torn down by our cancelation.
func (c *CDP) tabContext(tabID string) (context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tabCtx, ok := c.tabs[tabID]; ok {
		return tabCtx, nil
	}

	tabCtx, _ := chromedp.NewContext(c.browserCtx, chromedp.WithTargetID(target.ID(tabID)))
	c.tabs[tabID] = tabCtx
	return tabCtx, nil
}

// storageExpr builds the JavaScript expression for a storage op. Key and
// value operands are embedded as JSON string literals so arbitrary
// characters round-trip safely.
func storageExpr(op StorageOp) (string, error) {
	area := "window.localStorage"
	if op.Area == AreaSession {
		area = "window.sessionStorage"
	}

	quote := func(s string) string {
		b, _ := json.Marshal(s)
		return string(b)
	}

	switch op.Kind {
	case OpReadAll:
		return fmt.Sprintf(
			`(() => { const a = %s; const out = {}; for (let i = 0; i < a.length; i++) { const k = a.key(i); out[k] = a.getItem(k) ?? ""; } return out; })()`,
			area), nil
	case OpSet:
		return fmt.Sprintf(`(() => { %s.setItem(%s, %s); return null; })()`, area, quote(op.Key), quote(op.Value)), nil
	case OpDelete:
		return fmt.Sprintf(`(() => { %s.removeItem(%s); return null; })()`, area, quote(op.Key)), nil
	case OpClear:
		return fmt.Sprintf(`(() => { %s.clear(); return null; })()`, area), nil
	default:
		return "", fmt.Errorf("unknown storage op kind %d", op.Kind)
	}
}

func fromCDPCookie(rc *network.Cookie) Cookie {
	c := Cookie{
		Name:     rc.Name,
		Value:    rc.Value,
		Domain:   rc.Domain,
		Path:     rc.Path,
		Secure:   rc.Secure,
		HTTPOnly: rc.HTTPOnly,
		SameSite: fromCDPSameSite(rc.SameSite),
		HostOnly: !strings.HasPrefix(rc.Domain, "."),
		Session:  rc.Session,
	}
	if rc.PartitionKey != nil {
		c.StoreID = rc.PartitionKey.TopLevelSite
	}
	if !rc.Session && rc.Expires > 0 {
		t := time.Unix(int64(rc.Expires), 0)
		c.Expires = &t
	}
	return c
}

func fromCDPSameSite(s network.CookieSameSite) SameSite {
	switch s {
	case network.CookieSameSiteStrict:
		return SameSiteStrict
	case network.CookieSameSiteLax:
		return SameSiteLax
	default:
		return SameSiteNoRestriction
	}
}

func toCDPSameSite(s SameSite) network.CookieSameSite {
	switch s {
	case SameSiteStrict:
		return network.CookieSameSiteStrict
	case SameSiteLax:
		return network.CookieSameSiteLax
	default:
		return network.CookieSameSiteNone
	}
}
