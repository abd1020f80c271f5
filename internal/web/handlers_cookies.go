package web

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/tabjar/tabjar/internal/browser"
	"github.com/tabjar/tabjar/internal/dashboard"
)

// handleDashboard renders the cookie dashboard. The visible list is
// recomputed from the full cookie list and the query parameters on every
// request; filter and sort choices are persisted as preferences.
func (ws *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	all, err := ws.jar.Filter(r.Context(), func(browser.Cookie) bool { return true })
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		log.Printf("Failed to fetch cookies: %v", err)
		return
	}

	state := ws.dashboardState(r, all)
	now := time.Now()

	visible := state.Visible(now)
	views := make([]cookieView, 0, len(visible))
	for _, c := range visible {
		views = append(views, newCookieView(c, state, now))
	}

	ws.renderTemplate(w, "dashboard.html", dashboardView{
		Cookies:       views,
		DomainOptions: state.DomainOptions(),
		Search:        state.Search,
		Domain:        state.Domain,
		ExpiredOnly:   state.ExpiredOnly,
		SortField:     string(state.SortField),
		SortFields:    []string{"name", "value", "domain", "path", "expires"},
		Descending:    state.Descending,
		Total:         len(all),
	})
}

// handleCookiesDelete deletes the posted cookies: either a single
// name/domain/path triple, or a batch of selection keys. Batch deletes are
// issued in parallel and awaited jointly, with no rollback if some fail.
func (ws *Server) handleCookiesDelete(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	if name := r.FormValue("name"); name != "" {
		domain := r.FormValue("domain")
		path := r.FormValue("path")
		if err := ws.jar.Delete(r.Context(), name, domain, path); err != nil {
			log.Printf("Failed to delete cookie %s (%s): %v", name, domain, err)
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	selected := r.Form["selected"]
	if len(selected) == 0 {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	all, err := ws.jar.Filter(r.Context(), func(browser.Cookie) bool { return true })
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		log.Printf("Failed to fetch cookies: %v", err)
		return
	}

	keys := make(map[string]struct{}, len(selected))
	for _, k := range selected {
		keys[k] = struct{}{}
	}

	var wg sync.WaitGroup
	for _, c := range all {
		if _, ok := keys[dashboard.SelectionKey(c)]; !ok {
			continue
		}
		wg.Add(1)
		go func(c browser.Cookie) {
			defer wg.Done()
			if err := ws.jar.Delete(r.Context(), c.Name, c.Domain, c.Path); err != nil {
				log.Printf("Failed to delete cookie %s (%s): %v", c.Name, c.Domain, err)
			}
		}(c)
	}
	wg.Wait()

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (ws *Server) handleCookiesClear(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	if err := ws.jar.Clear(r.Context()); err != nil {
		log.Printf("Failed to clear cookies: %v", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// dashboardState builds the filter state from the request query, falling
// back to (and persisting) the stored preferences.
func (ws *Server) dashboardState(r *http.Request, all []browser.Cookie) *dashboard.State {
	q := r.URL.Query()

	state := &dashboard.State{
		Cookies:     all,
		Search:      q.Get("q"),
		Domain:      q.Get("domain"),
		ExpiredOnly: ws.prefs.expiredOnly.Get(),
		SortField:   dashboard.SortField(ws.prefs.sortField.Get()),
		Descending:  ws.prefs.sortDesc.Get(),
	}
	if state.Domain == "" {
		state.Domain = dashboard.DomainAll
	}

	// The filter form always submits q; the checkbox params are only present
	// when checked. On a form submit an absent checkbox therefore means off,
	// not "keep the stored preference". Only a bare page load (no q) falls
	// back to the preferences.
	submitted := q.Has("q")

	if submitted || q.Has("expired") {
		state.ExpiredOnly = q.Get("expired") == "1"
		if err := ws.prefs.expiredOnly.Set(state.ExpiredOnly); err != nil {
			log.Printf("Failed to save expired-only preference: %v", err)
		}
	}
	if sortField := q.Get("sort"); sortField != "" {
		state.SortField = dashboard.SortField(sortField)
		if err := ws.prefs.sortField.Set(sortField); err != nil {
			log.Printf("Failed to save sort preference: %v", err)
		}
	}
	if submitted || q.Has("desc") {
		state.Descending = q.Get("desc") == "1"
		if err := ws.prefs.sortDesc.Set(state.Descending); err != nil {
			log.Printf("Failed to save sort direction preference: %v", err)
		}
	}

	return state
}

func newCookieView(c browser.Cookie, state *dashboard.State, now time.Time) cookieView {
	v := cookieView{
		Key:      dashboard.SelectionKey(c),
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Secure:   c.Secure,
		HTTPOnly: c.HTTPOnly,
		SameSite: string(c.SameSite),
		Selected: state.IsSelected(c),
	}
	if c.Expires != nil {
		v.Expires = c.Expires.Format(time.RFC3339)
		v.Expired = c.Expires.Before(now)
	}
	return v
}
