package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"

	"github.com/tabjar/tabjar/internal/cookies"
	"github.com/tabjar/tabjar/internal/settings"
	"github.com/tabjar/tabjar/internal/webstorage"
)

//go:embed templates/*.html static/*.css
var templatesFS embed.FS

// prefs are the dashboard preferences persisted across restarts.
type prefs struct {
	sortField   *settings.Value[string]
	sortDesc    *settings.Value[bool]
	expiredOnly *settings.Value[bool]
}

type Server struct {
	jar       *cookies.Jar
	storage   *webstorage.Service
	prefs     prefs
	templates *template.Template
	staticFS  http.FileSystem
}

// StartServer builds the dashboard server and blocks serving it.
func StartServer(addr string, jar *cookies.Jar, storage *webstorage.Service, store *settings.Store) {
	ws, err := NewServer(jar, storage, store)
	if err != nil {
		log.Fatalf("Failed to initialize web server: %v", err)
	}

	mux := http.NewServeMux()
	ws.RegisterRoutes(mux)

	log.Printf("Starting dashboard at %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("Web server failed: %v", err)
	}
}

// NewServer wires the dashboard handlers over the given adapters and
// settings store.
func NewServer(jar *cookies.Jar, storage *webstorage.Service, store *settings.Store) (*Server, error) {
	templates, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	staticSub, err := fs.Sub(templatesFS, "static")
	if err != nil {
		return nil, err
	}

	sortField, err := settings.NewValue(store, "cookies.sortField", "name")
	if err != nil {
		return nil, err
	}
	sortDesc, err := settings.NewValue(store, "cookies.sortDesc", false)
	if err != nil {
		return nil, err
	}
	expiredOnly, err := settings.NewValue(store, "cookies.expiredOnly", false)
	if err != nil {
		return nil, err
	}

	return &Server{
		jar:     jar,
		storage: storage,
		prefs: prefs{
			sortField:   sortField,
			sortDesc:    sortDesc,
			expiredOnly: expiredOnly,
		},
		templates: templates,
		staticFS:  http.FS(staticSub),
	}, nil
}

func (ws *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(ws.staticFS)))

	mux.HandleFunc("/", ws.handleDashboard)
	mux.HandleFunc("/cookies/delete", ws.handleCookiesDelete)
	mux.HandleFunc("/cookies/clear", ws.handleCookiesClear)
	mux.HandleFunc("/storage", ws.handleStorage)
	mux.HandleFunc("/storage/set", ws.handleStorageSet)
	mux.HandleFunc("/storage/delete", ws.handleStorageDelete)
	mux.HandleFunc("/storage/clear", ws.handleStorageClear)
	mux.HandleFunc("/storage/export", ws.handleStorageExport)
	mux.HandleFunc("/storage/import", ws.handleStorageImport)
}

// renderTemplate executes one of the embedded page templates. This is a
// local debugging tool, so a failed render names the template in the 500
// body instead of a generic error.
func (ws *Server) renderTemplate(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := ws.templates.ExecuteTemplate(w, name, data); err != nil {
		http.Error(w, fmt.Sprintf("Failed to render %s", name), http.StatusInternalServerError)
		log.Printf("Failed to render %s: %v", name, err)
	}
}

// requireMethod enforces the GET-render / POST-mutate split the handlers
// follow. Other methods get a 405 naming the allowed one.
func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	return false
}
