package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/tabjar/tabjar/internal/browser"
	"github.com/tabjar/tabjar/internal/webstorage"
)

// storageArea parses the area form/query value, defaulting to local.
func storageArea(r *http.Request) browser.StorageArea {
	if r.FormValue("area") == string(browser.AreaSession) {
		return browser.AreaSession
	}
	return browser.AreaLocal
}

func (ws *Server) handleStorage(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	area := storageArea(r)
	view := storageView{Area: string(area)}

	entries, err := ws.storage.GetAllEntries(r.Context(), area)
	if err != nil {
		log.Printf("Failed to read %s storage: %v", area, err)
		view.Error = "failed to read storage"
	}
	for _, e := range entries {
		view.Entries = append(view.Entries, storageEntryView{Key: e.Key, Value: e.Value})
	}

	ws.renderTemplate(w, "storage.html", view)
}

func (ws *Server) handleStorageSet(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	area := storageArea(r)
	key := r.FormValue("key")
	if key == "" {
		http.Error(w, "Missing key", http.StatusBadRequest)
		return
	}

	if err := ws.storage.SetEntry(r.Context(), area, key, r.FormValue("value")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		log.Printf("Failed to set %s storage key %q: %v", area, key, err)
		return
	}
	http.Redirect(w, r, "/storage?area="+string(area), http.StatusSeeOther)
}

func (ws *Server) handleStorageDelete(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	area := storageArea(r)
	key := r.FormValue("key")
	if key == "" {
		http.Error(w, "Missing key", http.StatusBadRequest)
		return
	}

	if err := ws.storage.DeleteEntry(r.Context(), area, key); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		log.Printf("Failed to delete %s storage key %q: %v", area, key, err)
		return
	}
	http.Redirect(w, r, "/storage?area="+string(area), http.StatusSeeOther)
}

func (ws *Server) handleStorageClear(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	area := storageArea(r)
	if err := ws.storage.ClearAll(r.Context(), area); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		log.Printf("Failed to clear %s storage: %v", area, err)
		return
	}
	http.Redirect(w, r, "/storage?area="+string(area), http.StatusSeeOther)
}

// handleStorageExport downloads the active tab's storage area. With
// snapshot=1 the richer snapshot format (type, entries, timestamp, source
// URL) is returned instead of the plain key/value object.
func (ws *Server) handleStorageExport(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	area := storageArea(r)

	var payload string
	if r.URL.Query().Get("snapshot") == "1" {
		snap, err := ws.storage.Snapshot(r.Context(), area)
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			log.Printf("Failed to snapshot %s storage: %v", area, err)
			return
		}
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			log.Printf("Failed to encode snapshot: %v", err)
			return
		}
		payload = string(data)
	} else {
		var err error
		payload, err = ws.storage.Export(r.Context(), area)
		if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			log.Printf("Failed to export %s storage: %v", area, err)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s-storage.json", area))
	if _, err := io.WriteString(w, payload); err != nil {
		log.Printf("Failed to write export: %v", err)
	}
}

func (ws *Server) handleStorageImport(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	area := storageArea(r)
	if err := ws.storage.Import(r.Context(), area, r.FormValue("data")); err != nil {
		if errors.Is(err, webstorage.ErrInvalidFormat) {
			http.Error(w, "Invalid JSON format", http.StatusBadRequest)
			return
		}
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		log.Printf("Failed to import %s storage: %v", area, err)
		return
	}
	http.Redirect(w, r, "/storage?area="+string(area), http.StatusSeeOther)
}
