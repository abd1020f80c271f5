package webstorage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/tabjar/tabjar/internal/browser"
)

func newTestService(t *testing.T) (*Service, *browser.Memory) {
	t.Helper()
	backend := browser.NewMemory()
	backend.AddTab("tab1", "https://example.com/app", "Example")
	return NewService(backend), backend
}

func TestGetAllEntriesSorted(t *testing.T) {
	service, backend := newTestService(t)
	backend.SeedStorage("tab1", browser.AreaLocal, map[string]string{"b": "2", "a": "1"})

	entries, err := service.GetAllEntries(context.Background(), browser.AreaLocal)
	if err != nil {
		t.Fatalf("GetAllEntries failed: %v", err)
	}

	want := []Entry{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}}
	if len(entries) != len(want) {
		t.Fatalf("got %d entries, want %d", len(entries), len(want))
	}
	for i := range want {
		if entries[i] != want[i] {
			t.Errorf("entries[%d] = %+v, want %+v", i, entries[i], want[i])
		}
	}
}

func TestGetAllEntriesNoTab(t *testing.T) {
	// Reads return an empty list when no tab exists; only writes reject.
	service := NewService(browser.NewMemory())

	entries, err := service.GetAllEntries(context.Background(), browser.AreaLocal)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty list, got %v", entries)
	}
}

func TestWritesRejectWithoutTab(t *testing.T) {
	service := NewService(browser.NewMemory())
	ctx := context.Background()

	if err := service.SetEntry(ctx, browser.AreaLocal, "k", "v"); !errors.Is(err, browser.ErrNoActiveTab) {
		t.Errorf("SetEntry error = %v, want ErrNoActiveTab", err)
	}
	if err := service.DeleteEntry(ctx, browser.AreaLocal, "k"); !errors.Is(err, browser.ErrNoActiveTab) {
		t.Errorf("DeleteEntry error = %v, want ErrNoActiveTab", err)
	}
	if err := service.ClearAll(ctx, browser.AreaLocal); !errors.Is(err, browser.ErrNoActiveTab) {
		t.Errorf("ClearAll error = %v, want ErrNoActiveTab", err)
	}
	if err := service.Import(ctx, browser.AreaLocal, `{"k":"v"}`); !errors.Is(err, browser.ErrNoActiveTab) {
		t.Errorf("Import error = %v, want ErrNoActiveTab", err)
	}
}

func TestSetDeleteClear(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	if err := service.SetEntry(ctx, browser.AreaSession, "theme", "dark"); err != nil {
		t.Fatalf("SetEntry failed: %v", err)
	}
	entries, err := service.GetAllEntries(ctx, browser.AreaSession)
	if err != nil {
		t.Fatalf("GetAllEntries failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Key != "theme" || entries[0].Value != "dark" {
		t.Fatalf("entries = %v, want [{theme dark}]", entries)
	}

	// The two areas must not bleed into each other.
	local, err := service.GetAllEntries(ctx, browser.AreaLocal)
	if err != nil {
		t.Fatalf("GetAllEntries failed: %v", err)
	}
	if len(local) != 0 {
		t.Errorf("local storage has %v, want none", local)
	}

	if err := service.DeleteEntry(ctx, browser.AreaSession, "theme"); err != nil {
		t.Fatalf("DeleteEntry failed: %v", err)
	}
	entries, _ = service.GetAllEntries(ctx, browser.AreaSession)
	if len(entries) != 0 {
		t.Errorf("entries after delete = %v, want none", entries)
	}

	if err := service.SetEntry(ctx, browser.AreaSession, "a", "1"); err != nil {
		t.Fatalf("SetEntry failed: %v", err)
	}
	if err := service.ClearAll(ctx, browser.AreaSession); err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}
	entries, _ = service.GetAllEntries(ctx, browser.AreaSession)
	if len(entries) != 0 {
		t.Errorf("entries after clear = %v, want none", entries)
	}
}

func TestExportFormat(t *testing.T) {
	service, backend := newTestService(t)
	backend.SeedStorage("tab1", browser.AreaLocal, map[string]string{"a": "1"})

	out, err := service.Export(context.Background(), browser.AreaLocal)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	want := "{\n  \"a\": \"1\"\n}"
	if out != want {
		t.Errorf("Export = %q, want %q", out, want)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	service, backend := newTestService(t)
	original := map[string]string{"a": "1", "b": "two", "weird key": `va"lue`}
	backend.SeedStorage("tab1", browser.AreaLocal, original)

	out, err := service.Export(context.Background(), browser.AreaLocal)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	if err := service.ClearAll(context.Background(), browser.AreaLocal); err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}
	if err := service.Import(context.Background(), browser.AreaLocal, out); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	entries, err := service.GetAllEntries(context.Background(), browser.AreaLocal)
	if err != nil {
		t.Fatalf("GetAllEntries failed: %v", err)
	}
	if len(entries) != len(original) {
		t.Fatalf("round trip produced %d entries, want %d", len(entries), len(original))
	}
	for _, e := range entries {
		if original[e.Key] != e.Value {
			t.Errorf("key %q = %q, want %q", e.Key, e.Value, original[e.Key])
		}
	}
}

func TestImportInvalidJSON(t *testing.T) {
	service, _ := newTestService(t)

	tests := []struct {
		name string
		text string
	}{
		{"truncated object", `{not json`},
		{"array", `["a","b"]`},
		{"bare string", `"hello"`},
		{"empty", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := service.Import(context.Background(), browser.AreaLocal, tt.text)
			if !errors.Is(err, ErrInvalidFormat) {
				t.Errorf("Import error = %v, want ErrInvalidFormat", err)
			}
		})
	}

	// A failed parse must perform zero writes.
	entries, err := service.GetAllEntries(context.Background(), browser.AreaLocal)
	if err != nil {
		t.Fatalf("GetAllEntries failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("invalid imports wrote %v", entries)
	}
}

func TestSnapshot(t *testing.T) {
	service, backend := newTestService(t)
	backend.SeedStorage("tab1", browser.AreaSession, map[string]string{"k": "v"})

	snap, err := service.Snapshot(context.Background(), browser.AreaSession)
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	if snap.Type != browser.AreaSession {
		t.Errorf("Type = %q, want session", snap.Type)
	}
	if snap.URL != "https://example.com/app" {
		t.Errorf("URL = %q, want the tab URL", snap.URL)
	}
	if snap.Timestamp.IsZero() {
		t.Error("expected a capture timestamp")
	}
	if snap.Entries["k"] != "v" {
		t.Errorf("Entries = %v", snap.Entries)
	}

	// The snapshot must survive a JSON round trip with its tag intact.
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var decoded ExportData
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.Type != browser.AreaSession || decoded.Entries["k"] != "v" {
		t.Errorf("decoded snapshot = %+v", decoded)
	}
}

func TestSnapshotNoTab(t *testing.T) {
	service := NewService(browser.NewMemory())
	if _, err := service.Snapshot(context.Background(), browser.AreaLocal); !errors.Is(err, browser.ErrNoActiveTab) {
		t.Errorf("Snapshot error = %v, want ErrNoActiveTab", err)
	}
}
