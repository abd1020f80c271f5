// Package webstorage reads and writes a tab's localStorage and
// sessionStorage through the browser backend's fixed storage-op contract.
package webstorage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/tabjar/tabjar/internal/browser"
)

// ErrInvalidFormat is returned when imported text is not a JSON object.
var ErrInvalidFormat = errors.New("invalid JSON format")

// Entry is a single key/value record from a page's storage.
type Entry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ExportData is a write-once snapshot of one storage area.
type ExportData struct {
	Type      browser.StorageArea `json:"type"`
	Entries   map[string]string   `json:"entries"`
	Timestamp time.Time           `json:"timestamp"`
	URL       string              `json:"url"`
}

// Service resolves the active tab and runs storage ops against it.
type Service struct {
	backend browser.Backend
}

// NewService returns a Service over the given backend.
func NewService(backend browser.Backend) *Service {
	return &Service{backend: backend}
}

// GetAllEntries returns the active tab's storage entries sorted ascending
// by key. When no tab can be resolved it returns an empty list rather than
// an error; only the write operations reject.
func (s *Service) GetAllEntries(ctx context.Context, area browser.StorageArea) ([]Entry, error) {
	tab, err := s.backend.ActiveTab(ctx)
	if err != nil {
		if errors.Is(err, browser.ErrNoActiveTab) {
			return []Entry{}, nil
		}
		return nil, err
	}

	raw, err := s.backend.EvalStorageOp(ctx, tab.ID, browser.StorageOp{Kind: browser.OpReadAll, Area: area})
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(raw))
	for k, v := range raw {
		entries = append(entries, Entry{Key: k, Value: v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// SetEntry writes one key/value pair into the active tab's storage.
func (s *Service) SetEntry(ctx context.Context, area browser.StorageArea, key, value string) error {
	tab, err := s.backend.ActiveTab(ctx)
	if err != nil {
		return err
	}
	_, err = s.backend.EvalStorageOp(ctx, tab.ID, browser.StorageOp{Kind: browser.OpSet, Area: area, Key: key, Value: value})
	return err
}

// DeleteEntry removes one key from the active tab's storage.
func (s *Service) DeleteEntry(ctx context.Context, area browser.StorageArea, key string) error {
	tab, err := s.backend.ActiveTab(ctx)
	if err != nil {
		return err
	}
	_, err = s.backend.EvalStorageOp(ctx, tab.ID, browser.StorageOp{Kind: browser.OpDelete, Area: area, Key: key})
	return err
}

// ClearAll empties the active tab's storage area.
func (s *Service) ClearAll(ctx context.Context, area browser.StorageArea) error {
	tab, err := s.backend.ActiveTab(ctx)
	if err != nil {
		return err
	}
	_, err = s.backend.EvalStorageOp(ctx, tab.ID, browser.StorageOp{Kind: browser.OpClear, Area: area})
	return err
}

// Export serializes the active tab's storage area as a two-space-indented
// JSON object mapping key to value.
func (s *Service) Export(ctx context.Context, area browser.StorageArea) (string, error) {
	entries, err := s.GetAllEntries(ctx, area)
	if err != nil {
		return "", err
	}

	out := make(map[string]string, len(entries))
	for _, e := range entries {
		out[e.Key] = e.Value
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize storage export: %w", err)
	}
	return string(data), nil
}

// Snapshot captures the active tab's storage area together with the source
// URL and capture time. The result is never mutated after construction.
func (s *Service) Snapshot(ctx context.Context, area browser.StorageArea) (ExportData, error) {
	tab, err := s.backend.ActiveTab(ctx)
	if err != nil {
		return ExportData{}, err
	}

	raw, err := s.backend.EvalStorageOp(ctx, tab.ID, browser.StorageOp{Kind: browser.OpReadAll, Area: area})
	if err != nil {
		return ExportData{}, err
	}
	if raw == nil {
		raw = map[string]string{}
	}

	return ExportData{
		Type:      area,
		Entries:   raw,
		Timestamp: time.Now(),
		URL:       tab.URL,
	}, nil
}

// Import parses jsonText as a JSON object and writes each pair into the
// active tab's storage sequentially, in sorted key order. A parse failure
// returns ErrInvalidFormat with zero writes performed; a failure partway
// through leaves the prior writes applied.
func (s *Service) Import(ctx context.Context, area browser.StorageArea, jsonText string) error {
	var data map[string]string
	if err := json.Unmarshal([]byte(jsonText), &data); err != nil {
		return ErrInvalidFormat
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := s.SetEntry(ctx, area, k, data[k]); err != nil {
			return err
		}
	}
	return nil
}
