package settings

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
)

// Value is a reactive handle on one setting key. The in-memory copy and
// the stored copy are kept eventually consistent: local Set/Update calls
// persist and update subscribers immediately, while changes made through
// other handles (or the store directly) arrive via the store's change
// notification and overwrite the in-memory copy. The last writer through
// the change event wins.
//
// Values round-trip through JSON, so T must be JSON-marshalable.
type Value[T any] struct {
	store *Store
	key   string

	mu      sync.Mutex
	current T
	subs    map[int]func(T)
	nextSub int
}

// NewValue creates a handle for key with the given initial value. If the
// store already holds a value for key, it overwrites the initial one.
func NewValue[T any](store *Store, key string, initial T) (*Value[T], error) {
	v := &Value[T]{
		store:   store,
		key:     key,
		current: initial,
		subs:    make(map[int]func(T)),
	}

	raw, ok, err := store.Get(key)
	if err != nil {
		return nil, err
	}
	if ok {
		var stored T
		if err := json.Unmarshal([]byte(raw), &stored); err != nil {
			return nil, fmt.Errorf("failed to decode setting %q: %w", key, err)
		}
		v.current = stored
	}

	store.OnChange(func(event SettingChangedEvent) error {
		if event.Key != v.key {
			return nil
		}
		var changed T
		if err := json.Unmarshal([]byte(event.NewValue), &changed); err != nil {
			log.Printf("Ignoring undecodable change for setting %q: %v", v.key, err)
			return nil
		}
		v.apply(changed)
		return nil
	})

	return v, nil
}

// Get returns the current in-memory value.
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// Set persists the new value and updates subscribers.
func (v *Value[T]) Set(val T) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("failed to encode setting %q: %w", v.key, err)
	}
	// The store's change event loops back through apply, which also covers
	// writes from other handles on the same key.
	return v.store.Set(v.key, string(raw))
}

// Update applies fn to the current value and persists the result.
func (v *Value[T]) Update(fn func(T) T) error {
	return v.Set(fn(v.Get()))
}

// Subscribe registers fn to observe the in-memory value. It is called
// immediately with the current value and again after every change; the
// returned func unsubscribes.
func (v *Value[T]) Subscribe(fn func(T)) func() {
	v.mu.Lock()
	id := v.nextSub
	v.nextSub++
	v.subs[id] = fn
	cur := v.current
	v.mu.Unlock()

	fn(cur)

	return func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		delete(v.subs, id)
	}
}

func (v *Value[T]) apply(val T) {
	v.mu.Lock()
	v.current = val
	subs := make([]func(T), 0, len(v.subs))
	for _, fn := range v.subs {
		subs = append(subs, fn)
	}
	v.mu.Unlock()

	for _, fn := range subs {
		fn(val)
	}
}
