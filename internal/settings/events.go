package settings

import "log"

// SettingChangedEvent is delivered to change listeners after a value for a
// key has been persisted. It carries the new value only; listeners that
// need the old value must retain it themselves.
type SettingChangedEvent struct {
	Key      string
	NewValue string
}

// ChangeListener is a callback invoked after a setting changes.
// Listeners run synchronously in registration order.
type ChangeListener func(event SettingChangedEvent) error

// OnChange registers a listener for every key change in the store.
func (s *Store) OnChange(listener ChangeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listener)
}

// emit dispatches an event to all registered listeners.
func (s *Store) emit(event SettingChangedEvent) {
	s.mu.Lock()
	listeners := make([]ChangeListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, listener := range listeners {
		if err := listener(event); err != nil {
			log.Printf("Settings listener error for %s: %v", event.Key, err)
		}
	}
}
