package device

import "sync"

// Listeners is a registry of event listeners. Device clients embed it to
// implement EventSource. The zero value is ready for use.
type Listeners struct {
	mu     sync.RWMutex
	nextID uint64
	byID   map[uint64]Listener
	order  []uint64
}

// Subscribe registers l. The returned function removes it and may be
// called more than once.
func (ls *Listeners) Subscribe(l Listener) func() {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.byID == nil {
		ls.byID = make(map[uint64]Listener)
	}
	id := ls.nextID
	ls.nextID++
	ls.byID[id] = l
	ls.order = append(ls.order, id)

	var once sync.Once
	return func() {
		once.Do(func() { ls.remove(id) })
	}
}

func (ls *Listeners) remove(id uint64) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	delete(ls.byID, id)
	for i, v := range ls.order {
		if v == id {
			ls.order = append(ls.order[:i], ls.order[i+1:]...)
			break
		}
	}
}

// Emit calls every listener in subscription order. Listeners are invoked
// outside the lock, so they may unsubscribe themselves.
func (ls *Listeners) Emit(source any, ev Event) {
	ls.mu.RLock()
	targets := make([]Listener, 0, len(ls.order))
	for _, id := range ls.order {
		targets = append(targets, ls.byID[id])
	}
	ls.mu.RUnlock()

	for _, l := range targets {
		l(source, ev)
	}
}

// Len returns the number of registered listeners.
func (ls *Listeners) Len() int {
	ls.mu.RLock()
	defer ls.mu.RUnlock()
	return len(ls.order)
}
