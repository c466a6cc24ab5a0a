package relay

import "sync"

// window remembers the most recent keys up to a fixed size.
type window struct {
	mu   sync.Mutex
	size int
	ring []string
	next int
	set  map[string]struct{}
}

func newWindow(size int) *window {
	if size <= 0 {
		size = 1024
	}
	return &window{size: size, ring: make([]string, 0, size), set: make(map[string]struct{}, size)}
}

// seen records key and reports whether it was already in the window.
func (w *window) seen(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.set[key]; ok {
		return true
	}
	if len(w.ring) < w.size {
		w.ring = append(w.ring, key)
	} else {
		delete(w.set, w.ring[w.next])
		w.ring[w.next] = key
		w.next = (w.next + 1) % w.size
	}
	w.set[key] = struct{}{}
	return false
}
