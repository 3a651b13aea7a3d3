package http

import "sync"

// streamBuffer is the number of payloads a slow subscriber may lag behind
// before new ones are dropped for it.
const streamBuffer = 16

// StreamManager fans dispatched command lists out to the SSE subscribers of
// each session.
type StreamManager struct {
	mu   sync.Mutex
	subs map[string]map[chan string]struct{}
}

// NewStreamManager creates an empty manager.
func NewStreamManager() *StreamManager {
	return &StreamManager{subs: make(map[string]map[chan string]struct{})}
}

// Subscribe registers a listener for sessionID. The returned cancel func
// must be called once the listener is gone.
func (m *StreamManager) Subscribe(sessionID string) (<-chan string, func()) {
	ch := make(chan string, streamBuffer)

	m.mu.Lock()
	set, ok := m.subs[sessionID]
	if !ok {
		set = make(map[chan string]struct{})
		m.subs[sessionID] = set
	}
	set[ch] = struct{}{}
	m.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() { m.remove(sessionID, ch) })
	}
}

func (m *StreamManager) remove(sessionID string, ch chan string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.subs[sessionID]
	if !ok {
		return
	}
	if _, ok := set[ch]; !ok {
		return
	}
	delete(set, ch)
	close(ch)
	if len(set) == 0 {
		delete(m.subs, sessionID)
	}
}

// Broadcast sends msg to every subscriber of sessionID without blocking.
func (m *StreamManager) Broadcast(sessionID, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ch := range m.subs[sessionID] {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Close ends every stream of sessionID.
func (m *StreamManager) Close(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for ch := range m.subs[sessionID] {
		close(ch)
	}
	delete(m.subs, sessionID)
}

// Subscribers reports how many listeners sessionID has.
func (m *StreamManager) Subscribers(sessionID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs[sessionID])
}
