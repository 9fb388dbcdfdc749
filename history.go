package voicerelay

import "sync"

// Speaker labels used when recording utterances in the conversation history.
// The learner is the human driving the session; the family member is the
// upstream agent's persona.
const (
	LearnerLabel = "LEARNER: "
	FamilyLabel  = "FAMILY: "
)

// History is an append-only log of labeled utterances keyed by session id.
//
// Its lifecycle is independent from the session registry: expiring a session
// does not discard its history, so a transcript can still be read after the
// session was reclaimed. Call RemoveSession to free it.
//
// All methods are safe for concurrent use, both across sessions and within
// one session from the send path and the receive path simultaneously.
type History struct {
	mu       sync.RWMutex
	messages map[string][]string
}

// NewHistory creates an empty conversation history store.
func NewHistory() *History {
	return &History{messages: make(map[string][]string)}
}

// AddMessage appends one labeled utterance to the session's log.
func (h *History) AddMessage(sessionID, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages[sessionID] = append(h.messages[sessionID], message)
}

// ClearHistory empties the session's log without removing the session entry.
func (h *History) ClearHistory(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.messages[sessionID]; ok {
		h.messages[sessionID] = nil
	}
}

// GetHistory returns the session's utterances in insertion order. A session
// with no entries yields an empty slice, not an error. The returned slice is
// a copy and never aliases internal state.
func (h *History) GetHistory(sessionID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	msgs := h.messages[sessionID]
	out := make([]string, len(msgs))
	copy(out, msgs)
	return out
}

// RemoveSession discards the session's log entirely.
func (h *History) RemoveSession(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.messages, sessionID)
}

// GetActiveSessionCount returns the number of sessions with a history entry.
func (h *History) GetActiveSessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}
