package ws

import "sync"

// Hub is the identity→connections routing table. Connections are added when
// the gate admits them and removed on disconnect; the relay addresses a whole
// routing group, never a raw connection.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		groups: make(map[string]map[*Client]struct{}),
	}
}

// Register adds a gated connection to its identity's routing group.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.groups[c.SubjectID]
	if !ok {
		group = make(map[*Client]struct{})
		h.groups[c.SubjectID] = group
	}
	group[c] = struct{}{}
}

// Unregister removes a connection; empty groups are dropped.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	group, ok := h.groups[c.SubjectID]
	if !ok {
		return
	}
	delete(group, c)
	if len(group) == 0 {
		delete(h.groups, c.SubjectID)
	}
}

// SendToIdentity delivers a frame once to every connection in the identity's
// routing group. A missing group is a silent no-op.
func (h *Hub) SendToIdentity(subjectID string, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.groups[subjectID] {
		c.Send(frame)
	}
}

// GroupSize reports how many connections an identity currently has.
func (h *Hub) GroupSize(subjectID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[subjectID])
}
