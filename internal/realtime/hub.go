package realtime

import (
	"errors"
	"log/slog"
	"sync"
)

var (
	ErrClientClosed = errors.New("client connection closed")
	ErrSlowConsumer = errors.New("client outbound queue is full")
)

type Client interface {
	ID() string
	HolderID() string
	// Send queues msg for delivery without blocking.
	Send(msg Message) error
	Close()
}

// Hub groups connected clients by showtime. A client watches at most one
// showtime at a time. Delivery to each client is independent: a failing client
// is logged and skipped.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]Client
	groups  map[int]map[string]Client
	member  map[string]int
	holders map[string]map[string]Client
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]Client),
		groups:  make(map[int]map[string]Client),
		member:  make(map[string]int),
		holders: make(map[string]map[string]Client),
		logger:  logger,
	}
}

func (h *Hub) Register(c Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c.ID()] = c

	conns, ok := h.holders[c.HolderID()]
	if !ok {
		conns = make(map[string]Client)
		h.holders[c.HolderID()] = conns
	}
	conns[c.ID()] = c
}

// Unregister removes the client from its group and from the hub.
func (h *Hub) Unregister(c Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leave(c)

	delete(h.clients, c.ID())

	if conns, ok := h.holders[c.HolderID()]; ok {
		delete(conns, c.ID())
		if len(conns) == 0 {
			delete(h.holders, c.HolderID())
		}
	}
}

// Join moves the client into the group of showtimeID.
func (h *Hub) Join(showtimeID int, c Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leave(c)

	group, ok := h.groups[showtimeID]
	if !ok {
		group = make(map[string]Client)
		h.groups[showtimeID] = group
	}

	group[c.ID()] = c
	h.member[c.ID()] = showtimeID
}

func (h *Hub) Leave(showtimeID int, c Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.member[c.ID()]; ok && current == showtimeID {
		h.leave(c)
	}
}

func (h *Hub) LeaveAll(c Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leave(c)
}

func (h *Hub) leave(c Client) {
	showtimeID, ok := h.member[c.ID()]
	if !ok {
		return
	}

	delete(h.member, c.ID())

	group := h.groups[showtimeID]
	delete(group, c.ID())

	if len(group) == 0 {
		delete(h.groups, showtimeID)
	}
}

// GroupOf returns the showtime the client currently watches.
func (h *Hub) GroupOf(c Client) (int, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	showtimeID, ok := h.member[c.ID()]
	return showtimeID, ok
}

// SendToGroup delivers msg to every client watching showtimeID, except the
// clients of exceptHolder when it is not empty.
func (h *Hub) SendToGroup(showtimeID int, msg Message, exceptHolder string) {
	h.mu.RLock()
	recipients := make([]Client, 0, len(h.groups[showtimeID]))
	for _, c := range h.groups[showtimeID] {
		if exceptHolder != "" && c.HolderID() == exceptHolder {
			continue
		}
		recipients = append(recipients, c)
	}
	h.mu.RUnlock()

	for _, c := range recipients {
		h.deliver(c, msg)
	}
}

// SendToHolder delivers msg to every connection of holderID.
func (h *Hub) SendToHolder(holderID string, msg Message) {
	h.mu.RLock()
	recipients := make([]Client, 0, len(h.holders[holderID]))
	for _, c := range h.holders[holderID] {
		recipients = append(recipients, c)
	}
	h.mu.RUnlock()

	for _, c := range recipients {
		h.deliver(c, msg)
	}
}

// SendToHolderInGroup delivers msg to the connections of holderID watching showtimeID.
func (h *Hub) SendToHolderInGroup(showtimeID int, holderID string, msg Message) {
	h.mu.RLock()
	var recipients []Client
	for _, c := range h.groups[showtimeID] {
		if c.HolderID() == holderID {
			recipients = append(recipients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range recipients {
		h.deliver(c, msg)
	}
}

func (h *Hub) SendToClient(c Client, msg Message) {
	h.deliver(c, msg)
}

func (h *Hub) deliver(c Client, msg Message) {
	err := c.Send(msg)
	if err == nil {
		return
	}

	h.logger.Warn("failed to deliver realtime message",
		"error", err,
		"client_id", c.ID(),
		"holder_id", c.HolderID(),
		"type", msg.Type,
	)

	if errors.Is(err, ErrSlowConsumer) {
		c.Close()
	}
}

// Connections returns how many connections holderID has open.
func (h *Hub) Connections(holderID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.holders[holderID])
}

func (h *Hub) GroupSize(showtimeID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.groups[showtimeID])
}

func (h *Hub) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}
