package realtime

import (
	"sync"

	"go.uber.org/zap"

	"taskhub-backend/internal/task/domain"
	"taskhub-backend/internal/task/usecase"
)

// Hub maps users to their personal channels and tasks to ephemeral rooms, and
// fans mutation events out to the interested connections. Delivery is
// at-most-once and best-effort: a client whose buffer is full gets dropped and
// reconciles on its next full list fetch.
type Hub struct {
	mu    sync.RWMutex
	users map[string]map[*Client]struct{}
	rooms map[string]map[*Client]struct{}

	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		users:  make(map[string]map[*Client]struct{}),
		rooms:  make(map[string]map[*Client]struct{}),
		logger: logger,
	}
}

// Register subscribes the connection to its user's personal channel.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.users[c.userID] == nil {
		h.users[c.userID] = make(map[*Client]struct{})
	}
	h.users[c.userID][c] = struct{}{}
}

// Unregister removes the connection from its personal channel and every room,
// and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	if clients, ok := h.users[c.userID]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.users, c.userID)
		}
	}
	c.shutdown()
	for taskID := range c.rooms {
		if room, ok := h.rooms[taskID]; ok {
			delete(room, c)
			if len(room) == 0 {
				delete(h.rooms, taskID)
			}
		}
	}
}

// JoinRoom subscribes the connection to a task-scoped room.
func (h *Hub) JoinRoom(c *Client, taskID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[taskID] == nil {
		h.rooms[taskID] = make(map[*Client]struct{})
	}
	h.rooms[taskID][c] = struct{}{}
	c.rooms[taskID] = struct{}{}
}

// LeaveRoom unsubscribes the connection from a task-scoped room.
func (h *Hub) LeaveRoom(c *Client, taskID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[taskID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, taskID)
		}
	}
	delete(c.rooms, taskID)
}

// SendToUser delivers an event to every connection on a user's personal channel.
// Unknown users are a silent no-op (disconnected recipients simply miss events).
func (h *Hub) SendToUser(userID string, event Event) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.users[userID]))
	for c := range h.users[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.deliver(c, event)
	}
}

// BroadcastRoom delivers an event to a task room, excluding one connection
// (typing indicators never echo to the sender).
func (h *Hub) BroadcastRoom(taskID string, event Event, except *Client) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[taskID]))
	for c := range h.rooms[taskID] {
		if c != except {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.deliver(c, event)
	}
}

func (h *Hub) deliver(c *Client, event Event) {
	select {
	case c.send <- event:
	default:
		h.logger.Warn("dropping slow realtime client",
			zap.String("user_id", c.userID))
		h.Unregister(c)
	}
}

// Hub implements usecase.EventSink so every successful mutation, regardless of
// transport, is mirrored to the push channel.
var _ usecase.EventSink = (*Hub)(nil)

// TaskCreated notifies the owner's personal channel. Tasks start unshared, so
// only the owner's other sessions are interested at this point; the creating
// connection receives the event too and dedupes against its synchronous ack.
func (h *Hub) TaskCreated(task *domain.Task, actor usecase.Actor) {
	h.SendToUser(task.OwnerID, Event{Event: EventTaskCreated, Data: map[string]interface{}{
		"task":       task,
		"created_by": actor.Name,
	}})
}

// TaskUpdated notifies everyone interested in the task except the actor, who
// already got a synchronous acknowledgment.
func (h *Hub) TaskUpdated(task *domain.Task, actor usecase.Actor) {
	event := Event{Event: EventTaskUpdated, Data: map[string]interface{}{
		"task":       task,
		"updated_by": actor.Name,
	}}
	for _, userID := range task.InterestedUserIDs() {
		if userID == actor.ID {
			continue
		}
		h.SendToUser(userID, event)
	}
}

// TaskDeleted sends only the id to the previously-interested users; the set was
// computed before the deletion.
func (h *Hub) TaskDeleted(taskID string, recipients []string, actor usecase.Actor) {
	event := Event{Event: EventTaskDeleted, Data: map[string]interface{}{
		"task_id":    taskID,
		"deleted_by": actor.Name,
	}}
	for _, userID := range recipients {
		if userID == actor.ID {
			continue
		}
		h.SendToUser(userID, event)
	}
}

// TaskShared notifies the new collaborator on their personal channel.
func (h *Hub) TaskShared(task *domain.Task, targetUserID string, permission domain.Permission, actor usecase.Actor) {
	h.SendToUser(targetUserID, Event{Event: EventTaskShared, Data: map[string]interface{}{
		"task":       task,
		"shared_by":  actor.Name,
		"permission": permission,
	}})
}
