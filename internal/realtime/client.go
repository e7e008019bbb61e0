package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"taskhub-backend/internal/apperr"
	"taskhub-backend/internal/task/usecase"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024
	sendBuffer     = 32
	opTimeout      = 10 * time.Second
)

// Client is one websocket connection bound to an authenticated user. State
// machine: connecting -> authenticated -> joined(rooms) -> closed; construction
// happens only after the handshake token was validated.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	taskUC usecase.TaskUsecase
	logger *zap.Logger

	userID   string
	userName string

	send      chan Event
	done      chan struct{}
	closeOnce sync.Once
	rooms     map[string]struct{}
}

// shutdown signals the write pump to close the connection. Safe to call more
// than once.
func (c *Client) shutdown() {
	c.closeOnce.Do(func() { close(c.done) })
}

func newClient(hub *Hub, conn *websocket.Conn, taskUC usecase.TaskUsecase, userID, userName string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		hub:      hub,
		conn:     conn,
		taskUC:   taskUC,
		logger:   logger,
		userID:   userID,
		userName: userName,
		send:     make(chan Event, sendBuffer),
		done:     make(chan struct{}),
		rooms:    make(map[string]struct{}),
	}
}

// enqueue is a non-blocking send used for acks and errors on this connection.
func (c *Client) enqueue(event Event) {
	select {
	case c.send <- event:
	default:
	}
}

func (c *Client) fail(err error) {
	c.enqueue(errorEvent(string(apperr.CodeOf(err)), err.Error()))
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket closed unexpectedly", zap.Error(err))
			}
			return
		}

		var event inboundEvent
		if err := json.Unmarshal(message, &event); err != nil {
			c.enqueue(errorEvent(string(apperr.CodeInvalidArgument), "malformed event"))
			continue
		}
		c.dispatch(event)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch routes a client event. Every mutation goes through the task usecase,
// which re-runs the access decision; the websocket is a parallel mutation path
// and never trusts a prior HTTP check.
func (c *Client) dispatch(event inboundEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	actor := usecase.Actor{ID: c.userID, Name: c.userName}

	switch event.Event {
	case EventTaskCreate:
		var req struct {
			Title       string   `json:"title"`
			Description string   `json:"description"`
			Status      string   `json:"status"`
			Priority    string   `json:"priority"`
			DueDate     *string  `json:"due_date"`
			Tags        []string `json:"tags"`
			IsPublic    bool     `json:"is_public"`
		}
		if err := json.Unmarshal(event.Data, &req); err != nil {
			c.fail(apperr.InvalidArgument("malformed task payload"))
			return
		}
		task, err := c.taskUC.Create(ctx, actor, usecase.CreateTaskRequest{
			Title:       req.Title,
			Description: req.Description,
			Status:      req.Status,
			Priority:    req.Priority,
			DueDate:     req.DueDate,
			Tags:        req.Tags,
			IsPublic:    req.IsPublic,
		})
		if err != nil {
			c.fail(err)
			return
		}
		c.enqueue(Event{Event: AckTaskCreate, Data: map[string]interface{}{"task": task}})

	case EventTaskUpdate:
		var req struct {
			TaskID  string                    `json:"task_id"`
			Updates usecase.UpdateTaskRequest `json:"updates"`
		}
		if err := json.Unmarshal(event.Data, &req); err != nil || req.TaskID == "" {
			c.fail(apperr.InvalidArgument("task_id and updates are required"))
			return
		}
		task, err := c.taskUC.Update(ctx, actor, req.TaskID, req.Updates)
		if err != nil {
			c.fail(err)
			return
		}
		c.enqueue(Event{Event: AckTaskUpdate, Data: map[string]interface{}{"task": task}})

	case EventTaskDelete:
		var req struct {
			TaskID string `json:"task_id"`
		}
		if err := json.Unmarshal(event.Data, &req); err != nil || req.TaskID == "" {
			c.fail(apperr.InvalidArgument("task_id is required"))
			return
		}
		if err := c.taskUC.Delete(ctx, actor, req.TaskID); err != nil {
			c.fail(err)
			return
		}
		c.enqueue(Event{Event: AckTaskDelete, Data: map[string]interface{}{"task_id": req.TaskID}})

	case EventTaskShare:
		var req struct {
			TaskID     string `json:"task_id"`
			Email      string `json:"email"`
			Permission string `json:"permission"`
		}
		if err := json.Unmarshal(event.Data, &req); err != nil || req.TaskID == "" || req.Email == "" {
			c.fail(apperr.InvalidArgument("task_id and email are required"))
			return
		}
		task, err := c.taskUC.Share(ctx, actor, req.TaskID, req.Email, req.Permission)
		if err != nil {
			c.fail(err)
			return
		}
		c.enqueue(Event{Event: AckTaskShare, Data: map[string]interface{}{"task": task}})

	case EventTaskJoin:
		taskID, ok := c.taskIDOf(event.Data)
		if !ok {
			return
		}
		// Room membership requires at least read access to the task.
		if _, err := c.taskUC.GetByID(ctx, c.userID, taskID); err != nil {
			c.fail(err)
			return
		}
		c.hub.JoinRoom(c, taskID)

	case EventTaskLeave:
		if taskID, ok := c.taskIDOf(event.Data); ok {
			c.hub.LeaveRoom(c, taskID)
		}

	case EventTypingStart, EventTypingStop:
		taskID, ok := c.taskIDOf(event.Data)
		if !ok {
			return
		}
		if _, err := c.taskUC.GetByID(ctx, c.userID, taskID); err != nil {
			c.fail(err)
			return
		}
		// Ephemeral: room-scoped, excludes the sender, never persisted.
		c.hub.BroadcastRoom(taskID, Event{Event: event.Event, Data: map[string]interface{}{
			"task_id":   taskID,
			"user_id":   c.userID,
			"user_name": c.userName,
		}}, c)

	default:
		c.fail(apperr.InvalidArgument("unknown event: " + event.Event))
	}
}

func (c *Client) taskIDOf(data json.RawMessage) (string, bool) {
	var req struct {
		TaskID string `json:"task_id"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.TaskID == "" {
		c.fail(apperr.InvalidArgument("task_id is required"))
		return "", false
	}
	return req.TaskID, true
}
