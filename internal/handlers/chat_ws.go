package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AnshRaj112/mindmesh-backend/internal/metrics"
	"github.com/AnshRaj112/mindmesh-backend/internal/models"
	"github.com/AnshRaj112/mindmesh-backend/internal/realtime"
	"github.com/AnshRaj112/mindmesh-backend/internal/services"
	"github.com/AnshRaj112/mindmesh-backend/internal/timeline"
)

const (
	liveReadLimit    = 64 * 1024
	liveReadTimeout  = 90 * time.Second
	livePingInterval = 30 * time.Second
	liveWriteWait    = 10 * time.Second
	liveOutBuffer    = 32
)

// Client message types.
const (
	MsgWatchGroups        = "watch_groups"
	MsgSelectGroup        = "select_group"
	MsgWatchNotifications = "watch_notifications"
	MsgWatchIdeas         = "watch_ideas"
	MsgUnwatch            = "unwatch"
	MsgSendMessage        = "send_message"
	MsgMarkRead           = "mark_read"
	MsgMarkAllRead        = "mark_all_read"
	MsgPing               = "ping"
)

// Server event types.
const (
	EventGroups        = "groups"
	EventTimeline      = "timeline"
	EventNotifications = "notifications"
	EventIdeas         = "ideas"
	EventAck           = "ack"
	EventError         = "error"
	EventPong          = "pong"
)

// Subscription slots. Each connection holds at most one live query per
// slot; selecting another group replaces the timeline listener.
const (
	SlotGroups        = "groups"
	SlotTimeline      = "timeline"
	SlotNotifications = "notifications"
	SlotIdeas         = "ideas"
)

// LiveClientMessage is a frame sent by the client.
type LiveClientMessage struct {
	Type           string `json:"type"`
	RequestID      string `json:"request_id,omitempty"`
	GroupID        string `json:"group_id,omitempty"`
	Text           string `json:"text,omitempty"`
	Category       string `json:"category,omitempty"`
	NotificationID string `json:"notification_id,omitempty"`
	Slot           string `json:"slot,omitempty"`
}

// LiveEvent is a frame sent to the client. Snapshot events carry the full
// current result in Data and replace whatever the client showed before.
type LiveEvent struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	GroupID   string `json:"group_id,omitempty"`
	Data      any    `json:"data,omitempty"`
	FromCache bool   `json:"from_cache,omitempty"`
	Error     string `json:"error,omitempty"`
}

// NotificationsData is the payload of a notifications event.
type NotificationsData struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unread_count"`
}

func (h *Handler) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(h.AllowedOrigins) == 0 {
				return true
			}
			for _, o := range h.AllowedOrigins {
				if strings.EqualFold(strings.TrimSpace(o), origin) {
					return true
				}
			}
			return false
		},
	}
}

// LiveWebSocket streams live query snapshots to one signed-in client.
// Authentication happens in middleware (Authorization header or ?token=).
func (h *Handler) LiveWebSocket(w http.ResponseWriter, r *http.Request) {
	session := sessionOf(r)
	if !session.Valid() {
		http.Error(w, "missing session token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader().Upgrade(w, r, nil)
	if err != nil {
		return
	}
	metrics.WebSocketConnections.Inc()
	defer metrics.WebSocketConnections.Dec()

	ctx, cancel := context.WithCancel(context.Background())
	c := &liveConn{
		h:       h,
		conn:    conn,
		session: session,
		manager: realtime.NewManager(h.Store, h.Feed, h.Cache),
		out:     make(chan LiveEvent, liveOutBuffer),
		ctx:     ctx,
		cancel:  cancel,
	}
	slog.Debug("live connection opened", "user_id", session.UID)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writeLoop()
	}()

	c.readLoop()

	// Unblock listeners waiting on out before closing them.
	cancel()
	c.manager.Close()
	wg.Wait()
	conn.Close()
	slog.Debug("live connection closed", "user_id", session.UID)
}

type liveConn struct {
	h       *Handler
	conn    *websocket.Conn
	session models.AuthSession
	manager *realtime.Manager
	tracker services.UnreadTracker
	out     chan LiveEvent
	ctx     context.Context
	cancel  context.CancelFunc
}

// send queues evt for the writer. It gives up once the connection is
// closing.
func (c *liveConn) send(evt LiveEvent) {
	select {
	case c.out <- evt:
	case <-c.ctx.Done():
	}
}

func (c *liveConn) sendError(requestID, groupID string, err error) {
	status, message := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("live request failed", "user_id", c.session.UID, "group_id", groupID, "err", err)
	}
	c.send(LiveEvent{Type: EventError, RequestID: requestID, GroupID: groupID, Error: message})
}

func (c *liveConn) ack(requestID string, data any) {
	c.send(LiveEvent{Type: EventAck, RequestID: requestID, Data: data})
}

func (c *liveConn) writeLoop() {
	ticker := time.NewTicker(livePingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		case evt := <-c.out:
			_ = c.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
			if err := c.conn.WriteJSON(evt); err != nil {
				c.fail()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteWait)); err != nil {
				c.fail()
				return
			}
		}
	}
}

// fail stops the connection after a write error. Closing the socket
// unblocks the reader.
func (c *liveConn) fail() {
	c.cancel()
	c.conn.Close()
}

func (c *liveConn) readLoop() {
	c.conn.SetReadLimit(liveReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(liveReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(liveReadTimeout))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(liveReadTimeout))

		var msg LiveClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.send(LiveEvent{Type: EventError, Error: "Invalid message"})
			continue
		}
		c.handle(msg)
	}
}

func (c *liveConn) handle(msg LiveClientMessage) {
	switch msg.Type {
	case MsgWatchGroups:
		c.watchGroups(msg)
	case MsgSelectGroup:
		c.selectGroup(msg)
	case MsgWatchNotifications:
		c.watchNotifications(msg)
	case MsgWatchIdeas:
		c.watchIdeas(msg)
	case MsgUnwatch:
		c.manager.Release(msg.Slot)
		c.ack(msg.RequestID, nil)
	case MsgSendMessage:
		c.sendMessage(msg)
	case MsgMarkRead:
		if err := c.h.Notifications.MarkOneRead(c.ctx, c.session, msg.NotificationID); err != nil {
			c.sendError(msg.RequestID, "", err)
			return
		}
		c.ack(msg.RequestID, nil)
	case MsgMarkAllRead:
		c.markAllRead(msg)
	case MsgPing:
		c.send(LiveEvent{Type: EventPong, RequestID: msg.RequestID})
	default:
		c.send(LiveEvent{Type: EventError, RequestID: msg.RequestID, Error: "Unknown message type"})
	}
}

func (c *liveConn) watchGroups(msg LiveClientMessage) {
	uid := c.session.UID
	_, err := realtime.Watch(c.manager, SlotGroups, services.GroupsQuery(), func(s realtime.Snapshot[models.Group]) {
		if s.Err != nil {
			c.sendError(msg.RequestID, "", s.Err)
			return
		}
		c.send(LiveEvent{Type: EventGroups, Data: services.Visible(s.Docs, uid), FromCache: s.FromCache})
	})
	if err != nil {
		c.sendError(msg.RequestID, "", err)
	}
}

// selectGroup replaces the timeline listener. Losing read access to the
// group ends the listener with a final error event.
func (c *liveConn) selectGroup(msg LiveClientMessage) {
	groupID := strings.TrimSpace(msg.GroupID)
	if groupID == "" {
		c.send(LiveEvent{Type: EventError, RequestID: msg.RequestID, Error: "group_id is required"})
		return
	}

	guard := func(ctx context.Context) error {
		err := c.h.Chat.CheckReadAccess(ctx, c.session, groupID)
		if errors.Is(err, services.ErrNotMember) || errors.Is(err, services.ErrGroupNotFound) {
			return fmt.Errorf("%w: %w", realtime.ErrPermissionDenied, err)
		}
		return err
	}
	opts := timeline.Options{Location: c.h.Location}

	_, err := realtime.Watch(c.manager, SlotTimeline, c.h.Chat.MessagesQuery(groupID), func(s realtime.Snapshot[models.Message]) {
		if s.Err != nil {
			c.sendError(msg.RequestID, groupID, s.Err)
			return
		}
		entries := c.h.historyEntries(timeline.Build(s.Docs, opts))
		c.send(LiveEvent{Type: EventTimeline, GroupID: groupID, Data: entries, FromCache: s.FromCache})
	}, realtime.WithGuard(guard), realtime.RecheckOn(models.CollectionGroups))
	if err != nil {
		c.sendError(msg.RequestID, groupID, err)
	}
}

func (c *liveConn) watchNotifications(msg LiveClientMessage) {
	if !c.session.Valid() {
		c.sendError(msg.RequestID, "", services.ErrUnauthenticated)
		return
	}
	q := c.h.Notifications.UnreadQuery(c.session.UID)
	_, err := realtime.Watch(c.manager, SlotNotifications, q, func(s realtime.Snapshot[models.Notification]) {
		if s.Err != nil {
			c.sendError(msg.RequestID, "", s.Err)
			return
		}
		c.tracker.Apply(s.Docs)
		c.send(LiveEvent{
			Type:      EventNotifications,
			Data:      NotificationsData{Notifications: c.tracker.Items(), UnreadCount: c.tracker.Count()},
			FromCache: s.FromCache,
		})
	})
	if err != nil {
		c.sendError(msg.RequestID, "", err)
	}
}

func (c *liveConn) watchIdeas(msg LiveClientMessage) {
	_, err := realtime.Watch(c.manager, SlotIdeas, services.IdeasQuery(msg.Category), func(s realtime.Snapshot[models.Idea]) {
		if s.Err != nil {
			c.sendError(msg.RequestID, "", s.Err)
			return
		}
		c.send(LiveEvent{Type: EventIdeas, Data: s.Docs, FromCache: s.FromCache})
	})
	if err != nil {
		c.sendError(msg.RequestID, "", err)
	}
}

func (c *liveConn) sendMessage(msg LiveClientMessage) {
	groupID := strings.TrimSpace(msg.GroupID)
	if !c.h.SendLimiter.Allow(c.session.UID) {
		c.send(LiveEvent{Type: EventError, RequestID: msg.RequestID, GroupID: groupID, Error: "You are sending messages too quickly"})
		return
	}
	m, err := c.h.Chat.Send(c.ctx, c.session, groupID, msg.Text)
	if err != nil {
		c.sendError(msg.RequestID, groupID, err)
		return
	}
	c.send(LiveEvent{Type: EventAck, RequestID: msg.RequestID, GroupID: groupID, Data: m})
}

// markAllRead marks everything in the last unread snapshot. Without a
// notifications listener the unread list is read once.
func (c *liveConn) markAllRead(msg LiveClientMessage) {
	var ids []string
	if c.manager.Active(SlotNotifications) {
		ids = c.tracker.IDs()
	} else {
		unread, err := c.h.Notifications.Unread(c.ctx, c.session)
		if err != nil {
			c.sendError(msg.RequestID, "", err)
			return
		}
		for _, n := range unread {
			ids = append(ids, n.ID)
		}
	}
	res, err := c.h.Notifications.MarkAllRead(c.ctx, c.session, ids)
	if err != nil {
		c.sendError(msg.RequestID, "", err)
		return
	}
	c.ack(msg.RequestID, res)
}
