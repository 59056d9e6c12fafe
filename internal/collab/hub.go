package collab

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"projecthub-be/internal/pkg/logger"
	"projecthub-be/internal/repository/specification"
	"projecthub-be/internal/repository/unitofwork"
	"projecthub-be/pkg/syncengine"
	"projecthub-be/pkg/syncengine/wire"

	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
)

const clusterInvalidationChannel = "collab_invalidations"

// roomState is the in-memory authoritative copy of one document's content
// while at least one client is connected. Only the hub goroutine touches it.
type roomState struct {
	clients      map[*Client]bool
	state        []byte
	version      uint64
	sincePersist int
}

type inbound struct {
	client *Client
	msg    *wire.Message
}

type invalidation struct {
	room        string
	reason      string
	fromCluster bool
}

type Hub struct {
	// Active rooms map: RoomID string -> state + connected clients
	rooms map[string]*roomState

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Parsed messages from client read pumps.
	inbound chan inbound

	// Out-of-band invalidation requests (REST writes, cluster peers).
	invalidations chan invalidation

	uowFactory   unitofwork.RepositoryFactory
	persistEvery int

	// Redis connection for cross-instance communication
	rdb *redis.Client

	// Dedicated Logger
	logger logger.ILogger
}

func NewHub(uowFactory unitofwork.RepositoryFactory, persistEvery int, rdb *redis.Client, log logger.ILogger) *Hub {
	if persistEvery < 1 {
		persistEvery = 1
	}
	return &Hub{
		rooms:         make(map[string]*roomState),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		inbound:       make(chan inbound, 64),
		invalidations: make(chan invalidation, 16),
		uowFactory:    uowFactory,
		persistEvery:  persistEvery,
		rdb:           rdb,
		logger:        log,
	}
}

func (h *Hub) Run() {
	// Start Redis Subscriber if Redis is available
	if h.rdb != nil {
		go h.subscribeToCluster()
	}

	for {
		select {
		case client := <-h.register:
			h.handleRegister(client)

		case client := <-h.unregister:
			h.handleUnregister(client)

		case in := <-h.inbound:
			h.handleMessage(in.client, in.msg)

		case inv := <-h.invalidations:
			h.handleInvalidation(inv)
		}
	}
}

// Invalidate closes every session on a room with the invalidation close code
// and drops the room's in-memory state. Safe to call from any goroutine.
func (h *Hub) Invalidate(room string, reason string) {
	h.invalidations <- invalidation{room: room, reason: reason}
}

func (h *Hub) handleRegister(client *Client) {
	room, ok := h.rooms[client.Room]
	if !ok {
		loaded, err := h.loadRoom(client.Room)
		if err != nil {
			h.logger.Error("Hub", "Failed to load room, rejecting client", map[string]interface{}{"room": client.Room, "error": err.Error()})
			close(client.Send)
			client.Conn.Close()
			return
		}
		room = loaded
		h.rooms[client.Room] = room
	}
	room.clients[client] = true
	h.logger.Info("Hub", "Client joined room", map[string]interface{}{"room": client.Room, "user_id": client.UserID, "clients": len(room.clients)})

	// Initial sync: the full authoritative state, before any updates flow.
	h.send(room, client, &wire.Message{
		Type:    wire.MessageSync,
		Room:    client.Room,
		Version: room.version,
		State:   room.state,
	})
}

func (h *Hub) handleUnregister(client *Client) {
	room, ok := h.rooms[client.Room]
	if !ok {
		return
	}
	if _, ok := room.clients[client]; !ok {
		return
	}
	delete(room.clients, client)
	close(client.Send)

	if len(room.clients) == 0 {
		// Last client gone: flush state and release the room.
		if room.sincePersist > 0 {
			h.persist(client.Room, room)
		}
		delete(h.rooms, client.Room)
		h.logger.Info("Hub", "Room released", map[string]interface{}{"room": client.Room, "version": room.version})
	}
}

// handleMessage applies one client update: the delta is appended to the
// room state, the version advances, the sender gets an ack and everyone
// else gets the delta. Updates are applied strictly in arrival order.
func (h *Hub) handleMessage(client *Client, msg *wire.Message) {
	room, ok := h.rooms[client.Room]
	if !ok || msg.Type != wire.MessageUpdate {
		return
	}
	if _, ok := room.clients[client]; !ok {
		return
	}

	room.state = append(room.state, msg.Delta...)
	room.version++
	room.sincePersist++

	h.send(room, client, &wire.Message{
		Type:    wire.MessageAck,
		Room:    client.Room,
		Version: room.version,
	})
	for other := range room.clients {
		if other == client {
			continue
		}
		h.send(room, other, &wire.Message{
			Type:    wire.MessageUpdate,
			Room:    client.Room,
			Version: room.version,
			Delta:   msg.Delta,
		})
	}

	if room.sincePersist >= h.persistEvery {
		h.persist(client.Room, room)
	}
}

func (h *Hub) handleInvalidation(inv invalidation) {
	room, ok := h.rooms[inv.room]
	if ok {
		// The close code tells clients this is not a network failure: their
		// cache is stale and must not be reused.
		deadline := time.Now().Add(writeWait)
		frame := websocket.FormatCloseMessage(wire.CloseInvalidated, inv.reason)
		for client := range room.clients {
			client.Conn.WriteControl(websocket.CloseMessage, frame, deadline)
			close(client.Send)
			client.Conn.Close()
		}
		delete(h.rooms, inv.room)
		h.logger.Info("Hub", "Room invalidated", map[string]interface{}{"room": inv.room, "reason": inv.reason, "clients": len(room.clients)})
	}

	// Fan out to other instances, which may hold sessions on the same room.
	if h.rdb != nil && !inv.fromCluster {
		payload, _ := json.Marshal(map[string]string{"room": inv.room, "reason": inv.reason})
		h.rdb.Publish(context.Background(), clusterInvalidationChannel, payload)
	}
}

func (h *Hub) loadRoom(roomID string) (*roomState, error) {
	parsed, err := syncengine.ParseRoomID(roomID)
	if err != nil {
		return nil, err
	}
	docID, err := parsed.DocumentID()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	uow := h.uowFactory.NewUnitOfWork(ctx)
	doc, err := uow.DocumentRepository().FindOne(ctx,
		specification.ByID{ID: docID},
		specification.ByDocumentType{Type: parsed.DocumentType()},
	)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, syncengine.ErrUnknownRoom
	}

	return &roomState{
		clients: make(map[*Client]bool),
		state:   doc.ContentState,
		version: doc.Version,
	}, nil
}

func (h *Hub) persist(roomID string, room *roomState) {
	parsed, err := syncengine.ParseRoomID(roomID)
	if err != nil {
		return
	}
	docID, err := parsed.DocumentID()
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	uow := h.uowFactory.NewUnitOfWork(ctx)
	if err := uow.DocumentRepository().UpdateContentState(ctx, docID, room.state); err != nil {
		h.logger.Error("Hub", "Failed to persist room state", map[string]interface{}{"room": roomID, "error": err.Error()})
		return
	}
	room.sincePersist = 0
}

func (h *Hub) send(room *roomState, client *Client, msg *wire.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case client.Send <- data:
	default:
		h.logger.Warn("Hub", "Client Send buffer full, dropping connection", map[string]interface{}{"room": client.Room, "user_id": client.UserID})
		delete(room.clients, client)
		close(client.Send)
		client.Conn.Close()
	}
}

func (h *Hub) subscribeToCluster() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, clusterInvalidationChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()

	for msg := range ch {
		var payload struct {
			Room   string `json:"room"`
			Reason string `json:"reason"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			log.Printf("Redis msg parse error: %v", err)
			continue
		}
		h.invalidations <- invalidation{room: payload.Room, reason: payload.Reason, fromCluster: true}
	}
}
