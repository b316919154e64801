package server

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"photogram/storage"
	"photogram/storage/models"
	"photogram/utils"
)

const clientSendBufferSize = 64

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub pushes newly created posts to connected followers over websockets.
// Redis pub/sub fans the events out across instances; a nil Redis client
// keeps the hub purely in-process.
type Hub struct {
	redisClient   *redis.Client
	relationships *storage.RelationshipStore

	mu      sync.RWMutex
	clients map[string]map[*streamClient]struct{}
}

type streamClient struct {
	userID string
	send   chan []byte
	done   chan struct{}
}

func NewHub(redisClient *redis.Client, relationships *storage.RelationshipStore) *Hub {
	h := &Hub{
		redisClient:   redisClient,
		relationships: relationships,
		clients:       make(map[string]map[*streamClient]struct{}),
	}
	if redisClient != nil {
		go h.subscribeRedis()
	}
	return h
}

// PublishPost delivers post to the author's followers and to the author.
func (h *Hub) PublishPost(ctx context.Context, post models.Post) {
	followers, err := h.relationships.FollowersOf(ctx, post.OwnerID)
	if err != nil {
		log.Errorf("Error resolving followers for stream: %v", err)
		return
	}
	payload := utils.ToJson(post)
	for _, userID := range append(followers, post.OwnerID) {
		if h.redisClient == nil {
			h.deliver(userID, payload)
			continue
		}
		// Local delivery happens when the subscription echoes the
		// publication back; delivering here too would double it.
		err := h.redisClient.Publish(ctx, streamChannel(userID), payload).Err()
		if err != nil {
			log.Errorf("Error publishing post to redis: %v", err)
		}
	}
}

func (h *Hub) register(userID string) *streamClient {
	client := &streamClient{
		userID: userID,
		send:   make(chan []byte, clientSendBufferSize),
		done:   make(chan struct{}),
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*streamClient]struct{})
	}
	h.clients[userID][client] = struct{}{}
	return client
}

func (h *Hub) unregister(client *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if userClients, ok := h.clients[client.userID]; ok {
		delete(userClients, client)
		if len(userClients) == 0 {
			delete(h.clients, client.userID)
		}
	}
}

func (h *Hub) deliver(userID string, payload []byte) {
	h.mu.RLock()
	clients := h.clients[userID]
	h.mu.RUnlock()

	for client := range clients {
		select {
		case client.send <- payload:
		default:
			// Slow consumer; drop rather than block the publisher.
		}
	}
}

func (h *Hub) subscribeRedis() {
	ctx := context.Background()
	pubsub := h.redisClient.PSubscribe(ctx, "timeline:*:posts")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		h.deliver(userIDFromChannel(msg.Channel), []byte(msg.Payload))
	}
}

func streamChannel(userID string) string {
	return "timeline:" + userID + ":posts"
}

func userIDFromChannel(channel string) string {
	parts := strings.Split(channel, ":")
	if len(parts) != 3 {
		return ""
	}
	return parts[1]
}

func (s *Server) getStream(w http.ResponseWriter, r *http.Request) {
	userID := getQueryItem(r.URL.Query(), "user")
	if userID == "" {
		sendError(w, http.StatusBadRequest, "missing user param")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Error upgrading stream connection: %v", err)
		return
	}

	client := s.hub.register(userID)
	defer s.hub.unregister(client)

	// Reader only watches for the peer closing.
	go func() {
		defer close(client.done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case payload := <-client.send:
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				conn.Close()
				return
			}
		case <-client.done:
			conn.Close()
			return
		}
	}
}
