// Package stream fans live ride updates out to WebSocket clients, through
// Redis when several API instances share a rider.
package stream

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"
)

const (
	channelPrefix  = "ride:"
	channelSuffix  = ":live"
	channelPattern = channelPrefix + "*" + channelSuffix
)

type Hub struct {
	redis   *redis.Client
	clients map[string]map[*Client]struct{}
	last    map[string][]byte
	mu      sync.RWMutex

	cancel context.CancelFunc
	done   chan struct{}
}

type Client struct {
	SessionID string
	Send      chan []byte
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		redis:   redisClient,
		clients: map[string]map[*Client]struct{}{},
		last:    map[string][]byte{},
	}

	if redisClient != nil {
		ctx, cancel := context.WithCancel(context.Background())
		pubsub := redisClient.PSubscribe(ctx, channelPattern)
		if _, err := pubsub.Receive(ctx); err != nil {
			log.Printf("redis subscribe error, delivering locally: %v", err)
			_ = pubsub.Close()
			cancel()
			h.redis = nil
			return h
		}
		h.cancel = cancel
		h.done = make(chan struct{})
		go h.forward(ctx, pubsub)
	}
	return h
}

// Register adds a client for sessionID. The latest update of that session,
// if any, is queued for the client straight away.
func (h *Hub) Register(sessionID string) *Client {
	client := &Client{
		SessionID: sessionID,
		Send:      make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[sessionID] == nil {
		h.clients[sessionID] = map[*Client]struct{}{}
	}
	h.clients[sessionID][client] = struct{}{}
	if payload, ok := h.last[sessionID]; ok {
		client.Send <- payload
	}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sessionClients, ok := h.clients[client.SessionID]; ok {
		delete(sessionClients, client)
		if len(sessionClients) == 0 {
			delete(h.clients, client.SessionID)
		}
	}
	close(client.Send)
}

// Publish encodes v as JSON and broadcasts it to the session's clients.
func (h *Hub) Publish(sessionID string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("stream encode error: %v", err)
		return
	}
	h.Broadcast(sessionID, payload)
}

// Broadcast goes through Redis when configured so every instance delivers
// the payload exactly once. Local delivery is the fallback.
func (h *Hub) Broadcast(sessionID string, payload []byte) {
	if h.redis != nil {
		err := h.redis.Publish(context.Background(), redisChannel(sessionID), payload).Err()
		if err == nil {
			return
		}
		log.Printf("redis publish error: %v", err)
	}
	h.deliver(sessionID, payload)
}

func (h *Hub) Close() {
	if h.cancel == nil {
		return
	}
	h.cancel()
	<-h.done
}

func (h *Hub) deliver(sessionID string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if isFinal(payload) {
		delete(h.last, sessionID)
	} else {
		h.last[sessionID] = payload
	}
	for client := range h.clients[sessionID] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) forward(ctx context.Context, pubsub *redis.PubSub) {
	defer close(h.done)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			sessionID := sessionIDFromChannel(msg.Channel)
			if sessionID == "" {
				continue
			}
			h.deliver(sessionID, []byte(msg.Payload))
		}
	}
}

// isFinal reports whether payload is the idle update that ends a ride.
func isFinal(payload []byte) bool {
	var u struct {
		State string `json:"state"`
	}
	if err := json.Unmarshal(payload, &u); err != nil {
		return false
	}
	return u.State == "idle"
}

func redisChannel(sessionID string) string {
	return channelPrefix + sessionID + channelSuffix
}

func sessionIDFromChannel(ch string) string {
	// ride:{session}:live
	if len(ch) <= len(channelPrefix)+len(channelSuffix) {
		return ""
	}
	if ch[:len(channelPrefix)] != channelPrefix || ch[len(ch)-len(channelSuffix):] != channelSuffix {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}
