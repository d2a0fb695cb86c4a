// Package realtime is the publish/subscribe channel for live community
// events. Clients connect over a websocket, join community channels and
// receive every event published to those channels.
package realtime

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
)

// Event types emitted to subscribed clients.
const (
	EventPostCreated        = "postCreated"
	EventPostUpdated        = "postUpdated"
	EventPostDeleted        = "postDeleted"
	EventChatMessage        = "chatMessage"
	EventChatMessageDeleted = "chatMessageDeleted"
)

// Event is the wire shape of a broadcast.
type Event struct {
	Type      string      `json:"type"`
	Community string      `json:"community"`
	Payload   interface{} `json:"payload"`
}

type subscription struct {
	client    *Client
	community string
}

type broadcast struct {
	community string
	data      []byte
}

// Hub routes events to clients by community channel. All room state is
// owned by the Run goroutine; the channels are the only way in.
type Hub struct {
	rooms   map[string]map[*Client]bool
	members map[*Client]map[string]bool

	register   chan *Client
	unregister chan *Client
	join       chan subscription
	leave      chan subscription
	events     chan broadcast

	logger zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		members:    make(map[*Client]map[string]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan subscription),
		leave:      make(chan subscription),
		events:     make(chan broadcast, 64),
		logger:     logger.With().Str("component", "realtime").Logger(),
	}
}

// Run owns the room state until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.members[client] = make(map[string]bool)

		case client := <-h.unregister:
			if _, ok := h.members[client]; !ok {
				continue
			}
			for community := range h.members[client] {
				h.dropFromRoom(client, community)
			}
			delete(h.members, client)
			close(client.send)

		case sub := <-h.join:
			if _, ok := h.members[sub.client]; !ok {
				continue
			}
			h.members[sub.client][sub.community] = true
			if h.rooms[sub.community] == nil {
				h.rooms[sub.community] = make(map[*Client]bool)
			}
			h.rooms[sub.community][sub.client] = true

		case sub := <-h.leave:
			if _, ok := h.members[sub.client]; !ok {
				continue
			}
			delete(h.members[sub.client], sub.community)
			h.dropFromRoom(sub.client, sub.community)

		case ev := <-h.events:
			for client := range h.rooms[ev.community] {
				select {
				case client.send <- ev.data:
				default:
					// Slow consumer: drop the connection rather than
					// stall every other subscriber.
					for community := range h.members[client] {
						h.dropFromRoom(client, community)
					}
					delete(h.members, client)
					close(client.send)
				}
			}

		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) dropFromRoom(client *Client, community string) {
	room := h.rooms[community]
	if room == nil {
		return
	}
	delete(room, client)
	if len(room) == 0 {
		delete(h.rooms, community)
	}
}

// Broadcast publishes an event to every client subscribed to the
// community channel. Best effort: marshal failures are logged and the
// event dropped.
func (h *Hub) Broadcast(community string, eventType string, payload interface{}) {
	data, err := json.Marshal(Event{Type: eventType, Community: community, Payload: payload})
	if err != nil {
		h.logger.Error().Err(err).Str("event", eventType).Msg("marshal broadcast")
		return
	}
	h.events <- broadcast{community: community, data: data}
}
