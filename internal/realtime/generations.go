package realtime

import (
	"encoding/json"
	"log"
	"sync/atomic"

	"github.com/gofiber/websocket/v2"
)

// GenerationsHub fans TTS generation status events out to connected
// dashboard clients.
type GenerationsHub struct {
	Register   chan *websocket.Conn
	Unregister chan *websocket.Conn
	Broadcast  chan []byte

	clients map[*websocket.Conn]bool
	count   atomic.Int64
}

var Generations = &GenerationsHub{
	Register:   make(chan *websocket.Conn),
	Unregister: make(chan *websocket.Conn),
	Broadcast:  make(chan []byte, 64),
	clients:    make(map[*websocket.Conn]bool),
}

// Run owns the client map; all membership changes go through the channels.
func (h *GenerationsHub) Run() {
	for {
		select {
		case c := <-h.Register:
			h.clients[c] = true
			h.count.Store(int64(len(h.clients)))
		case c := <-h.Unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				c.Close()
			}
			h.count.Store(int64(len(h.clients)))
		case msg := <-h.Broadcast:
			for c := range h.clients {
				if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
					delete(h.clients, c)
					c.Close()
				}
			}
			h.count.Store(int64(len(h.clients)))
		}
	}
}

// Publish marshals the event and queues it for broadcast. Drops the event
// if the broadcast buffer is full rather than blocking a worker.
func (h *GenerationsHub) Publish(event interface{}) {
	msg, err := json.Marshal(event)
	if err != nil {
		log.Printf("[ws] failed to marshal event: %v", err)
		return
	}

	select {
	case h.Broadcast <- msg:
	default:
		log.Println("[ws] broadcast buffer full, event dropped")
	}
}

// ClientCount reports connected clients for the monitoring stats endpoint.
func (h *GenerationsHub) ClientCount() int64 {
	return h.count.Load()
}
