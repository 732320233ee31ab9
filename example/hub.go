package main

import (
	"context"
	"sync"

	"github.com/dmitrymomot/pie"
)

type hub struct {
	rooms map[string]map[*pie.WebSocket]struct{}
	mu    sync.Mutex
}

func newHub() *hub {
	return &hub{rooms: make(map[string]map[*pie.WebSocket]struct{})}
}

func (h *hub) join(room string, ws *pie.WebSocket) (leave func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*pie.WebSocket]struct{})
	}
	h.rooms[room][ws] = struct{}{}

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.rooms[room], ws)
		if len(h.rooms[room]) == 0 {
			delete(h.rooms, room)
		}
	}
}

// broadcast sends msg to every member. Slow or gone peers are skipped;
// their own handler notices the broken connection.
func (h *hub) broadcast(ctx context.Context, room, msg string) {
	h.mu.Lock()
	members := make([]*pie.WebSocket, 0, len(h.rooms[room]))
	for ws := range h.rooms[room] {
		members = append(members, ws)
	}
	h.mu.Unlock()

	for _, ws := range members {
		_ = ws.SendText(ctx, msg)
	}
}
