// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package drawserver

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

// client is a connected websocket. Writes are serialized by mu.
type client struct {
	id   string
	mu   sync.Mutex
	conn *websocket.Conn
}

func newClientID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// hub tracks the connected clients.
type hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
}

func newHub() *hub {
	return &hub{clients: map[*client]struct{}{}}
}

func (h *hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

func (h *hub) snapshot() []*client {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	return clients
}

func (h *hub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// users lists the connected clients ordered by ID.
func (h *hub) users() []user {
	clients := h.snapshot()
	users := make([]user, len(clients))
	for i, c := range clients {
		users[i] = user{ID: c.id}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

// broadcast sends data to every client except skip. Failed writes are
// ignored; the reader of that client notices the broken connection.
func (h *hub) broadcast(data []byte, skip *client) {
	for _, c := range h.snapshot() {
		if c != skip {
			_ = c.write(data)
		}
	}
}

func (h *hub) broadcastJSON(v interface{}, skip *client) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.broadcast(data, skip)
	return nil
}
