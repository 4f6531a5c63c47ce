// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package drawserver

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"math"
	"time"

	"github.com/GermanBionicSystems/epdframe/canvas"
	"github.com/GermanBionicSystems/epdframe/history"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo"
)

// maxMessageSize bounds incoming messages; long strokes stay well below it.
const maxMessageSize = 1 << 20

func (s *Server) serveWS(ec echo.Context) error {
	conn, err := s.upgrader.Upgrade(ec.Response(), ec.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	c := &client{id: newClientID(), conn: conn}

	// The connection is hijacked; errors are logged, not returned to echo.
	msg, err := s.initMessage("")
	if err != nil {
		s.log.Printf("Client %s: %v", c.id, err)
		return nil
	}
	if err := s.send(c, msg); err != nil {
		return nil
	}

	s.hub.add(c)
	s.broadcastPresence()
	defer func() {
		s.hub.remove(c)
		s.broadcastPresence()
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			s.log.Printf("Client %s disconnected: %v", c.id, err)
			return nil
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}

		if err := s.handleMessage(c, data); err != nil {
			s.log.Printf("Client %s: %v", c.id, err)
		}
	}
}

func (s *Server) send(c *client, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.write(data)
}

// handleMessage applies one client message. Accepted draw, fill, clear and
// wave messages are relayed verbatim to the other clients.
func (s *Server) handleMessage(c *client, data []byte) error {
	var a action
	if err := json.Unmarshal(data, &a); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}

	switch a.Type {
	case typeDraw:
		if err := s.canvas.Draw(a.Points, a.Color, a.BrushSize); err != nil {
			return err
		}
		s.saver.touch()

	case typeFill:
		if err := s.canvas.Fill(int(math.Floor(a.X)), int(math.Floor(a.Y)), a.Color); err != nil {
			return err
		}
		s.saver.touch()

	case typeClear:
		if err := s.Clear(); err != nil {
			s.log.Printf("Saving before clear: %v", err)
		}

	case typeWave:

	case typeGetHistory:
		msg, err := s.historyMessage()
		if err != nil {
			return err
		}
		return s.send(c, msg)

	case typeSaveToHistory:
		id, err := s.saveToHistory(a.ID)
		if err != nil {
			return err
		}
		msg, err := s.initMessage(id)
		if err != nil {
			return err
		}
		if err := s.send(c, msg); err != nil {
			return err
		}
		return s.broadcastHistory()

	case typeRestore:
		return s.restore(a.ID)

	case typeDeleteHistory:
		if s.opts.History == nil {
			return ErrHistoryDisabled
		}
		if err := s.opts.History.Delete(a.ID); err != nil {
			return err
		}
		return s.broadcastHistory()

	default:
		return fmt.Errorf("unknown message type %q", a.Type)
	}

	s.hub.broadcast(data, c)
	return nil
}

// saveToHistory stores the canvas under id, or under a new ID when id is
// empty, and returns the ID used.
func (s *Server) saveToHistory(id string) (string, error) {
	if s.opts.History == nil {
		return "", ErrHistoryDisabled
	}

	now := time.Now()
	if id == "" {
		id = history.NewID(now)
	}

	var buf bytes.Buffer
	if err := s.canvas.WritePNG(&buf); err != nil {
		return "", err
	}

	if err := s.opts.History.Save(history.Item{ID: id, Timestamp: now, Image: buf.Bytes()}); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Server) restore(id string) error {
	if s.opts.History == nil {
		return ErrHistoryDisabled
	}

	item, err := s.opts.History.Get(id)
	if err != nil {
		return err
	}
	img, err := png.Decode(bytes.NewReader(item.Image))
	if err != nil {
		return fmt.Errorf("history item %q: %w", id, err)
	}

	s.canvas.LoadImage(img)
	s.saver.touch()

	msg, err := s.initMessage(id)
	if err != nil {
		return err
	}
	return s.hub.broadcastJSON(msg, nil)
}

func (s *Server) historyMessage() (*historyUpdateMessage, error) {
	if s.opts.History == nil {
		return nil, ErrHistoryDisabled
	}

	items, err := s.opts.History.List()
	if err != nil {
		return nil, err
	}

	msg := &historyUpdateMessage{
		Type:    typeHistoryUpdate,
		History: make([]historyItem, 0, len(items)),
	}
	for _, item := range items {
		thumb, err := s.thumbnail(item)
		if err != nil {
			s.log.Printf("History item %q: %v", item.ID, err)
			continue
		}
		msg.History = append(msg.History, historyItem{
			ID:        item.ID,
			Timestamp: item.Timestamp.UnixMilli(),
			Image:     thumb,
		})
	}
	return msg, nil
}

// thumbnail returns the base64 PNG sent for item in history updates.
func (s *Server) thumbnail(item history.Item) (string, error) {
	img, err := png.Decode(bytes.NewReader(item.Image))
	if err != nil {
		return "", err
	}
	thumb := canvas.Thumbnail(img, s.opts.ThumbnailWidth, item.Timestamp.Format("2006-01-02 15:04"))

	var buf bytes.Buffer
	if err := png.Encode(&buf, thumb); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func (s *Server) broadcastHistory() error {
	msg, err := s.historyMessage()
	if err != nil {
		return err
	}
	return s.hub.broadcastJSON(msg, nil)
}

func (s *Server) broadcastPresence() {
	msg := &presenceUpdateMessage{Type: typePresenceUpdate, Users: s.hub.users()}
	if err := s.hub.broadcastJSON(msg, nil); err != nil {
		s.log.Printf("Presence update: %v", err)
	}
}
