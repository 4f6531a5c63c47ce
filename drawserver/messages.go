// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package drawserver

import (
	"github.com/GermanBionicSystems/epdframe/canvas"
)

// Message types.
const (
	typeInit           = "init"
	typeDraw           = "draw"
	typeFill           = "fill"
	typeClear          = "clear"
	typeWave           = "wave"
	typeGetHistory     = "get-history"
	typeHistoryUpdate  = "history-update"
	typeSaveToHistory  = "save-to-history"
	typeRestore        = "restore"
	typeDeleteHistory  = "delete-history"
	typePresenceUpdate = "presence-update"
)

// action is any message received from a client.
type action struct {
	Type string `json:"type"`

	// draw
	Points    []canvas.Point `json:"points"`
	Color     string         `json:"color"`
	BrushSize int            `json:"brushSize"`

	// fill
	X float64 `json:"x"`
	Y float64 `json:"y"`

	// save-to-history, restore, delete-history
	ID string `json:"id"`
}

type initMessage struct {
	Type      string `json:"type"`
	Image     string `json:"image"`
	HistoryID string `json:"historyId,omitempty"`
}

type historyItem struct {
	ID string `json:"id"`
	// Timestamp in milliseconds since the epoch.
	Timestamp int64  `json:"timestamp"`
	Image     string `json:"image"`
}

type historyUpdateMessage struct {
	Type    string        `json:"type"`
	History []historyItem `json:"history"`
}

type user struct {
	ID string `json:"id"`
}

type presenceUpdateMessage struct {
	Type  string `json:"type"`
	Users []user `json:"users"`
}
