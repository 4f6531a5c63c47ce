// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package history

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned for unknown item IDs.
var ErrNotFound = errors.New("history: item not found")

// Item is one saved drawing.
type Item struct {
	ID        string
	Timestamp time.Time
	// Image is the PNG encoded drawing.
	Image []byte
}

// Store is a history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database in file.
func Open(file string) (*Store, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_busy_timeout=5000", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS history (id TEXT PRIMARY KEY NOT NULL, timestamp INTEGER NOT NULL, image BLOB NOT NULL)"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.Exec("CREATE INDEX IF NOT EXISTS history_timestamp ON history (timestamp)"); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		db: db,
	}, nil
}

// NewID returns a fresh item ID: the creation time in milliseconds and a
// random suffix.
func NewID(now time.Time) string {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + hex.EncodeToString(b[:])
}

// Save inserts item, replacing any item with the same ID.
func (s *Store) Save(item Item) error {
	if _, err := s.db.Exec("INSERT OR REPLACE INTO history (id, timestamp, image) VALUES (?, ?, ?)", item.ID, item.Timestamp.UnixMilli(), item.Image); err != nil {
		return err
	}
	return nil
}

// List returns all items, newest first.
func (s *Store) List() ([]Item, error) {
	rows, err := s.db.Query("SELECT id, timestamp, image FROM history ORDER BY timestamp DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		var ms int64
		if err := rows.Scan(&item.ID, &ms, &item.Image); err != nil {
			return nil, err
		}
		item.Timestamp = time.UnixMilli(ms)
		items = append(items, item)
	}

	return items, rows.Err()
}

// Get returns the item with the given ID.
func (s *Store) Get(id string) (Item, error) {
	item := Item{ID: id}
	var ms int64
	switch err := s.db.QueryRow("SELECT timestamp, image FROM history WHERE id = ?", id).Scan(&ms, &item.Image); err {
	case sql.ErrNoRows:
		return Item{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	case nil:
		item.Timestamp = time.UnixMilli(ms)
		return item, nil
	default:
		return Item{}, err
	}
}

// Delete removes the item with the given ID.
func (s *Store) Delete(id string) error {
	result, err := s.db.Exec("DELETE FROM history WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
