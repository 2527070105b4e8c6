// Package grocery owns grocery lists and their lifecycle.
//
// An owner has at most one active list. Adding items when no list is active
// starts one; starting a new list completes the previous one. Lists move
// active -> completed -> archived (or active -> archived) and can be deleted
// from any state. Nothing leaves archived.
package grocery

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Status is a list's lifecycle state.
type Status string

// Status values.
const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusArchived  Status = "archived"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusCompleted || s == StatusArchived
}

// Item is one entry on a list.
type Item struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category,omitempty"`
	IsCompleted bool      `json:"isCompleted"`
	AddedAt     time.Time `json:"addedAt"`
}

// List is a grocery list. Items are kept in insertion order.
type List struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"user_id"`
	Title       string     `json:"title"`
	Items       []Item     `json:"items"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Status      Status     `json:"status"`
}

// ItemNames returns the names of all items in order.
func (l *List) ItemNames() []string {
	names := make([]string, len(l.Items))
	for i, it := range l.Items {
		names[i] = it.Name
	}

	return names
}

// CompletedCount returns how many items are checked off.
func (l *List) CompletedCount() int {
	n := 0

	for _, it := range l.Items {
		if it.IsCompleted {
			n++
		}
	}

	return n
}

// Entry is an item name to add, optionally with a store section.
type Entry struct {
	Name     string
	Category string
}

// EntriesFromNames wraps plain names as uncategorized entries.
func EntriesFromNames(names []string) []Entry {
	entries := make([]Entry, len(names))
	for i, n := range names {
		entries[i] = Entry{Name: n}
	}

	return entries
}

// Stats summarizes an owner's history.
type Stats struct {
	TotalLists     int `json:"totalLists"`
	TotalItems     int `json:"totalItems"`
	CompletedLists int `json:"completedLists"`
}

var errUnknownStatus = errors.New("unknown status")

// Encode serializes the whole collection.
func Encode(lists []List) ([]byte, error) {
	if lists == nil {
		lists = []List{}
	}

	data, err := json.Marshal(lists)
	if err != nil {
		return nil, fmt.Errorf("encode lists: %w", err)
	}

	return data, nil
}

// Decode parses a serialized collection. Empty input is an empty collection.
func Decode(data []byte) ([]List, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var lists []List

	err := json.Unmarshal(data, &lists)
	if err != nil {
		return nil, fmt.Errorf("decode lists: %w", err)
	}

	for i := range lists {
		if !lists[i].Status.Valid() {
			return nil, fmt.Errorf("decode lists: %w %q on list %s", errUnknownStatus, lists[i].Status, lists[i].ID)
		}
	}

	return lists, nil
}
