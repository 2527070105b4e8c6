package grocery

import (
	"fmt"
	"strings"
	"time"
)

// state is the decoded collection plus the current-list pointer. It is
// rebuilt from the stored record on every operation and never outlives it.
type state struct {
	lists   []List
	current string
}

func newState(lists []List) *state {
	st := &state{lists: lists}

	for i := range lists {
		if lists[i].Status == StatusActive {
			st.current = lists[i].ID

			break
		}
	}

	return st
}

func (st *state) index(listID string) int {
	for i := range st.lists {
		if st.lists[i].ID == listID {
			return i
		}
	}

	return -1
}

// active returns the current list, or nil.
func (st *state) active() *List {
	if st.current == "" {
		return nil
	}

	i := st.index(st.current)
	if i < 0 {
		return nil
	}

	return &st.lists[i]
}

// supersede completes every active list. Normally there is at most one; a
// record written by something else may hold more and is repaired here.
func (st *state) supersede(now time.Time) {
	for i := range st.lists {
		if st.lists[i].Status != StatusActive {
			continue
		}

		completed := now
		st.lists[i].Status = StatusCompleted
		st.lists[i].CompletedAt = &completed
		st.lists[i].UpdatedAt = now
	}

	st.current = ""
}

// start supersedes any active list and prepends a new active one.
func (st *state) start(l List) *List {
	st.supersede(l.CreatedAt)

	st.lists = append([]List{l}, st.lists...)
	st.current = l.ID

	return &st.lists[0]
}

func (st *state) remove(listID string) (List, bool) {
	i := st.index(listID)
	if i < 0 {
		return List{}, false
	}

	removed := st.lists[i]
	st.lists = append(st.lists[:i], st.lists[i+1:]...)

	if st.current == listID {
		st.current = ""
	}

	return removed, true
}

func itemIndex(l *List, itemID string) int {
	for i := range l.Items {
		if l.Items[i].ID == itemID {
			return i
		}
	}

	return -1
}

func hasName(l *List, name string) bool {
	for i := range l.Items {
		if l.Items[i].Name == name {
			return true
		}
	}

	return false
}

// appendEntries appends entries whose names are not yet on l, in order.
// Names are matched exactly. It returns the added items and skipped names.
func appendEntries(l *List, entries []Entry, now time.Time, newID func() string) ([]Item, []string) {
	var (
		added   []Item
		skipped []string
	)

	for _, e := range entries {
		if hasName(l, e.Name) {
			skipped = append(skipped, e.Name)

			continue
		}

		item := Item{
			ID:       newID(),
			Name:     e.Name,
			Category: e.Category,
			AddedAt:  now,
		}

		l.Items = append(l.Items, item)
		added = append(added, item)
	}

	if len(added) > 0 {
		l.UpdatedAt = now
	}

	return added, skipped
}

// cleanEntries trims names and drops entries with empty names.
func cleanEntries(entries []Entry) []Entry {
	cleaned := make([]Entry, 0, len(entries))

	for _, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			continue
		}

		cleaned = append(cleaned, Entry{Name: name, Category: strings.TrimSpace(e.Category)})
	}

	return cleaned
}

// DefaultTitle is the title given to lists created without one.
func DefaultTitle(t time.Time) string {
	return fmt.Sprintf("Grocery List - %s", t.Format("Jan 2, 2006"))
}
