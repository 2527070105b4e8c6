package grocery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/calvinalkan/grocer/internal/store"
)

// Manager applies lifecycle operations to one owner's lists.
//
// Every mutation loads the stored collection, applies the change and writes
// the whole collection back inside a single [store.KV.Update], so the
// create-or-append decision and its commit cannot be split by another
// writer. A failed operation writes nothing.
type Manager struct {
	kv    store.KV
	owner string
	key   string
	now   func() time.Time
	newID func() string
	loc   *time.Location
	log   *slog.Logger

	mu sync.Mutex
}

// Option configures a [Manager].
type Option func(*Manager)

// WithClock sets the time source. Times are stored in UTC.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDs sets the ID generator for lists and items.
func WithIDs(newID func() string) Option {
	return func(m *Manager) { m.newID = newID }
}

// WithLocation sets the time zone used for calendar days and default titles.
func WithLocation(loc *time.Location) Option {
	return func(m *Manager) {
		if loc != nil {
			m.loc = loc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// NewManager returns a manager for owner's lists in kv. An empty owner is
// the guest owner.
func NewManager(kv store.KV, owner string, opts ...Option) *Manager {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		owner = store.GuestOwner
	}

	m := &Manager{
		kv:    kv,
		owner: owner,
		key:   store.Key(owner),
		now:   time.Now,
		newID: newUUID,
		loc:   time.Local,
		log:   slog.Default(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func newUUID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Owner returns the owner whose lists are managed.
func (m *Manager) Owner() string {
	return m.owner
}

// Key returns the store key holding the owner's lists.
func (m *Manager) Key() string {
	return m.key
}

// Location returns the time zone used for calendar days.
func (m *Manager) Location() *time.Location {
	return m.loc
}

// Now returns the manager's current time.
func (m *Manager) Now() time.Time {
	return m.now().UTC()
}

// mutate runs fn against the freshly loaded state and persists the result
// when fn reports a change.
func (m *Manager) mutate(ctx context.Context, fn func(st *state, now time.Time) (bool, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.Now()

	return m.kv.Update(ctx, m.key, func(current []byte) ([]byte, error) {
		lists, err := Decode(current)
		if err != nil {
			return nil, err
		}

		st := newState(lists)

		changed, err := fn(st, now)
		if err != nil {
			return nil, err
		}

		if !changed {
			return nil, nil
		}

		return Encode(st.lists)
	})
}

func (m *Manager) load(ctx context.Context) (*state, error) {
	data, err := m.kv.Load(ctx, m.key)
	if err != nil {
		return nil, err
	}

	lists, err := Decode(data)
	if err != nil {
		return nil, err
	}

	return newState(lists), nil
}

func (m *Manager) newList(title string, now time.Time) List {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle(now.In(m.loc))
	}

	return List{
		ID:        m.newID(),
		OwnerID:   m.owner,
		Title:     title,
		Items:     []Item{},
		CreatedAt: now,
		UpdatedAt: now,
		Status:    StatusActive,
	}
}

// CreateNewList completes the active list, if any, and starts a new active
// list. An empty title gets [DefaultTitle].
func (m *Manager) CreateNewList(ctx context.Context, title string) (List, error) {
	var created List

	err := m.mutate(ctx, func(st *state, now time.Time) (bool, error) {
		if prev := st.active(); prev != nil {
			m.log.Debug("superseding active list", "list", prev.ID)
		}

		created = *st.start(m.newList(title, now))

		return true, nil
	})
	if err != nil {
		return List{}, fmt.Errorf("create list: %w", err)
	}

	m.log.Debug("list created", "list", created.ID, "owner", m.owner)

	return created, nil
}

// AddResult reports the outcome of an append.
type AddResult struct {
	// List is the list after the append.
	List List
	// Added are the new items in insertion order.
	Added []Item
	// Skipped are names that were already on the list.
	Skipped []string
	// Created is true when the append started a new active list.
	Created bool
}

// AddItems adds names to the active list, starting one if none is active.
func (m *Manager) AddItems(ctx context.Context, names ...string) (AddResult, error) {
	return m.AddEntries(ctx, EntriesFromNames(names))
}

// AddEntries adds entries to the active list, starting one if none is active.
// Names already on the list, or repeated within entries, are skipped. Adding
// nothing is a no-op that does not touch storage.
func (m *Manager) AddEntries(ctx context.Context, entries []Entry) (AddResult, error) {
	entries = cleanEntries(entries)
	if len(entries) == 0 {
		return AddResult{}, nil
	}

	var res AddResult

	err := m.mutate(ctx, func(st *state, now time.Time) (bool, error) {
		res = AddResult{}

		target := st.active()
		if target == nil {
			target = st.start(m.newList("", now))
			res.Created = true
		}

		res.Added, res.Skipped = appendEntries(target, entries, now, m.newID)
		res.List = *target

		return res.Created || len(res.Added) > 0, nil
	})
	if err != nil {
		return AddResult{}, fmt.Errorf("add items: %w", err)
	}

	m.log.Debug("items added", "list", res.List.ID, "added", len(res.Added), "skipped", len(res.Skipped), "created", res.Created)

	return res, nil
}

// AddEntriesToList adds entries to a specific list, as when merging recipe
// ingredients into an older list. Archived lists are read-only.
func (m *Manager) AddEntriesToList(ctx context.Context, listID string, entries []Entry) (AddResult, error) {
	if listID == "" {
		return AddResult{}, fmt.Errorf("add items: %w", ErrIDRequired)
	}

	entries = cleanEntries(entries)

	var res AddResult

	err := m.mutate(ctx, func(st *state, now time.Time) (bool, error) {
		res = AddResult{}

		i := st.index(listID)
		if i < 0 {
			return false, fmt.Errorf("%w: %s", ErrListNotFound, listID)
		}

		target := &st.lists[i]
		if target.Status == StatusArchived {
			return false, fmt.Errorf("%w: %s", ErrListArchived, listID)
		}

		res.Added, res.Skipped = appendEntries(target, entries, now, m.newID)
		res.List = *target

		return len(res.Added) > 0, nil
	})
	if err != nil {
		return AddResult{}, fmt.Errorf("add items: %w", err)
	}

	return res, nil
}

// AddItem adds one manually entered item to the active list, starting one if
// none is active. Unlike [Manager.AddEntries] a name already on the list is
// an error.
func (m *Manager) AddItem(ctx context.Context, name string) (Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Item{}, fmt.Errorf("add item: %w", ErrEmptyName)
	}

	var added Item

	err := m.mutate(ctx, func(st *state, now time.Time) (bool, error) {
		target := st.active()
		if target != nil && hasName(target, name) {
			return false, fmt.Errorf("%w: %s", ErrDuplicateItem, name)
		}

		if target == nil {
			target = st.start(m.newList("", now))
		}

		items, _ := appendEntries(target, []Entry{{Name: name}}, now, m.newID)
		added = items[0]

		return true, nil
	})
	if err != nil {
		return Item{}, fmt.Errorf("add item: %w", err)
	}

	return added, nil
}

// editActiveItem runs fn on the active list's item with itemID.
func (m *Manager) editActiveItem(ctx context.Context, itemID string, fn func(l *List, i int, now time.Time) error) error {
	if itemID == "" {
		return ErrIDRequired
	}

	return m.mutate(ctx, func(st *state, now time.Time) (bool, error) {
		active := st.active()
		if active == nil {
			return false, ErrNoActiveList
		}

		i := itemIndex(active, itemID)
		if i < 0 {
			return false, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
		}

		err := fn(active, i, now)
		if err != nil {
			return false, err
		}

		active.UpdatedAt = now

		return true, nil
	})
}

// ToggleItem flips the completion flag of an item on the active list.
func (m *Manager) ToggleItem(ctx context.Context, itemID string) (Item, error) {
	var toggled Item

	err := m.editActiveItem(ctx, itemID, func(l *List, i int, _ time.Time) error {
		l.Items[i].IsCompleted = !l.Items[i].IsCompleted
		toggled = l.Items[i]

		return nil
	})
	if err != nil {
		return Item{}, fmt.Errorf("toggle item: %w", err)
	}

	return toggled, nil
}

// RenameItem changes the name of an item on the active list.
func (m *Manager) RenameItem(ctx context.Context, itemID, name string) (Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Item{}, fmt.Errorf("rename item: %w", ErrEmptyName)
	}

	var renamed Item

	err := m.editActiveItem(ctx, itemID, func(l *List, i int, _ time.Time) error {
		if l.Items[i].Name != name && hasName(l, name) {
			return fmt.Errorf("%w: %s", ErrDuplicateItem, name)
		}

		l.Items[i].Name = name
		renamed = l.Items[i]

		return nil
	})
	if err != nil {
		return Item{}, fmt.Errorf("rename item: %w", err)
	}

	return renamed, nil
}

// RemoveItem deletes an item from the active list.
func (m *Manager) RemoveItem(ctx context.Context, itemID string) (Item, error) {
	var removed Item

	err := m.editActiveItem(ctx, itemID, func(l *List, i int, _ time.Time) error {
		removed = l.Items[i]
		l.Items = append(l.Items[:i], l.Items[i+1:]...)

		return nil
	})
	if err != nil {
		return Item{}, fmt.Errorf("remove item: %w", err)
	}

	return removed, nil
}

// CompleteList marks the active list completed. Afterwards there is no
// current list until items are added or a new list is created.
func (m *Manager) CompleteList(ctx context.Context) (List, error) {
	var completed List

	err := m.mutate(ctx, func(st *state, now time.Time) (bool, error) {
		active := st.active()
		if active == nil {
			return false, ErrNoActiveList
		}

		at := now
		active.Status = StatusCompleted
		active.CompletedAt = &at
		active.UpdatedAt = now
		completed = *active
		st.current = ""

		return true, nil
	})
	if err != nil {
		return List{}, fmt.Errorf("complete list: %w", err)
	}

	m.log.Debug("list completed", "list", completed.ID)

	return completed, nil
}

// ArchiveList archives an active or completed list. Archiving the active
// list leaves no current list.
func (m *Manager) ArchiveList(ctx context.Context, listID string) (List, error) {
	if listID == "" {
		return List{}, fmt.Errorf("archive list: %w", ErrIDRequired)
	}

	var archived List

	err := m.mutate(ctx, func(st *state, now time.Time) (bool, error) {
		i := st.index(listID)
		if i < 0 {
			return false, fmt.Errorf("%w: %s", ErrListNotFound, listID)
		}

		l := &st.lists[i]
		if l.Status == StatusArchived {
			return false, fmt.Errorf("%w: %s", ErrListArchived, listID)
		}

		l.Status = StatusArchived
		l.UpdatedAt = now
		archived = *l

		if st.current == listID {
			st.current = ""
		}

		return true, nil
	})
	if err != nil {
		return List{}, fmt.Errorf("archive list: %w", err)
	}

	m.log.Debug("list archived", "list", listID)

	return archived, nil
}

// DeleteList removes a list permanently.
func (m *Manager) DeleteList(ctx context.Context, listID string) (List, error) {
	if listID == "" {
		return List{}, fmt.Errorf("delete list: %w", ErrIDRequired)
	}

	var deleted List

	err := m.mutate(ctx, func(st *state, _ time.Time) (bool, error) {
		removed, ok := st.remove(listID)
		if !ok {
			return false, fmt.Errorf("%w: %s", ErrListNotFound, listID)
		}

		deleted = removed

		return true, nil
	})
	if err != nil {
		return List{}, fmt.Errorf("delete list: %w", err)
	}

	m.log.Debug("list deleted", "list", listID)

	return deleted, nil
}

// RenameList sets a list's title. Titles are trimmed and must not be empty.
func (m *Manager) RenameList(ctx context.Context, listID, title string) (List, error) {
	if listID == "" {
		return List{}, fmt.Errorf("rename list: %w", ErrIDRequired)
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return List{}, fmt.Errorf("rename list: %w", ErrEmptyTitle)
	}

	var renamed List

	err := m.mutate(ctx, func(st *state, now time.Time) (bool, error) {
		i := st.index(listID)
		if i < 0 {
			return false, fmt.Errorf("%w: %s", ErrListNotFound, listID)
		}

		st.lists[i].Title = title
		st.lists[i].UpdatedAt = now
		renamed = st.lists[i]

		return true, nil
	})
	if err != nil {
		return List{}, fmt.Errorf("rename list: %w", err)
	}

	return renamed, nil
}

// Lists returns all lists, newest first.
func (m *Manager) Lists(ctx context.Context) ([]List, error) {
	st, err := m.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load lists: %w", err)
	}

	return st.lists, nil
}

// Current returns the active list. ok is false when there is none.
func (m *Manager) Current(ctx context.Context) (List, bool, error) {
	st, err := m.load(ctx)
	if err != nil {
		return List{}, false, fmt.Errorf("load lists: %w", err)
	}

	active := st.active()
	if active == nil {
		return List{}, false, nil
	}

	return *active, true, nil
}

// Get returns the list with listID.
func (m *Manager) Get(ctx context.Context, listID string) (List, error) {
	st, err := m.load(ctx)
	if err != nil {
		return List{}, fmt.Errorf("load lists: %w", err)
	}

	i := st.index(listID)
	if i < 0 {
		return List{}, fmt.Errorf("%w: %s", ErrListNotFound, listID)
	}

	return st.lists[i], nil
}

// ListsOn returns lists created on the same calendar day as date, in the
// manager's time zone.
func (m *Manager) ListsOn(ctx context.Context, date time.Time) ([]List, error) {
	lists, err := m.Lists(ctx)
	if err != nil {
		return nil, err
	}

	y, mo, d := date.In(m.loc).Date()

	var out []List

	for _, l := range lists {
		ly, lmo, ld := l.CreatedAt.In(m.loc).Date()
		if ly == y && lmo == mo && ld == d {
			out = append(out, l)
		}
	}

	return out, nil
}

// ListsBetween returns lists created within [start, end], inclusive.
func (m *Manager) ListsBetween(ctx context.Context, start, end time.Time) ([]List, error) {
	lists, err := m.Lists(ctx)
	if err != nil {
		return nil, err
	}

	var out []List

	for _, l := range lists {
		if !l.CreatedAt.Before(start) && !l.CreatedAt.After(end) {
			out = append(out, l)
		}
	}

	return out, nil
}

// Stats summarizes all lists.
func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	lists, err := m.Lists(ctx)
	if err != nil {
		return Stats{}, err
	}

	s := Stats{TotalLists: len(lists)}

	for _, l := range lists {
		s.TotalItems += len(l.Items)

		if l.Status == StatusCompleted {
			s.CompletedLists++
		}
	}

	return s, nil
}
