package grocery

import "errors"

// Errors returned by [Manager]. All of them leave the stored lists untouched.
var (
	ErrNoActiveList  = errors.New("no active list")
	ErrListNotFound  = errors.New("list not found")
	ErrItemNotFound  = errors.New("item not found in active list")
	ErrDuplicateItem = errors.New("item already on list")
	ErrEmptyTitle    = errors.New("title cannot be empty")
	ErrEmptyName     = errors.New("item name cannot be empty")
	ErrListArchived  = errors.New("list is archived")
	ErrIDRequired    = errors.New("ID is required")
)
