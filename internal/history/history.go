// Package history derives filtered, sorted views over grocery lists.
package history

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/calvinalkan/grocer/internal/grocery"
)

// Criterion selects lists by creation date bucket or status.
type Criterion string

// Criteria.
const (
	All       Criterion = "all"
	Today     Criterion = "today"
	Yesterday Criterion = "yesterday"
	ThisWeek  Criterion = "this-week"
	ThisMonth Criterion = "this-month"
	Active    Criterion = "active"
	Completed Criterion = "completed"
	Archived  Criterion = "archived"
)

// Criteria lists every criterion in menu order.
func Criteria() []Criterion {
	return []Criterion{All, Today, Yesterday, ThisWeek, ThisMonth, Active, Completed, Archived}
}

// ErrInvalidCriterion is returned by [ParseCriterion] for unknown names.
var ErrInvalidCriterion = errors.New("invalid filter")

// ParseCriterion parses a criterion name. "week" and "month" are accepted as
// aliases and an empty string means [All].
func ParseCriterion(s string) (Criterion, error) {
	switch c := Criterion(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return All, nil
	case "week":
		return ThisWeek, nil
	case "month":
		return ThisMonth, nil
	default:
		if slices.Contains(Criteria(), c) {
			return c, nil
		}

		return "", fmt.Errorf("%w: %s", ErrInvalidCriterion, s)
	}
}

// Filter is a history view request.
type Filter struct {
	Criterion Criterion
	// Query matches list titles and item names, case-insensitively.
	Query string
}

// Apply returns the lists matching f, newest first. Date buckets are
// evaluated against now in loc. The input slice is not modified.
func Apply(lists []grocery.List, f Filter, now time.Time, loc *time.Location) []grocery.List {
	if loc == nil {
		loc = time.Local
	}

	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]grocery.List, 0, len(lists))

	for _, l := range lists {
		if !matchCriterion(&l, f.Criterion, now, loc) {
			continue
		}

		if query != "" && !matchQuery(&l, query) {
			continue
		}

		out = append(out, l)
	}

	slices.SortStableFunc(out, func(a, b grocery.List) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return out
}

func matchCriterion(l *grocery.List, c Criterion, now time.Time, loc *time.Location) bool {
	created := l.CreatedAt.In(loc)
	today := startOfDay(now.In(loc))

	switch c {
	case All, "":
		return true
	case Today:
		return sameDay(created, today)
	case Yesterday:
		return sameDay(created, today.AddDate(0, 0, -1))
	case ThisWeek:
		weekStart := today.AddDate(0, 0, -int(today.Weekday()))
		return !created.Before(weekStart) && created.Before(weekStart.AddDate(0, 0, 7))
	case ThisMonth:
		return created.Year() == today.Year() && created.Month() == today.Month()
	case Active:
		return l.Status == grocery.StatusActive
	case Completed:
		return l.Status == grocery.StatusCompleted
	case Archived:
		return l.Status == grocery.StatusArchived
	default:
		return false
	}
}

func matchQuery(l *grocery.List, query string) bool {
	if strings.Contains(strings.ToLower(l.Title), query) {
		return true
	}

	for _, it := range l.Items {
		if strings.Contains(strings.ToLower(it.Name), query) {
			return true
		}
	}

	return false
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()

	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()

	return ay == by && am == bm && ad == bd
}

// DateLabel renders a list date for display: "Today", "Yesterday", the
// weekday name within the current week, otherwise "Jan 2, 2006".
func DateLabel(t, now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}

	local := t.In(loc)
	today := startOfDay(now.In(loc))

	switch {
	case sameDay(local, today):
		return "Today"
	case sameDay(local, today.AddDate(0, 0, -1)):
		return "Yesterday"
	case matchCriterion(&grocery.List{CreatedAt: t}, ThisWeek, now, loc):
		return local.Weekday().String()
	default:
		return local.Format("Jan 2, 2006")
	}
}
