package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/grocer/internal/grocery"
	"github.com/calvinalkan/grocer/internal/history"
)

const dateLayout = "2006-01-02"

var (
	errConflictingDates = errors.New("--on cannot be combined with --from/--to")
	errInvalidDate      = errors.New("invalid date (want YYYY-MM-DD)")
	errInvertedRange    = errors.New("--from must not be after --to")
)

// HistoryCmd returns the history command.
func HistoryCmd(a *app) *Command {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.StringP("filter", "f", "all", "Filter: all|today|yesterday|week|month|active|completed|archived")
	fs.StringP("search", "s", "", "Only lists whose title or items contain `text`")
	fs.String("on", "", "Only lists created on `date` (YYYY-MM-DD)")
	fs.String("from", "", "Only lists created on or after `date`")
	fs.String("to", "", "Only lists created on or before `date`")

	return &Command{
		Flags: fs,
		Usage: "history [flags]",
		Short: "List past and current lists",
		Long:  "List grocery lists, newest first. Filters and search combine.",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			return execHistory(ctx, o, a, fs)
		},
	}
}

func execHistory(ctx context.Context, o *IO, a *app, fs *flag.FlagSet) error {
	filterName, _ := fs.GetString("filter")

	criterion, err := history.ParseCriterion(filterName)
	if err != nil {
		return err
	}

	query, _ := fs.GetString("search")
	on, _ := fs.GetString("on")
	from, _ := fs.GetString("from")
	to, _ := fs.GetString("to")

	if on != "" && (from != "" || to != "") {
		return errConflictingDates
	}

	lists, err := a.manager(ctx)
	if err != nil {
		return err
	}

	loc := a.cfg.Location

	var candidates []grocery.List

	switch {
	case on != "":
		day, err := parseDate(on, loc)
		if err != nil {
			return err
		}

		candidates, err = lists.ListsOn(ctx, day)
		if err != nil {
			return err
		}
	case from != "" || to != "":
		start, end, err := parseRange(from, to, loc)
		if err != nil {
			return err
		}

		candidates, err = lists.ListsBetween(ctx, start, end)
		if err != nil {
			return err
		}
	default:
		candidates, err = lists.Lists(ctx)
		if err != nil {
			return err
		}
	}

	now := a.now()
	matched := history.Apply(candidates, history.Filter{Criterion: criterion, Query: query}, now, loc)

	if len(matched) == 0 {
		o.Println("No lists found.")

		return nil
	}

	for i := range matched {
		o.printListLine(&matched[i], now, loc)
	}

	return nil
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", errInvalidDate, s)
	}

	return t, nil
}

// parseRange returns the inclusive bounds covering the from and to days.
// An empty bound is open.
func parseRange(from, to string, loc *time.Location) (time.Time, time.Time, error) {
	start := time.Time{}
	end := time.Date(9999, time.December, 31, 0, 0, 0, 0, loc)

	if from != "" {
		t, err := parseDate(from, loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}

		start = t
	}

	if to != "" {
		t, err := parseDate(to, loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}

		end = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}

	if start.After(end) {
		return time.Time{}, time.Time{}, errInvertedRange
	}

	return start, end, nil
}

// StatsCmd returns the stats command.
func StatsCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("stats", flag.ContinueOnError),
		Usage: "stats",
		Short: "Show history totals",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			lists, err := a.manager(ctx)
			if err != nil {
				return err
			}

			s, err := lists.Stats(ctx)
			if err != nil {
				return err
			}

			o.Printf("lists=%d\n", s.TotalLists)
			o.Printf("items=%d\n", s.TotalItems)
			o.Printf("completed=%d\n", s.CompletedLists)

			return nil
		},
	}
}
