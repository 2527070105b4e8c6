package cli

import (
	"context"
	"errors"
	"strings"

	flag "github.com/spf13/pflag"
)

var (
	errListIDRequired = errors.New("list ID is required")
	errTitleRequired  = errors.New("title is required")
)

// ShowCmd returns the show command.
func ShowCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("show", flag.ContinueOnError),
		Usage: "show [list-id]",
		Short: "Show a list grouped by store section",
		Long:  "Show the active list, or the list with the given ID, with items grouped by store section.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			lists, err := a.manager(ctx)
			if err != nil {
				return err
			}

			if len(args) > 0 {
				l, err := lists.Get(ctx, args[0])
				if err != nil {
					return err
				}

				o.printList(a.classifier, &l, a.now(), a.cfg.Location)

				return nil
			}

			current, ok, err := lists.Current(ctx)
			if err != nil {
				return err
			}

			if !ok {
				o.Println("No active list. Add items with 'grocer say' or 'grocer add'.")

				return nil
			}

			o.printList(a.classifier, &current, a.now(), a.cfg.Location)

			return nil
		},
	}
}

// NewCmd returns the new command.
func NewCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("new", flag.ContinueOnError),
		Usage: "new [title]",
		Short: "Start a new list",
		Long: `Start a new, empty active list. The previous active list, if any, is marked
completed. Without a title the list is named after today's date.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			lists, err := a.manager(ctx)
			if err != nil {
				return err
			}

			l, err := lists.CreateNewList(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}

			o.Printf("Started %s (%s)\n", l.Title, l.ID)

			return nil
		},
	}
}

// CompleteCmd returns the complete command.
func CompleteCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("complete", flag.ContinueOnError),
		Usage: "complete",
		Short: "Mark the active list completed",
		Long:  "Mark the active list completed. There is no active list afterwards.",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			lists, err := a.manager(ctx)
			if err != nil {
				return err
			}

			l, err := lists.CompleteList(ctx)
			if err != nil {
				return err
			}

			o.Printf("Completed %s (%d of %s done)\n", l.Title, l.CompletedCount(), itemCount(len(l.Items)))

			return nil
		},
	}
}

// ArchiveCmd returns the archive command.
func ArchiveCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("archive", flag.ContinueOnError),
		Usage: "archive <list-id>",
		Short: "Archive a list",
		Long:  "Archive an active or completed list. Archived lists stay in history but cannot be changed.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return errListIDRequired
			}

			lists, err := a.manager(ctx)
			if err != nil {
				return err
			}

			l, err := lists.ArchiveList(ctx, args[0])
			if err != nil {
				return err
			}

			o.Printf("Archived %s\n", l.Title)

			return nil
		},
	}
}

// DeleteCmd returns the delete command.
func DeleteCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("delete", flag.ContinueOnError),
		Usage: "delete <list-id>",
		Short: "Delete a list permanently",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return errListIDRequired
			}

			lists, err := a.manager(ctx)
			if err != nil {
				return err
			}

			l, err := lists.DeleteList(ctx, args[0])
			if err != nil {
				return err
			}

			o.Printf("Deleted %s\n", l.Title)

			return nil
		},
	}
}

// RenameCmd returns the rename command.
func RenameCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("rename", flag.ContinueOnError),
		Usage: "rename <list-id> <title>",
		Short: "Rename a list",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return errListIDRequired
			}

			if len(args) < 2 {
				return errTitleRequired
			}

			lists, err := a.manager(ctx)
			if err != nil {
				return err
			}

			l, err := lists.RenameList(ctx, args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}

			o.Printf("Renamed to %s\n", l.Title)

			return nil
		},
	}
}
