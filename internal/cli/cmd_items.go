package cli

import (
	"context"
	"errors"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/grocer/internal/grocery"
)

var (
	errItemRequired   = errors.New("item name is required")
	errItemIDRequired = errors.New("item ID is required")
)

// AddCmd returns the add command.
func AddCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("add", flag.ContinueOnError),
		Usage: "add <item>...",
		Short: "Add items to the active list by hand",
		Long: `Add each argument as one item to the active list, starting a list if none
is active. Quote multi-word items. Items already on the list are reported and
skipped.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execAdd(ctx, o, a, args)
		},
	}
}

func execAdd(ctx context.Context, o *IO, a *app, args []string) error {
	if len(args) == 0 {
		return errItemRequired
	}

	lists, err := a.manager(ctx)
	if err != nil {
		return err
	}

	for _, name := range args {
		item, err := lists.AddItem(ctx, name)
		if err != nil {
			if errors.Is(err, grocery.ErrDuplicateItem) || errors.Is(err, grocery.ErrEmptyName) {
				o.Warn(err.Error(), "list unchanged")

				continue
			}

			return err
		}

		o.Printf("Added %s (%s)\n", item.Name, item.ID)
	}

	return nil
}

// CheckCmd returns the check command.
func CheckCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("check", flag.ContinueOnError),
		Usage: "check <item-id>",
		Short: "Toggle an item on the active list",
		Long:  "Mark an item on the active list as done, or as not done if it already is.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return errItemIDRequired
			}

			lists, err := a.manager(ctx)
			if err != nil {
				return err
			}

			item, err := lists.ToggleItem(ctx, args[0])
			if err != nil {
				return err
			}

			o.Printf("%s %s\n", checkbox(item.IsCompleted), item.Name)

			return nil
		},
	}
}

// RmCmd returns the rm command.
func RmCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("rm", flag.ContinueOnError),
		Usage: "rm <item-id>",
		Short: "Remove an item from the active list",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return errItemIDRequired
			}

			lists, err := a.manager(ctx)
			if err != nil {
				return err
			}

			item, err := lists.RemoveItem(ctx, args[0])
			if err != nil {
				return err
			}

			o.Printf("Removed %s\n", item.Name)

			return nil
		},
	}
}

// RenameItemCmd returns the rename-item command.
func RenameItemCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("rename-item", flag.ContinueOnError),
		Usage: "rename-item <item-id> <name>",
		Short: "Rename an item on the active list",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) == 0 {
				return errItemIDRequired
			}

			if len(args) < 2 {
				return errItemRequired
			}

			lists, err := a.manager(ctx)
			if err != nil {
				return err
			}

			item, err := lists.RenameItem(ctx, args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}

			o.Printf("Renamed to %s\n", item.Name)

			return nil
		},
	}
}
