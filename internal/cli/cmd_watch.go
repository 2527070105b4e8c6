package cli

import (
	"context"
	"errors"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/grocer/internal/grocery"
	"github.com/calvinalkan/grocer/internal/store"
)

var errWatchBackend = errors.New("watch needs the file backend")

// WatchCmd returns the watch command.
func WatchCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("watch", flag.ContinueOnError),
		Usage: "watch",
		Short: "Reprint the active list whenever it changes",
		Long: `Print the active list, then print it again each time another process
changes it, until interrupted. Only the file backend supports watching.`,
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			return execWatch(ctx, o, a)
		},
	}
}

func execWatch(ctx context.Context, o *IO, a *app) error {
	lists, err := a.manager(ctx)
	if err != nil {
		return err
	}

	fileStore, ok := a.kv.(*store.File)
	if !ok {
		return fmt.Errorf("%w (backend is %s)", errWatchBackend, a.cfg.Backend)
	}

	show := func() error {
		current, ok, err := lists.Current(ctx)
		if err != nil {
			return err
		}

		if !ok {
			o.Println("No active list.")

			return nil
		}

		o.printList(a.classifier, &current, a.now(), a.cfg.Location)

		return nil
	}

	err = show()
	if err != nil {
		return err
	}

	return fileStore.Watch(ctx, lists.Key(), func(record []byte) {
		all, err := grocery.Decode(record)
		if err != nil {
			a.log.Warn("unreadable update", "error", err)

			return
		}

		o.Println()

		for i := range all {
			if all[i].Status == grocery.StatusActive {
				o.printList(a.classifier, &all[i], a.now(), a.cfg.Location)

				return
			}
		}

		o.Println("No active list.")
	})
}
