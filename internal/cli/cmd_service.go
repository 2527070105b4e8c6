package cli

import (
	"context"
	"errors"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/grocer/internal/intake"
	"github.com/calvinalkan/grocer/internal/remote"
)

var errRecipeRequired = errors.New("recipe is required")

// HealthCmd returns the health command.
func HealthCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("health", flag.ContinueOnError),
		Usage: "health",
		Short: "Check the organizing service",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			svc := a.service()
			if svc == nil {
				return remote.ErrNotConfigured
			}

			err := svc.Health(ctx)
			if err != nil {
				o.Printf("offline %s\n", svc.BaseURL())
				o.Warn(err.Error(), "transcripts will be added without sections")

				return nil
			}

			o.Printf("ok %s\n", svc.BaseURL())

			return nil
		},
	}
}

// RecipeCmd returns the recipe command.
func RecipeCmd(a *app) *Command {
	fs := flag.NewFlagSet("recipe", flag.ContinueOnError)
	fs.StringP("list", "l", "", "Add to the list with `id` instead of the active list")

	return &Command{
		Flags: fs,
		Usage: "recipe <description> [flags]",
		Short: "Add the ingredients of a recipe",
		Long: `Ask the organizing service which groceries a recipe needs and add them,
with their sections, to the active list or the list given by --list.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			listID, _ := fs.GetString("list")

			return execRecipe(ctx, o, a, strings.Join(args, " "), listID)
		},
	}
}

func execRecipe(ctx context.Context, o *IO, a *app, recipe, listID string) error {
	if strings.TrimSpace(recipe) == "" {
		return errRecipeRequired
	}

	if a.service() == nil {
		return intake.ErrNoRecipeSource
	}

	p, err := a.transcripts(ctx)
	if err != nil {
		return err
	}

	out, err := p.ProcessRecipe(ctx, recipe, listID)
	if err != nil {
		return err
	}

	if len(out.Ingredients) == 0 {
		o.Notice("no ingredients suggested")

		return nil
	}

	o.Println("Ingredients:")

	for _, in := range out.Ingredients {
		if in.Quantity != "" {
			o.Printf("  %s (%s)\n", in.Item, in.Quantity)
		} else {
			o.Printf("  %s\n", in.Item)
		}
	}

	reportResult(o, &out.Result)

	return nil
}
