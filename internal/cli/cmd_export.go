package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/grocer/internal/grocery"
	"github.com/calvinalkan/grocer/internal/section"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// ExportCmd returns the export command.
func ExportCmd(a *app) *Command {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.StringP("format", "f", formatText, "Output format: text|json|yaml")

	return &Command{
		Flags: fs,
		Usage: "export [list-id] [flags]",
		Short: "Export lists for sharing or other apps",
		Long: `Export one list, or every list when no ID is given. The text format is a
plain checklist grouped by store section; json and yaml include all fields.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			format, _ := fs.GetString("format")

			return execExport(ctx, o, a, format, args)
		},
	}
}

func execExport(ctx context.Context, o *IO, a *app, format string, args []string) error {
	switch format {
	case formatText, formatJSON, formatYAML:
	default:
		return fmt.Errorf("invalid format: %s (want text, json or yaml)", format)
	}

	lists, err := a.manager(ctx)
	if err != nil {
		return err
	}

	var selected []grocery.List

	if len(args) > 0 {
		l, err := lists.Get(ctx, args[0])
		if err != nil {
			return err
		}

		selected = []grocery.List{l}
	} else {
		selected, err = lists.Lists(ctx)
		if err != nil {
			return err
		}
	}

	switch format {
	case formatJSON:
		if selected == nil {
			selected = []grocery.List{}
		}

		data, err := json.MarshalIndent(selected, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}

		o.Println(string(data))
	case formatYAML:
		docs := make([]exportList, len(selected))
		for i := range selected {
			docs[i] = toExport(a.classifier, &selected[i])
		}

		data, err := yaml.Marshal(docs)
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}

		o.Printf("%s", data)
	default:
		for i := range selected {
			if i > 0 {
				o.Println()
			}

			o.Printf("%s", a.checklist(&selected[i]))
		}
	}

	return nil
}

// checklist renders a list as uncolored, shareable text.
func (a *app) checklist(l *grocery.List) string {
	var b strings.Builder

	b.WriteString(l.Title)
	b.WriteString("\n")

	for _, g := range groupItems(a.classifier, l.Items) {
		b.WriteString("\n")
		b.WriteString(g.section)
		b.WriteString("\n")

		for _, it := range g.items {
			b.WriteString("- ")
			b.WriteString(checkbox(it.IsCompleted))
			b.WriteString(" ")
			b.WriteString(it.Name)
			b.WriteString("\n")
		}
	}

	return b.String()
}

type exportItem struct {
	ID      string    `yaml:"id"`
	Name    string    `yaml:"name"`
	Section string    `yaml:"section"`
	Done    bool      `yaml:"done"`
	AddedAt time.Time `yaml:"added_at"`
}

type exportList struct {
	ID          string       `yaml:"id"`
	Title       string       `yaml:"title"`
	Owner       string       `yaml:"owner"`
	Status      string       `yaml:"status"`
	CreatedAt   time.Time    `yaml:"created_at"`
	UpdatedAt   time.Time    `yaml:"updated_at"`
	CompletedAt *time.Time   `yaml:"completed_at,omitempty"`
	Items       []exportItem `yaml:"items"`
}

// toExport flattens a list for yaml. Items without a stored category get
// the classifier's section.
func toExport(c *section.Classifier, l *grocery.List) exportList {
	items := make([]exportItem, len(l.Items))
	for i, it := range l.Items {
		s := it.Category
		if s == "" {
			s = c.Classify(it.Name)
		}

		items[i] = exportItem{
			ID:      it.ID,
			Name:    it.Name,
			Section: s,
			Done:    it.IsCompleted,
			AddedAt: it.AddedAt,
		}
	}

	return exportList{
		ID:          l.ID,
		Title:       l.Title,
		Owner:       l.OwnerID,
		Status:      string(l.Status),
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
		CompletedAt: l.CompletedAt,
		Items:       items,
	}
}
