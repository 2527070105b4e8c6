package cli

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/calvinalkan/grocer/internal/grocery"
	"github.com/calvinalkan/grocer/internal/history"
	"github.com/calvinalkan/grocer/internal/section"
)

type itemGroup struct {
	section string
	items   []grocery.Item
}

// groupItems buckets items by their stored category, or the classifier's
// section when none was recorded. Known sections come first in classifier
// order, then unknown categories as first seen, then Other.
func groupItems(c *section.Classifier, items []grocery.Item) []itemGroup {
	buckets := make(map[string][]grocery.Item)

	var extra []string

	known := c.Names()

	for _, it := range items {
		s := strings.TrimSpace(it.Category)
		if s == "" {
			s = c.Classify(it.Name)
		}

		if _, seen := buckets[s]; !seen && !slices.Contains(known, s) {
			extra = append(extra, s)
		}

		buckets[s] = append(buckets[s], it)
	}

	order := append(slices.Clone(known[:len(known)-1]), extra...)
	order = append(order, section.Other)

	groups := make([]itemGroup, 0, len(buckets))

	for _, s := range order {
		if len(buckets[s]) > 0 {
			groups = append(groups, itemGroup{section: s, items: buckets[s]})
		}
	}

	return groups
}

func (o *IO) statusBadge(s grocery.Status) string {
	attr := color.FgGreen

	switch s {
	case grocery.StatusCompleted:
		attr = color.FgBlue
	case grocery.StatusArchived:
		attr = color.FgHiBlack
	case grocery.StatusActive:
	}

	return o.style(attr).Sprintf("[%s]", s)
}

// printListHeader prints "<title> [status] <date> (<id>)".
func (o *IO) printListHeader(l *grocery.List, now time.Time, loc *time.Location) {
	o.Printf("%s %s %s (%s)\n",
		o.style(color.Bold).Sprint(l.Title),
		o.statusBadge(l.Status),
		history.DateLabel(l.CreatedAt, now, loc),
		l.ID,
	)
}

// printList prints a list with its items grouped by section.
func (o *IO) printList(c *section.Classifier, l *grocery.List, now time.Time, loc *time.Location) {
	o.printListHeader(l, now, loc)

	if len(l.Items) == 0 {
		o.Println("  (no items)")

		return
	}

	for _, g := range groupItems(c, l.Items) {
		o.Println(" ", o.style(color.FgCyan, color.Bold).Sprint(g.section))

		for _, it := range g.items {
			o.Printf("    %s %s  %s\n", checkbox(it.IsCompleted), it.Name, o.style(color.FgHiBlack).Sprint(it.ID))
		}
	}

	o.Printf("  %s, %d done\n", itemCount(len(l.Items)), l.CompletedCount())
}

// printListLine prints a one-line history entry.
func (o *IO) printListLine(l *grocery.List, now time.Time, loc *time.Location) {
	o.Printf("%s %s %s - %s (%s)\n",
		l.ID,
		o.statusBadge(l.Status),
		history.DateLabel(l.CreatedAt, now, loc),
		l.Title,
		itemCount(len(l.Items)),
	)
}

func checkbox(done bool) string {
	if done {
		return "[x]"
	}

	return "[ ]"
}

func itemCount(n int) string {
	if n == 1 {
		return "1 item"
	}

	return fmt.Sprintf("%d items", n)
}
