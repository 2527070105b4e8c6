package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"
	"github.com/prometheus/client_golang/prometheus"
	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/grocer/internal/grocery"
	"github.com/calvinalkan/grocer/internal/intake"
)

var errTranscriptRequired = errors.New("transcript is required")

// SayCmd returns the say command.
func SayCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("say", flag.ContinueOnError),
		Usage: "say <transcript>",
		Short: "Add items from a spoken transcript",
		Long: `Parse a transcript such as "milk, eggs and bread" into items and add them
to the active list, starting one if needed. With "-" the transcript is read
from stdin. When an organizing service is configured it sorts the items into
store sections; if it is unreachable the items are added as parsed.`,
		Exec: func(ctx context.Context, o *IO, args []string) error {
			return execSay(ctx, o, a, args)
		},
	}
}

func execSay(ctx context.Context, o *IO, a *app, args []string) error {
	transcript := strings.Join(args, " ")

	if transcript == "-" {
		data, err := io.ReadAll(o.in)
		if err != nil {
			return fmt.Errorf("read transcript: %w", err)
		}

		transcript = string(data)
	}

	if strings.TrimSpace(transcript) == "" {
		return errTranscriptRequired
	}

	p, err := a.transcripts(ctx)
	if err != nil {
		return err
	}

	out, err := p.Process(ctx, transcript)
	if err != nil {
		return err
	}

	reportOutcome(o, &out)

	return nil
}

func reportOutcome(o *IO, out *intake.Outcome) {
	if out.Empty() {
		o.Notice("no items detected")

		return
	}

	if out.Notice != "" {
		o.Notice(out.Notice)
	}

	reportResult(o, &out.Result)
}

func reportResult(o *IO, res *grocery.AddResult) {
	if res.Created {
		o.Printf("Started %s (%s)\n", res.List.Title, res.List.ID)
	}

	if len(res.Added) > 0 {
		names := make([]string, len(res.Added))
		for i, it := range res.Added {
			names[i] = it.Name
		}

		o.Printf("Added %s: %s\n", itemCount(len(res.Added)), strings.Join(names, ", "))
	}

	if len(res.Skipped) > 0 {
		o.Printf("Already on list: %s\n", strings.Join(res.Skipped, ", "))
	}
}

// ListenCmd returns the listen command.
func ListenCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("listen", flag.ContinueOnError),
		Usage: "listen",
		Short: "Add items from transcripts, one per line",
		Long: `Read transcripts line by line and add each one's items as it is finished.
On a terminal, Ctrl-C discards the line being typed; Ctrl-D or "done" ends the
session. A summary is printed at the end.`,
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			return execListen(ctx, o, a)
		},
	}
}

const listenPrompt = "say> "

func execListen(ctx context.Context, o *IO, a *app) error {
	p, err := a.transcripts(ctx)
	if err != nil {
		return err
	}

	var next func() (string, error)

	if f, ok := o.in.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		line := liner.NewLiner()
		defer line.Close()

		line.SetCtrlCAborts(true)

		next = func() (string, error) {
			for {
				text, err := line.Prompt(listenPrompt)
				if errors.Is(err, liner.ErrPromptAborted) {
					continue
				}

				if err == nil && strings.TrimSpace(text) != "" {
					line.AppendHistory(text)
				}

				return text, err
			}
		}
	} else {
		if o.in == nil {
			return errTranscriptRequired
		}

		scanner := bufio.NewScanner(o.in)
		next = func() (string, error) {
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return "", err
				}

				return "", io.EOF
			}

			return scanner.Text(), nil
		}
	}

	for ctx.Err() == nil {
		text, err := next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return fmt.Errorf("read transcript: %w", err)
		}

		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		if text == "done" || text == "exit" || text == "quit" {
			break
		}

		out, err := p.Process(ctx, text)
		if err != nil {
			return err
		}

		reportOutcome(o, &out)
	}

	printSessionSummary(o, a.registry)

	return nil
}

// printSessionSummary prints the intake counters gathered during the session.
func printSessionSummary(o *IO, reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		return
	}

	var transcripts, added, fallbacks float64

	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			v := m.GetCounter().GetValue()

			switch mf.GetName() {
			case "grocer_transcripts_total":
				transcripts += v
			case "grocer_items_added_total":
				added += v
			case "grocer_intake_outcomes_total":
				for _, lp := range m.GetLabel() {
					if lp.GetName() == "mode" && lp.GetValue() == string(intake.ModeFallback) {
						fallbacks += v
					}
				}
			}
		}
	}

	o.Printf("Session: %.0f transcripts, %.0f items added, %.0f fallbacks\n", transcripts, added, fallbacks)
}
