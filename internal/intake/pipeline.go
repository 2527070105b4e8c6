// Package intake turns transcripts into list items.
//
// A transcript is parsed locally, then handed to the organizing service when
// one is reachable. If the service is missing, unhealthy, slow or returns
// garbage, the parsed names are added as they are. Either way the items land
// through a single [grocery.Manager] append.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/calvinalkan/grocer/internal/grocery"
	"github.com/calvinalkan/grocer/internal/parse"
	"github.com/calvinalkan/grocer/internal/remote"
)

// DefaultTimeout bounds the health probe and organize call together.
const DefaultTimeout = 8 * time.Second

// ErrNoRecipeSource is returned by [Pipeline.ProcessRecipe] when no
// service is configured.
var ErrNoRecipeSource = errors.New("recipe suggestions need an organizing service")

// Categorizer groups item names into store sections.
type Categorizer interface {
	Health(ctx context.Context) error
	Organize(ctx context.Context, items []string) ([]grocery.Entry, error)
}

// RecipeSource suggests ingredients for a recipe.
type RecipeSource interface {
	Recipe(ctx context.Context, recipe string) ([]remote.Ingredient, error)
}

// Mode tells how a transcript's items were categorized.
type Mode string

// Modes.
const (
	// ModeCategorized means the organizing service sorted the items.
	ModeCategorized Mode = "categorized"
	// ModeFallback means the service failed and items were added as parsed.
	ModeFallback Mode = "fallback"
	// ModeOffline means no service is configured.
	ModeOffline Mode = "offline"
)

// Outcome describes one processed transcript.
type Outcome struct {
	Transcript string
	// Parsed are the item names found in the transcript.
	Parsed []string
	Mode   Mode
	// Notice is a user-facing note about degraded processing. It is not an
	// error.
	Notice string
	Result grocery.AddResult
}

// Empty reports whether the transcript yielded no items.
func (o *Outcome) Empty() bool {
	return len(o.Parsed) == 0
}

// Pipeline processes transcripts for one owner.
type Pipeline struct {
	parser      *parse.Parser
	lists       *grocery.Manager
	categorizer Categorizer
	timeout     time.Duration
	log         *slog.Logger
	metrics     *Metrics
}

// Option configures a [Pipeline].
type Option func(*Pipeline)

// WithCategorizer sets the organizing service. If it also implements
// [RecipeSource], recipes are enabled.
func WithCategorizer(c Categorizer) Option {
	return func(p *Pipeline) { p.categorizer = c }
}

// WithTimeout bounds the remote calls for one transcript.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(p *Pipeline) {
		if log != nil {
			p.log = log
		}
	}
}

// WithMetrics sets the counters to update.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) {
		if m != nil {
			p.metrics = m
		}
	}
}

// New returns a pipeline that parses with parser and appends through lists.
func New(parser *parse.Parser, lists *grocery.Manager, opts ...Option) *Pipeline {
	p := &Pipeline{
		parser:  parser,
		lists:   lists,
		timeout: DefaultTimeout,
		log:     slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.metrics == nil {
		p.metrics = NewMetrics(nil)
	}

	return p
}

// Metrics returns the pipeline's counters.
func (p *Pipeline) Metrics() *Metrics {
	return p.metrics
}

// Process parses transcript and adds the items to the active list.
//
// A transcript with no items is not an error; check [Outcome.Empty]. Once
// the transcript is parsed, the append runs to completion even if ctx is
// canceled while the service is consulted.
func (p *Pipeline) Process(ctx context.Context, transcript string) (Outcome, error) {
	out := Outcome{Transcript: transcript}

	p.metrics.Transcripts.Inc()

	out.Parsed = p.parser.Parse(transcript)
	if len(out.Parsed) == 0 {
		p.metrics.EmptyTranscripts.Inc()
		p.log.Debug("transcript yielded no items", "transcript", transcript)

		return out, nil
	}

	var entries []grocery.Entry

	entries, out.Mode, out.Notice = p.categorize(ctx, out.Parsed)

	res, err := p.lists.AddEntries(context.WithoutCancel(ctx), entries)
	if err != nil {
		return out, err
	}

	out.Result = res

	p.metrics.Outcomes.WithLabelValues(string(out.Mode)).Inc()
	p.metrics.ItemsAdded.Add(float64(len(res.Added)))
	p.metrics.ItemsSkipped.Add(float64(len(res.Skipped)))

	p.log.Info("transcript processed",
		"mode", out.Mode,
		"parsed", len(out.Parsed),
		"added", len(res.Added),
		"skipped", len(res.Skipped),
		"list", res.List.ID,
	)

	return out, nil
}

// categorize consults the service and falls back to the parsed names.
func (p *Pipeline) categorize(ctx context.Context, names []string) ([]grocery.Entry, Mode, string) {
	if p.categorizer == nil {
		return grocery.EntriesFromNames(names), ModeOffline, ""
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	fallback := func(reason string, err error) ([]grocery.Entry, Mode, string) {
		p.log.Info("organizing service fallback", "reason", reason, "error", err)

		return grocery.EntriesFromNames(names), ModeFallback,
			fmt.Sprintf("organizing service %s; added %d items without sections", reason, len(names))
	}

	err := p.categorizer.Health(ctx)
	if err != nil {
		return fallback("offline", err)
	}

	entries, err := p.categorizer.Organize(ctx, names)
	if err != nil {
		return fallback("failed", err)
	}

	if len(entries) == 0 {
		return fallback("returned no items", nil)
	}

	return entries, ModeCategorized, ""
}

// RecipeOutcome describes one merged recipe.
type RecipeOutcome struct {
	Ingredients []remote.Ingredient
	Result      grocery.AddResult
}

// ProcessRecipe asks the service for a recipe's ingredients and adds them to
// the list with listID, or to the active list when listID is empty. There is
// no local fallback.
func (p *Pipeline) ProcessRecipe(ctx context.Context, recipe, listID string) (RecipeOutcome, error) {
	src, ok := p.categorizer.(RecipeSource)
	if !ok {
		return RecipeOutcome{}, ErrNoRecipeSource
	}

	rctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	ingredients, err := src.Recipe(rctx, recipe)
	if err != nil {
		return RecipeOutcome{}, fmt.Errorf("recipe: %w", err)
	}

	entries := make([]grocery.Entry, 0, len(ingredients))
	for _, in := range ingredients {
		entries = append(entries, in.Entry())
	}

	var res grocery.AddResult

	if listID != "" {
		res, err = p.lists.AddEntriesToList(ctx, listID, entries)
	} else {
		res, err = p.lists.AddEntries(ctx, entries)
	}

	if err != nil {
		return RecipeOutcome{Ingredients: ingredients}, err
	}

	p.metrics.ItemsAdded.Add(float64(len(res.Added)))
	p.metrics.ItemsSkipped.Add(float64(len(res.Skipped)))

	return RecipeOutcome{Ingredients: ingredients, Result: res}, nil
}
