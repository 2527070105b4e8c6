// Package parse turns raw speech transcripts into candidate grocery items.
//
// Segmentation happens in two stages. The transcript is first split on list
// delimiters (commas, semicolons and the word "and"). When that yields a
// single fragment the speaker most likely said a short phrase such as
// "I need milk eggs bread please", so the phrase is stripped of fillers and
// split into words instead.
package parse

import (
	"regexp"
	"strings"
)

// delimiters splits on commas, semicolons or the standalone word "and".
var delimiters = regexp.MustCompile(`(?i)[,;]|\band\b`)

// Parser converts transcripts to item names. The zero value is not usable;
// construct with [New] or [Default].
type Parser struct {
	rules Rules
}

// New returns a parser using the given rules.
func New(rules Rules) *Parser {
	return &Parser{rules: rules}
}

// Default returns a parser using [DefaultRules].
func Default() *Parser {
	return New(DefaultRules())
}

// Rules returns the parser's filter table.
func (p *Parser) Rules() Rules {
	return p.rules
}

// Parse returns the item names found in transcript in the order they were
// spoken. Names are trimmed, never empty, never stopwords, and unique within
// the result. An empty result means no items were detected.
func (p *Parser) Parse(transcript string) []string {
	fragments := splitFragments(transcript)
	if len(fragments) == 1 {
		fragments = p.expandPhrase(fragments[0])
	}

	items := make([]string, 0, len(fragments))
	seen := make(map[string]bool, len(fragments))

	for _, f := range fragments {
		if p.rules.IsFillerPhrase(f) {
			continue
		}

		if seen[f] {
			continue
		}

		seen[f] = true
		items = append(items, f)
	}

	return items
}

func splitFragments(transcript string) []string {
	parts := delimiters.Split(transcript, -1)

	fragments := make([]string, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		fragments = append(fragments, part)
	}

	return fragments
}

// expandPhrase applies the single-fragment fallback. It returns the surviving
// words when more than one is left, otherwise the fragment unchanged.
func (p *Parser) expandPhrase(fragment string) []string {
	cleaned := p.rules.stripFillers(strings.ToLower(fragment))

	var words []string

	for _, w := range strings.Fields(cleaned) {
		if p.rules.keepToken(w) {
			words = append(words, w)
		}
	}

	if len(words) > 1 {
		return words
	}

	return []string{fragment}
}
