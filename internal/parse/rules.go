package parse

import (
	"regexp"
	"strings"
)

// Rules is the filter table the parser works from. It is plain data so that
// each rule can be tested on its own and swapped out without touching the
// segmentation logic.
type Rules struct {
	// Stopwords are filler and function words that are never grocery items.
	// Matching is case-insensitive; keys are stored lower-cased.
	Stopwords map[string]bool

	// Determiners are dropped from single-phrase transcripts before the
	// remaining words are treated as items.
	Determiners map[string]bool

	// Fillers are applied in order to a lower-cased single-phrase transcript.
	// Each match is replaced with the empty string.
	Fillers []*regexp.Regexp

	// MinTokenLen is the minimum length a word needs to survive the
	// single-phrase fallback.
	MinTokenLen int

	// MinItemLen is the minimum length of any item. Shorter fragments are
	// treated like stopwords.
	MinItemLen int
}

var defaultStopwords = []string{
	"and", "or", "the", "a", "an", "i", "need", "want", "buy", "get", "also",
	"plus", "some", "my", "our", "your", "please", "thanks", "thank", "you",
	"add", "purchase", "me", "us", "we", "they", "them", "it", "is", "are",
	"have", "has", "do", "does", "will", "would", "could", "should", "can",
}

var defaultDeterminers = []string{"the", "some", "a", "an", "my", "our", "your"}

var (
	leadingFiller    = regexp.MustCompile(`^(i need|i want|get me|buy|purchase|add)\s+`)
	trailingCourtesy = regexp.MustCompile(`\s+(please|thanks|thank you)$`)
)

const (
	defaultMinTokenLen = 3
	defaultMinItemLen  = 2
)

// DefaultRules returns the built-in English filter table.
func DefaultRules() Rules {
	return Rules{
		Stopwords:   wordSet(defaultStopwords),
		Determiners: wordSet(defaultDeterminers),
		Fillers:     []*regexp.Regexp{leadingFiller, trailingCourtesy},
		MinTokenLen: defaultMinTokenLen,
		MinItemLen:  defaultMinItemLen,
	}
}

// IsStopword reports whether word is a filler word or too short to be an item.
func (r *Rules) IsStopword(word string) bool {
	if len(word) < r.MinItemLen {
		return true
	}

	return r.Stopwords[strings.ToLower(word)]
}

// IsFillerPhrase reports whether every word of phrase is a stopword or
// determiner. A single word phrase is a filler iff it is a stopword.
func (r *Rules) IsFillerPhrase(phrase string) bool {
	words := strings.Fields(phrase)
	if len(words) == 0 {
		return true
	}

	for _, w := range words {
		if !r.IsStopword(w) && !r.Determiners[strings.ToLower(w)] {
			return false
		}
	}

	return true
}

// keepToken reports whether a word from a single-phrase transcript is a
// likely grocery item. The word must already be lower-cased.
func (r *Rules) keepToken(word string) bool {
	return len(word) >= r.MinTokenLen && !r.Stopwords[word] && !r.Determiners[word]
}

// stripFillers removes leading filler and trailing courtesy phrases.
func (r *Rules) stripFillers(text string) string {
	for _, re := range r.Fillers {
		text = re.ReplaceAllString(text, "")
	}

	return strings.TrimSpace(text)
}

func wordSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = true
	}

	return set
}
