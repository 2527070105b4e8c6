// Package section assigns grocery items to store sections by keyword.
//
// Matching is a lower-cased substring search so that plural and compound
// names ("apples", "carrot sticks") match without stemming. Sections are
// checked in priority order and the first hit wins; unmatched names land in
// [Other].
package section

import "strings"

// Other is the sentinel section for names no keyword matches.
const Other = "Other"

// Section names in priority order.
const (
	Produce = "Produce"
	Dairy   = "Dairy"
	Bakery  = "Bakery"
	Meat    = "Meat & Seafood"
	Pantry  = "Pantry"
)

// Section is a store section and the keywords that select it.
type Section struct {
	Name     string
	Keywords []string
}

// DefaultSections returns the built-in section table in priority order.
func DefaultSections() []Section {
	return []Section{
		{Name: Produce, Keywords: []string{
			"apple", "banana", "carrot", "tomato", "lettuce", "spinach",
			"onion", "potato", "garlic", "avocado", "lemon", "cucumber",
			"broccoli", "grape", "orange", "berries", "berry", "mushroom", "celery",
		}},
		{Name: Dairy, Keywords: []string{"milk", "cheese", "yogurt", "butter", "cream"}},
		{Name: Bakery, Keywords: []string{"bread", "bagel", "muffin", "croissant", "roll", "tortilla"}},
		{Name: Meat, Keywords: []string{
			"chicken", "beef", "pork", "fish", "salmon", "egg", "turkey", "bacon", "shrimp", "tuna",
		}},
		{Name: Pantry, Keywords: []string{
			"rice", "pasta", "beans", "oil", "salt", "sugar", "flour", "cereal", "coffee", "sauce",
		}},
	}
}

// Classifier maps item names to section names.
type Classifier struct {
	sections []Section
}

// New returns a classifier over sections, evaluated in the given order.
// Keywords are lower-cased on construction.
func New(sections []Section) *Classifier {
	normalized := make([]Section, len(sections))

	for i, s := range sections {
		keywords := make([]string, 0, len(s.Keywords))
		for _, k := range s.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				keywords = append(keywords, k)
			}
		}

		normalized[i] = Section{Name: s.Name, Keywords: keywords}
	}

	return &Classifier{sections: normalized}
}

// Default returns a classifier over [DefaultSections].
func Default() *Classifier {
	return New(DefaultSections())
}

// Classify returns the section for name. Every input, including the empty
// string, yields exactly one section.
func (c *Classifier) Classify(name string) string {
	lower := strings.ToLower(name)

	for _, s := range c.sections {
		for _, k := range s.Keywords {
			if strings.Contains(lower, k) {
				return s.Name
			}
		}
	}

	return Other
}

// Names returns all section names in display order, ending with [Other].
func (c *Classifier) Names() []string {
	names := make([]string, 0, len(c.sections)+1)
	for _, s := range c.sections {
		names = append(names, s.Name)
	}

	return append(names, Other)
}

// Group is a section and the names assigned to it.
type Group struct {
	Section string
	Names   []string
}

// Group buckets names by section. Only non-empty sections are returned, in
// display order; names keep their input order within a section.
func (c *Classifier) Group(names []string) []Group {
	buckets := make(map[string][]string)
	for _, n := range names {
		s := c.Classify(n)
		buckets[s] = append(buckets[s], n)
	}

	var groups []Group

	for _, s := range c.Names() {
		if len(buckets[s]) > 0 {
			groups = append(groups, Group{Section: s, Names: buckets[s]})
		}
	}

	return groups
}
