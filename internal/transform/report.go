package transform

import (
	"fmt"
	"sort"
	"strings"
)

// Class identifies one validation error class in a report.
type Class string

// Report classes, one per validation sentinel.
const (
	ClassMalformedEntry       Class = "malformed_entry"
	ClassMissingContributorID Class = "missing_contributor_id"
	ClassInvalidTimestamp     Class = "invalid_timestamp"
	ClassMissingReward        Class = "missing_reward"
)

// Sentinel returns the sentinel error the class maps to.
func (c Class) Sentinel() error {
	switch c {
	case ClassMalformedEntry:
		return ErrMalformedEntry
	case ClassMissingContributorID:
		return ErrMissingContributorID
	case ClassInvalidTimestamp:
		return ErrInvalidTimestamp
	case ClassMissingReward:
		return ErrMissingReward
	default:
		return ErrValidationFailed
	}
}

// Context locates one validation violation inside an artifact.
type Context struct {
	Repo        string `json:"repo,omitempty"`
	Issue       string `json:"issue,omitempty"`
	Contributor string `json:"contributor,omitempty"`
	Field       string `json:"field,omitempty"`
	CommentID   int64  `json:"comment_id,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

func (c Context) key() string {
	return fmt.Sprintf("%s|%s|%s|%s|%d", c.Repo, c.Issue, c.Contributor, c.Field, c.CommentID)
}

func (c Context) String() string {
	parts := make([]string, 0, 4)
	if c.Repo != "" {
		parts = append(parts, "repo="+c.Repo)
	}
	if c.Issue != "" {
		parts = append(parts, "issue="+c.Issue)
	}
	if c.Contributor != "" {
		parts = append(parts, "contributor="+c.Contributor)
	}
	if c.Field != "" {
		parts = append(parts, "field="+c.Field)
	}
	if c.CommentID != 0 {
		parts = append(parts, fmt.Sprintf("comment=%d", c.CommentID))
	}
	if c.Detail != "" {
		parts = append(parts, c.Detail)
	}
	return strings.Join(parts, " ")
}

// group accumulates violations of one class, deduplicated by context.
type group struct {
	count    int
	examples []Context
	seen     map[string]struct{}
}

// Report aggregates validation violations grouped by class. It implements
// error so a strict transform can surface it directly.
type Report struct {
	maxExamples int
	groups      map[Class]*group
}

// NewReport creates an empty report keeping at most maxExamples example
// contexts per class.
func NewReport(maxExamples int) *Report {
	if maxExamples < 1 {
		maxExamples = defaultMaxExamples
	}
	return &Report{
		maxExamples: maxExamples,
		groups:      make(map[Class]*group),
	}
}

// Add records one violation. Duplicate contexts within a class are counted
// once.
func (r *Report) Add(class Class, ctx Context) {
	g := r.groups[class]
	if g == nil {
		g = &group{seen: make(map[string]struct{})}
		r.groups[class] = g
	}
	if _, dup := g.seen[ctx.key()]; dup {
		return
	}
	g.seen[ctx.key()] = struct{}{}
	g.count++
	if len(g.examples) < r.maxExamples {
		g.examples = append(g.examples, ctx)
	}
}

// Empty reports whether no violations were recorded.
func (r *Report) Empty() bool { return len(r.groups) == 0 }

// Count returns the number of recorded violations for a class.
func (r *Report) Count(class Class) int {
	if g := r.groups[class]; g != nil {
		return g.count
	}
	return 0
}

// Total returns the number of recorded violations across classes.
func (r *Report) Total() int {
	total := 0
	for _, g := range r.groups {
		total += g.count
	}
	return total
}

// Classes returns the recorded classes in sorted order.
func (r *Report) Classes() []Class {
	classes := make([]Class, 0, len(r.groups))
	for c := range r.groups {
		classes = append(classes, c)
	}
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })
	return classes
}

// Examples returns the bounded example contexts recorded for a class.
func (r *Report) Examples(class Class) []Context {
	if g := r.groups[class]; g != nil {
		return g.examples
	}
	return nil
}

// Error renders the grouped summary: one line per class with its count and
// example contexts.
func (r *Report) Error() string {
	if r.Empty() {
		return "validation passed"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "validation failed with %d violation(s):", r.Total())
	for _, class := range r.Classes() {
		g := r.groups[class]
		fmt.Fprintf(&b, "\n  %s (%d)", class, g.count)
		for _, ex := range g.examples {
			fmt.Fprintf(&b, "\n    - %s", ex.String())
		}
		if g.count > len(g.examples) {
			fmt.Fprintf(&b, "\n    ... and %d more", g.count-len(g.examples))
		}
	}
	return b.String()
}

// Unwrap allows errors.Is(report, ErrValidationFailed).
func (r *Report) Unwrap() error { return ErrValidationFailed }
