// Package transform converts raw artifact entries into the canonical
// repo -> issue -> contributor structure, applying the validation policy.
//
// Two policies exist as one code path selected by an explicit Mode: Strict
// aborts the whole transform with an aggregated report, Lenient skips
// violating records and keeps going. The pipeline default is Lenient so a
// dashboard keeps rendering when one record in an artifact is bad; Strict is
// for verifying freshly produced artifacts.
package transform

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/okian/xpboard/internal/domain/model"
	"github.com/okian/xpboard/pkg/logger"
	"github.com/okian/xpboard/pkg/metrics"
)

// Mode selects the validation policy.
type Mode int

// Validation modes.
const (
	// Lenient drops violating records with a diagnostic and succeeds.
	Lenient Mode = iota
	// Strict aborts the transform when any violation is found.
	Strict
)

const defaultMaxExamples = 5

// ParseMode parses a configured mode name.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lenient":
		return Lenient, nil
	case "strict":
		return Strict, nil
	default:
		return Lenient, ErrUnknownValidationMode
	}
}

func (m Mode) String() string {
	if m == Strict {
		return "strict"
	}
	return "lenient"
}

// RawEntry mirrors one element of the artifact payload.
type RawEntry struct {
	Scope   string               `json:"scope,omitempty"`
	Repo    string               `json:"repo"`
	Issue   string               `json:"issue"`
	Records map[string]RawRecord `json:"records"`
}

// RawRecord mirrors one contributor's record. Optional fields are pointers
// so absence is distinguishable from a zero value at the validation boundary.
type RawRecord struct {
	ContributorID *int64           `json:"contributorId"`
	TotalReward   *float64         `json:"totalReward"`
	Task          *RawTask         `json:"task"`
	Comments      []RawComment     `json:"comments"`
	ReviewGroups  []RawReviewGroup `json:"reviewRewardGroups"`
}

// RawTask mirrors the optional task reward block.
type RawTask struct {
	Reward     *float64 `json:"reward"`
	Multiplier float64  `json:"multiplier"`
	Timestamp  string   `json:"timestamp"`
}

// RawComment mirrors one comment event.
type RawComment struct {
	ID        int64       `json:"id"`
	Timestamp string      `json:"timestamp"`
	Reward    float64     `json:"reward"`
	Type      string      `json:"type"`
	URL       string      `json:"url"`
	Quality   *RawQuality `json:"qualityScore"`
}

// RawQuality mirrors the optional quality score block.
type RawQuality struct {
	Formatting  float64 `json:"formatting"`
	Readability float64 `json:"readability"`
	Relevance   float64 `json:"relevance"`
	WordMetrics float64 `json:"wordMetrics"`
}

// RawReviewGroup mirrors one review reward group.
type RawReviewGroup struct {
	GroupURL string      `json:"groupUrl"`
	Reviews  []RawReview `json:"reviews"`
}

// RawReview mirrors one review reward line.
type RawReview struct {
	ReviewID     int64   `json:"reviewId"`
	LinesAdded   int     `json:"linesAdded"`
	LinesDeleted int     `json:"linesDeleted"`
	Reward       float64 `json:"reward"`
	Priority     int     `json:"priority"`
}

// Transformer validates raw artifact entries and builds the canonical
// structure.
type Transformer struct {
	mode        Mode
	maxExamples int
	logger      logger.Logger
}

// Option applies a configuration option to the Transformer.
type Option func(*Transformer)

// WithMode sets the validation policy.
func WithMode(mode Mode) Option {
	return func(t *Transformer) {
		t.mode = mode
	}
}

// WithMaxExamples bounds the example contexts kept per error class.
func WithMaxExamples(n int) Option {
	return func(t *Transformer) {
		if n > 0 {
			t.maxExamples = n
		}
	}
}

// WithLogger sets a custom logger for the transformer.
func WithLogger(l logger.Logger) Option {
	return func(t *Transformer) {
		if l != nil {
			t.logger = l
		}
	}
}

// New creates a Transformer with default configuration (lenient policy).
func New(opts ...Option) *Transformer {
	t := &Transformer{
		mode:        Lenient,
		maxExamples: defaultMaxExamples,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = logger.Get().Named("transform")
	}
	return t
}

// Mode returns the active validation policy.
func (t *Transformer) Mode() Mode { return t.mode }

// Transform builds the canonical structure for one run. The report is never
// nil; in lenient mode it carries the diagnostics for skipped records while
// the returned structure is still valid. In strict mode a non-empty report
// aborts the transform and is returned as the error.
func (t *Transformer) Transform(ctx context.Context, runID string, entries []json.RawMessage) (model.RunData, *Report, error) {
	report := NewReport(t.maxExamples)
	data := make(model.RunData)

	for _, raw := range entries {
		var entry RawEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			report.Add(ClassMalformedEntry, Context{Detail: err.Error()})
			metrics.RecordValidationError(string(ClassMalformedEntry))
			continue
		}
		t.transformEntry(ctx, entry, data, report)
	}

	if t.mode == Strict && !report.Empty() {
		t.logger.Error(ctx, "strict validation aborted transform",
			logger.String("run", runID),
			logger.Int("violations", report.Total()),
		)
		return nil, report, report
	}

	if !report.Empty() {
		t.logger.Warn(ctx, "lenient validation skipped records",
			logger.String("run", runID),
			logger.Int("violations", report.Total()),
		)
	}
	return data, report, nil
}

// transformEntry validates one entry and merges its valid records into data.
func (t *Transformer) transformEntry(ctx context.Context, entry RawEntry, data model.RunData, report *Report) {
	entryCtx := Context{Repo: entry.Repo, Issue: entry.Issue}
	switch {
	case strings.TrimSpace(entry.Repo) == "":
		entryCtx.Field = "repo"
	case strings.TrimSpace(entry.Issue) == "":
		entryCtx.Field = "issue"
	case entry.Records == nil:
		entryCtx.Field = "records"
	}
	if entryCtx.Field != "" {
		report.Add(ClassMalformedEntry, entryCtx)
		metrics.RecordValidationError(string(ClassMalformedEntry))
		return
	}

	repoKey := entry.Repo
	if entry.Scope != "" && !strings.Contains(repoKey, "/") {
		repoKey = entry.Scope + "/" + repoKey
	}

	for _, contributor := range sortedKeys(entry.Records) {
		rec, ok := t.validateRecord(ctx, repoKey, entry.Issue, contributor, entry.Records[contributor], report)
		if !ok {
			continue
		}
		issues := data[repoKey]
		if issues == nil {
			issues = make(model.RepoIssues)
			data[repoKey] = issues
		}
		records := issues[entry.Issue]
		if records == nil {
			records = make(model.IssueRecords)
			issues[entry.Issue] = records
		}
		records[contributor] = rec
	}
}

// validateRecord converts one raw record, reporting violations. In lenient
// mode a violating record is dropped; in strict mode it is reported and the
// caller aborts after the full pass.
func (t *Transformer) validateRecord(ctx context.Context, repo, issue, contributor string, raw RawRecord, report *Report) (model.ContributionRecord, bool) {
	base := Context{Repo: repo, Issue: issue, Contributor: contributor}
	valid := true

	fail := func(class Class, c Context) {
		report.Add(class, c)
		metrics.RecordValidationError(string(class))
		if t.mode == Lenient {
			t.logger.Warn(ctx, "skipping record", logger.String("class", string(class)), logger.String("at", c.String()))
		}
		valid = false
	}

	if raw.ContributorID == nil || *raw.ContributorID < 0 {
		c := base
		c.Field = "contributorId"
		fail(ClassMissingContributorID, c)
	}
	if raw.TotalReward == nil {
		c := base
		c.Field = "totalReward"
		fail(ClassMissingReward, c)
	}

	rec := model.ContributionRecord{}
	if raw.ContributorID != nil {
		rec.ContributorID = *raw.ContributorID
	}
	if raw.TotalReward != nil {
		rec.TotalReward = *raw.TotalReward
	}

	if raw.Task != nil {
		c := base
		c.Field = "task"
		if raw.Task.Reward == nil {
			fail(ClassMissingReward, c)
		} else {
			ts, err := parseTimestamp(raw.Task.Timestamp)
			if err != nil {
				c.Detail = raw.Task.Timestamp
				fail(ClassInvalidTimestamp, c)
			} else {
				rec.Task = &model.TaskReward{
					Reward:     *raw.Task.Reward,
					Multiplier: raw.Task.Multiplier,
					Timestamp:  ts,
				}
			}
		}
	}

	for _, rc := range raw.Comments {
		cm := model.CommentEvent{
			ID:     rc.ID,
			Reward: rc.Reward,
			Kind:   model.ResolveKind(rc.Type, rc.URL),
			URL:    rc.URL,
		}
		if rc.Quality != nil {
			cm.Quality = &model.QualityScore{
				Formatting:  rc.Quality.Formatting,
				Readability: rc.Quality.Readability,
				Relevance:   rc.Quality.Relevance,
				WordCount:   rc.Quality.WordMetrics,
			}
		}
		ts, err := parseTimestamp(rc.Timestamp)
		if err != nil {
			// Only rewarded events are required to carry a valid timestamp.
			if rc.Reward != 0 {
				c := base
				c.Field = "timestamp"
				c.CommentID = rc.ID
				c.Detail = rc.Timestamp
				fail(ClassInvalidTimestamp, c)
				continue
			}
		} else {
			cm.Timestamp = ts
		}
		rec.Comments = append(rec.Comments, cm)
	}

	for _, rg := range raw.ReviewGroups {
		grp := model.ReviewRewardGroup{GroupURL: rg.GroupURL}
		for _, rv := range rg.Reviews {
			grp.Reviews = append(grp.Reviews, model.Review{
				ReviewID:     rv.ReviewID,
				LinesAdded:   rv.LinesAdded,
				LinesDeleted: rv.LinesDeleted,
				Reward:       rv.Reward,
				Priority:     rv.Priority,
			})
		}
		rec.ReviewGroups = append(rec.ReviewGroups, grp)
	}

	return rec, valid
}

// parseTimestamp accepts RFC3339 with or without fractional seconds.
func parseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

func sortedKeys(m map[string]RawRecord) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Deterministic record order keeps diagnostics and tie-breaks stable.
	sort.Strings(keys)
	return keys
}
