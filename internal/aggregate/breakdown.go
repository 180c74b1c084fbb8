package aggregate

import (
	"github.com/okian/xpboard/internal/domain/model"
)

// BreakdownEntry counts and sums reward by contribution type for one
// contributor. Specification covers both issue and pull specifications;
// events with no resolvable kind stay out of the per-kind columns.
type BreakdownEntry struct {
	Contributor string `json:"contributor"`

	SpecificationCount int     `json:"specification_count"`
	SpecificationXP    float64 `json:"specification_xp"`
	IssueCommentCount  int     `json:"issue_comment_count"`
	IssueCommentXP     float64 `json:"issue_comment_xp"`
	PullCommentCount   int     `json:"pull_comment_count"`
	PullCommentXP      float64 `json:"pull_comment_xp"`
	TaskCount          int     `json:"task_count"`
	TaskXP             float64 `json:"task_xp"`
	ReviewGroupCount   int     `json:"review_group_count"`
}

// Breakdown classifies every rewarded event into the closed contribution
// type set.
func Breakdown(data model.RunData) map[string]*BreakdownEntry {
	result := make(map[string]*BreakdownEntry)

	get := func(contributor string) *BreakdownEntry {
		e := result[contributor]
		if e == nil {
			e = &BreakdownEntry{Contributor: contributor}
			result[contributor] = e
		}
		return e
	}

	for _, repo := range data.Repos() {
		issues := data[repo]
		for _, issue := range issues.Issues() {
			records := issues[issue]
			for _, contributor := range records.Contributors() {
				rec := records[contributor]
				entry := get(contributor)

				if rec.Task != nil {
					entry.TaskCount++
					entry.TaskXP += rec.Task.Reward
				}
				for _, cm := range rec.Comments {
					switch cm.Kind {
					case model.KindIssueSpecification, model.KindPullSpecification:
						entry.SpecificationCount++
						entry.SpecificationXP += cm.Reward
					case model.KindIssueComment:
						entry.IssueCommentCount++
						entry.IssueCommentXP += cm.Reward
					case model.KindPullComment:
						entry.PullCommentCount++
						entry.PullCommentXP += cm.Reward
					}
				}
				entry.ReviewGroupCount += len(rec.ReviewGroups)
			}
		}
	}
	return result
}
