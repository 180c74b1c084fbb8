package aggregate

import (
	"github.com/okian/xpboard/internal/domain/model"
)

// ReviewSummary totals code review activity for one contributor.
type ReviewSummary struct {
	Contributor   string  `json:"contributor"`
	ReviewCount   int     `json:"review_count"`
	LinesChanged  int     `json:"lines_changed"`
	ReviewXP      float64 `json:"review_xp"`
	PullsReviewed int     `json:"pulls_reviewed"`
}

// ReviewMetrics sums lines touched and reward over all individual reviews.
// Distinct review-group URLs count as pulls reviewed; groups without a URL
// each count once.
func ReviewMetrics(data model.RunData) map[string]*ReviewSummary {
	result := make(map[string]*ReviewSummary)
	pulls := make(map[string]map[string]struct{})

	for _, repo := range data.Repos() {
		issues := data[repo]
		for _, issue := range issues.Issues() {
			records := issues[issue]
			for _, contributor := range records.Contributors() {
				rec := records[contributor]
				s := result[contributor]
				if s == nil {
					s = &ReviewSummary{Contributor: contributor}
					result[contributor] = s
					pulls[contributor] = make(map[string]struct{})
				}
				for _, grp := range rec.ReviewGroups {
					if grp.GroupURL == "" {
						s.PullsReviewed++
					} else if _, seen := pulls[contributor][grp.GroupURL]; !seen {
						pulls[contributor][grp.GroupURL] = struct{}{}
						s.PullsReviewed++
					}
					for _, rv := range grp.Reviews {
						s.ReviewCount++
						s.LinesChanged += rv.LinesAdded + rv.LinesDeleted
						s.ReviewXP += rv.Reward
					}
				}
			}
		}
	}
	return result
}
