// Package aggregate holds the analytic views computed from the canonical
// contribution structure. Every engine is a pure single-pass function over
// repo -> issue -> contributor; none of them performs I/O or depends on
// another engine.
package aggregate

import (
	"sort"

	"github.com/okian/xpboard/internal/domain/model"
)

// LeaderboardEntry is one contributor's ranking line.
type LeaderboardEntry struct {
	Contributor   string             `json:"contributor"`
	ContributorID int64              `json:"contributor_id"`
	TotalXP       float64            `json:"total_xp"`
	RepoBreakdown map[string]float64 `json:"repo_breakdown"`
	// IssueBreakdown is keyed "repo#issue".
	IssueBreakdown map[string]float64 `json:"issue_breakdown"`
	// IssuePRCount counts distinct issues touched per repo.
	IssuePRCount map[string]int `json:"issue_pr_count"`
}

// Leaderboard ranks contributors by accumulated reward, descending. Ties
// keep the order contributors were first encountered in the deterministic
// repo/issue/contributor walk.
func Leaderboard(data model.RunData) []LeaderboardEntry {
	byContributor := make(map[string]*LeaderboardEntry)
	var order []string

	for _, repo := range data.Repos() {
		issues := data[repo]
		for _, issue := range issues.Issues() {
			records := issues[issue]
			for _, contributor := range records.Contributors() {
				rec := records[contributor]
				entry := byContributor[contributor]
				if entry == nil {
					entry = &LeaderboardEntry{
						Contributor:    contributor,
						ContributorID:  rec.ContributorID,
						RepoBreakdown:  make(map[string]float64),
						IssueBreakdown: make(map[string]float64),
						IssuePRCount:   make(map[string]int),
					}
					byContributor[contributor] = entry
					order = append(order, contributor)
				}
				entry.TotalXP += rec.TotalReward
				entry.RepoBreakdown[repo] += rec.TotalReward
				entry.IssueBreakdown[repo+"#"+issue] += rec.TotalReward
				entry.IssuePRCount[repo]++
			}
		}
	}

	entries := make([]LeaderboardEntry, 0, len(order))
	for _, contributor := range order {
		entries = append(entries, *byContributor[contributor])
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalXP > entries[j].TotalXP
	})
	return entries
}
