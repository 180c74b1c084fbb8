package aggregate

import (
	"github.com/okian/xpboard/internal/domain/model"
)

// QualitySummary averages comment quality scores for one contributor across
// every comment that carries a score.
type QualitySummary struct {
	Contributor    string  `json:"contributor"`
	CommentCount   int     `json:"comment_count"`
	ScoredCount    int     `json:"scored_count"`
	AvgFormatting  float64 `json:"avg_formatting"`
	AvgReadability float64 `json:"avg_readability"`
	AvgRelevance   float64 `json:"avg_relevance"`
	CommentXP      float64 `json:"comment_xp"`
}

// Quality computes per-contributor comment quality averages and comment
// reward totals.
func Quality(data model.RunData) map[string]*QualitySummary {
	result := make(map[string]*QualitySummary)

	for _, repo := range data.Repos() {
		issues := data[repo]
		for _, issue := range issues.Issues() {
			records := issues[issue]
			for _, contributor := range records.Contributors() {
				rec := records[contributor]
				s := result[contributor]
				if s == nil {
					s = &QualitySummary{Contributor: contributor}
					result[contributor] = s
				}
				for _, cm := range rec.Comments {
					s.CommentCount++
					s.CommentXP += cm.Reward
					if cm.Quality == nil {
						continue
					}
					// Running averages keep the pass single and allocation-free.
					s.ScoredCount++
					n := float64(s.ScoredCount)
					s.AvgFormatting += (cm.Quality.Formatting - s.AvgFormatting) / n
					s.AvgReadability += (cm.Quality.Readability - s.AvgReadability) / n
					s.AvgRelevance += (cm.Quality.Relevance - s.AvgRelevance) / n
				}
			}
		}
	}
	return result
}
