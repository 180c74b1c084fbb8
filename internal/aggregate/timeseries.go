package aggregate

import (
	"sort"
	"time"

	"github.com/okian/xpboard/internal/domain/model"
)

// TimeSeriesPoint is one reward event on a contributor's timeline.
type TimeSeriesPoint struct {
	Time      time.Time           `json:"time"`
	XPDelta   float64             `json:"xp_delta"`
	EventType model.CommentKind   `json:"event_type"`
	Repo      string              `json:"repo"`
	Issue     string              `json:"issue"`
	URL       string              `json:"url,omitempty"`
	Quality   *model.QualityScore `json:"quality,omitempty"`
}

// TimeSeries reconstructs a per-contributor timeline from task, comment and
// review events, sorted ascending by time.
//
// Review rewards carry no per-review timestamp in the source payload. The
// record's task timestamp stands in, else the latest valid comment
// timestamp. This is a documented approximation; a record with reviews but
// no usable stand-in contributes no review points.
func TimeSeries(data model.RunData) map[string][]TimeSeriesPoint {
	series := make(map[string][]TimeSeriesPoint)

	for _, repo := range data.Repos() {
		issues := data[repo]
		for _, issue := range issues.Issues() {
			records := issues[issue]
			for _, contributor := range records.Contributors() {
				rec := records[contributor]

				if rec.Task != nil {
					series[contributor] = append(series[contributor], TimeSeriesPoint{
						Time:      rec.Task.Timestamp,
						XPDelta:   rec.Task.Reward,
						EventType: model.KindTask,
						Repo:      repo,
						Issue:     issue,
					})
				}

				for _, cm := range rec.Comments {
					if cm.Timestamp.IsZero() {
						continue
					}
					series[contributor] = append(series[contributor], TimeSeriesPoint{
						Time:      cm.Timestamp,
						XPDelta:   cm.Reward,
						EventType: cm.Kind,
						Repo:      repo,
						Issue:     issue,
						URL:       cm.URL,
						Quality:   cm.Quality,
					})
				}

				standIn := reviewStandInTime(rec)
				if standIn.IsZero() {
					continue
				}
				for _, grp := range rec.ReviewGroups {
					for _, rv := range grp.Reviews {
						series[contributor] = append(series[contributor], TimeSeriesPoint{
							Time:      standIn,
							XPDelta:   rv.Reward,
							EventType: model.KindReview,
							Repo:      repo,
							Issue:     issue,
							URL:       grp.GroupURL,
						})
					}
				}
			}
		}
	}

	for contributor := range series {
		points := series[contributor]
		sort.SliceStable(points, func(i, j int) bool {
			return points[i].Time.Before(points[j].Time)
		})
		series[contributor] = points
	}
	return series
}

// reviewStandInTime picks the approximated timestamp for review events.
func reviewStandInTime(rec model.ContributionRecord) time.Time {
	if rec.Task != nil && !rec.Task.Timestamp.IsZero() {
		return rec.Task.Timestamp
	}
	return rec.LatestCommentTime()
}
