// Package model contains the canonical contribution structures shared
// between the transform stage and the aggregation engines.
package model

import (
	"sort"
	"strings"
	"time"
)

// CommentKind classifies a rewarded comment by where it was made.
type CommentKind string

// Closed set of comment kinds. Unknown is the fallback for events whose
// payload carries neither a kind tag nor a recognizable URL.
const (
	KindIssueSpecification CommentKind = "issue_specification"
	KindIssueComment       CommentKind = "issue_comment"
	KindPullSpecification  CommentKind = "pull_specification"
	KindPullComment        CommentKind = "pull_comment"
	KindTask               CommentKind = "task"
	KindReview             CommentKind = "review"
	KindUnknown            CommentKind = "unknown"
)

// ResolveKind returns the comment kind for a raw tag, falling back to the
// event URL path when the tag is absent or unrecognized.
func ResolveKind(tag, url string) CommentKind {
	switch tag {
	case string(KindIssueSpecification):
		return KindIssueSpecification
	case string(KindIssueComment):
		return KindIssueComment
	case string(KindPullSpecification):
		return KindPullSpecification
	case string(KindPullComment):
		return KindPullComment
	}
	switch {
	case strings.Contains(url, "/issues/"):
		return KindIssueComment
	case strings.Contains(url, "/pull/"):
		return KindPullComment
	}
	return KindUnknown
}

// QualityScore holds the per-comment quality assessment produced upstream.
type QualityScore struct {
	Formatting  float64 `json:"formatting"`
	Readability float64 `json:"readability"`
	Relevance   float64 `json:"relevance"`
	WordCount   float64 `json:"word_count"`
}

// CommentEvent is one rewarded comment on an issue or pull request.
type CommentEvent struct {
	ID        int64         `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Reward    float64       `json:"reward"`
	Kind      CommentKind   `json:"kind"`
	URL       string        `json:"url,omitempty"`
	Quality   *QualityScore `json:"quality,omitempty"`
}

// TaskReward is the reward attributed to completing the issue's task itself.
// At most one per contribution record.
type TaskReward struct {
	Reward     float64   `json:"reward"`
	Multiplier float64   `json:"multiplier"`
	Timestamp  time.Time `json:"timestamp"`
}

// Review is a single code review reward line.
type Review struct {
	ReviewID     int64   `json:"review_id"`
	LinesAdded   int     `json:"lines_added"`
	LinesDeleted int     `json:"lines_deleted"`
	Reward       float64 `json:"reward"`
	Priority     int     `json:"priority"`
}

// ReviewRewardGroup bundles the reviews a contributor made on one pull.
// Review rewards carry no per-review timestamp in the source payload.
type ReviewRewardGroup struct {
	GroupURL string   `json:"group_url,omitempty"`
	Reviews  []Review `json:"reviews"`
}

// ContributionRecord is everything one contributor earned on one issue.
type ContributionRecord struct {
	ContributorID int64               `json:"contributor_id"`
	TotalReward   float64             `json:"total_reward"`
	Task          *TaskReward         `json:"task,omitempty"`
	Comments      []CommentEvent      `json:"comments,omitempty"`
	ReviewGroups  []ReviewRewardGroup `json:"review_groups,omitempty"`
}

// IssueRecords maps contributor login to their record for one issue.
type IssueRecords map[string]ContributionRecord

// RepoIssues maps issue identifier to its contributor records.
type RepoIssues map[string]IssueRecords

// RunData is the canonical structure for one run:
// repo -> issue -> contributor -> record. It is produced by the transform
// stage, persisted whole per run, and read-only to the aggregation engines.
type RunData map[string]RepoIssues

// Repos returns repo keys in sorted order for deterministic iteration.
func (d RunData) Repos() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Issues returns issue keys in sorted order.
func (r RepoIssues) Issues() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Contributors returns contributor logins in sorted order.
func (i IssueRecords) Contributors() []string {
	keys := make([]string, 0, len(i))
	for k := range i {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LatestCommentTime returns the most recent comment timestamp on the record,
// or the zero time when no comment carries one.
func (c ContributionRecord) LatestCommentTime() time.Time {
	var latest time.Time
	for _, cm := range c.Comments {
		if cm.Timestamp.After(latest) {
			latest = cm.Timestamp
		}
	}
	return latest
}
