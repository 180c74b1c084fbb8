package aggregate

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/okian/xpboard/internal/domain/model"
)

// Row is one flattened event for tabular export. Absent fields stay empty
// strings rather than null so the CSV renders cleanly.
type Row struct {
	Run          string
	Repo         string
	Issue        string
	Contributor  string
	EventType    string
	Timestamp    string
	Reward       string
	URL          string
	CommentID    string
	LinesAdded   string
	LinesDeleted string
	Priority     string
}

// exportHeader is the stable column order for CSV output.
var exportHeader = []string{
	"run", "repo", "issue", "contributor", "event_type", "timestamp",
	"reward", "url", "comment_id", "lines_added", "lines_deleted", "priority",
}

// Flatten converts the canonical structure into one row per task, comment
// and review event.
func Flatten(runID string, data model.RunData) []Row {
	var rows []Row

	for _, repo := range data.Repos() {
		issues := data[repo]
		for _, issue := range issues.Issues() {
			records := issues[issue]
			for _, contributor := range records.Contributors() {
				rec := records[contributor]
				base := Row{Run: runID, Repo: repo, Issue: issue, Contributor: contributor}

				if rec.Task != nil {
					r := base
					r.EventType = string(model.KindTask)
					r.Timestamp = formatTime(rec.Task.Timestamp)
					r.Reward = formatReward(rec.Task.Reward)
					rows = append(rows, r)
				}
				for _, cm := range rec.Comments {
					r := base
					r.EventType = string(cm.Kind)
					r.Timestamp = formatTime(cm.Timestamp)
					r.Reward = formatReward(cm.Reward)
					r.URL = cm.URL
					r.CommentID = strconv.FormatInt(cm.ID, 10)
					rows = append(rows, r)
				}
				for _, grp := range rec.ReviewGroups {
					for _, rv := range grp.Reviews {
						r := base
						r.EventType = string(model.KindReview)
						r.Reward = formatReward(rv.Reward)
						r.URL = grp.GroupURL
						r.LinesAdded = strconv.Itoa(rv.LinesAdded)
						r.LinesDeleted = strconv.Itoa(rv.LinesDeleted)
						r.Priority = strconv.Itoa(rv.Priority)
						rows = append(rows, r)
					}
				}
			}
		}
	}
	return rows
}

// WriteCSV writes the header plus one line per row.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return fmt.Errorf("write export header: %w", err)
	}
	for i := range rows {
		r := &rows[i]
		record := []string{
			r.Run, r.Repo, r.Issue, r.Contributor, r.EventType, r.Timestamp,
			r.Reward, r.URL, r.CommentID, r.LinesAdded, r.LinesDeleted, r.Priority,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write export row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush export: %w", err)
	}
	return nil
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}

func formatReward(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
