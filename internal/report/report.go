// Package report renders interview history and results for the terminal.
package report

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/prepmate/interview-client/internal/backend"
)

// LocalScore is the share of questions actually answered, as a rounded percentage.
// Empty and Skipped answers do not count.
func LocalScore(answers []backend.Answer) int {
	if len(answers) == 0 {
		return 0
	}
	answered := 0
	for _, a := range answers {
		text := strings.TrimSpace(a.Answer)
		if text != "" && a.Answer != backend.SkippedAnswer {
			answered++
		}
	}
	return int(math.Round(float64(answered) / float64(len(answers)) * 100))
}

// ScoreLabel names a score band
func ScoreLabel(score float64) string {
	switch {
	case score >= 80:
		return "Excellent"
	case score >= 60:
		return "Good"
	case score >= 40:
		return "Average"
	default:
		return "Needs Improvement"
	}
}

// FormatElapsed renders seconds as "Xm Ys"
func FormatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
}

// StatusIcon marks an interview status in the history list
func StatusIcon(status string) string {
	switch strings.ToLower(status) {
	case "completed":
		return "✓"
	case "in-progress":
		return "⏳"
	case "failed":
		return "✗"
	default:
		return "•"
	}
}

// AverageScore is the mean overall score, counting unscored interviews as 0
func AverageScore(interviews []backend.InterviewSummary) (float64, bool) {
	if len(interviews) == 0 {
		return 0, false
	}
	total := 0.0
	for _, iv := range interviews {
		if iv.OverallScore != nil {
			total += *iv.OverallScore
		}
	}
	return total / float64(len(interviews)), true
}

// CountCompleted counts interviews with status completed
func CountCompleted(interviews []backend.InterviewSummary) int {
	n := 0
	for _, iv := range interviews {
		if strings.EqualFold(iv.Status, "completed") {
			n++
		}
	}
	return n
}

// Recommendations returns the advice lines shown under a result
func Recommendations(score float64, role, questionType string) []string {
	var lines []string
	switch {
	case score < 60:
		lines = append(lines, fmt.Sprintf("Consider reviewing the fundamental concepts for %s", role))
	case score < 80:
		lines = append(lines, "Good progress! Focus on providing more detailed answers")
	default:
		lines = append(lines, fmt.Sprintf("Excellent performance! You're well-prepared for %s interviews", role))
	}
	if questionType != "" {
		lines = append(lines, fmt.Sprintf("Practice more %s questions", strings.ToLower(questionType)))
	}
	lines = append(lines, "Try interviewing for different difficulty levels to broaden your skills")
	return lines
}

func formatScore(score *float64) string {
	if score == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *score)
}

// RenderHistory writes the dashboard: summary line then one row per interview
func RenderHistory(w io.Writer, interviews []backend.InterviewSummary) error {
	if len(interviews) == 0 {
		_, err := fmt.Fprintln(w, "No interviews yet. Start one with 'prepmate new'.")
		return err
	}

	avg, _ := AverageScore(interviews)
	fmt.Fprintf(w, "Interviews: %d   Completed: %d   Average score: %.1f\n\n",
		len(interviews), CountCompleted(interviews), avg)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tROLE\tDIFFICULTY\tSTATUS\tSCORE\tCREATED")
	for _, iv := range interviews {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			StatusIcon(iv.Status), iv.ID, iv.Role, iv.Difficulty, iv.Status, formatScore(iv.OverallScore), iv.CreatedAt)
	}
	return tw.Flush()
}

// Details is everything the results view shows for one interview
type Details struct {
	InterviewID  string
	Role         string
	Difficulty   string
	QuestionType string
	Status       string
	TimeElapsed  int
	OverallScore *float64
	Answers      []backend.Answer
	Local        bool // built from locally held data
}

// FromBackend builds Details from GET /interview/{id}/details
func FromBackend(id string, d *backend.InterviewDetails) Details {
	return Details{
		InterviewID:  id,
		Role:         d.Interview.Role,
		Difficulty:   d.Interview.Difficulty,
		QuestionType: d.Interview.QuestionType,
		Status:       d.Interview.Status,
		TimeElapsed:  d.Interview.TimeElapsed,
		OverallScore: d.Interview.OverallScore,
		Answers:      d.Answers,
	}
}

// Score is the backend score, or the local score when the backend has none
func (d Details) Score() float64 {
	if d.OverallScore != nil {
		return *d.OverallScore
	}
	return float64(LocalScore(d.Answers))
}

// RenderDetails writes one interview result
func RenderDetails(w io.Writer, d Details) error {
	score := d.Score()
	status := d.Status
	if status == "" {
		status = "COMPLETED"
	}

	fmt.Fprintf(w, "%s interview (%s)\n", d.Role, d.Difficulty)
	if d.Local {
		fmt.Fprintln(w, "Showing locally saved results")
	}
	fmt.Fprintf(w, "Overall score: %.0f%% (%s)\n", score, ScoreLabel(score))
	fmt.Fprintf(w, "Questions:     %d\n", len(d.Answers))
	fmt.Fprintf(w, "Time taken:    %s\n", FormatElapsed(d.TimeElapsed))
	fmt.Fprintf(w, "Status:        %s\n\n", status)

	for i, a := range d.Answers {
		fmt.Fprintf(w, "%d. %s\n", i+1, a.Question)
		fmt.Fprintf(w, "   %s\n", a.Answer)
		if a.Score != nil {
			fmt.Fprintf(w, "   Score: %.0f%%\n", *a.Score)
		} else {
			fmt.Fprintln(w, "   Score: not scored")
		}
	}

	fmt.Fprintln(w, "\nRecommendations")
	for _, line := range Recommendations(score, d.Role, d.QuestionType) {
		if _, err := fmt.Fprintf(w, "  • %s\n", line); err != nil {
			return err
		}
	}
	return nil
}
