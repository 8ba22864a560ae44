package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prepmate/interview-client/internal/backend"
	"github.com/prepmate/interview-client/internal/interview"
	"github.com/prepmate/interview-client/internal/report"
	"github.com/prepmate/interview-client/internal/store"
)

var resultsCmd = &cobra.Command{
	Use:   "results <interview-id>",
	Short: "Show the scored answers of one interview",
	Long: `Show the results of an interview. Details come from the backend; when it
cannot be reached the locally saved copy is shown instead.`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(runResults),
}

func runResults(cmd *cobra.Command, args []string, app *AppContext) error {
	ctx := commandContext(cmd)
	id := args[0]

	details, err := app.Backend.Details(ctx, backend.ID(id))
	if err == nil {
		return report.RenderDetails(cmd.OutOrStdout(), report.FromBackend(id, details))
	}
	app.Logger.Warn().Err(err).Str("interview_id", id).Msg("Failed to fetch detailed results")

	local, lerr := app.Store.GetResult(ctx, id)
	if errors.Is(lerr, store.ErrNotFound) {
		if errors.Is(err, backend.ErrUnauthorized) || errors.Is(err, backend.ErrNotAuthenticated) {
			return err
		}
		return errors.New("No interview results found")
	}
	if lerr != nil {
		return lerr
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "Failed to fetch detailed results")
	return report.RenderDetails(cmd.OutOrStdout(), detailsFromResult(local))
}

func detailsFromResult(r *interview.Result) report.Details {
	return report.Details{
		InterviewID:  r.InterviewID,
		Role:         r.Role,
		Difficulty:   r.Difficulty,
		QuestionType: r.QuestionType,
		Status:       r.Status,
		TimeElapsed:  r.TimeElapsed,
		OverallScore: r.OverallScore,
		Answers:      r.Answers,
		Local:        true,
	}
}
