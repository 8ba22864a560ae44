package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/prepmate/interview-client/internal/backend"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Resubmit interviews whose submission failed",
	Long: `Interviews that could not be submitted are kept locally. sync sends each
of them to the backend again and records the returned score.`,
	Args: cobra.NoArgs,
	RunE: withApp(runSync),
}

func runSync(cmd *cobra.Command, args []string, app *AppContext) error {
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	pending, err := app.Store.ListResults(ctx, true)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Fprintln(out, "Nothing to sync.")
		return nil
	}

	synced := 0
	for _, r := range pending {
		resp, err := app.Backend.CompleteInterview(ctx, backend.CompleteRequest{
			InterviewID: backend.ID(r.InterviewID),
			TimeElapsed: r.TimeElapsed,
			Answers:     r.Answers,
		})
		if err != nil {
			app.Logger.Warn().Err(err).Str("interview_id", r.InterviewID).Msg("Resubmission failed")
			fmt.Fprintf(out, "✗ %s (%s): %s\n", r.InterviewID, r.Role, backend.UserMessage(err, "Failed to submit interview. Please try again."))
			if errors.Is(err, backend.ErrUnauthorized) || errors.Is(err, backend.ErrNotAuthenticated) {
				return err
			}
			continue
		}

		if err := app.Store.MarkSynced(ctx, r.InterviewID, resp.OverallScore, resp.Status); err != nil {
			return err
		}
		synced++
		fmt.Fprintf(out, "✓ %s (%s)\n", r.InterviewID, r.Role)
	}

	fmt.Fprintf(out, "Synced %d of %d interviews.\n", synced, len(pending))
	return nil
}
