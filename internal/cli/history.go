package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/prepmate/interview-client/internal/backend"
	"github.com/prepmate/interview-client/internal/report"
)

var historyCmd = &cobra.Command{
	Use:     "history",
	Aliases: []string{"dashboard"},
	Short:   "List past interviews with their scores",
	Args:    cobra.NoArgs,
	RunE:    withApp(runHistory),
}

func runHistory(cmd *cobra.Command, args []string, app *AppContext) error {
	resp, err := app.Backend.History(commandContext(cmd))
	if err != nil {
		app.Logger.Error().Err(err).Msg("Failed to fetch interview history")
		return errors.New(backend.UserMessage(err, "Failed to fetch interview history"))
	}
	return report.RenderHistory(cmd.OutOrStdout(), resp.Interviews)
}
