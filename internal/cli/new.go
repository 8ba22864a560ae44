package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prepmate/interview-client/internal/audio"
	"github.com/prepmate/interview-client/internal/auth"
	"github.com/prepmate/interview-client/internal/backend"
	"github.com/prepmate/interview-client/internal/events"
	"github.com/prepmate/interview-client/internal/interview"
	"github.com/prepmate/interview-client/internal/observability"
	"github.com/prepmate/interview-client/internal/report"
	"github.com/prepmate/interview-client/internal/transcription"
)

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Start a timed mock interview",
	Long: `Create an interview on the backend and run it in the terminal.

Answer by voice (:rec toggles live transcription) or by typing a line.
The interview is submitted when you end it, finish the last question or
the time runs out.

Examples:
  prepmate new --role "Frontend Developer"
  prepmate new --role "Backend Developer" --difficulty Advanced --questions 3 --time-limit 15 --type Mixed`,
	Args: cobra.NoArgs,
	RunE: withApp(runNew),
}

// Flags
var (
	newRole          string
	newDifficulty    string
	newLanguage      string
	newQuestionCount int
	newTimeLimit     int
	newQuestionType  string
)

func init() {
	f := newCmd.Flags()
	f.StringVar(&newRole, "role", "", "Role to interview for (prompted when omitted): "+strings.Join(interview.Roles, ", "))
	f.StringVar(&newDifficulty, "difficulty", interview.DefaultDifficulty, "Difficulty: "+strings.Join(interview.Difficulties, ", "))
	f.StringVar(&newLanguage, "language", interview.DefaultLanguage, "Programming language")
	f.IntVar(&newQuestionCount, "questions", interview.DefaultQuestionCount, "Number of questions")
	f.IntVar(&newTimeLimit, "time-limit", interview.DefaultTimeLimit, "Time limit in minutes")
	f.StringVar(&newQuestionType, "type", interview.DefaultQuestionType, "Question type: "+strings.Join(interview.QuestionTypes, ", "))
}

func runNew(cmd *cobra.Command, args []string, app *AppContext) error {
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()
	in := bufio.NewReader(cmd.InOrStdin())

	creds, err := auth.RequireSession(app.Store.Credentials())
	if err != nil {
		return errors.New("Please login first")
	}

	role := strings.TrimSpace(newRole)
	if role == "" {
		role = promptRole(in, out)
	}

	plan, err := interview.StartInterview(ctx, app.Backend, backend.InterviewConfig{
		Role:          role,
		Difficulty:    newDifficulty,
		QuestionCount: newQuestionCount,
		TimeLimit:     newTimeLimit,
		Language:      newLanguage,
		QuestionType:  newQuestionType,
	})
	switch {
	case errors.Is(err, interview.ErrRoleRequired):
		return errors.New("Please select a role to continue")
	case errors.Is(err, interview.ErrNoQuestions):
		return err
	case err != nil:
		app.Logger.Error().Err(err).Msg("Failed to create interview")
		return errors.New(backend.UserMessage(err, "Failed to create interview"))
	}
	fmt.Fprintln(out, "Interview created successfully!")

	if app.Config.MetricsEnabled {
		observability.StartServer(ctx, app.Config.MetricsPort, map[string]observability.HealthCheckFunc{
			"backend": app.Backend.Ping,
			"store":   app.Store.Ping,
		})
	}

	principal := ""
	if creds.User != nil {
		principal = creds.User.Email
	}

	_, err = runInterview(ctx, app, plan, principal, in, out)
	return err
}

// promptRole lists the offered roles and reads a number or a role name
func promptRole(in *bufio.Reader, out io.Writer) string {
	fmt.Fprintln(out, "Select a role:")
	for i, r := range interview.Roles {
		fmt.Fprintf(out, "  %d. %s\n", i+1, r)
	}
	fmt.Fprint(out, "Role: ")

	line, _ := in.ReadString('\n')
	line = strings.TrimSpace(line)
	if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(interview.Roles) {
		return interview.Roles[n-1]
	}
	return line
}

// runInterview wires device, channel, publisher and store around one
// session loop, reads commands from in and prints the result.
func runInterview(ctx context.Context, app *AppContext, plan *interview.Plan, principal string, in io.Reader, out io.Writer) (*interview.Result, error) {
	cfg := app.Config

	device, err := audio.NewDevice(cfg)
	if err != nil {
		return nil, err
	}
	channel, err := transcription.NewChannel(cfg)
	if err != nil {
		return nil, err
	}

	publisher := events.New(events.ConfigFrom(cfg, principal))
	defer publisher.Close()

	correlationID := observability.NewCorrelationID()
	metrics := observability.NewSessionMetrics(plan.InterviewID)
	con := newConsole(out)

	loop := interview.NewLoop(interview.LoopConfig{
		Session: interview.NewSession(plan, cfg.DefaultTimeLimit),
		Recorder: interview.NewRecorder(device, channel, interview.RecorderConfig{
			BufferSize: cfg.AudioBufferSize,
			VAD: &audio.VADConfig{
				EnergyThreshold: cfg.VADEnergyThreshold,
				SilenceFrames:   cfg.VADSilenceFrames,
			},
			Metrics: metrics,
		}),
		Configure: func(ctx context.Context) (*transcription.Session, error) {
			return transcription.ConfigureFor(ctx, cfg, app.Backend)
		},
		Submitter:     app.Backend,
		Results:       app.Store,
		Publisher:     publisher,
		Notifier:      con,
		OnUpdate:      con.Update,
		Metrics:       metrics,
		CorrelationID: correlationID,
	})

	con.Println(fmt.Sprintf("%s interview (%s), %d questions. Type :help for commands.",
		plan.Config.Role, plan.Config.Difficulty, len(plan.Questions)))
	go readCommands(in, loop, con)

	result, err := loop.Run(ctx)
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(out)
	details := detailsFromResult(result)
	details.Local = !result.Synced
	if err := report.RenderDetails(out, details); err != nil {
		return result, err
	}
	return result, nil
}
