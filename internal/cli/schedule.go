package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/prepmate/interview-client/internal/schedule"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Plan practice sessions",
	Long:  `Add, list and remove locally scheduled practice sessions and view them on a month calendar.`,
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List scheduled sessions",
	Long: `List scheduled sessions, optionally filtered by type and a search term
matched against titles and topics.

Examples:
  prepmate schedule list --type interview
  prepmate schedule list --search react`,
	Args: cobra.NoArgs,
	RunE: withApp(runScheduleList),
}

var scheduleAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Schedule a session",
	Long: `Schedule a practice session.

Examples:
  prepmate schedule add "Frontend Mock Interview" --date 2025-07-15 --time "10:00 AM" --type interview --topics React,JavaScript`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(runScheduleAdd),
}

var scheduleRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a scheduled session",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runScheduleRemove),
}

var scheduleMonthCmd = &cobra.Command{
	Use:   "month [YYYY-MM]",
	Short: "Show a month calendar with scheduled days marked",
	Args:  cobra.MaximumNArgs(1),
	RunE:  withApp(runScheduleMonth),
}

// Flags
var (
	schedFilter       string
	schedSearch       string
	schedType         string
	schedDate         string
	schedTime         string
	schedDuration     string
	schedLevel        string
	schedTopics       string
	schedParticipants int
	schedOffset       int
)

// clockNow is replaced in tests
var clockNow = time.Now

func init() {
	scheduleListCmd.Flags().StringVar(&schedFilter, "type", schedule.TypeAll, "Filter by type: all, interview, discussion, behavioral")
	scheduleListCmd.Flags().StringVar(&schedSearch, "search", "", "Case-insensitive search over titles and topics")

	f := scheduleAddCmd.Flags()
	f.StringVar(&schedDate, "date", "", "Date as YYYY-MM-DD (required)")
	f.StringVar(&schedTime, "time", "", "Start time, e.g. 10:00 AM")
	f.StringVar(&schedDuration, "duration", "60 min", "Duration")
	f.StringVar(&schedType, "type", schedule.TypeInterview, "Type: interview, discussion, behavioral")
	f.StringVar(&schedLevel, "level", "Intermediate", "Level")
	f.StringVar(&schedTopics, "topics", "", "Comma-separated topics")
	f.IntVar(&schedParticipants, "participants", 1, "Number of participants")
	_ = scheduleAddCmd.MarkFlagRequired("date")

	scheduleMonthCmd.Flags().IntVar(&schedOffset, "offset", 0, "Months to move from the given month, e.g. -1 or 1")

	scheduleCmd.AddCommand(scheduleListCmd)
	scheduleCmd.AddCommand(scheduleAddCmd)
	scheduleCmd.AddCommand(scheduleRemoveCmd)
	scheduleCmd.AddCommand(scheduleMonthCmd)
}

func runScheduleList(cmd *cobra.Command, args []string, app *AppContext) error {
	sessions, err := app.Store.ListSessions(commandContext(cmd))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	matched := schedule.Filter(sessions, strings.ToLower(schedFilter), schedSearch)
	if len(matched) == 0 {
		fmt.Fprintln(out, "No sessions found")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTIME\tTITLE\tTYPE\tLEVEL\tTOPICS\tSTATUS")
	for _, s := range matched {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.Date, s.Time, s.Title, s.Type, s.Level, strings.Join(s.Topics, ", "), s.Status)
	}
	return tw.Flush()
}

func runScheduleAdd(cmd *cobra.Command, args []string, app *AppContext) error {
	sess, err := schedule.New(schedule.Session{
		Title:        strings.TrimSpace(args[0]),
		Date:         schedDate,
		Time:         schedTime,
		Duration:     schedDuration,
		Type:         strings.ToLower(schedType),
		Level:        schedLevel,
		Topics:       splitList(schedTopics),
		Participants: schedParticipants,
	})
	if err != nil {
		return err
	}

	if err := app.Store.AddSession(commandContext(cmd), sess); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Scheduled %q on %s (%s)\n", sess.Title, sess.Date, sess.ID)
	return nil
}

func runScheduleRemove(cmd *cobra.Command, args []string, app *AppContext) error {
	if err := app.Store.RemoveSession(commandContext(cmd), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
	return nil
}

func runScheduleMonth(cmd *cobra.Command, args []string, app *AppContext) error {
	today := clockNow()
	year, month := today.Year(), today.Month()
	if len(args) == 1 {
		t, err := time.Parse("2006-01", args[0])
		if err != nil {
			return fmt.Errorf("invalid month %q (expected YYYY-MM)", args[0])
		}
		year, month = t.Year(), t.Month()
	}
	year, month = schedule.ShiftMonth(year, month, schedOffset)

	sessions, err := app.Store.ListSessions(commandContext(cmd))
	if err != nil {
		return err
	}
	return schedule.RenderMonth(cmd.OutOrStdout(), year, month, sessions, today)
}
