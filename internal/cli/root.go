// Package cli is the prepmate command tree.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "prepmate",
	Short: "Practice technical interviews from the terminal",
	Long: `prepmate runs timed mock interviews against the interview-preparation API.

Answer questions by voice with live transcription or by typing, review scored
results and history, keep a profile, and plan practice sessions.`,
	SilenceUsage: true,
}

// Execute runs the command tree. SIGINT and SIGTERM cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(scheduleCmd)
}
