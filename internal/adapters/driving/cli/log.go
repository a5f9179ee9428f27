package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

// logTimeLayout matches the diagnostic log file.
const logTimeLayout = "2006-01-02 15:04:05"

var logLimit int

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show recent diagnostic messages",
	Long: `Show the most recent status and error messages recorded by export
runs, newest first.`,
	Args: cobra.NoArgs,
	RunE: runLog,
}

func init() {
	logCmd.Flags().IntVarP(&logLimit, "limit", "n", 20, "maximum number of messages")
	rootCmd.AddCommand(logCmd)
}

func runLog(cmd *cobra.Command, _ []string) error {
	if messageLog == nil {
		return errors.New("message log not configured")
	}

	entries, err := messageLog.Recent(cmd.Context(), logLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		cmd.Println("No messages recorded.")
		return nil
	}

	for _, e := range entries {
		run := e.RunID
		if run == "" {
			run = "-"
		}
		cmd.Printf("%s | %-8s | %s | %s\n", e.Time.Local().Format(logTimeLayout), e.Level, run, e.Message)
	}
	return nil
}
