package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session storage status",
	Long:  `Show the sessions directory, file format, number of sessions and the last session used.`,
	Args:  cobra.NoArgs,
	RunE: withEnv(func(cmd *cobra.Command, env *commandEnv, args []string) error {
		out := cmd.OutOrStdout()
		names := env.mgr.AvailableSessions()

		fmt.Fprintf(out, "Sessions directory: %s\n", env.mgr.SessionsDir())
		fmt.Fprintf(out, "Format: %s\n", env.mgr.Codec().Name())
		fmt.Fprintf(out, "Sessions: %d\n", len(names))

		last := env.mgr.LastSession()
		if last == "" {
			fmt.Fprintln(out, "Last session: none")
			return nil
		}

		info, err := env.mgr.SessionInfo(last)
		if err != nil {
			fmt.Fprintf(out, "Last session: %s\n", last)
			return nil
		}
		fmt.Fprintf(out, "Last session: %s (saved %s ago)\n", last, formatDuration(time.Since(info.ModTime)))
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
