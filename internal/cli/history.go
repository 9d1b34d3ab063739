package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	historyUser    string
	historySession string
	historyJSON    bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the transcript of a session",
	RunE:  runHistory,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the transcript of a session",
	RunE:  runClear,
}

func init() {
	for _, c := range []*cobra.Command{historyCmd, clearCmd} {
		rootCmd.AddCommand(c)
		c.Flags().StringVarP(&historyUser, "user", "u", "", "user id (required)")
		c.Flags().StringVarP(&historySession, "session", "s", "default", "session id")
		c.MarkFlagRequired("user")
	}
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output as JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	svc, err := buildServices(GetConfig(), GetRootDir(), getLogger())
	if err != nil {
		return err
	}
	defer svc.Close()

	turns, err := svc.chat.History(cmd.Context(), historyUser, historySession)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if historyJSON {
		output, _ := json.MarshalIndent(turns, "", "  ")
		fmt.Fprintln(out, string(output))
		return nil
	}

	if len(turns) == 0 {
		fmt.Fprintln(out, "No messages.")
		return nil
	}
	for _, t := range turns {
		fmt.Fprintf(out, "[%s] %s: %s\n", t.Timestamp.Local().Format("2006-01-02 15:04:05"), t.Role, t.Content)
	}
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	svc, err := buildServices(GetConfig(), GetRootDir(), getLogger())
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.chat.ClearHistory(cmd.Context(), historyUser, historySession); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cleared session %q of user %q.\n", historySession, historyUser)
	return nil
}
