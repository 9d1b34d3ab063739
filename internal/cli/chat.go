package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	chatUser    string
	chatSession string
	chatMessage string
	chatWelcome bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the advisor",
	Long: `Send one message with -m, or start an interactive session reading
messages from stdin. Type /exit or press Ctrl-D to leave.

Examples:
  advisor chat --user u1 -m "Which trainings suit me?"
  advisor chat --user u1 --session onboarding`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVarP(&chatUser, "user", "u", "", "user id (required)")
	chatCmd.Flags().StringVarP(&chatSession, "session", "s", "default", "session id")
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "send a single message and exit")
	chatCmd.Flags().BoolVar(&chatWelcome, "welcome", false, "print the welcome message first")
	chatCmd.MarkFlagRequired("user")
}

func runChat(cmd *cobra.Command, args []string) error {
	svc, err := buildServices(GetConfig(), GetRootDir(), getLogger())
	if err != nil {
		return err
	}
	defer svc.Close()
	svc.warnIfStale()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if chatWelcome || chatMessage == "" {
		msg, err := svc.chat.Welcome(ctx, chatUser)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, msg)
		fmt.Fprintln(out)
	}

	if chatMessage != "" {
		reply, err := svc.chat.HandleMessage(ctx, chatUser, chatMessage, chatSession)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, reply)
		return nil
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		}

		reply, err := svc.chat.HandleMessage(ctx, chatUser, line, chatSession)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(out, "error: %v\n\n", err)
			continue
		}
		fmt.Fprintf(out, "%s\n\n", reply)
	}
}
