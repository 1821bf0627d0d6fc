package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chatdispatch/pkg/chat"
	chatui "chatdispatch/pkg/ui/chat"

	"github.com/spf13/cobra"
)

var consoleSender string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive dispatch console",
	Long:  "Opens a terminal console that dispatches each entered line. Prefix a line with /<type> to send a non-text message.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, log, err := bootstrap("cmd.chat")
		if err != nil {
			fmt.Printf("%v\n", err)
			return
		}

		rt, err := newDispatchRuntime(cfg, log)
		if err != nil {
			log.Error("Failed to initialize dispatcher", "error", err)
			return
		}
		defer rt.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := chatui.RunInteractive(ctx, consoleDispatcher(rt.system, consoleSender), consoleInfo(rt.system, consoleSender)); err != nil {
			fmt.Printf("console failed: %v\n", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVarP(&consoleSender, "sender", "s", "console", "sender name attached to every message")
}

// consoleDispatcher adapts the system to the console's dispatch callback.
func consoleDispatcher(system *chat.System, sender string) chatui.DispatchFunc {
	return func(ctx context.Context, msgType string, content string) chatui.Reply {
		return replyFromResult(system.Dispatch(ctx, msgType, content, sender))
	}
}

// consoleInfo describes the wired system for the console header.
func consoleInfo(system *chat.System, sender string) chatui.RuntimeInfo {
	return chatui.RuntimeInfo{
		Sender:       sender,
		HandlerTypes: system.HandlerTypes(),
		Middlewares:  system.Middlewares(),
		MaxLength:    system.Config().MaxMessageLength,
	}
}

func replyFromResult(result chat.Result) chatui.Reply {
	return chatui.Reply{
		DispatchID: result.DispatchID,
		Kind:       result.Kind.String(),
		Text:       result.String(),
		Failed:     result.Kind.Failed(),
	}
}
