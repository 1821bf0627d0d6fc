package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"chatdispatch/pkg/config"

	"github.com/spf13/cobra"
)

const (
	previewRunes      = 80
	demoSensitiveWord = "敏感词1"
)

var (
	senderName string
	runDemo    bool
)

type sampleMessage struct {
	msgType string
	content string
	sender  string
}

var processCmd = &cobra.Command{
	Use:   "process [type] [content...]",
	Short: "Dispatch one message or the sample batch",
	Long:  "Dispatches a single typed message and prints the rendered result. With --demo the built-in sample batch is dispatched instead.",
	Run: func(cmd *cobra.Command, args []string) {
		messages, err := resolveMessages(args)
		if err != nil {
			fmt.Printf("invalid arguments: %v\n", err)
			return
		}

		cfg, log, err := bootstrap("cmd.process")
		if err != nil {
			fmt.Printf("%v\n", err)
			return
		}

		if runDemo {
			addDemoSensitiveWord(cfg)
		}

		rt, err := newDispatchRuntime(cfg, log)
		if err != nil {
			log.Error("Failed to initialize dispatcher", "error", err)
			return
		}
		defer rt.Close()

		processMessages(cmd.Context(), rt, messages, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(processCmd)
	processCmd.Flags().StringVarP(&senderName, "sender", "s", "cli", "sender name attached to the message")
	processCmd.Flags().BoolVar(&runDemo, "demo", false, "dispatch the built-in sample batch (adds its sample sensitive word when filtering is on)")
}

func resolveMessages(args []string) ([]sampleMessage, error) {
	if runDemo {
		return sampleMessages(), nil
	}

	if len(args) < 2 {
		return nil, errors.New("expected a message type and content, or --demo")
	}

	msgType := strings.TrimSpace(args[0])
	content := strings.TrimSpace(strings.Join(args[1:], " "))
	if msgType == "" {
		return nil, errors.New("message type is empty")
	}

	return []sampleMessage{{msgType: msgType, content: content, sender: senderName}}, nil
}

// sampleMessages covers every outcome: the three stock types, a sensitive
// word, an unknown type and an oversized text.
func sampleMessages() []sampleMessage {
	return []sampleMessage{
		{msgType: "text", content: "你好，世界！", sender: "张三"},
		{msgType: "image", content: "风景照片.jpg", sender: "李四"},
		{msgType: "location", content: "北京市海淀区", sender: "王五"},
		{msgType: "text", content: "这是一条包含敏感词1的消息", sender: "赵六"},
		{msgType: "unknown", content: "未知类型消息", sender: "钱七"},
		{msgType: "text", content: strings.Repeat("测试", 1000), sender: "周九"},
	}
}

// addDemoSensitiveWord makes the sample batch's filtered message trip the
// sensitive-word middleware when the filter is enabled.
func addDemoSensitiveWord(cfg *config.Config) {
	if !cfg.EnableSensitiveFilter || slices.Contains(cfg.SensitiveWords, demoSensitiveWord) {
		return
	}

	cfg.SensitiveWords = append(slices.Clone(cfg.SensitiveWords), demoSensitiveWord)
}

func processMessages(ctx context.Context, rt *dispatchRuntime, messages []sampleMessage, out io.Writer) {
	if ctx == nil {
		ctx = context.Background()
	}

	for _, msg := range messages {
		fmt.Fprintf(out, "📨 %s - %s\n", msg.msgType, previewText(msg.content, previewRunes))
		result := rt.system.Process(ctx, msg.msgType, msg.content, msg.sender)
		fmt.Fprintf(out, "📬 %s\n\n", result)
	}
}

func previewText(input string, limit int) string {
	runes := []rune(input)
	if len(runes) <= limit {
		return input
	}

	return string(runes[:limit]) + "..."
}
