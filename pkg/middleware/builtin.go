package middleware

import (
	"context"
	"log/slog"
	"strings"

	"chatdispatch/pkg/message"
)

const previewLimit = 120

// Logging records message receipt and completion.
type Logging struct {
	log *slog.Logger
}

func NewLogging(log *slog.Logger) *Logging {
	if log == nil {
		log = slog.Default()
	}

	return &Logging{log: log.With("component", "middleware.logging")}
}

func (l *Logging) Name() string { return "logging" }

func (l *Logging) BeforeProcess(ctx context.Context, msg *message.Context) (bool, error) {
	l.log.InfoContext(ctx, "Received message", "sender", msg.Sender())
	return true, nil
}

func (l *Logging) AfterProcess(ctx context.Context, result string, msg *message.Context) (string, error) {
	l.log.InfoContext(ctx, "Message processed", "sender", msg.Sender(), "result", preview(result))
	return result, nil
}

// SensitiveWord rejects textual messages containing any configured word.
// Non-textual content always passes.
type SensitiveWord struct {
	Base
	words []string
}

func NewSensitiveWord(words []string) *SensitiveWord {
	clean := make([]string, 0, len(words))
	for _, word := range words {
		if word == "" {
			continue
		}
		clean = append(clean, word)
	}

	return &SensitiveWord{words: clean}
}

func (s *SensitiveWord) Name() string { return "sensitive_word" }

func (s *SensitiveWord) BeforeProcess(_ context.Context, msg *message.Context) (bool, error) {
	text, ok := msg.Text()
	if !ok {
		return true, nil
	}

	for _, word := range s.words {
		if strings.Contains(text, word) {
			return false, nil
		}
	}

	return true, nil
}

func preview(text string) string {
	trimmed := strings.TrimSpace(text)
	runes := []rune(trimmed)
	if len(runes) <= previewLimit {
		return trimmed
	}

	return string(runes[:previewLimit]) + "..."
}
