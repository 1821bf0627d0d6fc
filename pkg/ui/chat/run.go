package chat

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Reply is the rendered outcome of one console dispatch.
type Reply struct {
	DispatchID string
	Kind       string
	Text       string
	Failed     bool
}

// DispatchFunc sends one typed message and renders the outcome.
type DispatchFunc func(ctx context.Context, msgType string, content string) Reply

// RuntimeInfo is shown in the console header.
type RuntimeInfo struct {
	Sender       string
	HandlerTypes []string
	Middlewares  []string
	MaxLength    int
}

func RunInteractive(ctx context.Context, dispatchFn DispatchFunc, info RuntimeInfo) error {
	model := newModel(ctx, dispatchFn, info)
	program := tea.NewProgram(model, tea.WithMouseCellMotion())
	_, err := program.Run()
	if err != nil {
		return err
	}

	fmt.Print("\033[H\033[2J")
	fmt.Println(renderGoodbyeBanner())
	return nil
}

func renderGoodbyeBanner() string {
	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("230")).
		Background(lipgloss.Color("88")).
		Padding(1, 2)

	return style.Render("📨 Dispatch console closed")
}
