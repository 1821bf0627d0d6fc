package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	defaultMessageType = "text"
	mouseScrollLines   = 3
)

type entryRole int

const (
	roleUser entryRole = iota
	roleReply
	roleIntercepted
	roleRejected
	roleFailed
)

type logEntry struct {
	role    entryRole
	title   string
	content string
}

type dispatchResultMsg struct {
	reply Reply
}

type bootTickMsg struct{}

type model struct {
	ctx        context.Context
	dispatchFn DispatchFunc

	theme     theme
	spinner   spinner.Model
	input     textinput.Model
	viewport  viewport.Model
	entries   []logEntry
	width     int
	height    int
	isReady   bool
	isLoading bool
	lastErr   string
	booting   bool
	bootStep  int
	followLog bool
	runtime   RuntimeInfo

	dispatched int
	failed     int
}

func newModel(ctx context.Context, dispatchFn DispatchFunc, info RuntimeInfo) *model {
	spin := spinner.New()
	spin.Spinner = spinner.Points
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	in := textinput.New()
	in.Prompt = ""
	in.Placeholder = "hello, or /image cat.png, or /location 52.52,13.40"
	in.Focus()
	in.CharLimit = 0

	vp := viewport.New(80, 12)

	return &model{
		ctx:        ctx,
		dispatchFn: dispatchFn,
		theme:      defaultTheme(),
		spinner:    spin,
		input:      in,
		viewport:   vp,
		width:      100,
		height:     28,
		booting:    true,
		followLog:  true,
		runtime:    info,
	}
}

func (m *model) Init() tea.Cmd {
	return bootTickCmd()
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		m.resizeComponents()
		m.refreshViewport(false)
		m.isReady = true
		return m, nil
	case bootTickMsg:
		if !m.booting {
			return m, nil
		}

		m.bootStep++
		if m.bootStep < len(m.bootScriptLines())+1 {
			return m, bootTickCmd()
		}

		m.booting = false
		return m, textinput.Blink
	case tea.MouseMsg:
		if !m.booting {
			m.handleViewportMouse(typed)
		}
		return m, nil
	case tea.KeyMsg:
		switch typed.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		}

		if m.booting {
			return m, nil
		}

		if handled := m.handleViewportKey(typed); handled {
			return m, nil
		}

		if typed.String() == "enter" {
			return m, m.submit()
		}
	}

	m.input, cmd = m.input.Update(msg)

	switch typed := msg.(type) {
	case spinner.TickMsg:
		if !m.isLoading {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(typed)
		return m, cmd
	case dispatchResultMsg:
		m.isLoading = false
		m.dispatched++
		m.entries = append(m.entries, replyEntry(typed.reply))
		if typed.reply.Failed {
			m.failed++
			m.lastErr = typed.reply.Text
		} else {
			m.lastErr = ""
		}
		m.refreshViewport(false)
	}

	return m, cmd
}

// submit dispatches the current input line, or quits on an exit command.
func (m *model) submit() tea.Cmd {
	if m.isLoading {
		return nil
	}

	line := strings.TrimSpace(m.input.Value())
	if line == "" {
		return nil
	}
	if isExitCommand(line) {
		return tea.Quit
	}

	msgType, content := parseInput(line)
	m.entries = append(m.entries, logEntry{role: roleUser, title: msgType, content: content})
	m.input.SetValue("")
	m.isLoading = true
	m.followLog = true
	m.refreshViewport(true)
	return tea.Batch(m.spinner.Tick, dispatchCmd(m.ctx, m.dispatchFn, msgType, content))
}

func (m *model) View() string {
	if !m.isReady {
		m.resizeComponents()
		m.refreshViewport(false)
	}
	if m.booting {
		return m.bootView()
	}

	header := m.theme.header.Width(m.width - 2).Render("📨 Chat Dispatch Console")
	meta := m.theme.headerMeta.Render(fmt.Sprintf(
		"sender:%s · handlers:%s · middleware:%s · limit:%d · sent:%d · failed:%d",
		displayOrNA(m.runtime.Sender),
		displayListOrNA(m.runtime.HandlerTypes),
		displayListOrNA(m.runtime.Middlewares),
		m.runtime.MaxLength,
		m.dispatched,
		m.failed,
	))
	line := m.theme.divider.Width(m.width - 2).Render(strings.Repeat("═", max(8, m.width-2)))

	status := m.theme.status.Render("💡 Enter send  ·  /<type> <content>  ·  PgUp/PgDn scroll  ·  End jump latest  ·  🛑 Ctrl+C/Esc quit")
	if m.isLoading {
		status = m.theme.statusBusy.Render(fmt.Sprintf("%s ⚡ dispatching...", m.spinner.View()))
	}
	if m.lastErr != "" {
		status = m.theme.statusErr.Render("🚨 last dispatch failed")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		meta,
		line,
		m.theme.viewport.Width(m.width-2).Render(m.viewport.View()),
		status,
		m.theme.inputLabel.Render("✉️  Message")+" "+m.theme.hint.Render("(type /exit, quit, or :q)"),
		m.theme.input.Width(m.width-2).Render(m.input.View()),
	)
}

func (m *model) resizeComponents() {
	w := m.width - 6
	if w < 50 {
		w = 50
	}
	h := m.height - 10
	if h < 8 {
		h = 8
	}

	m.viewport.Width = w
	m.viewport.Height = h
	m.input.Width = w - 2
}

func (m *model) refreshViewport(forceBottom bool) {
	previousOffset := m.viewport.YOffset
	sections := make([]string, 0, len(m.entries))
	for _, item := range m.entries {
		sections = append(sections, m.renderEntry(item))
	}

	m.viewport.SetContent(strings.Join(sections, "\n\n"))
	if m.followLog || forceBottom {
		m.viewport.GotoBottom()
		m.followLog = true
		return
	}

	maxOffset := m.viewport.TotalLineCount() - m.viewport.Height
	if maxOffset < 0 {
		maxOffset = 0
	}
	if previousOffset > maxOffset {
		previousOffset = maxOffset
	}
	m.viewport.SetYOffset(previousOffset)
}

func (m *model) renderEntry(item logEntry) string {
	style := m.theme.card(item.role)
	title := fmt.Sprintf("▛▚ [ %s ] ▞▜", item.title)

	return m.renderCard(style.title.Render(title), style.body.Width(m.viewport.Width).Render(strings.TrimSpace(item.content)))
}

func (m *model) renderCard(title string, body string) string {
	return lipgloss.JoinVertical(lipgloss.Left, title, body)
}

func (m *model) bootView() string {
	header := m.theme.header.Width(m.width - 2).Render("📨 Chat Dispatch Console")
	meta := m.theme.headerMeta.Render("boot sequence")
	line := m.theme.divider.Width(m.width - 2).Render(strings.Repeat("═", max(8, m.width-2)))

	script := m.bootScriptLines()
	count := min(m.bootStep, len(script))
	visible := make([]string, 0, count+1)
	for i := 0; i < count; i++ {
		visible = append(visible, m.theme.bootLine.Render(script[i]))
	}
	if m.bootStep > len(script) {
		visible = append(visible, m.theme.bootDone.Render("✅ dispatcher online"))
	}

	body := m.theme.viewport.Width(m.width - 2).Render(strings.Join(visible, "\n"))
	return lipgloss.JoinVertical(lipgloss.Left, header, meta, line, body)
}

func (m *model) bootScriptLines() []string {
	return []string{
		"[BOOT] configuration loaded",
		fmt.Sprintf("[BOOT] handlers ready: %s", displayListOrNA(m.runtime.HandlerTypes)),
		fmt.Sprintf("[BOOT] middleware chain: %s", displayListOrNA(m.runtime.Middlewares)),
	}
}

func bootTickCmd() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(_ time.Time) tea.Msg {
		return bootTickMsg{}
	})
}

func (m *model) handleViewportKey(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "pgup", "ctrl+b", "alt+up", "ctrl+up":
		m.viewport.PageUp()
		m.followLog = false
		return true
	case "pgdown", "ctrl+f", "alt+down", "ctrl+down":
		m.viewport.PageDown()
		if m.viewport.AtBottom() {
			m.followLog = true
		}
		return true
	case "home":
		m.viewport.GotoTop()
		m.followLog = false
		return true
	case "end":
		m.viewport.GotoBottom()
		m.followLog = true
		return true
	default:
		return false
	}
}

// handleViewportMouse scrolls on wheel events and reports whether msg was one.
func (m *model) handleViewportMouse(msg tea.MouseMsg) bool {
	if msg.Action != tea.MouseActionPress {
		return false
	}

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.viewport.ScrollUp(mouseScrollLines)
		m.followLog = false
		return true
	case tea.MouseButtonWheelDown:
		m.viewport.ScrollDown(mouseScrollLines)
		if m.viewport.AtBottom() {
			m.followLog = true
		}
		return true
	default:
		return false
	}
}

func dispatchCmd(ctx context.Context, dispatchFn DispatchFunc, msgType string, content string) tea.Cmd {
	return func() tea.Msg {
		if dispatchFn == nil {
			return dispatchResultMsg{reply: Reply{Kind: "system_fault", Text: "no dispatcher configured", Failed: true}}
		}
		return dispatchResultMsg{reply: dispatchFn(ctx, msgType, content)}
	}
}

// parseInput splits "/<type> <content>" into its parts. Anything else is a
// text message.
func parseInput(line string) (string, string) {
	if !strings.HasPrefix(line, "/") {
		return defaultMessageType, line
	}

	msgType, content, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	if msgType == "" {
		return defaultMessageType, line
	}

	return msgType, strings.TrimSpace(content)
}

func replyEntry(reply Reply) logEntry {
	entry := logEntry{role: roleReply, title: reply.Kind, content: reply.Text}
	switch {
	case reply.Failed:
		entry.role = roleFailed
	case reply.Kind == "intercepted":
		entry.role = roleIntercepted
	case reply.Kind != "ok":
		entry.role = roleRejected
	}

	return entry
}

func displayOrNA(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "n/a"
	}

	return trimmed
}

func displayListOrNA(values []string) string {
	return displayOrNA(strings.Join(values, ","))
}

func isExitCommand(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "exit", "/exit", "quit", ":q":
		return true
	default:
		return false
	}
}
