package console

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"aromabot/pkg/bus"
	"aromabot/pkg/channel"
	"aromabot/pkg/router"
)

// callbackPrefix marks input that presses a button instead of sending text.
const callbackPrefix = "!"

type role int

const (
	roleUser role = iota
	roleBot
	roleError
)

type chatMessage struct {
	role     role
	content  string
	keyboard bus.Keyboard
}

type replyMsg struct {
	reply bus.OutboundMessage
	err   error
}

type bootTickMsg struct{}

type model struct {
	ctx     context.Context
	handler channel.Handler
	info    Info

	theme     theme
	spinner   spinner.Model
	input     textinput.Model
	viewport  viewport.Model
	messages  []chatMessage
	keyboard  bus.Keyboard
	width     int
	height    int
	isReady   bool
	isLoading bool
	lastErr   string
	booting   bool
	bootStep  int
	followLog bool
	presses   int
}

func newModel(ctx context.Context, handler channel.Handler, info Info) *model {
	spin := spinner.New()
	spin.Spinner = spinner.Points
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))

	in := textinput.New()
	in.Prompt = ""
	in.Placeholder = "Напишите сообщение или !payload для кнопки..."
	in.Focus()
	in.CharLimit = 0

	return &model{
		ctx:       ctx,
		handler:   handler,
		info:      info,
		theme:     defaultTheme(),
		spinner:   spin,
		input:     in,
		viewport:  viewport.New(80, 12),
		width:     100,
		height:    28,
		booting:   true,
		followLog: true,
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
		if m.bootStep < len(bootScriptLines())+1 {
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
	case replyMsg:
		m.isLoading = false
		if typed.err != nil {
			m.lastErr = typed.err.Error()
			m.messages = append(m.messages, chatMessage{role: roleError, content: typed.err.Error()})
		} else {
			m.lastErr = ""
			m.keyboard = typed.reply.Keyboard
			m.messages = append(m.messages, chatMessage{
				role:     roleBot,
				content:  typed.reply.Text,
				keyboard: typed.reply.Keyboard,
			})
		}
		m.refreshViewport(false)
	}

	return m, cmd
}

func (m *model) submit() tea.Cmd {
	if m.isLoading {
		return nil
	}

	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return nil
	}
	if isExitCommand(text) {
		return tea.Quit
	}

	event, label := m.eventFor(text)

	m.lastErr = ""
	m.messages = append(m.messages, chatMessage{role: roleUser, content: label})
	m.input.SetValue("")
	m.isLoading = true
	m.followLog = true
	m.refreshViewport(true)
	return tea.Batch(m.spinner.Tick, sendCmd(m.ctx, m.handler, event))
}

// eventFor turns console input into an inbound event. "!payload" presses a
// callback button and "!N" presses the N-th button of the last keyboard.
func (m *model) eventFor(text string) (router.InboundEvent, string) {
	userName := m.info.UserName
	if strings.TrimSpace(userName) == "" {
		userName = "Console"
	}

	payload, ok := strings.CutPrefix(text, callbackPrefix)
	if !ok {
		return router.TextMessage{
			ChatID:          ChatID,
			UserID:          ChatID,
			UserDisplayName: userName,
			Text:            text,
		}, text
	}

	payload = strings.TrimSpace(payload)
	label := "▶ " + payload
	if button, found := buttonAt(m.keyboard, payload); found {
		payload = button.Data
		label = "▶ " + button.Text
	}

	m.presses++
	return router.CallbackEvent{
		ChatID:          ChatID,
		UserID:          ChatID,
		UserDisplayName: userName,
		CallbackID:      fmt.Sprintf("console-%d", m.presses),
		Payload:         payload,
	}, label
}

// buttonAt resolves a 1-based button index across all keyboard rows.
func buttonAt(keyboard bus.Keyboard, ref string) (bus.Button, bool) {
	index, err := strconv.Atoi(ref)
	if err != nil || index < 1 {
		return bus.Button{}, false
	}

	for _, row := range keyboard {
		if index <= len(row) {
			return row[index-1], true
		}
		index -= len(row)
	}

	return bus.Button{}, false
}

func (m *model) View() string {
	if !m.isReady {
		m.resizeComponents()
		m.refreshViewport(false)
	}
	if m.booting {
		return m.bootView()
	}

	header := m.theme.header.Width(m.width - 2).Render("🌿 AromaBot Console")
	meta := m.theme.headerMeta.Render(fmt.Sprintf(
		"provider:%s · model:%s · oils:%d · requests:%d",
		displayOrNA(m.info.Provider),
		displayOrNA(m.info.Model),
		m.info.Oils,
		requestCount(m.messages),
	))
	line := m.theme.divider.Width(m.width - 2).Render(strings.Repeat("═", max(8, m.width-2)))

	status := m.theme.status.Render("💡 Enter send  ·  !N press button  ·  PgUp/PgDn scroll  ·  🛑 Ctrl+C/Esc quit")
	if m.isLoading {
		status = m.theme.statusBusy.Render(fmt.Sprintf("%s 🌱 бот думает...", m.spinner.View()))
	}
	if m.lastErr != "" {
		status = m.theme.statusErr.Render("🚨 last request failed - try again")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		meta,
		line,
		m.theme.viewport.Width(m.width-2).Render(m.viewport.View()),
		status,
		m.theme.inputLabel.Render("🙂 Вы")+" "+m.theme.hint.Render("(type /exit, quit, or :q)"),
		m.theme.input.Width(m.width-2).Render(m.input.View()),
	)
}

func (m *model) resizeComponents() {
	m.viewport.Width = max(50, m.width-6)
	m.viewport.Height = max(8, m.height-10)
	m.input.Width = m.viewport.Width - 2
}

func (m *model) refreshViewport(forceBottom bool) {
	previousOffset := m.viewport.YOffset
	sections := make([]string, 0, len(m.messages))
	for _, item := range m.messages {
		switch item.role {
		case roleUser:
			sections = append(sections, m.renderCard(
				m.theme.userTitle.Render("🙂 you"),
				m.theme.userBox.Width(m.viewport.Width).Render(strings.TrimSpace(item.content)),
			))
		case roleBot:
			body := strings.TrimSpace(item.content)
			if buttons := m.renderKeyboard(item.keyboard); buttons != "" {
				body += "\n\n" + buttons
			}
			sections = append(sections, m.renderCard(
				m.theme.botTitle.Render("🌿 aromabot"),
				m.theme.botBox.Width(m.viewport.Width).Render(body),
			))
		case roleError:
			sections = append(sections, m.renderCard(
				m.theme.errorTitle.Render("ERROR"),
				m.theme.errorBox.Width(m.viewport.Width).Render(strings.TrimSpace(item.content)),
			))
		}
	}

	m.viewport.SetContent(strings.Join(sections, "\n\n"))
	if m.followLog || forceBottom {
		m.viewport.GotoBottom()
		m.followLog = true
		return
	}

	maxOffset := max(0, m.viewport.TotalLineCount()-m.viewport.Height)
	m.viewport.SetYOffset(min(previousOffset, maxOffset))
}

func (m *model) renderKeyboard(keyboard bus.Keyboard) string {
	if keyboard.Empty() {
		return ""
	}

	index := 0
	rows := make([]string, 0, len(keyboard))
	for _, row := range keyboard {
		cells := make([]string, 0, len(row))
		for _, button := range row {
			index++
			cells = append(cells, m.theme.buttonKey.Render(fmt.Sprintf("!%d", index))+" "+m.theme.button.Render(button.Text))
		}
		rows = append(rows, strings.Join(cells, "  "))
	}

	return strings.Join(rows, "\n")
}

func (m *model) renderCard(title string, body string) string {
	return lipgloss.JoinVertical(lipgloss.Left, title, body)
}

func (m *model) bootView() string {
	header := m.theme.header.Width(m.width - 2).Render("🌿 AromaBot Console")
	meta := m.theme.headerMeta.Render("warming up")
	line := m.theme.divider.Width(m.width - 2).Render(strings.Repeat("═", max(8, m.width-2)))

	script := bootScriptLines()
	count := min(m.bootStep, len(script))
	visible := make([]string, 0, count+1)
	for i := range count {
		visible = append(visible, m.theme.bootLine.Render(script[i]))
	}
	if m.bootStep > len(script) {
		visible = append(visible, m.theme.bootDone.Render("✅ console ready"))
	}

	body := m.theme.viewport.Width(m.width - 2).Render(strings.Join(visible, "\n"))
	return lipgloss.JoinVertical(lipgloss.Left, header, meta, line, body)
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

func (m *model) handleViewportMouse(msg tea.MouseMsg) bool {
	if msg.Action != tea.MouseActionPress {
		return false
	}

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.viewport.ScrollUp(3)
		m.followLog = false
		return true
	case tea.MouseButtonWheelDown:
		m.viewport.ScrollDown(3)
		if m.viewport.AtBottom() {
			m.followLog = true
		}
		return true
	default:
		return false
	}
}

func bootScriptLines() []string {
	return []string{
		"[BOOT] opening oil catalog",
		"[BOOT] loading keyword taxonomy",
		"[BOOT] steeping lavender",
	}
}

func sendCmd(ctx context.Context, handler channel.Handler, event router.InboundEvent) tea.Cmd {
	return func() tea.Msg {
		reply, err := handler(ctx, event)
		return replyMsg{reply: reply, err: err}
	}
}

func displayOrNA(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "n/a"
	}

	return trimmed
}

func requestCount(messages []chatMessage) int {
	count := 0
	for _, message := range messages {
		if message.role == roleUser {
			count++
		}
	}

	return count
}

func isExitCommand(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "exit", "/exit", "quit", ":q":
		return true
	default:
		return false
	}
}
