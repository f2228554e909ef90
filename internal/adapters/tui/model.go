package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kirillkom/webpage-chat/internal/core/domain"
)

const (
	LoadedNotice  = "Webpage loaded successfully! Ask me anything about it."
	IgnoredNotice = "A webpage is already loaded. Press ctrl+l to clear the session before loading another one."
	ClearedNotice = "Session cleared. Enter a new webpage URL."
)

type focusField int

const (
	focusURL focusField = iota
	focusQuestion
)

type transcriptEntry struct {
	role domain.Role
	text string
}

type indexDoneMsg struct {
	result *domain.IndexResult
	err    error
}

type answerDoneMsg struct {
	question string
	answer   *domain.Answer
	err      error
}

type clearDoneMsg struct {
	err error
}

// Model is the Bubble Tea model for the chat window.
type Model struct {
	chat ChatPort
	ctx  context.Context

	urlInput      textinput.Model
	questionInput textinput.Model
	viewport      viewport.Model
	spinner       spinner.Model
	focus         focusField

	transcript []transcriptEntry
	pending    string
	loadedURL  string
	status     string
	statusErr  bool
	busy       bool
	ready      bool
	width      int
}

// New creates the chat model. Blocking calls inherit ctx.
func New(ctx context.Context, chat ChatPort) Model {
	if ctx == nil {
		ctx = context.Background()
	}

	urlInput := textinput.New()
	urlInput.Prompt = "URL > "
	urlInput.Placeholder = "https://example.com/article"
	urlInput.CharLimit = 2048
	urlInput.Focus()

	questionInput := textinput.New()
	questionInput.Prompt = "Ask > "
	questionInput.Placeholder = "Type a question and press Enter"
	questionInput.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return Model{
		chat:          chat,
		ctx:           ctx,
		urlInput:      urlInput,
		questionInput: questionInput,
		viewport:      viewport.New(0, 0),
		spinner:       sp,
		focus:         focusURL,
		status:        "Enter a webpage URL to start. tab switches fields, ctrl+l clears, ctrl+c quits.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		_, th := transcriptBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 1 + 1 + 2*(ih+1) + th // header, status, two input boxes
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved)
		m.refreshTranscript()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case indexDoneMsg:
		m.busy = false
		switch {
		case msg.err != nil:
			m.setError("Could not load webpage: " + msg.err.Error())
		case msg.result.Ignored:
			m.setNotice(IgnoredNotice)
		default:
			m.loadedURL = msg.result.URL
			m.urlInput.SetValue("")
			m.setNotice(fmt.Sprintf("%s (%d passages)", LoadedNotice, msg.result.Passages))
			cmd := m.focusOn(focusQuestion)
			return m, cmd
		}
		return m, nil

	case answerDoneMsg:
		m.busy = false
		m.pending = ""
		if msg.err != nil {
			m.setError("Could not answer: " + msg.err.Error())
			m.refreshTranscript()
			return m, nil
		}
		m.transcript = append(m.transcript,
			transcriptEntry{role: domain.RoleUser, text: msg.question},
			transcriptEntry{role: domain.RoleAssistant, text: msg.answer.Text},
		)
		m.status = ""
		m.statusErr = false
		m.refreshTranscript()
		return m, nil

	case clearDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.setError("Could not clear session: " + msg.err.Error())
			return m, nil
		}
		m.transcript = nil
		m.loadedURL = ""
		m.setNotice(ClearedNotice)
		m.refreshTranscript()
		cmd := m.focusOn(focusURL)
		return m, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if m.busy {
			return m, nil
		}
		switch msg.Type {
		case tea.KeyTab, tea.KeyShiftTab:
			next := focusURL
			if m.focus == focusURL {
				next = focusQuestion
			}
			cmd := m.focusOn(next)
			return m, cmd
		case tea.KeyCtrlL:
			m.busy = true
			return m, tea.Batch(m.spinner.Tick, m.clear())
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyPgUp, tea.KeyPgDown, tea.KeyUp, tea.KeyDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	if m.focus == focusURL {
		m.urlInput, cmd = m.urlInput.Update(msg)
	} else {
		m.questionInput, cmd = m.questionInput.Update(msg)
	}
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.focus == focusURL {
		url := strings.TrimSpace(m.urlInput.Value())
		if url == "" {
			return m, nil
		}
		m.busy = true
		m.setNotice("Loading " + url)
		return m, tea.Batch(m.spinner.Tick, m.submitURL(url))
	}

	question := strings.TrimSpace(m.questionInput.Value())
	if question == "" {
		return m, nil
	}
	m.busy = true
	m.pending = question
	m.questionInput.SetValue("")
	m.status = ""
	m.statusErr = false
	m.refreshTranscript()
	return m, tea.Batch(m.spinner.Tick, m.ask(question))
}

func (m Model) submitURL(url string) tea.Cmd {
	chat, ctx := m.chat, m.ctx
	return func() tea.Msg {
		result, err := chat.SubmitURL(ctx, url)
		return indexDoneMsg{result: result, err: err}
	}
}

func (m Model) ask(question string) tea.Cmd {
	chat, ctx := m.chat, m.ctx
	return func() tea.Msg {
		answer, err := chat.Ask(ctx, question)
		return answerDoneMsg{question: question, answer: answer, err: err}
	}
}

func (m Model) clear() tea.Cmd {
	chat, ctx := m.chat, m.ctx
	return func() tea.Msg {
		_, err := chat.Clear(ctx)
		return clearDoneMsg{err: err}
	}
}

func (m *Model) focusOn(field focusField) tea.Cmd {
	m.focus = field
	if field == focusURL {
		m.questionInput.Blur()
		return m.urlInput.Focus()
	}
	m.urlInput.Blur()
	return m.questionInput.Focus()
}

func (m *Model) setNotice(text string) {
	m.status = text
	m.statusErr = false
}

func (m *Model) setError(text string) {
	m.status = text
	m.statusErr = true
}

func (m *Model) refreshTranscript() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript() string {
	width := max(20, m.viewport.Width)
	if len(m.transcript) == 0 && m.pending == "" {
		return hintStyle.Width(width).Render("No messages yet.")
	}

	blocks := make([]string, 0, len(m.transcript)+1)
	for _, entry := range m.transcript {
		if entry.role == domain.RoleUser {
			blocks = append(blocks, userStyle.Render("You")+"\n"+lipgloss.NewStyle().Width(width).Render(entry.text))
			continue
		}
		blocks = append(blocks, assistantStyle.Render("Assistant")+"\n"+lipgloss.NewStyle().Width(width).Render(entry.text))
	}
	if m.pending != "" {
		blocks = append(blocks, userStyle.Render("You")+"\n"+lipgloss.NewStyle().Width(width).Render(m.pending))
	}
	return strings.Join(blocks, "\n\n")
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	title := "Webpage Chat"
	if m.loadedURL != "" {
		title += "  " + hintStyle.Render(m.loadedURL)
	}
	header := headerStyle.Render(title)

	var status string
	switch {
	case m.busy:
		status = m.spinner.View() + " Thinking..."
	case m.statusErr:
		status = errorStyle.Render(m.status)
	default:
		status = noticeStyle.Render(m.status)
	}

	urlBox := inputBoxStyle
	questionBox := inputBoxStyle
	if m.focus == focusURL {
		urlBox = focusedBoxStyle
	} else {
		questionBox = focusedBoxStyle
	}

	return header + "\n" +
		transcriptBoxStyle.Render(m.viewport.View()) + "\n" +
		urlBox.Render(m.urlInput.View()) + "\n" +
		questionBox.Render(m.questionInput.View()) + "\n" +
		status
}

var (
	headerStyle        = lipgloss.NewStyle().Bold(true)
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	focusedBoxStyle    = inputBoxStyle.Copy().BorderForeground(lipgloss.Color("12"))
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	hintStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	noticeStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	spinnerStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)
