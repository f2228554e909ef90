package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kirillkom/webpage-chat/internal/core/domain"
)

type chatFake struct {
	urls      []string
	questions []string
	clears    int
	indexErr  error
	askErr    error
	indexed   bool
}

func (f *chatFake) SubmitURL(_ context.Context, url string) (*domain.IndexResult, error) {
	f.urls = append(f.urls, url)
	if f.indexErr != nil {
		return nil, f.indexErr
	}
	if f.indexed {
		return &domain.IndexResult{URL: "https://first.example", Passages: 2, Ignored: true}, nil
	}
	f.indexed = true
	return &domain.IndexResult{URL: url, Passages: 2, State: domain.SessionIndexed}, nil
}

func (f *chatFake) Ask(_ context.Context, question string) (*domain.Answer, error) {
	f.questions = append(f.questions, question)
	if f.askErr != nil {
		return nil, f.askErr
	}
	if !f.indexed {
		return &domain.Answer{Text: domain.GuidanceMessage, Mode: domain.PromptModeGuidance}, nil
	}
	return &domain.Answer{Text: "reply to " + question, Mode: domain.PromptModeGrounded}, nil
}

func (f *chatFake) Clear(context.Context) (*domain.SessionSnapshot, error) {
	f.clears++
	f.indexed = false
	return &domain.SessionSnapshot{State: domain.SessionEmpty}, nil
}

func newReadyModel(chat ChatPort) Model {
	m := New(context.Background(), chat)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(Model)
}

// press sends a key and runs every resulting command until the model settles.
func press(t *testing.T, m Model, key tea.KeyMsg) Model {
	t.Helper()
	next, cmd := m.Update(key)
	m = next.(Model)
	for _, msg := range drain(cmd) {
		next, _ = m.Update(msg)
		m = next.(Model)
	}
	return m
}

func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, drain(c)...)
		}
		return out
	case indexDoneMsg, answerDoneMsg, clearDoneMsg:
		return []tea.Msg{msg}
	default:
		return nil
	}
}

// tab switches focus without waiting on the cursor blink command.
func tab(m Model) Model {
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	return next.(Model)
}

func enter() tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyEnter} }

func TestSubmitURLShowsLoadedNoticeAndFocusesQuestion(t *testing.T) {
	chat := &chatFake{}
	m := newReadyModel(chat)
	m.urlInput.SetValue(" https://go.dev ")

	m = press(t, m, enter())

	if len(chat.urls) != 1 || chat.urls[0] != "https://go.dev" {
		t.Fatalf("unexpected submitted urls: %v", chat.urls)
	}
	if !strings.HasPrefix(m.status, LoadedNotice) || m.statusErr {
		t.Fatalf("unexpected status %q", m.status)
	}
	if m.focus != focusQuestion || m.busy {
		t.Fatalf("expected idle model focused on question, got focus=%v busy=%v", m.focus, m.busy)
	}
	if !strings.Contains(m.View(), "https://go.dev") {
		t.Fatalf("expected loaded url in header")
	}
}

func TestSecondURLIsIgnored(t *testing.T) {
	chat := &chatFake{indexed: true}
	m := newReadyModel(chat)
	m.urlInput.SetValue("https://other.example")

	m = press(t, m, enter())
	if m.status != IgnoredNotice {
		t.Fatalf("expected ignored notice, got %q", m.status)
	}
}

func TestAskAppendsExchangeToTranscript(t *testing.T) {
	chat := &chatFake{indexed: true}
	m := newReadyModel(chat)
	m = tab(m)
	m.questionInput.SetValue("What is Go?")

	m = press(t, m, enter())

	if len(m.transcript) != 2 {
		t.Fatalf("expected 2 transcript entries, got %d", len(m.transcript))
	}
	if m.transcript[1].text != "reply to What is Go?" || m.questionInput.Value() != "" {
		t.Fatalf("unexpected transcript %+v", m.transcript)
	}
	if !strings.Contains(m.renderTranscript(), "reply to What is Go?") {
		t.Fatalf("expected answer in rendered transcript")
	}
}

func TestAskWithoutPageShowsGuidance(t *testing.T) {
	m := newReadyModel(&chatFake{})
	m = tab(m)
	m.questionInput.SetValue("hello?")

	m = press(t, m, enter())
	if len(m.transcript) != 2 || m.transcript[1].text != domain.GuidanceMessage {
		t.Fatalf("expected guidance reply, got %+v", m.transcript)
	}
}

func TestFailuresAreShownOnStatusLine(t *testing.T) {
	chat := &chatFake{indexErr: errors.New("fetch failed"), askErr: errors.New("llm down")}
	m := newReadyModel(chat)
	m.urlInput.SetValue("https://go.dev")
	m = press(t, m, enter())
	if !m.statusErr || !strings.Contains(m.status, "fetch failed") || m.focus != focusURL {
		t.Fatalf("expected fetch error on status line, got %q", m.status)
	}

	m = tab(m)
	m.questionInput.SetValue("q")
	m = press(t, m, enter())
	if !m.statusErr || !strings.Contains(m.status, "llm down") || len(m.transcript) != 0 {
		t.Fatalf("expected ask error without transcript change, got %q %+v", m.status, m.transcript)
	}
}

func TestInputIgnoredWhileBusy(t *testing.T) {
	chat := &chatFake{}
	m := newReadyModel(chat)
	m.urlInput.SetValue("https://go.dev")

	next, cmd := m.Update(enter())
	m = next.(Model)
	if !m.busy || cmd == nil {
		t.Fatalf("expected busy model with pending command")
	}
	if !strings.Contains(m.View(), "Thinking...") {
		t.Fatalf("expected busy indicator in view")
	}

	next, cmd = m.Update(enter())
	m = next.(Model)
	if cmd != nil || len(chat.urls) != 0 {
		t.Fatalf("expected second enter to be ignored")
	}
}

func TestClearResetsTranscript(t *testing.T) {
	chat := &chatFake{indexed: true}
	m := newReadyModel(chat)
	m.transcript = []transcriptEntry{{role: domain.RoleUser, text: "q"}, {role: domain.RoleAssistant, text: "a"}}
	m.loadedURL = "https://go.dev"
	m.focus = focusQuestion

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})

	if chat.clears != 1 || len(m.transcript) != 0 || m.loadedURL != "" {
		t.Fatalf("expected cleared model, got clears=%d transcript=%v", chat.clears, m.transcript)
	}
	if m.status != ClearedNotice || m.focus != focusURL {
		t.Fatalf("unexpected status %q focus %v", m.status, m.focus)
	}
}

func TestCtrlCQuits(t *testing.T) {
	m := newReadyModel(&chatFake{})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}
