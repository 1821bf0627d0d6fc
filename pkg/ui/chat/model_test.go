package chat

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestParseInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line        string
		wantType    string
		wantContent string
	}{
		{line: "hello there", wantType: "text", wantContent: "hello there"},
		{line: "/image cat.png", wantType: "image", wantContent: "cat.png"},
		{line: "/location  52.52,13.40 ", wantType: "location", wantContent: "52.52,13.40"},
		{line: "/video", wantType: "video", wantContent: ""},
		{line: "/ leading slash", wantType: "text", wantContent: "/ leading slash"},
	}

	for _, tt := range tests {
		gotType, gotContent := parseInput(tt.line)
		if gotType != tt.wantType || gotContent != tt.wantContent {
			t.Fatalf("parseInput(%q) = (%q, %q), want (%q, %q)", tt.line, gotType, gotContent, tt.wantType, tt.wantContent)
		}
	}
}

func TestReplyEntryRoles(t *testing.T) {
	t.Parallel()

	if got := replyEntry(Reply{Kind: "ok", Text: "done"}).role; got != roleReply {
		t.Fatalf("ok role = %v, want reply", got)
	}
	if got := replyEntry(Reply{Kind: "intercepted", Text: "message intercepted by middleware"}).role; got != roleIntercepted {
		t.Fatalf("intercepted role = %v, want intercepted", got)
	}
	if got := replyEntry(Reply{Kind: "length_exceeded", Text: "message length exceeds limit (5)"}).role; got != roleRejected {
		t.Fatalf("length_exceeded role = %v, want rejected", got)
	}
	if got := replyEntry(Reply{Kind: "unsupported_type", Text: "unsupported message type: video", Failed: true}).role; got != roleFailed {
		t.Fatalf("failed role = %v, want failed", got)
	}
}

func TestSubmitDispatchesParsedInput(t *testing.T) {
	t.Parallel()

	var gotType, gotContent string
	dispatch := func(_ context.Context, msgType string, content string) Reply {
		gotType, gotContent = msgType, content
		return Reply{Kind: "unsupported_type", Text: "unsupported message type: " + msgType, Failed: true}
	}

	m := newModel(context.Background(), dispatch, RuntimeInfo{Sender: "tester"})
	m.booting = false
	m.input.SetValue("/video clip.mp4")

	cmd := m.submit()
	if cmd == nil {
		t.Fatal("expected a dispatch command")
	}
	if !m.isLoading {
		t.Fatal("expected model to be loading after submit")
	}
	if m.input.Value() != "" {
		t.Fatalf("input = %q, want cleared", m.input.Value())
	}

	result := dispatchCmd(m.ctx, m.dispatchFn, "video", "clip.mp4")()
	if gotType != "video" || gotContent != "clip.mp4" {
		t.Fatalf("dispatched (%q, %q), want (video, clip.mp4)", gotType, gotContent)
	}

	m.Update(result)
	if m.isLoading {
		t.Fatal("expected loading to stop after result")
	}
	if m.failed != 1 || m.dispatched != 1 {
		t.Fatalf("counters = %d/%d, want 1/1", m.dispatched, m.failed)
	}
	if m.lastErr != "unsupported message type: video" {
		t.Fatalf("lastErr = %q", m.lastErr)
	}
	if len(m.entries) != 2 || m.entries[1].role != roleFailed {
		t.Fatalf("entries = %+v", m.entries)
	}
}

func TestSubmitExitCommandQuits(t *testing.T) {
	t.Parallel()

	m := newModel(context.Background(), nil, RuntimeInfo{})
	m.booting = false
	m.input.SetValue(":q")

	cmd := m.submit()
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
}

func TestThemeHasCardForEveryRole(t *testing.T) {
	t.Parallel()

	th := defaultTheme()
	for _, role := range []entryRole{roleUser, roleReply, roleIntercepted, roleRejected, roleFailed} {
		if _, ok := th.cards[role]; !ok {
			t.Fatalf("theme has no card style for role %d", role)
		}
	}
}
