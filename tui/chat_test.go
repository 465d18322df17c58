package tui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"sahabat/chat"
	"sahabat/chatapi"
)

type stubAPI struct{}

func (stubAPI) SendMessage(ctx context.Context, text, threadID, audioBase64 string, events chan<- chatapi.StreamEvent) error {
	close(events)
	return nil
}

func (stubAPI) ListThreads(ctx context.Context) ([]chatapi.Thread, error) {
	return nil, nil
}

func (stubAPI) GetThread(ctx context.Context, threadID string) (*chatapi.ThreadDetail, error) {
	return nil, errors.New("no such thread")
}

func (stubAPI) DeleteThread(ctx context.Context, threadID string) error {
	return nil
}

func TestSendCmdUnreadableAttachment(t *testing.T) {
	session := chat.NewSession(stubAPI{}, nil)
	missing := filepath.Join(t.TempDir(), "absent.ogg")

	msg := sendCmd(session, "halo", missing)()
	attErr, ok := msg.(attachmentErrMsg)
	if !ok {
		t.Fatalf("Expected attachmentErrMsg, got %T", msg)
	}
	if attErr.err == nil {
		t.Error("Expected an encode error")
	}
	if attErr.path != missing {
		t.Errorf("Expected the attachment path carried back, got %q", attErr.path)
	}
	if len(session.Messages()) != 0 {
		t.Errorf("Expected no message appended on encode failure, got %d", len(session.Messages()))
	}
}

func TestAttachmentErrorSurfacesAndRestoresPath(t *testing.T) {
	session := chat.NewSession(stubAPI{}, nil)
	m := NewChatModel(session, "")

	updated, _ := m.Update(attachmentErrMsg{err: errors.New("audio file too large"), path: "note.ogg"})
	m = updated.(chatModel)

	if m.audioPath != "note.ogg" {
		t.Errorf("Expected attachment restored for a retry, got %q", m.audioPath)
	}
	if m.notice != "audio file too large" {
		t.Errorf("Expected error surfaced, got %q", m.notice)
	}

	updated, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = updated.(chatModel)
	if !strings.Contains(m.View(), "audio file too large") {
		t.Error("Expected the banner to show the attachment error")
	}

	// Esc dismisses the banner.
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(chatModel)
	if m.notice != "" {
		t.Errorf("Expected notice cleared on esc, got %q", m.notice)
	}
}

func TestSendFinishedErrorSurfaces(t *testing.T) {
	session := chat.NewSession(stubAPI{}, nil)
	m := NewChatModel(session, "")

	updated, _ := m.Update(sendFinishedMsg{err: errors.New("chat API returned status 500: boom")})
	m = updated.(chatModel)

	if !strings.Contains(m.notice, "500") {
		t.Errorf("Expected send failure surfaced, got %q", m.notice)
	}
}
