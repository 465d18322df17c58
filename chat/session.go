// Package chat owns the client-visible state of one active conversation and
// drives it through the backend's streaming completion protocol.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sahabat/chatapi"
	"sahabat/logger"
)

// Role of a local message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// LocalMessage is a client-held, possibly-incomplete chat turn. The list is
// owned exclusively by the Session; loading a thread replaces it wholesale.
type LocalMessage struct {
	ID          string
	Role        Role
	Content     string
	IsStreaming bool
}

// API is the slice of the chat transport the session depends on.
type API interface {
	SendMessage(ctx context.Context, text, threadID, audioBase64 string, events chan<- chatapi.StreamEvent) error
	ListThreads(ctx context.Context) ([]chatapi.Thread, error)
	GetThread(ctx context.Context, threadID string) (*chatapi.ThreadDetail, error)
	DeleteThread(ctx context.Context, threadID string) error
}

// Session is the conversation state machine. All state transitions happen
// under the mutex and are applied in event-arrival order; at most one stream
// is outstanding at a time.
type Session struct {
	mu  sync.RWMutex
	api API
	log *logger.Logger

	messages        []LocalMessage
	threads         []chatapi.Thread
	currentThreadID string
	currentTitle    string
	loading         bool
	streaming       bool
	lastError       string

	streamCancel context.CancelFunc
	streamGen    int
	onChange     func()
}

// NewSession creates a session backed by the given transport.
func NewSession(api API, log *logger.Logger) *Session {
	if log == nil {
		log = logger.NewNop()
	}
	return &Session{api: api, log: log}
}

// SetOnChange registers a hook invoked after every state change, so a UI can
// re-render per applied event rather than per completed stream.
func (s *Session) SetOnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Session) notify() {
	s.mu.RLock()
	fn := s.onChange
	s.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// SendMessage sends one user turn and consumes the response stream until it
// ends. It blocks for the duration of the stream, applying each event before
// awaiting the next. Sending with empty text and no audio is a no-op.
// Starting a new send cancels any stream still in flight.
func (s *Session) SendMessage(ctx context.Context, text, audioBase64 string) error {
	if strings.TrimSpace(text) == "" && audioBase64 == "" {
		return nil
	}

	s.mu.Lock()
	if s.streamCancel != nil {
		s.streamCancel()
	}
	streamCtx, cancel := context.WithCancel(ctx)
	s.streamCancel = cancel
	s.streamGen++
	gen := s.streamGen

	// The superseded stream's placeholder must not stay streaming: drop it
	// when empty, finalize it when it already holds partial content. This
	// keeps at most one streaming message in the list at any time.
	s.settleStreamingLocked()

	s.streaming = true
	s.lastError = ""
	s.messages = append(s.messages, LocalMessage{
		ID:      uuid.New().String(),
		Role:    RoleUser,
		Content: text,
	})
	assistantID := uuid.New().String()
	s.messages = append(s.messages, LocalMessage{
		ID:          assistantID,
		Role:        RoleAssistant,
		IsStreaming: true,
	})
	threadID := s.currentThreadID
	s.mu.Unlock()
	s.notify()

	events := make(chan chatapi.StreamEvent)
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.api.SendMessage(streamCtx, text, threadID, audioBase64, events)
	}()

	var accumulated strings.Builder
	for event := range events {
		if streamCtx.Err() != nil {
			// Cancelled mid-stream: stop applying stale updates.
			break
		}
		s.applyEvent(event, assistantID, &accumulated, gen)
		s.notify()
	}

	err := <-errCh

	s.mu.Lock()
	cancel()
	owner := s.streamGen == gen
	if owner {
		// A newer send or NewThread may already own the stream slot; only
		// the owner clears it.
		s.streaming = false
		s.streamCancel = nil
	}

	// Whatever ended the stream, this sender's placeholder must not stay
	// streaming: drop it when empty, finalize it otherwise.
	s.finalizeStreamMessageLocked(assistantID, accumulated.String())

	if err != nil && !errors.Is(err, context.Canceled) {
		if owner {
			// Transport failure: surface it and drop the placeholder so
			// the UI never shows a dangling empty bubble.
			s.lastError = err.Error()
			s.removeMessageLocked(assistantID)
		}
		s.mu.Unlock()
		s.notify()
		return err
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// applyEvent applies one stream event to the session state. Events from a
// stream that has been superseded or abandoned are dropped under the lock,
// so a cancellation landing between the consumer's context check and the
// apply cannot leak thread state into a reset session.
func (s *Session) applyEvent(event chatapi.StreamEvent, assistantID string, accumulated *strings.Builder, gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.streamGen != gen {
		return
	}

	switch event.Type {
	case chatapi.EventThreadCreated:
		if event.ThreadID != "" {
			s.currentThreadID = event.ThreadID
			go s.refreshThreads()
		}

	case chatapi.EventChunk:
		if event.Content != "" {
			accumulated.WriteString(event.Content)
			s.setMessageContentLocked(assistantID, accumulated.String(), true)
		}

	case chatapi.EventTitleGenerated:
		if event.Title != "" {
			s.currentTitle = event.Title
			go s.refreshThreads()
		}

	case chatapi.EventDone:
		content := event.Content
		if content == "" {
			content = accumulated.String()
		}
		s.setMessageContentLocked(assistantID, content, false)

	case chatapi.EventError:
		// Protocol-level error: surfaced, but any partial content already
		// rendered stays in place.
		s.lastError = event.Content
		if s.lastError == "" {
			s.lastError = "An error occurred"
		}
	}
}

// LoadThread replaces the local conversation wholesale with a persisted one.
func (s *Session) LoadThread(ctx context.Context, threadID string) error {
	s.mu.Lock()
	s.loading = true
	s.lastError = ""
	s.mu.Unlock()
	s.notify()

	detail, err := s.api.GetThread(ctx, threadID)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.lastError = err.Error()
		s.mu.Unlock()
		s.notify()
		return err
	}

	s.currentThreadID = threadID
	s.currentTitle = detail.Thread.Title
	s.messages = make([]LocalMessage, 0, len(detail.Messages))
	for _, msg := range detail.Messages {
		s.messages = append(s.messages, LocalMessage{
			ID:      msg.ID,
			Role:    Role(msg.Role),
			Content: msg.Content,
		})
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// LoadThreads refreshes the thread list. Best-effort: failures are logged,
// never surfaced, since they do not block the conversation.
func (s *Session) LoadThreads(ctx context.Context) {
	threads, err := s.api.ListThreads(ctx)
	if err != nil {
		s.log.Warn("chat", "failed to load threads", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.threads = threads
	s.mu.Unlock()
	s.notify()
}

func (s *Session) refreshThreads() {
	s.LoadThreads(context.Background())
}

// NewThread abandons the current conversation: cancels any in-flight stream
// and clears all local state. Idempotent.
func (s *Session) NewThread() {
	s.mu.Lock()
	if s.streamCancel != nil {
		s.streamCancel()
		s.streamCancel = nil
	}
	// Invalidate the abandoned stream's generation so any events it still
	// delivers are dropped by applyEvent.
	s.streamGen++
	s.currentThreadID = ""
	s.currentTitle = ""
	s.messages = nil
	s.lastError = ""
	s.streaming = false
	s.mu.Unlock()
	s.notify()
}

// DeleteThread removes a thread on the backend and locally. Deleting the
// active thread resets the conversation like NewThread.
func (s *Session) DeleteThread(ctx context.Context, threadID string) error {
	if err := s.api.DeleteThread(ctx, threadID); err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.mu.Unlock()
		s.notify()
		return err
	}

	s.mu.Lock()
	kept := s.threads[:0]
	for _, t := range s.threads {
		if t.ID != threadID {
			kept = append(kept, t)
		}
	}
	s.threads = kept
	wasCurrent := s.currentThreadID == threadID
	s.mu.Unlock()

	if wasCurrent {
		s.NewThread()
	} else {
		s.notify()
	}
	return nil
}

// Messages returns a snapshot of the conversation.
func (s *Session) Messages() []LocalMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]LocalMessage, len(s.messages))
	copy(out, s.messages)
	return out
}

// Threads returns a snapshot of the thread list.
func (s *Session) Threads() []chatapi.Thread {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]chatapi.Thread, len(s.threads))
	copy(out, s.threads)
	return out
}

// CurrentThreadID returns the active thread id, or "" for an unsaved
// conversation.
func (s *Session) CurrentThreadID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentThreadID
}

// CurrentTitle returns the active conversation title, if one exists yet.
func (s *Session) CurrentTitle() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentTitle
}

// IsStreaming reports whether a completion stream is in flight.
func (s *Session) IsStreaming() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.streaming
}

// IsLoading reports whether a thread switch is in progress.
func (s *Session) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the last user-facing error message, or "".
func (s *Session) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// ClearError resets the user-facing error.
func (s *Session) ClearError() {
	s.mu.Lock()
	s.lastError = ""
	s.mu.Unlock()
	s.notify()
}

func (s *Session) setMessageContentLocked(id, content string, streaming bool) {
	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages[i].Content = content
			s.messages[i].IsStreaming = streaming
			return
		}
	}
}

// settleStreamingLocked resolves every message still marked streaming:
// empty ones are removed, partial ones are finalized with their content.
func (s *Session) settleStreamingLocked() {
	kept := s.messages[:0]
	for _, msg := range s.messages {
		if msg.IsStreaming {
			if msg.Content == "" {
				continue
			}
			msg.IsStreaming = false
		}
		kept = append(kept, msg)
	}
	s.messages = kept
}

// finalizeStreamMessageLocked settles one placeholder after its stream has
// ended, whether it completed, failed or was cancelled. A message already
// finalized by a done event is left alone.
func (s *Session) finalizeStreamMessageLocked(id, content string) {
	for i := range s.messages {
		if s.messages[i].ID != id {
			continue
		}
		if !s.messages[i].IsStreaming {
			return
		}
		if s.messages[i].Content == "" && content == "" {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return
		}
		if content != "" {
			s.messages[i].Content = content
		}
		s.messages[i].IsStreaming = false
		return
	}
}

func (s *Session) removeMessageLocked(id string) {
	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return
		}
	}
}
