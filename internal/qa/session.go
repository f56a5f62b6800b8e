// Package qa is the conversational question-answering state machine:
// client-side message history, per-turn scoping to a user and a set of
// subgraphs, and evidence visualization layered on the render synchronizer.
package qa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/maolala233/smart-brain/api/schemas"
	"github.com/maolala233/smart-brain/internal/render"
)

// ErrBusy is returned while a turn is still awaiting its answer.
var ErrBusy = errors.New("question already in flight")

// Session holds one conversation. Messages are append-only and live only in
// memory; changing the scope mid-conversation never discards them.
type Session struct {
	api           schemas.GraphAPI
	render        *render.Sync
	historyWindow int
	log           *zap.Logger

	mu          sync.Mutex
	userID      int64
	subgraphIDs []int64
	senderLabel string
	messages    []schemas.ConversationMessage
	lastErr     string
	busy        bool

	// At most one evidence modal may be open; opening another destroys
	// this handle first.
	evidenceHandle *render.Handle
}

// NewSession creates an empty conversation. historyWindow bounds how many
// trailing messages are replayed to the backend per turn.
func NewSession(api schemas.GraphAPI, renderSync *render.Sync, historyWindow int, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if historyWindow < 0 {
		historyWindow = 0
	}
	return &Session{
		api:           api,
		render:        renderSync,
		historyWindow: historyWindow,
		log:           logger.Named("qa"),
	}
}

// SelectUser switches the conversation scope to another user and resets the
// subgraph selection to empty, mirroring the cascade in the subgraph
// manager. Prior messages are kept; only new turns use the new scope.
func (s *Session) SelectUser(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID == userID {
		return
	}
	s.userID = userID
	s.subgraphIDs = nil
}

// SetSubgraphs replaces the set of subgraphs new turns query against.
// Multiple subgraphs are allowed for cross-graph questions.
func (s *Session) SetSubgraphs(ids []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subgraphIDs = append([]int64(nil), ids...)
}

// SetSenderLabel names the assistant in subsequent answers, typically with
// the persona's display name.
func (s *Session) SetSenderLabel(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.senderLabel = label
}

// Messages returns a copy of the conversation so far.
func (s *Session) Messages() []schemas.ConversationMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]schemas.ConversationMessage(nil), s.messages...)
}

// LastError returns the error string of the most recent failed turn, empty
// after a successful or newly attempted turn.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Ask submits one turn. A turn needs a selected user, at least one selected
// subgraph and non-blank question text; otherwise it is rejected locally
// and nothing is appended. The user message is appended optimistically
// before the request; on failure no assistant message appears and the error
// string is retained for display.
func (s *Session) Ask(ctx context.Context, question string) (schemas.ConversationMessage, error) {
	question = strings.TrimSpace(question)

	s.mu.Lock()
	if question == "" {
		s.mu.Unlock()
		return schemas.ConversationMessage{}, schemas.NewValidationError("question", "must not be blank")
	}
	if s.userID == 0 {
		s.mu.Unlock()
		return schemas.ConversationMessage{}, schemas.NewValidationError("user", "no user selected")
	}
	if len(s.subgraphIDs) == 0 {
		s.mu.Unlock()
		return schemas.ConversationMessage{}, schemas.NewValidationError("subgraphs", "no subgraph selected")
	}
	if s.busy {
		s.mu.Unlock()
		return schemas.ConversationMessage{}, ErrBusy
	}
	s.busy = true
	s.lastErr = ""

	history := s.historyLocked()
	userID := s.userID
	subgraphIDs := append([]int64(nil), s.subgraphIDs...)

	userMsg := schemas.ConversationMessage{
		ID:      uuid.New().String(),
		Role:    schemas.RoleUser,
		Content: question,
	}
	s.messages = append(s.messages, userMsg)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	resp, err := s.api.SmartQA(ctx, userID, schemas.QARequest{
		Query:       question,
		SubgraphIDs: subgraphIDs,
		History:     history,
	})
	if err != nil {
		s.mu.Lock()
		s.lastErr = err.Error()
		s.mu.Unlock()
		s.log.Warn("QA turn failed", zap.Int64("user_id", userID), zap.Error(err))
		return schemas.ConversationMessage{}, err
	}

	assistant := schemas.ConversationMessage{
		ID:      uuid.New().String(),
		Role:    schemas.RoleAssistant,
		Content: resp.Answer,
	}
	if resp.Context != nil {
		assistant.SearchStrategies = append([]string(nil), resp.Context.SearchStrategies...)
		if len(resp.Context.Nodes) > 0 || len(resp.Context.Relationships) > 0 {
			assistant.Evidence = &schemas.GraphSnapshot{
				Nodes:         resp.Context.Nodes,
				Relationships: resp.Context.Relationships,
			}
		}
	}

	s.mu.Lock()
	assistant.SenderLabel = s.senderLabel
	s.messages = append(s.messages, assistant)
	s.mu.Unlock()

	s.log.Debug("QA turn answered",
		zap.Int64("user_id", userID),
		zap.Int64s("subgraph_ids", subgraphIDs),
		zap.Bool("has_evidence", assistant.Evidence != nil),
	)
	return assistant, nil
}

// historyLocked maps the trailing message window to role-tagged transcript
// entries, oldest first. Caller holds the mutex.
func (s *Session) historyLocked() []schemas.HistoryEntry {
	start := len(s.messages) - s.historyWindow
	if start < 0 {
		start = 0
	}
	window := s.messages[start:]
	history := make([]schemas.HistoryEntry, 0, len(window))
	for _, msg := range window {
		history = append(history, schemas.HistoryEntry{Role: msg.Role, Content: msg.Content})
	}
	return history
}

// OpenEvidence renders a message's evidence snapshot into a fresh engine
// handle scoped to the modal container. Any previously open evidence handle
// is destroyed first; two evidence views never share engine state.
func (s *Session) OpenEvidence(messageID, container string) (*render.Handle, error) {
	s.mu.Lock()
	var evidence *schemas.GraphSnapshot
	for _, msg := range s.messages {
		if msg.ID == messageID {
			evidence = msg.Evidence
			break
		}
	}
	previous := s.evidenceHandle
	s.mu.Unlock()

	if evidence == nil {
		return nil, schemas.NewValidationError("message", fmt.Sprintf("message %s has no evidence", messageID))
	}

	if previous != nil {
		if err := s.render.Detach(previous); err != nil {
			s.log.Warn("Failed to detach previous evidence handle", zap.Error(err))
		}
	}

	handle, err := s.render.Attach(container)
	if err != nil {
		return nil, err
	}
	if err := s.render.Update(handle, *evidence); err != nil {
		// Scoped acquisition: release on the error path too.
		_ = s.render.Detach(handle)
		return nil, err
	}

	s.mu.Lock()
	s.evidenceHandle = handle
	s.mu.Unlock()
	return handle, nil
}

// CloseEvidence releases the open evidence handle, if any.
func (s *Session) CloseEvidence() error {
	s.mu.Lock()
	handle := s.evidenceHandle
	s.evidenceHandle = nil
	s.mu.Unlock()

	if handle == nil {
		return nil
	}
	return s.render.Detach(handle)
}
