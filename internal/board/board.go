package board

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jvcardoso/pro-team-care-console/internal/api"
	"github.com/jvcardoso/pro-team-care-console/internal/model"
	"github.com/jvcardoso/pro-team-care-console/internal/service"
)

// Manager is the single source of truth for the loaded board and the
// currently open card detail. Every operation does one backend call and
// reconciles local state under the manager's lock; concurrent operations are
// serialized rather than interleaved.
type Manager struct {
	svc    *service.KanbanService
	logger *slog.Logger

	mu          sync.Mutex
	board       model.Board
	loaded      bool
	openCard    *model.CardDetails
	proposal    *Proposal
	subscribers []func()
}

// Proposal is a card draft plus the backend's AI suggestions, held in memory
// between Propose and Confirm. Abandoning it persists nothing further; the
// stub created by the propose call stays server-side until confirmed or
// cleaned up.
type Proposal struct {
	Draft      service.CardDraft
	Suggestion model.CardSuggestion
}

func NewManager(svc *service.KanbanService, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{svc: svc, logger: logger}
}

// Subscribe registers a callback invoked after every successful state
// change. Returns an unsubscribe func.
func (m *Manager) Subscribe(fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
	index := len(m.subscribers) - 1
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if index < len(m.subscribers) {
			m.subscribers[index] = nil
		}
	}
}

func (m *Manager) notifyLocked() {
	for _, fn := range m.subscribers {
		if fn != nil {
			fn()
		}
	}
}

// Board returns a deep copy of the current board.
func (m *Manager) Board() (model.Board, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyBoard(m.board), m.loaded
}

// Load fetches the full board. On failure the previous board state is kept:
// stale-but-present beats a blank screen.
func (m *Manager) Load(ctx context.Context) error {
	fresh, err := m.svc.GetBoard(ctx)
	if err != nil {
		m.logger.Warn("board load failed", "error", api.MessageOf(err))
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.board = fresh
	m.loaded = true
	m.logger.Info("board loaded", "columns", len(fresh.Columns), "cards", countCards(fresh))
	m.notifyLocked()
	return nil
}

// MoveCard applies the move optimistically, then asks the backend. When the
// backend refuses, the pre-move snapshot is restored so the local board never
// stays on state the server rejected.
//
// Dropping a card on its current column at its current index is a no-op: no
// mutation and no request.
func (m *Manager) MoveCard(ctx context.Context, cardID, toColumnID int64, position *int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fromColumnID, fromIndex, ok := m.findCardLocked(cardID)
	if !ok {
		return &api.Error{Code: api.CodeNotFound, Message: fmt.Sprintf("card %d is not on the board", cardID)}
	}
	if _, ok := m.board.CardsByColumn[toColumnID]; !ok && !m.hasColumnLocked(toColumnID) {
		return &api.Error{Code: api.CodeValidation, Message: fmt.Sprintf("column %d is not on the board", toColumnID)}
	}

	toIndex := len(m.board.CardsByColumn[toColumnID])
	if fromColumnID == toColumnID {
		toIndex-- // removing first shrinks the target list
	}
	if position != nil {
		toIndex = *position
	}
	if fromColumnID == toColumnID && toIndex == fromIndex {
		return nil
	}

	snapshot := copyBoard(m.board)

	card := m.board.CardsByColumn[fromColumnID][fromIndex]
	m.board.CardsByColumn[fromColumnID] = append(
		m.board.CardsByColumn[fromColumnID][:fromIndex],
		m.board.CardsByColumn[fromColumnID][fromIndex+1:]...,
	)
	card.ColumnID = toColumnID
	target := m.board.CardsByColumn[toColumnID]
	if toIndex < 0 {
		toIndex = 0
	}
	if toIndex > len(target) {
		toIndex = len(target)
	}
	target = append(target[:toIndex], append([]model.Card{card}, target[toIndex:]...)...)
	m.board.CardsByColumn[toColumnID] = target

	if _, err := m.svc.MoveCard(ctx, cardID, service.MoveRequest{ColumnID: toColumnID, Position: position}); err != nil {
		m.board = snapshot
		m.logger.Warn("card move rejected, local board restored", "card_id", cardID, "error", api.MessageOf(err))
		return err
	}

	m.logger.Info("card moved", "card_id", cardID, "from_column", fromColumnID, "to_column", toColumnID, "position", toIndex)
	m.notifyLocked()
	return nil
}

// Propose submits a draft for AI analysis and holds the suggestion in memory.
func (m *Manager) Propose(ctx context.Context, draft service.CardDraft) (model.CardSuggestion, error) {
	suggestion, err := m.svc.CreateCard(ctx, draft)
	if err != nil {
		return model.CardSuggestion{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.proposal = &Proposal{Draft: draft, Suggestion: suggestion}
	m.logger.Info("card proposed", "card_id", suggestion.CardID)
	m.notifyLocked()
	return suggestion, nil
}

// Proposal returns the pending proposal, if any.
func (m *Manager) Proposal() (Proposal, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.proposal == nil {
		return Proposal{}, false
	}
	return *m.proposal, true
}

// Confirm persists the human-reviewed data for the pending proposal and
// reloads the board.
func (m *Manager) Confirm(ctx context.Context, validated service.ValidatedCard) (model.Card, error) {
	m.mu.Lock()
	proposal := m.proposal
	m.mu.Unlock()
	if proposal == nil {
		return model.Card{}, &api.Error{Code: api.CodeValidation, Message: "no pending card proposal"}
	}

	card, err := m.svc.ConfirmCard(ctx, proposal.Suggestion.CardID, validated)
	if err != nil {
		return model.Card{}, err
	}

	m.mu.Lock()
	m.proposal = nil
	m.mu.Unlock()

	if err := m.Load(ctx); err != nil {
		// Persisted but not reflected locally; the next load reconciles.
		m.logger.Warn("board reload after confirm failed", "card_id", card.ID, "error", api.MessageOf(err))
	}
	return card, nil
}

// Abandon drops the pending proposal without persisting anything further.
func (m *Manager) Abandon() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.proposal = nil
}

// OpenCard fetches the detail view and marks the card as open. The detail
// can diverge from the board's summary until the next Load.
func (m *Manager) OpenCard(ctx context.Context, cardID int64) (model.CardDetails, error) {
	details, err := m.svc.GetCard(ctx, cardID)
	if err != nil {
		return model.CardDetails{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openCard = &details
	m.notifyLocked()
	return details, nil
}

func (m *Manager) OpenCardDetails() (model.CardDetails, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.openCard == nil {
		return model.CardDetails{}, false
	}
	return *m.openCard, true
}

func (m *Manager) CloseCard() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openCard = nil
}

// UpdateCard edits card fields, then refreshes the open detail when it is the
// same card, or reloads the whole board otherwise. No field-level patching of
// local state.
func (m *Manager) UpdateCard(ctx context.Context, cardID int64, update service.CardUpdate) error {
	if _, err := m.svc.UpdateCard(ctx, cardID, update); err != nil {
		return err
	}
	return m.refreshAfterMutation(ctx, cardID)
}

func (m *Manager) AddMovement(ctx context.Context, cardID int64, draft service.MovementDraft) (model.Movement, error) {
	movement, err := m.svc.AddMovement(ctx, cardID, draft)
	if err != nil {
		return model.Movement{}, err
	}
	if err := m.refreshAfterMutation(ctx, cardID); err != nil {
		return movement, err
	}
	return movement, nil
}

func (m *Manager) CompleteCard(ctx context.Context, cardID int64) error {
	if _, err := m.svc.CompleteCard(ctx, cardID); err != nil {
		return err
	}
	return m.refreshAfterMutation(ctx, cardID)
}

func (m *Manager) DeleteCard(ctx context.Context, cardID int64) error {
	if err := m.svc.DeleteCard(ctx, cardID); err != nil {
		return err
	}
	m.mu.Lock()
	if m.openCard != nil && m.openCard.ID == cardID {
		m.openCard = nil
	}
	m.mu.Unlock()
	return m.Load(ctx)
}

func (m *Manager) refreshAfterMutation(ctx context.Context, cardID int64) error {
	m.mu.Lock()
	openMatches := m.openCard != nil && m.openCard.ID == cardID
	m.mu.Unlock()

	if openMatches {
		_, err := m.OpenCard(ctx, cardID)
		return err
	}
	return m.Load(ctx)
}

// CheckInvariant verifies that every card's ColumnID matches the key of the
// slice holding it. Exposed for tests.
func (m *Manager) CheckInvariant() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for columnID, cards := range m.board.CardsByColumn {
		for _, card := range cards {
			if card.ColumnID != columnID {
				return fmt.Errorf("card %d claims column %d but sits in column %d", card.ID, card.ColumnID, columnID)
			}
		}
	}
	return nil
}

// findCardLocked scans every column's card list. No card→column index is
// kept; board sizes make the linear scan irrelevant.
func (m *Manager) findCardLocked(cardID int64) (columnID int64, index int, ok bool) {
	for id, cards := range m.board.CardsByColumn {
		for i, card := range cards {
			if card.ID == cardID {
				return id, i, true
			}
		}
	}
	return 0, 0, false
}

func (m *Manager) hasColumnLocked(columnID int64) bool {
	for _, column := range m.board.Columns {
		if column.ID == columnID {
			return true
		}
	}
	return false
}

func copyBoard(b model.Board) model.Board {
	out := model.Board{
		Columns:       make([]model.Column, len(b.Columns)),
		CardsByColumn: make(map[int64][]model.Card, len(b.CardsByColumn)),
	}
	copy(out.Columns, b.Columns)
	for columnID, cards := range b.CardsByColumn {
		copied := make([]model.Card, len(cards))
		copy(copied, cards)
		out.CardsByColumn[columnID] = copied
	}
	return out
}

func countCards(b model.Board) int {
	total := 0
	for _, cards := range b.CardsByColumn {
		total += len(cards)
	}
	return total
}
