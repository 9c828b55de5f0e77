package service

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/jvcardoso/pro-team-care-console/internal/api"
	"github.com/jvcardoso/pro-team-care-console/internal/model"
)

// KanbanService maps one console action to one backend call. Response
// normalization happens here and nowhere else.
type KanbanService struct {
	client *api.Client
}

func NewKanbanService(client *api.Client) *KanbanService {
	return &KanbanService{client: client}
}

// boardEnvelope tolerates the two board shapes the backend has shipped:
// a bare Board and a {"board": ...} wrapper.
type boardEnvelope struct {
	Board         *model.Board           `json:"board,omitempty"`
	Columns       []model.Column         `json:"columns,omitempty"`
	CardsByColumn map[int64][]model.Card `json:"cards_by_column,omitempty"`
}

func (s *KanbanService) GetBoard(ctx context.Context) (model.Board, error) {
	var envelope boardEnvelope
	if err := s.client.Get(ctx, "/kanban/board", nil, &envelope); err != nil {
		return model.Board{}, err
	}
	board := model.Board{Columns: envelope.Columns, CardsByColumn: envelope.CardsByColumn}
	if envelope.Board != nil {
		board = *envelope.Board
	}
	if board.CardsByColumn == nil {
		board.CardsByColumn = make(map[int64][]model.Card)
	}
	for _, column := range board.Columns {
		if _, ok := board.CardsByColumn[column.ID]; !ok {
			board.CardsByColumn[column.ID] = []model.Card{}
		}
	}
	return board, nil
}

type CardDraft struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	ColumnID    int64          `json:"column_id"`
	Priority    model.Priority `json:"priority,omitempty"`
	DueDate     string         `json:"due_date,omitempty"`
}

// CreateCard submits a draft for server-side analysis. The returned
// suggestions are not persisted; ConfirmCard does that.
func (s *KanbanService) CreateCard(ctx context.Context, draft CardDraft) (model.CardSuggestion, error) {
	if draft.Priority != "" && !model.ValidPriority(draft.Priority) {
		return model.CardSuggestion{}, &api.Error{Code: api.CodeValidation, Message: fmt.Sprintf("invalid priority: %s", draft.Priority)}
	}
	var suggestion model.CardSuggestion
	if err := s.client.Do(ctx, http.MethodPost, "/kanban/cards", nil, draft, &suggestion); err != nil {
		return model.CardSuggestion{}, err
	}
	return suggestion, nil
}

type ValidatedCard struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Priority    model.Priority `json:"priority"`
	Assignees   []string       `json:"assignees,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	SubTasks    []string       `json:"sub_tasks,omitempty"`
}

// ConfirmCard persists the human-reviewed card data for a proposed card.
func (s *KanbanService) ConfirmCard(ctx context.Context, cardID int64, validated ValidatedCard) (model.Card, error) {
	if validated.Priority != "" && !model.ValidPriority(validated.Priority) {
		return model.Card{}, &api.Error{Code: api.CodeValidation, Message: fmt.Sprintf("invalid priority: %s", validated.Priority)}
	}
	var card model.Card
	err := s.client.Do(ctx, http.MethodPost, fmt.Sprintf("/kanban/cards/%d/validate", cardID), nil, validated, &card)
	if err != nil {
		return model.Card{}, err
	}
	return card, nil
}

func (s *KanbanService) GetCard(ctx context.Context, cardID int64) (model.CardDetails, error) {
	var details model.CardDetails
	if err := s.client.Get(ctx, fmt.Sprintf("/kanban/cards/%d", cardID), nil, &details); err != nil {
		return model.CardDetails{}, err
	}
	if details.Movements == nil {
		details.Movements = []model.Movement{}
	}
	if details.Tags == nil {
		details.Tags = []model.Tag{}
	}
	if details.Assignees == nil {
		details.Assignees = []string{}
	}
	if details.Images == nil {
		details.Images = []model.Image{}
	}
	return details, nil
}

type CardUpdate struct {
	Title       *string         `json:"title,omitempty"`
	Description *string         `json:"description,omitempty"`
	Priority    *model.Priority `json:"priority,omitempty"`
	DueDate     *string         `json:"due_date,omitempty"`
	SubStatus   *string         `json:"sub_status,omitempty"`
}

func (s *KanbanService) UpdateCard(ctx context.Context, cardID int64, update CardUpdate) (model.Card, error) {
	if update.Priority != nil && !model.ValidPriority(*update.Priority) {
		return model.Card{}, &api.Error{Code: api.CodeValidation, Message: fmt.Sprintf("invalid priority: %s", *update.Priority)}
	}
	var card model.Card
	if err := s.client.Do(ctx, http.MethodPut, fmt.Sprintf("/kanban/cards/%d", cardID), nil, update, &card); err != nil {
		return model.Card{}, err
	}
	return card, nil
}

type MoveRequest struct {
	ColumnID int64 `json:"column_id"`
	Position *int  `json:"position,omitempty"`
}

func (s *KanbanService) MoveCard(ctx context.Context, cardID int64, move MoveRequest) (model.Card, error) {
	var card model.Card
	err := s.client.Do(ctx, http.MethodPatch, fmt.Sprintf("/kanban/cards/%d/move", cardID), nil, move, &card)
	if err != nil {
		return model.Card{}, err
	}
	return card, nil
}

func (s *KanbanService) DeleteCard(ctx context.Context, cardID int64) error {
	return s.client.Do(ctx, http.MethodDelete, fmt.Sprintf("/kanban/cards/%d", cardID), nil, nil, nil)
}

func (s *KanbanService) CompleteCard(ctx context.Context, cardID int64) (model.Card, error) {
	var card model.Card
	err := s.client.Do(ctx, http.MethodPost, fmt.Sprintf("/kanban/cards/%d/complete", cardID), nil, nil, &card)
	if err != nil {
		return model.Card{}, err
	}
	return card, nil
}

type MovementDraft struct {
	Subject     string             `json:"subject"`
	Description string             `json:"description,omitempty"`
	TimeSpent   *int               `json:"time_spent,omitempty"`
	Type        model.MovementType `json:"movement_type,omitempty"`
}

func (s *KanbanService) AddMovement(ctx context.Context, cardID int64, draft MovementDraft) (model.Movement, error) {
	if draft.Type != "" && model.IsSystemMovement(draft.Type) {
		return model.Movement{}, &api.Error{Code: api.CodeValidation, Message: fmt.Sprintf("movement type %s is system generated", draft.Type)}
	}
	var movement model.Movement
	err := s.client.Do(ctx, http.MethodPost, fmt.Sprintf("/kanban/cards/%d/movements", cardID), nil, draft, &movement)
	if err != nil {
		return model.Movement{}, err
	}
	return movement, nil
}

// UpdateMovement rejects system-generated movements before any request is
// issued; the backend enforces the same rule.
func (s *KanbanService) UpdateMovement(ctx context.Context, movement model.Movement, draft MovementDraft) (model.Movement, error) {
	if !model.MovementEditable(movement) {
		return model.Movement{}, &api.Error{Code: api.CodeValidation, Message: fmt.Sprintf("movement type %s is system generated", movement.Type)}
	}
	var updated model.Movement
	err := s.client.Do(ctx, http.MethodPut, fmt.Sprintf("/kanban/movements/%d", movement.ID), nil, draft, &updated)
	if err != nil {
		return model.Movement{}, err
	}
	return updated, nil
}

func (s *KanbanService) DeleteMovement(ctx context.Context, movement model.Movement) error {
	if !model.MovementEditable(movement) {
		return &api.Error{Code: api.CodeValidation, Message: fmt.Sprintf("movement type %s is system generated", movement.Type)}
	}
	return s.client.Do(ctx, http.MethodDelete, fmt.Sprintf("/kanban/movements/%d", movement.ID), nil, nil, nil)
}

func (s *KanbanService) AddTag(ctx context.Context, cardID int64, name string) (model.Tag, error) {
	var tag model.Tag
	err := s.client.Do(ctx, http.MethodPost, fmt.Sprintf("/kanban/cards/%d/tags", cardID), nil, map[string]string{"tag_name": name}, &tag)
	if err != nil {
		return model.Tag{}, err
	}
	return tag, nil
}

func (s *KanbanService) RemoveTag(ctx context.Context, cardID, tagID int64) error {
	return s.client.Do(ctx, http.MethodDelete, fmt.Sprintf("/kanban/cards/%d/tags/%d", cardID, tagID), nil, nil, nil)
}

func (s *KanbanService) UploadCardImage(ctx context.Context, cardID int64, filename string, file io.Reader) (model.Image, error) {
	var image model.Image
	err := s.client.Upload(ctx, fmt.Sprintf("/kanban/cards/%d/images", cardID), "file", filename, file, nil, &image)
	if err != nil {
		return model.Image{}, err
	}
	return image, nil
}

// ProcessImage asks the backend to extract card metadata from an uploaded
// image (screenshots of the legacy BM tool, mostly).
func (s *KanbanService) ProcessImage(ctx context.Context, cardID int64, filename string, file io.Reader) (model.CardSuggestion, error) {
	var suggestion model.CardSuggestion
	err := s.client.Upload(ctx, fmt.Sprintf("/kanban/cards/%d/process-image", cardID), "file", filename, file, nil, &suggestion)
	if err != nil {
		return model.CardSuggestion{}, err
	}
	return suggestion, nil
}

type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// ImportBM bulk-imports cards from the external BM tool's CSV export.
func (s *KanbanService) ImportBM(ctx context.Context, filename string, file io.Reader) (ImportResult, error) {
	var result ImportResult
	err := s.client.Upload(ctx, "/kanban/import-bm", "file", filename, file, nil, &result)
	if err != nil {
		return ImportResult{}, err
	}
	return result, nil
}

// ImportBMXLSX is ImportBM for the spreadsheet flavor of the same export.
func (s *KanbanService) ImportBMXLSX(ctx context.Context, filename string, file io.Reader) (ImportResult, error) {
	var result ImportResult
	err := s.client.Upload(ctx, "/kanban/import-bm-xlsx", "file", filename, file, nil, &result)
	if err != nil {
		return ImportResult{}, err
	}
	return result, nil
}
