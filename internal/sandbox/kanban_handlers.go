package sandbox

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jvcardoso/pro-team-care-console/internal/model"
)

func (s *Server) registerKanbanOperations() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getBoard",
		Method:      http.MethodGet,
		Path:        "/kanban/board",
		Summary:     "Full board aggregate",
		Errors:      []int{http.StatusInternalServerError},
	}, s.getBoard)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createCard",
		Method:        http.MethodPost,
		Path:          "/kanban/cards",
		DefaultStatus: http.StatusCreated,
		Summary:       "Create card stub and return AI suggestion",
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError},
	}, s.createCard)

	huma.Register(s.api, huma.Operation{
		OperationID: "validateCard",
		Method:      http.MethodPost,
		Path:        "/kanban/cards/{cardID}/validate",
		Summary:     "Confirm a proposed card",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError},
	}, s.validateCard)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCard",
		Method:      http.MethodGet,
		Path:        "/kanban/cards/{cardID}",
		Summary:     "Card details with movements, tags and images",
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, s.getCardDetails)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateCard",
		Method:      http.MethodPut,
		Path:        "/kanban/cards/{cardID}",
		Summary:     "Update card fields",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError},
	}, s.updateCard)

	huma.Register(s.api, huma.Operation{
		OperationID: "moveCard",
		Method:      http.MethodPatch,
		Path:        "/kanban/cards/{cardID}/move",
		Summary:     "Move card to a column and position",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError},
	}, s.moveCard)

	huma.Register(s.api, huma.Operation{
		OperationID: "completeCard",
		Method:      http.MethodPost,
		Path:        "/kanban/cards/{cardID}/complete",
		Summary:     "Complete card",
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, s.completeCard)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteCard",
		Method:      http.MethodDelete,
		Path:        "/kanban/cards/{cardID}",
		Summary:     "Delete card",
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, s.deleteCard)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addMovement",
		Method:        http.MethodPost,
		Path:          "/kanban/cards/{cardID}/movements",
		DefaultStatus: http.StatusCreated,
		Summary:       "Append an operator movement",
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError},
	}, s.addMovement)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateMovement",
		Method:      http.MethodPut,
		Path:        "/kanban/movements/{movementID}",
		Summary:     "Edit an operator movement",
		Errors:      []int{http.StatusBadRequest, http.StatusConflict, http.StatusNotFound, http.StatusInternalServerError},
	}, s.updateMovement)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteMovement",
		Method:      http.MethodDelete,
		Path:        "/kanban/movements/{movementID}",
		Summary:     "Delete an operator movement",
		Errors:      []int{http.StatusConflict, http.StatusNotFound, http.StatusInternalServerError},
	}, s.deleteMovement)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addTag",
		Method:        http.MethodPost,
		Path:          "/kanban/cards/{cardID}/tags",
		DefaultStatus: http.StatusCreated,
		Summary:       "Attach a tag",
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError},
	}, s.addTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeTag",
		Method:      http.MethodDelete,
		Path:        "/kanban/cards/{cardID}/tags/{tagID}",
		Summary:     "Detach a tag",
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, s.removeTag)
}

type boardOutput struct {
	Body model.Board
}

func (s *Server) getBoard(_ context.Context, _ *struct{}) (*boardOutput, error) {
	board, err := s.store.Board()
	if err != nil {
		return nil, huma.Error500InternalServerError(err.Error())
	}
	return &boardOutput{Body: board}, nil
}

type createCardInput struct {
	Body struct {
		Title       string         `json:"title"`
		Description string         `json:"description,omitempty"`
		ColumnID    int64          `json:"column_id"`
		Priority    model.Priority `json:"priority,omitempty"`
		DueDate     string         `json:"due_date,omitempty"`
	}
}

type suggestionOutput struct {
	Body model.CardSuggestion
}

func (s *Server) createCard(_ context.Context, input *createCardInput) (*suggestionOutput, error) {
	title := strings.TrimSpace(input.Body.Title)
	if title == "" {
		return nil, huma.Error400BadRequest("title is required")
	}
	if input.Body.Priority != "" {
		if _, ok := model.AllowedPriorities[input.Body.Priority]; !ok {
			return nil, huma.Error400BadRequest("invalid priority")
		}
	}
	var dueDate *time.Time
	if input.Body.DueDate != "" {
		parsed, err := time.Parse(time.RFC3339, input.Body.DueDate)
		if err != nil {
			return nil, huma.Error400BadRequest("due_date must be RFC 3339")
		}
		dueDate = &parsed
	}

	card, err := s.store.CreateProposedCard(title, strings.TrimSpace(input.Body.Description), input.Body.ColumnID, input.Body.Priority, dueDate)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, huma.Error404NotFound("column not found")
		}
		return nil, huma.Error500InternalServerError(err.Error())
	}
	s.logger.Info("card proposed", "card_id", card.ID, "column_id", card.ColumnID)
	s.publishEvent(model.Event{Type: model.EventTypeCardCreated, CardID: card.ID, ColumnID: card.ColumnID, Timestamp: time.Now().UTC()})
	return &suggestionOutput{Body: suggestCard(card)}, nil
}

type validateCardInput struct {
	CardID int64 `path:"cardID"`
	Body   struct {
		Title       string         `json:"title"`
		Description string         `json:"description,omitempty"`
		Priority    model.Priority `json:"priority"`
		Assignees   []string       `json:"assignees,omitempty"`
		Tags        []string       `json:"tags,omitempty"`
		SubTasks    []string       `json:"sub_tasks,omitempty"`
	}
}

type cardOutput struct {
	Body model.Card
}

func (s *Server) validateCard(_ context.Context, input *validateCardInput) (*cardOutput, error) {
	if input.Body.Priority != "" {
		if _, ok := model.AllowedPriorities[input.Body.Priority]; !ok {
			return nil, huma.Error400BadRequest("invalid priority")
		}
	}
	card, err := s.store.ConfirmCard(input.CardID, strings.TrimSpace(input.Body.Title), input.Body.Description, input.Body.Priority, input.Body.Assignees, input.Body.Tags)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, huma.Error404NotFound("card not found")
		}
		if errors.Is(err, errAlreadyConfirmed) {
			return nil, huma.Error409Conflict(err.Error())
		}
		return nil, huma.Error500InternalServerError(err.Error())
	}
	s.logger.Info("card confirmed", "card_id", card.ID)
	s.publishEvent(model.Event{Type: model.EventTypeCardConfirmed, CardID: card.ID, ColumnID: card.ColumnID, Timestamp: time.Now().UTC()})
	return &cardOutput{Body: card}, nil
}

type cardPathInput struct {
	CardID int64 `path:"cardID"`
}

type cardDetailsOutput struct {
	Body model.CardDetails
}

func (s *Server) getCardDetails(_ context.Context, input *cardPathInput) (*cardDetailsOutput, error) {
	details, err := s.store.GetCardDetails(input.CardID)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, huma.Error404NotFound("card not found")
		}
		return nil, huma.Error500InternalServerError(err.Error())
	}
	return &cardDetailsOutput{Body: details}, nil
}

type updateCardInput struct {
	CardID int64 `path:"cardID"`
	Body   struct {
		Title       *string         `json:"title,omitempty"`
		Description *string         `json:"description,omitempty"`
		Priority    *model.Priority `json:"priority,omitempty"`
		DueDate     *string         `json:"due_date,omitempty"`
		SubStatus   *string         `json:"sub_status,omitempty"`
	}
}

func (s *Server) updateCard(_ context.Context, input *updateCardInput) (*cardOutput, error) {
	if input.Body.Priority != nil {
		if _, ok := model.AllowedPriorities[*input.Body.Priority]; !ok {
			return nil, huma.Error400BadRequest("invalid priority")
		}
	}
	if input.Body.DueDate != nil && *input.Body.DueDate != "" {
		if _, err := time.Parse(time.RFC3339, *input.Body.DueDate); err != nil {
			return nil, huma.Error400BadRequest("due_date must be RFC 3339")
		}
	}
	card, err := s.store.UpdateCard(input.CardID, input.Body.Title, input.Body.Description, input.Body.SubStatus, input.Body.Priority, input.Body.DueDate)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, huma.Error404NotFound("card not found")
		}
		return nil, huma.Error500InternalServerError(err.Error())
	}
	s.logger.Info("card updated", "card_id", card.ID)
	s.publishEvent(model.Event{Type: model.EventTypeCardUpdated, CardID: card.ID, ColumnID: card.ColumnID, Timestamp: time.Now().UTC()})
	return &cardOutput{Body: card}, nil
}

type moveCardInput struct {
	CardID int64 `path:"cardID"`
	Body   struct {
		ColumnID int64 `json:"column_id"`
		Position *int  `json:"position,omitempty"`
	}
}

func (s *Server) moveCard(_ context.Context, input *moveCardInput) (*cardOutput, error) {
	card, err := s.store.MoveCard(input.CardID, input.Body.ColumnID, input.Body.Position)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, huma.Error404NotFound("card or column not found")
		}
		return nil, huma.Error400BadRequest(err.Error())
	}
	s.logger.Info("card moved", "card_id", card.ID, "column_id", card.ColumnID)
	s.publishEvent(model.Event{Type: model.EventTypeCardMoved, CardID: card.ID, ColumnID: card.ColumnID, Timestamp: time.Now().UTC()})
	return &cardOutput{Body: card}, nil
}

func (s *Server) completeCard(_ context.Context, input *cardPathInput) (*cardOutput, error) {
	card, err := s.store.CompleteCard(input.CardID)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, huma.Error404NotFound("card not found")
		}
		return nil, huma.Error500InternalServerError(err.Error())
	}
	s.logger.Info("card completed", "card_id", card.ID)
	s.publishEvent(model.Event{Type: model.EventTypeCardCompleted, CardID: card.ID, ColumnID: card.ColumnID, Timestamp: time.Now().UTC()})
	return &cardOutput{Body: card}, nil
}

type deleteCardOutput struct {
	Body struct {
		Deleted bool `json:"deleted"`
	}
}

func (s *Server) deleteCard(_ context.Context, input *cardPathInput) (*deleteCardOutput, error) {
	if err := s.store.DeleteCard(input.CardID); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, huma.Error404NotFound("card not found")
		}
		return nil, huma.Error500InternalServerError(err.Error())
	}
	s.logger.Info("card deleted", "card_id", input.CardID)
	s.publishEvent(model.Event{Type: model.EventTypeCardDeleted, CardID: input.CardID, Timestamp: time.Now().UTC()})

	out := &deleteCardOutput{}
	out.Body.Deleted = true
	return out, nil
}

type addMovementInput struct {
	CardID int64 `path:"cardID"`
	Body   struct {
		Subject     string             `json:"subject"`
		Description string             `json:"description,omitempty"`
		TimeSpent   *int               `json:"time_spent,omitempty"`
		Type        model.MovementType `json:"movement_type,omitempty"`
	}
}

type movementOutput struct {
	Body model.Movement
}

func (s *Server) addMovement(_ context.Context, input *addMovementInput) (*movementOutput, error) {
	subject := strings.TrimSpace(input.Body.Subject)
	if subject == "" {
		return nil, huma.Error400BadRequest("subject is required")
	}
	if model.IsSystemMovement(input.Body.Type) {
		return nil, huma.Error400BadRequest("system movement types cannot be added manually")
	}
	movement, err := s.store.AddMovement(input.CardID, subject, input.Body.Description, input.Body.TimeSpent, input.Body.Type)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, huma.Error404NotFound("card not found")
		}
		return nil, huma.Error500InternalServerError(err.Error())
	}
	s.logger.Info("movement added", "card_id", input.CardID, "movement_id", movement.ID)
	s.publishEvent(model.Event{Type: model.EventTypeMovementAdded, CardID: input.CardID, Timestamp: time.Now().UTC()})
	return &movementOutput{Body: movement}, nil
}

type updateMovementInput struct {
	MovementID int64 `path:"movementID"`
	Body       struct {
		Subject     string `json:"subject"`
		Description string `json:"description,omitempty"`
		TimeSpent   *int   `json:"time_spent,omitempty"`
	}
}

func (s *Server) updateMovement(_ context.Context, input *updateMovementInput) (*movementOutput, error) {
	subject := strings.TrimSpace(input.Body.Subject)
	if subject == "" {
		return nil, huma.Error400BadRequest("subject is required")
	}
	movement, err := s.store.UpdateMovement(input.MovementID, subject, input.Body.Description, input.Body.TimeSpent)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, huma.Error404NotFound("movement not found")
		}
		return nil, huma.Error409Conflict(err.Error())
	}
	s.logger.Info("movement updated", "movement_id", movement.ID)
	s.publishEvent(model.Event{Type: model.EventTypeMovementUpdated, CardID: movement.CardID, Timestamp: time.Now().UTC()})
	return &movementOutput{Body: movement}, nil
}

type movementPathInput struct {
	MovementID int64 `path:"movementID"`
}

type deleteMovementOutput struct {
	Body struct {
		Deleted bool `json:"deleted"`
	}
}

func (s *Server) deleteMovement(_ context.Context, input *movementPathInput) (*deleteMovementOutput, error) {
	if err := s.store.DeleteMovement(input.MovementID); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, huma.Error404NotFound("movement not found")
		}
		return nil, huma.Error409Conflict(err.Error())
	}
	s.logger.Info("movement deleted", "movement_id", input.MovementID)
	s.publishEvent(model.Event{Type: model.EventTypeMovementDeleted, Timestamp: time.Now().UTC()})

	out := &deleteMovementOutput{}
	out.Body.Deleted = true
	return out, nil
}

type addTagInput struct {
	CardID int64 `path:"cardID"`
	Body   struct {
		Name string `json:"tag_name"`
	}
}

type tagOutput struct {
	Body model.Tag
}

func (s *Server) addTag(_ context.Context, input *addTagInput) (*tagOutput, error) {
	name := strings.TrimSpace(input.Body.Name)
	if name == "" {
		return nil, huma.Error400BadRequest("tag_name is required")
	}
	tag, err := s.store.AddTag(input.CardID, name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, huma.Error404NotFound("card not found")
		}
		return nil, huma.Error500InternalServerError(err.Error())
	}
	return &tagOutput{Body: tag}, nil
}

type removeTagInput struct {
	CardID int64 `path:"cardID"`
	TagID  int64 `path:"tagID"`
}

type removeTagOutput struct {
	Body struct {
		Deleted bool `json:"deleted"`
	}
}

func (s *Server) removeTag(_ context.Context, input *removeTagInput) (*removeTagOutput, error) {
	if err := s.store.RemoveTag(input.CardID, input.TagID); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, huma.Error404NotFound("tag not found")
		}
		return nil, huma.Error500InternalServerError(err.Error())
	}
	out := &removeTagOutput{}
	out.Body.Deleted = true
	return out, nil
}
