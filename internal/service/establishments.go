package service

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jvcardoso/pro-team-care-console/internal/api"
	"github.com/jvcardoso/pro-team-care-console/internal/model"
)

type EstablishmentsService struct {
	client *api.Client
}

func NewEstablishmentsService(client *api.Client) *EstablishmentsService {
	return &EstablishmentsService{client: client}
}

type establishmentsEnvelope struct {
	Items          []model.Establishment `json:"items"`
	Establishments []model.Establishment `json:"establishments"`
	Data           []model.Establishment `json:"data"`
	Total          int                   `json:"total"`
	Page           int                   `json:"page"`
	Size           int                   `json:"size"`
	Pages          int                   `json:"pages"`
}

func (s *EstablishmentsService) List(ctx context.Context, params ListParams) (model.Page[model.Establishment], error) {
	var envelope establishmentsEnvelope
	if err := s.client.Get(ctx, "/establishments", params.values(), &envelope); err != nil {
		return model.Page[model.Establishment]{}, err
	}
	return normalizePage(envelope.Items, envelope.Establishments, envelope.Data, envelope.Total, envelope.Page, envelope.Size, envelope.Pages, params), nil
}

func (s *EstablishmentsService) Get(ctx context.Context, establishmentID int64) (model.Establishment, error) {
	var establishment model.Establishment
	if err := s.client.Get(ctx, fmt.Sprintf("/establishments/%d", establishmentID), nil, &establishment); err != nil {
		return model.Establishment{}, err
	}
	return establishment, nil
}

type EstablishmentDraft struct {
	CompanyID int64  `json:"company_id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Type      string `json:"type,omitempty"`
	Category  string `json:"category,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
}

func (s *EstablishmentsService) Create(ctx context.Context, draft EstablishmentDraft) (model.Establishment, error) {
	var establishment model.Establishment
	if err := s.client.Do(ctx, http.MethodPost, "/establishments", nil, draft, &establishment); err != nil {
		return model.Establishment{}, err
	}
	return establishment, nil
}

func (s *EstablishmentsService) Update(ctx context.Context, establishmentID int64, draft EstablishmentDraft) (model.Establishment, error) {
	var establishment model.Establishment
	err := s.client.Do(ctx, http.MethodPut, fmt.Sprintf("/establishments/%d", establishmentID), nil, draft, &establishment)
	if err != nil {
		return model.Establishment{}, err
	}
	return establishment, nil
}

func (s *EstablishmentsService) PatchStatus(ctx context.Context, establishmentID int64, active bool) (model.Establishment, error) {
	var establishment model.Establishment
	err := s.client.Do(ctx, http.MethodPatch, fmt.Sprintf("/establishments/%d/status", establishmentID), nil, map[string]bool{"is_active": active}, &establishment)
	if err != nil {
		return model.Establishment{}, err
	}
	return establishment, nil
}

func (s *EstablishmentsService) Delete(ctx context.Context, establishmentID int64) error {
	return s.client.Do(ctx, http.MethodDelete, fmt.Sprintf("/establishments/%d", establishmentID), nil, nil, nil)
}

func (s *EstablishmentsService) Validate(ctx context.Context, draft EstablishmentDraft) (ValidationResult, error) {
	var result ValidationResult
	if err := s.client.Do(ctx, http.MethodPost, "/establishments/validate", nil, draft, &result); err != nil {
		return ValidationResult{}, err
	}
	return result, nil
}
