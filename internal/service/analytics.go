package service

import (
	"context"

	"github.com/jvcardoso/pro-team-care-console/internal/api"
	"github.com/jvcardoso/pro-team-care-console/internal/model"
)

// AnalyticsService lists ITIL entries (Change / Incident / Service Request /
// Operation Task) for reporting. Unrelated to board mechanics.
type AnalyticsService struct {
	client *api.Client
}

func NewAnalyticsService(client *api.Client) *AnalyticsService {
	return &AnalyticsService{client: client}
}

type itilEnvelope struct {
	Items []model.ITILEntry `json:"items"`
	Data  []model.ITILEntry `json:"data"`
	Total int               `json:"total"`
	Page  int               `json:"page"`
	Size  int               `json:"size"`
	Pages int               `json:"pages"`
}

func (s *AnalyticsService) ListITIL(ctx context.Context, params ListParams) (model.Page[model.ITILEntry], error) {
	if category, ok := params.Filters["category"]; ok && category != "" {
		if _, valid := model.AllowedITILCategories[category]; !valid {
			return model.Page[model.ITILEntry]{}, &api.Error{Code: api.CodeValidation, Message: "invalid ITIL category: " + category}
		}
	}
	var envelope itilEnvelope
	if err := s.client.Get(ctx, "/analytics/itil", params.values(), &envelope); err != nil {
		return model.Page[model.ITILEntry]{}, err
	}
	return normalizePage(envelope.Items, nil, envelope.Data, envelope.Total, envelope.Page, envelope.Size, envelope.Pages, params), nil
}
