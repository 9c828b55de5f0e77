package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jvcardoso/pro-team-care-console/internal/api"
	"github.com/jvcardoso/pro-team-care-console/internal/model"
)

// ListParams is shared by every paginated list endpoint.
type ListParams struct {
	Page    int
	Size    int
	Search  string
	Sort    string
	Filters map[string]string
}

func (p ListParams) values() url.Values {
	query := url.Values{}
	if p.Page > 0 {
		query.Set("page", strconv.Itoa(p.Page))
	}
	if p.Size > 0 {
		query.Set("size", strconv.Itoa(p.Size))
	}
	if search := strings.TrimSpace(p.Search); search != "" {
		query.Set("search", search)
	}
	if sort := strings.TrimSpace(p.Sort); sort != "" {
		query.Set("sort", sort)
	}
	for key, value := range p.Filters {
		if strings.TrimSpace(value) != "" {
			query.Set(key, value)
		}
	}
	return query
}

type CompaniesService struct {
	client *api.Client
}

func NewCompaniesService(client *api.Client) *CompaniesService {
	return &CompaniesService{client: client}
}

// companiesEnvelope absorbs the legacy list shapes: the typed Page envelope,
// a {"companies": [...]} wrapper, and a bare array.
type companiesEnvelope struct {
	Items     []model.Company `json:"items"`
	Companies []model.Company `json:"companies"`
	Data      []model.Company `json:"data"`
	Total     int             `json:"total"`
	Page      int             `json:"page"`
	Size      int             `json:"size"`
	Pages     int             `json:"pages"`
}

func (s *CompaniesService) List(ctx context.Context, params ListParams) (model.Page[model.Company], error) {
	var envelope companiesEnvelope
	if err := s.client.Get(ctx, "/companies", params.values(), &envelope); err != nil {
		return model.Page[model.Company]{}, err
	}
	return normalizePage(envelope.Items, envelope.Companies, envelope.Data, envelope.Total, envelope.Page, envelope.Size, envelope.Pages, params), nil
}

func (s *CompaniesService) Get(ctx context.Context, companyID int64) (model.Company, error) {
	var company model.Company
	if err := s.client.Get(ctx, fmt.Sprintf("/companies/%d", companyID), nil, &company); err != nil {
		return model.Company{}, err
	}
	return company, nil
}

type CompanyDraft struct {
	Name      string `json:"name"`
	TradeName string `json:"trade_name,omitempty"`
	CNPJ      string `json:"cnpj"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
}

func (s *CompaniesService) Create(ctx context.Context, draft CompanyDraft) (model.Company, error) {
	var company model.Company
	if err := s.client.Do(ctx, http.MethodPost, "/companies", nil, draft, &company); err != nil {
		return model.Company{}, err
	}
	return company, nil
}

func (s *CompaniesService) Update(ctx context.Context, companyID int64, draft CompanyDraft) (model.Company, error) {
	var company model.Company
	if err := s.client.Do(ctx, http.MethodPut, fmt.Sprintf("/companies/%d", companyID), nil, draft, &company); err != nil {
		return model.Company{}, err
	}
	return company, nil
}

func (s *CompaniesService) PatchStatus(ctx context.Context, companyID int64, status string) (model.Company, error) {
	var company model.Company
	err := s.client.Do(ctx, http.MethodPatch, fmt.Sprintf("/companies/%d/status", companyID), nil, map[string]string{"status": status}, &company)
	if err != nil {
		return model.Company{}, err
	}
	return company, nil
}

func (s *CompaniesService) Delete(ctx context.Context, companyID int64) error {
	return s.client.Do(ctx, http.MethodDelete, fmt.Sprintf("/companies/%d", companyID), nil, nil, nil)
}

type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Issues []string `json:"issues,omitempty"`
}

// Validate pre-checks a draft without persisting anything.
func (s *CompaniesService) Validate(ctx context.Context, draft CompanyDraft) (ValidationResult, error) {
	var result ValidationResult
	if err := s.client.Do(ctx, http.MethodPost, "/companies/validate", nil, draft, &result); err != nil {
		return ValidationResult{}, err
	}
	return result, nil
}

type CleanupResult struct {
	Removed int `json:"removed"`
}

// CleanupPending bulk-deletes companies stuck in pending registration.
func (s *CompaniesService) CleanupPending(ctx context.Context) (CleanupResult, error) {
	var result CleanupResult
	if err := s.client.Do(ctx, http.MethodPost, "/companies/cleanup-pending", nil, nil, &result); err != nil {
		return CleanupResult{}, err
	}
	return result, nil
}

// normalizePage collapses the per-page duck typing of the original frontend
// into one typed envelope.
func normalizePage[T any](items, alt, data []T, total, page, size, pages int, params ListParams) model.Page[T] {
	rows := items
	if rows == nil {
		rows = alt
	}
	if rows == nil {
		rows = data
	}
	if rows == nil {
		rows = []T{}
	}
	out := model.Page[T]{Items: rows, Total: total, Page: page, Size: size, Pages: pages}
	if out.Total == 0 {
		out.Total = len(rows)
	}
	if out.Page == 0 {
		out.Page = max(params.Page, 1)
	}
	if out.Size == 0 {
		if params.Size > 0 {
			out.Size = params.Size
		} else {
			out.Size = len(rows)
		}
	}
	if out.Pages == 0 && out.Size > 0 {
		out.Pages = (out.Total + out.Size - 1) / out.Size
	}
	return out
}
