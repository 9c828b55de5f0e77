package sandbox

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/jvcardoso/pro-team-care-console/internal/model"
)

func (s *Server) registerRegistryOperations() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listCompanies",
		Method:      http.MethodGet,
		Path:        "/companies",
		Summary:     "List companies",
		Errors:      []int{http.StatusInternalServerError},
	}, s.listCompanies)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCompany",
		Method:      http.MethodGet,
		Path:        "/companies/{companyID}",
		Summary:     "Get company",
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, s.getCompany)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createCompany",
		Method:        http.MethodPost,
		Path:          "/companies",
		DefaultStatus: http.StatusCreated,
		Summary:       "Create company",
		Errors:        []int{http.StatusBadRequest, http.StatusConflict, http.StatusInternalServerError},
	}, s.createCompany)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateCompany",
		Method:      http.MethodPut,
		Path:        "/companies/{companyID}",
		Summary:     "Update company",
		Errors:      []int{http.StatusBadRequest, http.StatusConflict, http.StatusNotFound, http.StatusInternalServerError},
	}, s.updateCompany)

	huma.Register(s.api, huma.Operation{
		OperationID: "patchCompanyStatus",
		Method:      http.MethodPatch,
		Path:        "/companies/{companyID}/status",
		Summary:     "Change company status",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError},
	}, s.patchCompanyStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteCompany",
		Method:      http.MethodDelete,
		Path:        "/companies/{companyID}",
		Summary:     "Delete company",
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, s.deleteCompany)

	huma.Register(s.api, huma.Operation{
		OperationID: "validateCompany",
		Method:      http.MethodPost,
		Path:        "/companies/validate",
		Summary:     "Validate company data without persisting",
		Errors:      []int{http.StatusInternalServerError},
	}, s.validateCompany)

	huma.Register(s.api, huma.Operation{
		OperationID: "cleanupPendingCompanies",
		Method:      http.MethodPost,
		Path:        "/companies/cleanup-pending",
		Summary:     "Remove companies stuck in pending state",
		Errors:      []int{http.StatusInternalServerError},
	}, s.cleanupPendingCompanies)

	huma.Register(s.api, huma.Operation{
		OperationID: "listEstablishments",
		Method:      http.MethodGet,
		Path:        "/establishments",
		Summary:     "List establishments",
		Errors:      []int{http.StatusInternalServerError},
	}, s.listEstablishments)

	huma.Register(s.api, huma.Operation{
		OperationID: "getEstablishment",
		Method:      http.MethodGet,
		Path:        "/establishments/{establishmentID}",
		Summary:     "Get establishment",
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, s.getEstablishment)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createEstablishment",
		Method:        http.MethodPost,
		Path:          "/establishments",
		DefaultStatus: http.StatusCreated,
		Summary:       "Create establishment",
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError},
	}, s.createEstablishment)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateEstablishment",
		Method:      http.MethodPut,
		Path:        "/establishments/{establishmentID}",
		Summary:     "Update establishment",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError},
	}, s.updateEstablishment)

	huma.Register(s.api, huma.Operation{
		OperationID: "patchEstablishmentStatus",
		Method:      http.MethodPatch,
		Path:        "/establishments/{establishmentID}/status",
		Summary:     "Toggle establishment activation",
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, s.patchEstablishmentStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteEstablishment",
		Method:      http.MethodDelete,
		Path:        "/establishments/{establishmentID}",
		Summary:     "Delete establishment",
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, s.deleteEstablishment)

	huma.Register(s.api, huma.Operation{
		OperationID: "validateEstablishment",
		Method:      http.MethodPost,
		Path:        "/establishments/validate",
		Summary:     "Validate establishment data without persisting",
		Errors:      []int{http.StatusInternalServerError},
	}, s.validateEstablishment)

	huma.Register(s.api, huma.Operation{
		OperationID: "listITIL",
		Method:      http.MethodGet,
		Path:        "/analytics/itil",
		Summary:     "List ITIL analytics entries",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, s.listITIL)
}

type listInput struct {
	Page   int    `query:"page"`
	Size   int    `query:"size"`
	Search string `query:"search"`
	Sort   string `query:"sort"`
	Status string `query:"status"`
}

type companiesPageOutput struct {
	Body model.Page[model.Company]
}

func (s *Server) listCompanies(_ context.Context, input *listInput) (*companiesPageOutput, error) {
	page, err := s.store.ListCompanies(companyFilter{
		Search: input.Search,
		Status: input.Status,
		Page:   input.Page,
		Size:   input.Size,
		Sort:   input.Sort,
	})
	if err != nil {
		return nil, huma.Error500InternalServerError(err.Error())
	}
	return &companiesPageOutput{Body: page}, nil
}

type companyPathInput struct {
	CompanyID int64 `path:"companyID"`
}

type companyOutput struct {
	Body model.Company
}

func (s *Server) getCompany(_ context.Context, input *companyPathInput) (*companyOutput, error) {
	company, err := s.store.GetCompany(input.CompanyID)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, huma.Error404NotFound("company not found")
		}
		return nil, huma.Error500InternalServerError(err.Error())
	}
	return &companyOutput{Body: company}, nil
}

type companyRequest struct {
	Name      string `json:"name"`
	TradeName string `json:"trade_name,omitempty"`
	CNPJ      string `json:"cnpj"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
}

type createCompanyInput struct {
	Body companyRequest
}

// normalizeCNPJ strips the usual punctuation before the digit check.
func normalizeCNPJ(cnpj string) string {
	return strings.NewReplacer(".", "", "-", "", "/", "", " ", "").Replace(cnpj)
}

func cnpjIssues(cnpj string) []string {
	issues := make([]string, 0, 1)
	if len(cnpj) != 14 {
		issues = append(issues, "cnpj must have 14 digits")
		return issues
	}
	for _, r := range cnpj {
		if r < '0' || r > '9' {
			issues = append(issues, "cnpj must contain only digits")
			break
		}
	}
	return issues
}

func (s *Server) checkCompany(body companyRequest, excludeID int64) ([]string, error) {
	issues := make([]string, 0, 2)
	if strings.TrimSpace(body.Name) == "" {
		issues = append(issues, "name is required")
	}
	cnpj := normalizeCNPJ(body.CNPJ)
	issues = append(issues, cnpjIssues(cnpj)...)
	if len(issues) == 0 {
		exists, err := s.store.cnpjExists(cnpj, excludeID)
		if err != nil {
			return nil, err
		}
		if exists {
			issues = append(issues, fmt.Sprintf("cnpj %s already registered", cnpj))
		}
	}
	return issues, nil
}

func (s *Server) createCompany(_ context.Context, input *createCompanyInput) (*companyOutput, error) {
	issues, err := s.checkCompany(input.Body, 0)
	if err != nil {
		return nil, huma.Error500InternalServerError(err.Error())
	}
	if len(issues) > 0 {
		if strings.Contains(issues[0], "already registered") {
			return nil, huma.Error409Conflict(issues[0])
		}
		return nil, huma.Error400BadRequest(strings.Join(issues, "; "))
	}
	company, err := s.store.CreateCompany(strings.TrimSpace(input.Body.Name), input.Body.TradeName, normalizeCNPJ(input.Body.CNPJ), input.Body.City, input.Body.State)
	if err != nil {
		return nil, huma.Error500InternalServerError(err.Error())
	}
	s.logger.Info("company created", "company_id", company.ID, "cnpj", company.CNPJ)
	return &companyOutput{Body: company}, nil
}

type updateCompanyInput struct {
	CompanyID int64 `path:"companyID"`
	Body      companyRequest
}

func (s *Server) updateCompany(_ context.Context, input *updateCompanyInput) (*companyOutput, error) {
	issues, err := s.checkCompany(input.Body, input.CompanyID)
	if err != nil {
		return nil, huma.Error500InternalServerError(err.Error())
	}
	if len(issues) > 0 {
		if strings.Contains(issues[0], "already registered") {
			return nil, huma.Error409Conflict(issues[0])
		}
		return nil, huma.Error400BadRequest(strings.Join(issues, "; "))
	}
	company, err := s.store.UpdateCompany(input.CompanyID, strings.TrimSpace(input.Body.Name), input.Body.TradeName, normalizeCNPJ(input.Body.CNPJ), input.Body.City, input.Body.State)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, huma.Error404NotFound("company not found")
		}
		return nil, huma.Error500InternalServerError(err.Error())
	}
	return &companyOutput{Body: company}, nil
}

var allowedCompanyStatuses = map[string]struct{}{
	"pending":   {},
	"active":    {},
	"suspended": {},
	"inactive":  {},
}

type patchCompanyStatusInput struct {
	CompanyID int64 `path:"companyID"`
	Body      struct {
		Status string `json:"status"`
	}
}

func (s *Server) patchCompanyStatus(_ context.Context, input *patchCompanyStatusInput) (*companyOutput, error) {
	if _, ok := allowedCompanyStatuses[input.Body.Status]; !ok {
		return nil, huma.Error400BadRequest("invalid status")
	}
	company, err := s.store.PatchCompanyStatus(input.CompanyID, input.Body.Status)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, huma.Error404NotFound("company not found")
		}
		return nil, huma.Error500InternalServerError(err.Error())
	}
	s.logger.Info("company status changed", "company_id", company.ID, "status", company.Status)
	return &companyOutput{Body: company}, nil
}

type deletedOutput struct {
	Body struct {
		Deleted bool `json:"deleted"`
	}
}

func (s *Server) deleteCompany(_ context.Context, input *companyPathInput) (*deletedOutput, error) {
	if err := s.store.DeleteCompany(input.CompanyID); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, huma.Error404NotFound("company not found")
		}
		return nil, huma.Error500InternalServerError(err.Error())
	}
	out := &deletedOutput{}
	out.Body.Deleted = true
	return out, nil
}

type validationOutput struct {
	Body struct {
		Valid  bool     `json:"valid"`
		Issues []string `json:"issues,omitempty"`
	}
}

func (s *Server) validateCompany(_ context.Context, input *createCompanyInput) (*validationOutput, error) {
	issues, err := s.checkCompany(input.Body, 0)
	if err != nil {
		return nil, huma.Error500InternalServerError(err.Error())
	}
	out := &validationOutput{}
	out.Body.Valid = len(issues) == 0
	out.Body.Issues = issues
	return out, nil
}

type cleanupOutput struct {
	Body struct {
		Removed int `json:"removed"`
	}
}

func (s *Server) cleanupPendingCompanies(_ context.Context, _ *struct{}) (*cleanupOutput, error) {
	removed, err := s.store.CleanupPendingCompanies()
	if err != nil {
		return nil, huma.Error500InternalServerError(err.Error())
	}
	s.logger.Info("pending companies removed", "removed", removed)

	out := &cleanupOutput{}
	out.Body.Removed = removed
	return out, nil
}

type establishmentsPageOutput struct {
	Body model.Page[model.Establishment]
}

func (s *Server) listEstablishments(_ context.Context, input *listInput) (*establishmentsPageOutput, error) {
	page, err := s.store.ListEstablishments(companyFilter{
		Search: input.Search,
		Page:   input.Page,
		Size:   input.Size,
		Sort:   input.Sort,
	})
	if err != nil {
		return nil, huma.Error500InternalServerError(err.Error())
	}
	return &establishmentsPageOutput{Body: page}, nil
}

type establishmentPathInput struct {
	EstablishmentID int64 `path:"establishmentID"`
}

type establishmentOutput struct {
	Body model.Establishment
}

func (s *Server) getEstablishment(_ context.Context, input *establishmentPathInput) (*establishmentOutput, error) {
	establishment, err := s.store.GetEstablishment(input.EstablishmentID)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, huma.Error404NotFound("establishment not found")
		}
		return nil, huma.Error500InternalServerError(err.Error())
	}
	return &establishmentOutput{Body: establishment}, nil
}

type establishmentRequest struct {
	CompanyID int64  `json:"company_id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Type      string `json:"type,omitempty"`
	Category  string `json:"category,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
}

type createEstablishmentInput struct {
	Body establishmentRequest
}

func (s *Server) checkEstablishment(body establishmentRequest) []string {
	issues := make([]string, 0, 3)
	if strings.TrimSpace(body.Code) == "" {
		issues = append(issues, "code is required")
	}
	if strings.TrimSpace(body.Name) == "" {
		issues = append(issues, "name is required")
	}
	if body.CompanyID <= 0 {
		issues = append(issues, "company_id is required")
	} else if _, err := s.store.GetCompany(body.CompanyID); err != nil {
		issues = append(issues, fmt.Sprintf("company %d not found", body.CompanyID))
	}
	return issues
}

func (s *Server) createEstablishment(_ context.Context, input *createEstablishmentInput) (*establishmentOutput, error) {
	if issues := s.checkEstablishment(input.Body); len(issues) > 0 {
		return nil, huma.Error400BadRequest(strings.Join(issues, "; "))
	}
	establishment, err := s.store.CreateEstablishment(input.Body.CompanyID, strings.TrimSpace(input.Body.Code), strings.TrimSpace(input.Body.Name), input.Body.Type, input.Body.Category, input.Body.City, input.Body.State)
	if err != nil {
		return nil, huma.Error500InternalServerError(err.Error())
	}
	s.logger.Info("establishment created", "establishment_id", establishment.ID, "company_id", establishment.CompanyID)
	return &establishmentOutput{Body: establishment}, nil
}

type updateEstablishmentInput struct {
	EstablishmentID int64 `path:"establishmentID"`
	Body            establishmentRequest
}

func (s *Server) updateEstablishment(_ context.Context, input *updateEstablishmentInput) (*establishmentOutput, error) {
	if strings.TrimSpace(input.Body.Code) == "" || strings.TrimSpace(input.Body.Name) == "" {
		return nil, huma.Error400BadRequest("code and name are required")
	}
	establishment, err := s.store.UpdateEstablishment(input.EstablishmentID, strings.TrimSpace(input.Body.Code), strings.TrimSpace(input.Body.Name), input.Body.Type, input.Body.Category, input.Body.City, input.Body.State)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, huma.Error404NotFound("establishment not found")
		}
		return nil, huma.Error500InternalServerError(err.Error())
	}
	return &establishmentOutput{Body: establishment}, nil
}

type patchEstablishmentStatusInput struct {
	EstablishmentID int64 `path:"establishmentID"`
	Body            struct {
		IsActive bool `json:"is_active"`
	}
}

func (s *Server) patchEstablishmentStatus(_ context.Context, input *patchEstablishmentStatusInput) (*establishmentOutput, error) {
	establishment, err := s.store.PatchEstablishmentStatus(input.EstablishmentID, input.Body.IsActive)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, huma.Error404NotFound("establishment not found")
		}
		return nil, huma.Error500InternalServerError(err.Error())
	}
	s.logger.Info("establishment status changed", "establishment_id", establishment.ID, "is_active", establishment.IsActive)
	return &establishmentOutput{Body: establishment}, nil
}

func (s *Server) deleteEstablishment(_ context.Context, input *establishmentPathInput) (*deletedOutput, error) {
	if err := s.store.DeleteEstablishment(input.EstablishmentID); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, huma.Error404NotFound("establishment not found")
		}
		return nil, huma.Error500InternalServerError(err.Error())
	}
	out := &deletedOutput{}
	out.Body.Deleted = true
	return out, nil
}

func (s *Server) validateEstablishment(_ context.Context, input *createEstablishmentInput) (*validationOutput, error) {
	issues := s.checkEstablishment(input.Body)
	out := &validationOutput{}
	out.Body.Valid = len(issues) == 0
	out.Body.Issues = issues
	return out, nil
}

type listITILInput struct {
	listInput
	Category string `query:"category"`
}

type itilPageOutput struct {
	Body model.Page[model.ITILEntry]
}

func (s *Server) listITIL(_ context.Context, input *listITILInput) (*itilPageOutput, error) {
	if input.Category != "" {
		if _, ok := model.AllowedITILCategories[input.Category]; !ok {
			return nil, huma.Error400BadRequest("invalid category")
		}
	}
	page, err := s.store.ListITIL(companyFilter{
		Search: input.Search,
		Page:   input.Page,
		Size:   input.Size,
		Sort:   input.Sort,
	}, input.Category)
	if err != nil {
		return nil, huma.Error500InternalServerError(err.Error())
	}
	return &itilPageOutput{Body: page}, nil
}
