// Package registrycmd holds the company, establishment and geocoding
// commands of the console.
package registrycmd

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jvcardoso/pro-team-care-console/internal/console/commands/common"
	"github.com/jvcardoso/pro-team-care-console/internal/datatable"
	"github.com/jvcardoso/pro-team-care-console/internal/model"
	"github.com/jvcardoso/pro-team-care-console/internal/service"
)

func companyColumns() []datatable.Column[model.Company] {
	return []datatable.Column[model.Company]{
		{Title: "ID", Value: func(c model.Company) string { return strconv.FormatInt(c.ID, 10) }},
		{Title: "Nome", Value: func(c model.Company) string { return c.Name }},
		{Title: "CNPJ", Value: func(c model.Company) string { return c.CNPJ }},
		{Title: "Status", Value: func(c model.Company) string { return c.Status }},
		{Title: "Cidade", Value: func(c model.Company) string { return c.City }},
		{Title: "UF", Value: func(c model.Company) string { return c.State }},
	}
}

func companyDraftFromFlags(cmd *cobra.Command) service.CompanyDraft {
	name, _ := cmd.Flags().GetString("name")
	tradeName, _ := cmd.Flags().GetString("trade-name")
	cnpj, _ := cmd.Flags().GetString("cnpj")
	city, _ := cmd.Flags().GetString("city")
	state, _ := cmd.Flags().GetString("state")
	return service.CompanyDraft{
		Name:      strings.TrimSpace(name),
		TradeName: strings.TrimSpace(tradeName),
		CNPJ:      strings.TrimSpace(cnpj),
		City:      strings.TrimSpace(city),
		State:     strings.TrimSpace(state),
	}
}

func addCompanyDraftFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("name", "n", "", "Company legal name")
	cmd.Flags().String("trade-name", "", "Trade name")
	cmd.Flags().String("cnpj", "", "CNPJ (punctuation accepted)")
	cmd.Flags().String("city", "", "City")
	cmd.Flags().String("state", "", "State (UF)")
}

func NewCompany(runtime common.Runtime, stdout io.Writer, emit common.EmitFunc, wrapSvc common.WrapServiceErrorFunc, wrapErr common.WrapErrorFunc) *cobra.Command {
	companyCmd := &cobra.Command{
		Use:     "company",
		Aliases: []string{"companies", "empresa"},
		Short:   "Manage companies.",
	}

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List companies.",
		Example: strings.TrimSpace(`ptc company list --search clínica --status active
ptc company list --page 2 --size 25 --sort -created_at
ptc company list --export csv --out empresas.csv`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			size, _ := cmd.Flags().GetInt("size")
			status, _ := cmd.Flags().GetString("status")

			table := datatable.New(datatable.Config[model.Company]{
				Columns:  companyColumns(),
				PageSize: size,
			}, services.Companies.List)
			return common.RunList(cmd, stdout, runtime.Output(), table, map[string]string{"status": status}, emit, wrapSvc, wrapErr)
		},
	}
	common.AddListFlags(listCmd)
	listCmd.Flags().String("status", "", "Filter by status (pending|active|suspended|inactive)")

	getCmd := &cobra.Command{
		Use:     "get",
		Aliases: []string{"show"},
		Short:   "Show one company.",
		Example: strings.TrimSpace(`ptc company get --id 3`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			id, _ := cmd.Flags().GetInt64("id")
			company, err := services.Companies.Get(cmd.Context(), id)
			if err != nil {
				return wrapSvc(err)
			}
			return emit(runtime.Output(), stdout, company, func(w io.Writer) error {
				return renderCompany(w, company)
			})
		},
	}
	getCmd.Flags().Int64P("id", "i", 0, "Company id")
	_ = getCmd.MarkFlagRequired("id")

	createCmd := &cobra.Command{
		Use:     "create",
		Short:   "Register a company.",
		Long:    "New companies start in pending status until activated.",
		Example: strings.TrimSpace(`ptc company create --name "Clínica Vida Ltda" --cnpj 12.345.678/0001-90 --city "São Paulo" --state SP`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			company, err := services.Companies.Create(cmd.Context(), companyDraftFromFlags(cmd))
			if err != nil {
				return wrapSvc(err)
			}
			return emit(runtime.Output(), stdout, company, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "empresa #%d criada (status %s)\n", company.ID, company.Status)
				return err
			})
		},
	}
	addCompanyDraftFlags(createCmd)
	_ = createCmd.MarkFlagRequired("name")
	_ = createCmd.MarkFlagRequired("cnpj")

	updateCmd := &cobra.Command{
		Use:     "update",
		Short:   "Update a company.",
		Example: strings.TrimSpace(`ptc company update --id 3 --name "Clínica Vida Ltda" --cnpj 12.345.678/0001-90 --city Campinas --state SP`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			id, _ := cmd.Flags().GetInt64("id")
			company, err := services.Companies.Update(cmd.Context(), id, companyDraftFromFlags(cmd))
			if err != nil {
				return wrapSvc(err)
			}
			return emit(runtime.Output(), stdout, company, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "empresa #%d atualizada\n", company.ID)
				return err
			})
		},
	}
	updateCmd.Flags().Int64P("id", "i", 0, "Company id")
	addCompanyDraftFlags(updateCmd)
	_ = updateCmd.MarkFlagRequired("id")
	_ = updateCmd.MarkFlagRequired("name")
	_ = updateCmd.MarkFlagRequired("cnpj")

	statusCmd := &cobra.Command{
		Use:     "status",
		Short:   "Change a company's status.",
		Example: strings.TrimSpace(`ptc company status --id 3 --set active`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			id, _ := cmd.Flags().GetInt64("id")
			status, _ := cmd.Flags().GetString("set")
			company, err := services.Companies.PatchStatus(cmd.Context(), id, strings.TrimSpace(status))
			if err != nil {
				return wrapSvc(err)
			}
			return emit(runtime.Output(), stdout, company, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "empresa #%d agora está %s\n", company.ID, company.Status)
				return err
			})
		},
	}
	statusCmd.Flags().Int64P("id", "i", 0, "Company id")
	statusCmd.Flags().String("set", "", "New status (pending|active|suspended|inactive)")
	_ = statusCmd.MarkFlagRequired("id")
	_ = statusCmd.MarkFlagRequired("set")

	deleteCmd := &cobra.Command{
		Use:     "delete",
		Aliases: []string{"rm", "remove"},
		Short:   "Delete a company.",
		Example: strings.TrimSpace(`ptc company rm --id 3 --yes`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			if err := common.RequireYes(yes, wrapErr, "excluir a empresa"); err != nil {
				return err
			}
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			id, _ := cmd.Flags().GetInt64("id")
			if err := services.Companies.Delete(cmd.Context(), id); err != nil {
				return wrapSvc(err)
			}
			return emit(runtime.Output(), stdout, map[string]any{"deleted": true, "company_id": id}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "empresa #%d excluída\n", id)
				return err
			})
		},
	}
	deleteCmd.Flags().Int64P("id", "i", 0, "Company id")
	deleteCmd.Flags().Bool("yes", false, "Confirm the destructive operation")
	_ = deleteCmd.MarkFlagRequired("id")

	validateCmd := &cobra.Command{
		Use:     "validate",
		Short:   "Validate a company draft without saving it.",
		Example: strings.TrimSpace(`ptc company validate --name "Clínica Vida" --cnpj 12345678000190`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			result, err := services.Companies.Validate(cmd.Context(), companyDraftFromFlags(cmd))
			if err != nil {
				return wrapSvc(err)
			}
			return emit(runtime.Output(), stdout, result, func(w io.Writer) error {
				return renderValidation(w, result)
			})
		},
	}
	addCompanyDraftFlags(validateCmd)
	_ = validateCmd.MarkFlagRequired("name")
	_ = validateCmd.MarkFlagRequired("cnpj")

	cleanupCmd := &cobra.Command{
		Use:     "cleanup-pending",
		Aliases: []string{"cleanup"},
		Short:   "Remove companies stuck in pending registration.",
		Example: strings.TrimSpace(`ptc company cleanup-pending --yes`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			if err := common.RequireYes(yes, wrapErr, "remover empresas pendentes"); err != nil {
				return err
			}
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			result, err := services.Companies.CleanupPending(cmd.Context())
			if err != nil {
				return wrapSvc(err)
			}
			return emit(runtime.Output(), stdout, result, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%d empresas pendentes removidas\n", result.Removed)
				return err
			})
		},
	}
	cleanupCmd.Flags().Bool("yes", false, "Confirm the destructive operation")

	companyCmd.AddCommand(listCmd, getCmd, createCmd, updateCmd, statusCmd, deleteCmd, validateCmd, cleanupCmd)
	return companyCmd
}

func renderCompany(w io.Writer, company model.Company) error {
	lines := []string{
		fmt.Sprintf("#%d %s", company.ID, company.Name),
		"cnpj: " + company.CNPJ,
		"status: " + company.Status,
	}
	if company.TradeName != "" {
		lines = append(lines, "nome fantasia: "+company.TradeName)
	}
	if company.City != "" {
		lines = append(lines, fmt.Sprintf("cidade: %s/%s", company.City, company.State))
	}
	lines = append(lines, "criada em: "+company.CreatedAt.Format("2006-01-02"))
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}

func renderValidation(w io.Writer, result service.ValidationResult) error {
	if result.Valid {
		_, err := fmt.Fprintln(w, "válido")
		return err
	}
	lines := []string{"inválido:"}
	for _, issue := range result.Issues {
		lines = append(lines, "  - "+issue)
	}
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}
