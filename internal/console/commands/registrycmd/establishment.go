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

func establishmentColumns() []datatable.Column[model.Establishment] {
	return []datatable.Column[model.Establishment]{
		{Title: "ID", Value: func(e model.Establishment) string { return strconv.FormatInt(e.ID, 10) }},
		{Title: "Código", Value: func(e model.Establishment) string { return e.Code }},
		{Title: "Nome", Value: func(e model.Establishment) string { return e.Name }},
		{Title: "Empresa", Value: func(e model.Establishment) string { return strconv.FormatInt(e.CompanyID, 10) }},
		{Title: "Tipo", Value: func(e model.Establishment) string { return e.Type }},
		{Title: "Ativo", Value: func(e model.Establishment) string {
			if e.IsActive {
				return "sim"
			}
			return "não"
		}},
	}
}

func establishmentDraftFromFlags(cmd *cobra.Command) service.EstablishmentDraft {
	companyID, _ := cmd.Flags().GetInt64("company")
	code, _ := cmd.Flags().GetString("code")
	name, _ := cmd.Flags().GetString("name")
	kind, _ := cmd.Flags().GetString("type")
	category, _ := cmd.Flags().GetString("category")
	city, _ := cmd.Flags().GetString("city")
	state, _ := cmd.Flags().GetString("state")
	return service.EstablishmentDraft{
		CompanyID: companyID,
		Code:      strings.TrimSpace(code),
		Name:      strings.TrimSpace(name),
		Type:      strings.TrimSpace(kind),
		Category:  strings.TrimSpace(category),
		City:      strings.TrimSpace(city),
		State:     strings.TrimSpace(state),
	}
}

func addEstablishmentDraftFlags(cmd *cobra.Command) {
	cmd.Flags().Int64("company", 0, "Owning company id")
	cmd.Flags().String("code", "", "Establishment code, unique per company")
	cmd.Flags().StringP("name", "n", "", "Establishment name")
	cmd.Flags().String("type", "", "Type, e.g. matriz or filial")
	cmd.Flags().String("category", "", "Category")
	cmd.Flags().String("city", "", "City")
	cmd.Flags().String("state", "", "State (UF)")
}

func NewEstablishment(runtime common.Runtime, stdout io.Writer, emit common.EmitFunc, wrapSvc common.WrapServiceErrorFunc, wrapErr common.WrapErrorFunc) *cobra.Command {
	establishmentCmd := &cobra.Command{
		Use:     "establishment",
		Aliases: []string{"establishments", "estabelecimento"},
		Short:   "Manage establishments.",
	}

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List establishments.",
		Example: strings.TrimSpace(`ptc establishment list --company 3
ptc establishment list --search matriz --export json`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			size, _ := cmd.Flags().GetInt("size")
			status, _ := cmd.Flags().GetString("status")
			companyID, _ := cmd.Flags().GetInt64("company")

			filters := map[string]string{"status": status}
			if companyID > 0 {
				filters["company_id"] = strconv.FormatInt(companyID, 10)
			}
			table := datatable.New(datatable.Config[model.Establishment]{
				Columns:  establishmentColumns(),
				PageSize: size,
			}, services.Establishments.List)
			return common.RunList(cmd, stdout, runtime.Output(), table, filters, emit, wrapSvc, wrapErr)
		},
	}
	common.AddListFlags(listCmd)
	listCmd.Flags().String("status", "", "Filter by status (active|inactive)")
	listCmd.Flags().Int64("company", 0, "Filter by owning company id")

	getCmd := &cobra.Command{
		Use:     "get",
		Aliases: []string{"show"},
		Short:   "Show one establishment.",
		Example: strings.TrimSpace(`ptc establishment get --id 5`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			id, _ := cmd.Flags().GetInt64("id")
			establishment, err := services.Establishments.Get(cmd.Context(), id)
			if err != nil {
				return wrapSvc(err)
			}
			return emit(runtime.Output(), stdout, establishment, func(w io.Writer) error {
				return renderEstablishment(w, establishment)
			})
		},
	}
	getCmd.Flags().Int64P("id", "i", 0, "Establishment id")
	_ = getCmd.MarkFlagRequired("id")

	createCmd := &cobra.Command{
		Use:     "create",
		Short:   "Register an establishment.",
		Example: strings.TrimSpace(`ptc establishment create --company 3 --code MATRIZ --name "Unidade Matriz" --type matriz`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			establishment, err := services.Establishments.Create(cmd.Context(), establishmentDraftFromFlags(cmd))
			if err != nil {
				return wrapSvc(err)
			}
			return emit(runtime.Output(), stdout, establishment, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "estabelecimento #%d criado\n", establishment.ID)
				return err
			})
		},
	}
	addEstablishmentDraftFlags(createCmd)
	_ = createCmd.MarkFlagRequired("company")
	_ = createCmd.MarkFlagRequired("code")
	_ = createCmd.MarkFlagRequired("name")

	updateCmd := &cobra.Command{
		Use:     "update",
		Short:   "Update an establishment.",
		Example: strings.TrimSpace(`ptc establishment update --id 5 --company 3 --code MATRIZ --name "Unidade Matriz II"`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			id, _ := cmd.Flags().GetInt64("id")
			establishment, err := services.Establishments.Update(cmd.Context(), id, establishmentDraftFromFlags(cmd))
			if err != nil {
				return wrapSvc(err)
			}
			return emit(runtime.Output(), stdout, establishment, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "estabelecimento #%d atualizado\n", establishment.ID)
				return err
			})
		},
	}
	updateCmd.Flags().Int64P("id", "i", 0, "Establishment id")
	addEstablishmentDraftFlags(updateCmd)
	_ = updateCmd.MarkFlagRequired("id")
	_ = updateCmd.MarkFlagRequired("company")
	_ = updateCmd.MarkFlagRequired("code")
	_ = updateCmd.MarkFlagRequired("name")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Activate or deactivate an establishment.",
		Example: strings.TrimSpace(`ptc establishment status --id 5 --active
ptc establishment status --id 5 --active=false`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			id, _ := cmd.Flags().GetInt64("id")
			active, _ := cmd.Flags().GetBool("active")
			establishment, err := services.Establishments.PatchStatus(cmd.Context(), id, active)
			if err != nil {
				return wrapSvc(err)
			}
			return emit(runtime.Output(), stdout, establishment, func(w io.Writer) error {
				state := "inativo"
				if establishment.IsActive {
					state = "ativo"
				}
				_, err := fmt.Fprintf(w, "estabelecimento #%d agora está %s\n", establishment.ID, state)
				return err
			})
		},
	}
	statusCmd.Flags().Int64P("id", "i", 0, "Establishment id")
	statusCmd.Flags().Bool("active", true, "Target state")
	_ = statusCmd.MarkFlagRequired("id")

	deleteCmd := &cobra.Command{
		Use:     "delete",
		Aliases: []string{"rm", "remove"},
		Short:   "Delete an establishment.",
		Example: strings.TrimSpace(`ptc establishment rm --id 5 --yes`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			if err := common.RequireYes(yes, wrapErr, "excluir o estabelecimento"); err != nil {
				return err
			}
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			id, _ := cmd.Flags().GetInt64("id")
			if err := services.Establishments.Delete(cmd.Context(), id); err != nil {
				return wrapSvc(err)
			}
			return emit(runtime.Output(), stdout, map[string]any{"deleted": true, "establishment_id": id}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "estabelecimento #%d excluído\n", id)
				return err
			})
		},
	}
	deleteCmd.Flags().Int64P("id", "i", 0, "Establishment id")
	deleteCmd.Flags().Bool("yes", false, "Confirm the destructive operation")
	_ = deleteCmd.MarkFlagRequired("id")

	validateCmd := &cobra.Command{
		Use:     "validate",
		Short:   "Validate an establishment draft without saving it.",
		Example: strings.TrimSpace(`ptc establishment validate --company 3 --code FILIAL01 --name "Filial Centro"`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			result, err := services.Establishments.Validate(cmd.Context(), establishmentDraftFromFlags(cmd))
			if err != nil {
				return wrapSvc(err)
			}
			return emit(runtime.Output(), stdout, result, func(w io.Writer) error {
				return renderValidation(w, result)
			})
		},
	}
	addEstablishmentDraftFlags(validateCmd)
	_ = validateCmd.MarkFlagRequired("company")
	_ = validateCmd.MarkFlagRequired("code")
	_ = validateCmd.MarkFlagRequired("name")

	establishmentCmd.AddCommand(listCmd, getCmd, createCmd, updateCmd, statusCmd, deleteCmd, validateCmd)
	return establishmentCmd
}

func renderEstablishment(w io.Writer, establishment model.Establishment) error {
	state := "inativo"
	if establishment.IsActive {
		state = "ativo"
	}
	lines := []string{
		fmt.Sprintf("#%d %s (%s)", establishment.ID, establishment.Name, establishment.Code),
		fmt.Sprintf("empresa: #%d", establishment.CompanyID),
		"situação: " + state,
	}
	if establishment.Type != "" {
		lines = append(lines, "tipo: "+establishment.Type)
	}
	if establishment.Category != "" {
		lines = append(lines, "categoria: "+establishment.Category)
	}
	if establishment.City != "" {
		lines = append(lines, fmt.Sprintf("cidade: %s/%s", establishment.City, establishment.State))
	}
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}
