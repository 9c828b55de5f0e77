// Package analyticscmd exposes the ITIL operational reports.
package analyticscmd

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jvcardoso/pro-team-care-console/internal/console/commands/common"
	"github.com/jvcardoso/pro-team-care-console/internal/datatable"
	"github.com/jvcardoso/pro-team-care-console/internal/model"
)

func itilColumns() []datatable.Column[model.ITILEntry] {
	return []datatable.Column[model.ITILEntry]{
		{Title: "ID", Value: func(e model.ITILEntry) string { return strconv.FormatInt(e.ID, 10) }},
		{Title: "Categoria", Value: func(e model.ITILEntry) string { return e.Category }},
		{Title: "Título", Value: func(e model.ITILEntry) string { return e.Title }},
		{Title: "Status", Value: func(e model.ITILEntry) string { return e.Status }},
		{Title: "SLA (min)", Value: func(e model.ITILEntry) string { return strconv.Itoa(e.SLAMinutes) }},
		{Title: "Aberto em", Value: func(e model.ITILEntry) string { return e.OpenedAt.Format("2006-01-02 15:04") }},
		{Title: "Resolvido em", Value: func(e model.ITILEntry) string {
			if e.ResolvedAt == nil {
				return ""
			}
			return e.ResolvedAt.Format("2006-01-02 15:04")
		}},
	}
}

func NewITIL(runtime common.Runtime, stdout io.Writer, emit common.EmitFunc, wrapSvc common.WrapServiceErrorFunc, wrapErr common.WrapErrorFunc) *cobra.Command {
	itilCmd := &cobra.Command{
		Use:     "itil",
		Aliases: []string{"analytics"},
		Short:   "ITIL operational entries.",
	}

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List ITIL entries.",
		Example: strings.TrimSpace(`ptc itil list --category Incident
ptc itil list --search faturamento --export csv --out incidentes.csv`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			size, _ := cmd.Flags().GetInt("size")
			category, _ := cmd.Flags().GetString("category")
			status, _ := cmd.Flags().GetString("status")

			table := datatable.New(datatable.Config[model.ITILEntry]{
				Columns:  itilColumns(),
				PageSize: size,
			}, services.Analytics.ListITIL)
			filters := map[string]string{"category": category, "status": status}
			return common.RunList(cmd, stdout, runtime.Output(), table, filters, emit, wrapSvc, wrapErr)
		},
	}
	common.AddListFlags(listCmd)
	listCmd.Flags().String("category", "", "Filter by category (Change|Incident|Service Request|Operation Task)")
	listCmd.Flags().String("status", "", "Filter by status")

	itilCmd.AddCommand(listCmd)
	return itilCmd
}
