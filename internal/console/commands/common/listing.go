package common

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jvcardoso/pro-team-care-console/internal/datatable"
)

// AddListFlags registers the flag set shared by every paginated list command.
func AddListFlags(cmd *cobra.Command) {
	cmd.Flags().Int("page", 1, "Page number")
	cmd.Flags().Int("size", 10, "Page size")
	cmd.Flags().String("search", "", "Search term")
	cmd.Flags().String("sort", "", "Sort expression, e.g. name or -created_at")
	cmd.Flags().String("export", "", "Export loaded rows (csv|json)")
	cmd.Flags().StringP("out", "o", "", "Export destination file (default stdout)")
}

// RunList drives a datatable through the flag state and renders or exports
// the resulting page. Filters arrive from the caller since each entity has
// its own filter flags.
func RunList[T any](
	cmd *cobra.Command,
	stdout io.Writer,
	output string,
	table *datatable.Table[T],
	filters map[string]string,
	emit EmitFunc,
	wrapSvc WrapServiceErrorFunc,
	wrapErr WrapErrorFunc,
) error {
	ctx := cmd.Context()

	page, _ := cmd.Flags().GetInt("page")
	search, _ := cmd.Flags().GetString("search")
	sort, _ := cmd.Flags().GetString("sort")
	export, _ := cmd.Flags().GetString("export")
	out, _ := cmd.Flags().GetString("out")

	if search != "" {
		table.SetSearchTerm(search)
	}
	for key, value := range filters {
		if strings.TrimSpace(value) == "" {
			continue
		}
		if err := table.SetFilter(ctx, key, value); err != nil {
			return wrapSvc(err)
		}
	}
	if sort != "" {
		if err := table.SetSort(ctx, sort); err != nil {
			return wrapSvc(err)
		}
	}
	if err := table.SetPage(ctx, page); err != nil {
		return wrapSvc(err)
	}

	if export != "" {
		dst := stdout
		if out != "" {
			file, err := os.Create(out)
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			defer file.Close()
			dst = file
		}
		switch export {
		case "csv":
			if err := table.ExportCSV(dst); err != nil {
				return wrapErr(http.StatusInternalServerError, err.Error())
			}
		case "json":
			if err := table.ExportJSON(dst); err != nil {
				return wrapErr(http.StatusInternalServerError, err.Error())
			}
		default:
			return wrapErr(http.StatusBadRequest, fmt.Sprintf("invalid export format: %s (expected csv or json)", export))
		}
		return nil
	}

	return emit(output, stdout, table.Page(), func(w io.Writer) error {
		return RenderTable(w, table)
	})
}

func RenderTable[T any](w io.Writer, table *datatable.Table[T]) error {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	columns := table.Columns()
	titles := make([]string, len(columns))
	for i, column := range columns {
		titles[i] = column.Title
	}
	fmt.Fprintln(tw, strings.Join(titles, "\t"))
	for _, row := range table.Rows() {
		cells := make([]string, len(columns))
		for i, column := range columns {
			cells[i] = column.Value(row)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, table.Summary())
	return err
}
