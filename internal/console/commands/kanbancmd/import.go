package kanbancmd

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jvcardoso/pro-team-care-console/internal/console/commands/common"
	"github.com/jvcardoso/pro-team-care-console/internal/service"
)

func NewImport(runtime common.Runtime, stdout io.Writer, emit common.EmitFunc, wrapSvc common.WrapServiceErrorFunc, wrapErr common.WrapErrorFunc) *cobra.Command {
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Bulk import cards from external tools.",
	}

	type importFunc func(services *common.Services, cmd *cobra.Command, filename string, file io.Reader) (service.ImportResult, error)

	makeRun := func(doImport importFunc) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			path, _ := cmd.Flags().GetString("file")

			file, err := os.Open(path)
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			defer file.Close()

			result, err := doImport(services, cmd, filepath.Base(path), file)
			if err != nil {
				return wrapSvc(err)
			}
			return emit(runtime.Output(), stdout, result, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "importados: %d  ignorados: %d\n", result.Imported, result.Skipped)
				return err
			})
		}
	}

	bmCmd := &cobra.Command{
		Use:     "bm",
		Short:   "Import cards from a BM CSV export.",
		Long:    "Expects a semicolon separated file in the format title;description;priority. Rows without a title or with an unknown priority are skipped.",
		Example: strings.TrimSpace(`ptc import bm --file ./chamados.csv`),
		RunE: makeRun(func(services *common.Services, cmd *cobra.Command, filename string, file io.Reader) (service.ImportResult, error) {
			return services.Kanban.ImportBM(cmd.Context(), filename, file)
		}),
	}
	bmCmd.Flags().StringP("file", "f", "", "CSV file path")
	_ = bmCmd.MarkFlagRequired("file")

	bmXLSXCmd := &cobra.Command{
		Use:     "bm-xlsx",
		Short:   "Import cards from a BM XLSX export.",
		Example: strings.TrimSpace(`ptc import bm-xlsx --file ./chamados.xlsx`),
		RunE: makeRun(func(services *common.Services, cmd *cobra.Command, filename string, file io.Reader) (service.ImportResult, error) {
			return services.Kanban.ImportBMXLSX(cmd.Context(), filename, file)
		}),
	}
	bmXLSXCmd.Flags().StringP("file", "f", "", "XLSX file path")
	_ = bmXLSXCmd.MarkFlagRequired("file")

	importCmd.AddCommand(bmCmd, bmXLSXCmd)
	return importCmd
}
