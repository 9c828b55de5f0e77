package registrycmd

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jvcardoso/pro-team-care-console/internal/console/commands/common"
	"github.com/jvcardoso/pro-team-care-console/internal/model"
)

func NewGeocode(runtime common.Runtime, stdout io.Writer, emit common.EmitFunc, wrapSvc common.WrapServiceErrorFunc, wrapErr common.WrapErrorFunc) *cobra.Command {
	geocodeCmd := &cobra.Command{
		Use:   "geocode",
		Short: "Resolve addresses and CEPs to coordinates.",
	}

	addressCmd := &cobra.Command{
		Use:     "address",
		Short:   "Geocode a free-form address.",
		Example: strings.TrimSpace(`ptc geocode address "Av. Paulista, 1000, São Paulo"`),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			result, err := services.Geocoding.Geocode(cmd.Context(), args[0])
			if err != nil {
				return wrapSvc(err)
			}
			return emit(runtime.Output(), stdout, result, func(w io.Writer) error {
				return renderGeocodeResult(w, result)
			})
		},
	}

	cepCmd := &cobra.Command{
		Use:     "cep",
		Short:   "Look up a CEP.",
		Example: strings.TrimSpace(`ptc geocode cep 01310100`),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			result, err := services.Geocoding.LookupCEP(cmd.Context(), args[0])
			if err != nil {
				return wrapSvc(err)
			}
			return emit(runtime.Output(), stdout, result, func(w io.Writer) error {
				return renderGeocodeResult(w, result)
			})
		},
	}

	geocodeCmd.AddCommand(addressCmd, cepCmd)
	return geocodeCmd
}

func renderGeocodeResult(w io.Writer, result model.GeocodeResult) error {
	lines := []string{}
	if result.Street != "" {
		lines = append(lines, "logradouro: "+result.Street)
	}
	if result.District != "" {
		lines = append(lines, "bairro: "+result.District)
	}
	lines = append(lines, fmt.Sprintf("cidade: %s/%s", result.City, result.State))
	if result.ZipCode != "" {
		lines = append(lines, "cep: "+result.ZipCode)
	}
	lines = append(lines, fmt.Sprintf("coordenadas: %.6f, %.6f", result.Latitude, result.Longitude))
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}
