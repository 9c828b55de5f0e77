// Package sessioncmd holds authentication and secure session commands.
package sessioncmd

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jvcardoso/pro-team-care-console/internal/console/commands/common"
	"github.com/jvcardoso/pro-team-care-console/internal/model"
	"github.com/jvcardoso/pro-team-care-console/internal/service"
)

func NewLogin(runtime common.Runtime, stdout io.Writer, emit common.EmitFunc, wrapSvc common.WrapServiceErrorFunc, wrapErr common.WrapErrorFunc) *cobra.Command {
	loginCmd := &cobra.Command{
		Use:     "login",
		Short:   "Authenticate and store the access token.",
		Example: strings.TrimSpace(`ptc login --email operador@empresa.com.br --password ...`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			if err := services.Auth.Login(cmd.Context(), strings.TrimSpace(email), password); err != nil {
				return wrapSvc(err)
			}
			return emit(runtime.Output(), stdout, map[string]any{"logged_in": true, "email": email}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "autenticado como %s\n", email)
				return err
			})
		},
	}
	loginCmd.Flags().StringP("email", "e", "", "User email")
	loginCmd.Flags().StringP("password", "p", "", "Password")
	_ = loginCmd.MarkFlagRequired("email")
	_ = loginCmd.MarkFlagRequired("password")
	return loginCmd
}

func NewLogout(runtime common.Runtime, stdout io.Writer, emit common.EmitFunc, wrapSvc common.WrapServiceErrorFunc, wrapErr common.WrapErrorFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the stored access token.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			if err := services.Auth.Logout(); err != nil {
				return wrapSvc(err)
			}
			return emit(runtime.Output(), stdout, map[string]any{"logged_out": true}, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, "sessão encerrada")
				return err
			})
		},
	}
}

func NewSession(runtime common.Runtime, stdout io.Writer, emit common.EmitFunc, wrapSvc common.WrapServiceErrorFunc, wrapErr common.WrapErrorFunc) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect and switch the secure session context.",
	}

	emitContext := func(sessionContext model.SessionContext) error {
		return emit(runtime.Output(), stdout, sessionContext, func(w io.Writer) error {
			return renderSessionContext(w, sessionContext)
		})
	}

	showCmd := &cobra.Command{
		Use:     "show",
		Aliases: []string{"context"},
		Short:   "Show the current session context.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			sessionContext, err := services.Session.CurrentContext(cmd.Context())
			if err != nil {
				return wrapSvc(err)
			}
			return emitContext(sessionContext)
		},
	}

	switchCmd := &cobra.Command{
		Use:   "switch",
		Short: "Switch the active company and establishment.",
		Example: strings.TrimSpace(`ptc session switch --company 3
ptc session switch --company 3 --establishment 5`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			companyID, _ := cmd.Flags().GetInt64("company")
			establishmentID, _ := cmd.Flags().GetInt64("establishment")
			sessionContext, err := services.Session.SwitchContext(cmd.Context(), service.SwitchRequest{
				CompanyID:       companyID,
				EstablishmentID: establishmentID,
			})
			if err != nil {
				return wrapSvc(err)
			}
			return emitContext(sessionContext)
		},
	}
	switchCmd.Flags().Int64("company", 0, "Company id")
	switchCmd.Flags().Int64("establishment", 0, "Establishment id")
	_ = switchCmd.MarkFlagRequired("company")

	impersonateCmd := &cobra.Command{
		Use:     "impersonate",
		Short:   "Start impersonating another user.",
		Example: strings.TrimSpace(`ptc session impersonate --email cliente@clinica.com.br`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			email, _ := cmd.Flags().GetString("email")
			sessionContext, err := services.Session.StartImpersonation(cmd.Context(), strings.TrimSpace(email))
			if err != nil {
				return wrapSvc(err)
			}
			return emitContext(sessionContext)
		},
	}
	impersonateCmd.Flags().StringP("email", "e", "", "Email of the user to impersonate")
	_ = impersonateCmd.MarkFlagRequired("email")

	endCmd := &cobra.Command{
		Use:     "end-impersonation",
		Aliases: []string{"end"},
		Short:   "Return to the original user.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			sessionContext, err := services.Session.EndImpersonation(cmd.Context())
			if err != nil {
				return wrapSvc(err)
			}
			return emitContext(sessionContext)
		},
	}

	sessionCmd.AddCommand(showCmd, switchCmd, impersonateCmd, endCmd)
	return sessionCmd
}

func renderSessionContext(w io.Writer, sessionContext model.SessionContext) error {
	lines := []string{fmt.Sprintf("usuário: %s (#%d)", sessionContext.UserEmail, sessionContext.UserID)}
	if sessionContext.CompanyID > 0 {
		lines = append(lines, fmt.Sprintf("empresa ativa: #%d", sessionContext.CompanyID))
	}
	if sessionContext.EstablishmentID > 0 {
		lines = append(lines, fmt.Sprintf("estabelecimento ativo: #%d", sessionContext.EstablishmentID))
	}
	if sessionContext.Impersonating {
		lines = append(lines, "personificando: "+sessionContext.ImpersonatedEmail)
	}
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}
