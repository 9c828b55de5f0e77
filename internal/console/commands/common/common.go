package common

import (
	"io"
	"net/http"

	"github.com/jvcardoso/pro-team-care-console/internal/api"
	"github.com/jvcardoso/pro-team-care-console/internal/board"
	"github.com/jvcardoso/pro-team-care-console/internal/service"
	"github.com/jvcardoso/pro-team-care-console/pkg/consoleconfig"
)

// Services bundles the constructed domain services behind one shared API
// client so every command reuses the same cache and token source.
type Services struct {
	Client         *api.Client
	Tokens         *consoleconfig.TokenStore
	Auth           *service.AuthService
	Kanban         *service.KanbanService
	Board          *board.Manager
	Companies      *service.CompaniesService
	Establishments *service.EstablishmentsService
	Geocoding      *service.GeocodingService
	Session        *service.SecureSessionService
	Analytics      *service.AnalyticsService
}

type Runtime interface {
	Output() string
	Services() (*Services, error)
}

// EmitFunc renders a command result in the active output format. The text
// renderer may be nil, in which case the payload is printed as JSON.
type EmitFunc func(output string, stdout io.Writer, payload any, text func(io.Writer) error) error

// WrapServiceErrorFunc converts service-layer errors into CLI errors.
type WrapServiceErrorFunc func(err error) error

// WrapErrorFunc builds a CLI error from a status and message.
type WrapErrorFunc func(status int, message string) error

// RequireYes guards destructive operations behind an explicit --yes flag.
func RequireYes(yes bool, wrapErr WrapErrorFunc, action string) error {
	if yes {
		return nil
	}
	return wrapErr(http.StatusBadRequest, "operação destrutiva: confirme com --yes para "+action)
}
