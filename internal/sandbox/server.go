package sandbox

import (
	"context"
	"hash/fnv"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/jvcardoso/pro-team-care-console/internal/model"
)

type Options struct {
	SQLitePath string
	UploadDir  string
	Logger     *slog.Logger
}

// Server is a self-contained stand-in for the production backend. It serves
// the same REST contract the console consumes, backed by SQLite, so the
// console can be exercised without network access to the real system.
type Server struct {
	store    *Store
	sessions *sessions
	hub      *hub
	logger   *slog.Logger
	router   *chi.Mux
	api      huma.API
	uploads  string
}

func New(opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store, err := NewStore(opts.SQLitePath)
	if err != nil {
		return nil, err
	}

	uploads := opts.UploadDir
	if uploads == "" {
		uploads = filepath.Join(filepath.Dir(opts.SQLitePath), "uploads")
	}
	if err := os.MkdirAll(uploads, 0o755); err != nil {
		_ = store.Close()
		return nil, err
	}

	router := chi.NewRouter()
	s := &Server{
		store:    store,
		sessions: newSessions(),
		hub:      newHub(),
		logger:   logger,
		router:   router,
		uploads:  uploads,
	}
	s.routes()
	s.logger.Info("sandbox initialized", "sqlite_path", opts.SQLitePath, "upload_dir", uploads)
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.api.OpenAPI()
}

func (s *Server) Close() error {
	s.hub.Close()
	return s.store.Close()
}

func (s *Server) routes() {
	s.router.Use(s.requestLoggingMiddleware)
	s.router.Use(s.authMiddleware)

	config := huma.DefaultConfig("Pro Team Care Sandbox API", "1.0.0")
	config.OpenAPIPath = "/openapi"
	config.DocsPath = ""

	s.api = humachi.New(s.router, config)
	s.registerAuthOperations()
	s.registerKanbanOperations()
	s.registerRegistryOperations()
	s.registerWebSocketOperationDocs()

	// Multipart endpoints and the websocket upgrade stay native HTTP handlers.
	s.router.Post("/kanban/cards/{cardID}/images", s.uploadCardImage)
	s.router.Post("/kanban/cards/{cardID}/process-image", s.processCardImage)
	s.router.Post("/kanban/import-bm", s.importBM)
	s.router.Post("/kanban/import-bm-xlsx", s.importBMXLSX)
	s.router.Get("/ws", s.hub.ServeWS)
}

func (s *Server) registerWebSocketOperationDocs() {
	oapi := s.api.OpenAPI()
	if oapi.Paths == nil {
		oapi.Paths = map[string]*huma.PathItem{}
	}
	oapi.Paths["/ws"] = &huma.PathItem{
		Get: &huma.Operation{
			OperationID: "websocketEvents",
			Summary:     "Websocket event stream",
			Description: "Subscribe to board and session events. Optional topic query param filters by event type prefix.",
			Responses: map[string]*huma.Response{
				"101": {Description: "Switching protocols to websocket"},
			},
		},
	}
}

type healthOutput struct {
	Body struct {
		Ok bool `json:"ok"`
	}
}

func (s *Server) health(_ context.Context, _ *struct{}) (*healthOutput, error) {
	out := &healthOutput{}
	out.Body.Ok = true
	return out, nil
}

type loginInput struct {
	Body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
}

type loginOutput struct {
	Body struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
}

func (s *Server) login(_ context.Context, input *loginInput) (*loginOutput, error) {
	email := strings.TrimSpace(input.Body.Email)
	if email == "" || input.Body.Password == "" {
		return nil, huma.Error400BadRequest("email and password are required")
	}
	token, err := s.sessions.issue(email)
	if err != nil {
		return nil, huma.Error500InternalServerError(err.Error())
	}
	s.logger.Info("login", "email", email)

	out := &loginOutput{}
	out.Body.AccessToken = token
	out.Body.TokenType = "bearer"
	return out, nil
}

type AuthorizedInput struct {
	Authorization string `header:"Authorization"`
}

func (i *AuthorizedInput) token() string {
	return strings.TrimSpace(strings.TrimPrefix(i.Authorization, "Bearer "))
}

type sessionOutput struct {
	Body model.SessionContext
}

func (s *Server) sessionContext(_ context.Context, input *AuthorizedInput) (*sessionOutput, error) {
	ctx, ok := s.sessions.lookup(input.token())
	if !ok {
		return nil, huma.Error401Unauthorized("invalid or expired token")
	}
	return &sessionOutput{Body: *ctx}, nil
}

type sessionSwitchInput struct {
	AuthorizedInput
	Body struct {
		CompanyID       int64 `json:"company_id,omitempty"`
		EstablishmentID int64 `json:"establishment_id,omitempty"`
	}
}

func (s *Server) sessionSwitch(_ context.Context, input *sessionSwitchInput) (*sessionOutput, error) {
	if input.Body.CompanyID != 0 {
		if _, err := s.store.GetCompany(input.Body.CompanyID); err != nil {
			return nil, huma.Error404NotFound("company not found")
		}
	}
	if input.Body.EstablishmentID != 0 {
		if _, err := s.store.GetEstablishment(input.Body.EstablishmentID); err != nil {
			return nil, huma.Error404NotFound("establishment not found")
		}
	}
	ctx, ok := s.sessions.update(input.token(), func(session *model.SessionContext) {
		session.CompanyID = input.Body.CompanyID
		session.EstablishmentID = input.Body.EstablishmentID
	})
	if !ok {
		return nil, huma.Error401Unauthorized("invalid or expired token")
	}
	s.logger.Info("session switched", "company_id", ctx.CompanyID, "establishment_id", ctx.EstablishmentID)
	s.publishEvent(model.Event{Type: model.EventTypeSessionSwitched, Timestamp: time.Now().UTC()})
	return &sessionOutput{Body: *ctx}, nil
}

type impersonateInput struct {
	AuthorizedInput
	Body struct {
		UserEmail string `json:"user_email"`
	}
}

func (s *Server) startImpersonation(_ context.Context, input *impersonateInput) (*sessionOutput, error) {
	email := strings.TrimSpace(input.Body.UserEmail)
	if email == "" {
		return nil, huma.Error400BadRequest("user_email is required")
	}
	ctx, ok := s.sessions.update(input.token(), func(session *model.SessionContext) {
		session.Impersonating = true
		session.ImpersonatedEmail = email
	})
	if !ok {
		return nil, huma.Error401Unauthorized("invalid or expired token")
	}
	s.logger.Info("impersonation began", "user_email", email)
	s.publishEvent(model.Event{Type: model.EventTypeImpersonationBegan, Timestamp: time.Now().UTC()})
	return &sessionOutput{Body: *ctx}, nil
}

func (s *Server) endImpersonation(_ context.Context, input *AuthorizedInput) (*sessionOutput, error) {
	ctx, ok := s.sessions.update(input.token(), func(session *model.SessionContext) {
		session.Impersonating = false
		session.ImpersonatedEmail = ""
	})
	if !ok {
		return nil, huma.Error401Unauthorized("invalid or expired token")
	}
	s.logger.Info("impersonation ended")
	s.publishEvent(model.Event{Type: model.EventTypeImpersonationEnded, Timestamp: time.Now().UTC()})
	return &sessionOutput{Body: *ctx}, nil
}

func (s *Server) registerAuthOperations() {
	huma.Get(s.api, "/health", s.health)

	huma.Register(s.api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Authenticate and issue a bearer token",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, s.login)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSessionContext",
		Method:      http.MethodGet,
		Path:        "/secure-session/context",
		Summary:     "Current operating context",
		Errors:      []int{http.StatusUnauthorized},
	}, s.sessionContext)

	huma.Register(s.api, huma.Operation{
		OperationID: "switchSessionContext",
		Method:      http.MethodPost,
		Path:        "/secure-session/switch",
		Summary:     "Switch company or establishment context",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, s.sessionSwitch)

	huma.Register(s.api, huma.Operation{
		OperationID: "startImpersonation",
		Method:      http.MethodPost,
		Path:        "/secure-session/impersonate",
		Summary:     "Begin impersonating another user",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, s.startImpersonation)

	huma.Register(s.api, huma.Operation{
		OperationID: "endImpersonation",
		Method:      http.MethodDelete,
		Path:        "/secure-session/impersonate",
		Summary:     "End impersonation",
		Errors:      []int{http.StatusUnauthorized},
	}, s.endImpersonation)

	huma.Register(s.api, huma.Operation{
		OperationID: "geocodeAddress",
		Method:      http.MethodGet,
		Path:        "/geocoding/address",
		Summary:     "Geocode a free-form address",
		Errors:      []int{http.StatusBadRequest},
	}, s.geocodeAddress)

	huma.Register(s.api, huma.Operation{
		OperationID: "lookupCEP",
		Method:      http.MethodGet,
		Path:        "/geocoding/cep/{cep}",
		Summary:     "Resolve a CEP to an address",
		Errors:      []int{http.StatusBadRequest},
	}, s.lookupCEP)
}

type geocodeAddressInput struct {
	Q string `query:"q"`
}

type geocodeOutput struct {
	Body model.GeocodeResult
}

// geocodeAddress returns deterministic synthetic coordinates derived from the
// query text. Good enough for console rendering and tests.
func (s *Server) geocodeAddress(_ context.Context, input *geocodeAddressInput) (*geocodeOutput, error) {
	query := strings.TrimSpace(input.Q)
	if query == "" {
		return nil, huma.Error400BadRequest("q is required")
	}
	lat, lon := syntheticCoordinates(query)
	return &geocodeOutput{Body: model.GeocodeResult{
		Street:    query,
		City:      "São Paulo",
		State:     "SP",
		Latitude:  lat,
		Longitude: lon,
	}}, nil
}

type lookupCEPInput struct {
	CEP string `path:"cep"`
}

var cepDigits = regexp.MustCompile(`^\d{8}$`)

func (s *Server) lookupCEP(_ context.Context, input *lookupCEPInput) (*geocodeOutput, error) {
	if !cepDigits.MatchString(input.CEP) {
		return nil, huma.Error400BadRequest("cep must have exactly 8 digits")
	}
	lat, lon := syntheticCoordinates(input.CEP)
	return &geocodeOutput{Body: model.GeocodeResult{
		Street:    "Rua " + input.CEP[:5],
		District:  "Centro",
		City:      "São Paulo",
		State:     "SP",
		ZipCode:   input.CEP,
		Latitude:  lat,
		Longitude: lon,
	}}, nil
}

func syntheticCoordinates(seed string) (float64, float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	sum := h.Sum64()
	lat := -23.0 - float64(sum%1000)/1000.0
	lon := -46.0 - float64((sum/1000)%1000)/1000.0
	return lat, lon
}

func (s *Server) publishEvent(event model.Event) {
	s.hub.Publish(event)
}
