package sandbox_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/jvcardoso/pro-team-care-console/internal/model"
	"github.com/jvcardoso/pro-team-care-console/internal/sandbox"
)

type testEnv struct {
	t      *testing.T
	server *httptest.Server
	token  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	s, err := sandbox.New(sandbox.Options{
		SQLitePath: filepath.Join(dir, "sandbox.db"),
		UploadDir:  filepath.Join(dir, "uploads"),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	server := httptest.NewServer(s.Handler())
	t.Cleanup(server.Close)

	env := &testEnv{t: t, server: server}
	env.token = env.login("operador@proteamcare.com.br")
	return env
}

func (e *testEnv) login(email string) string {
	e.t.Helper()
	status, body := e.do(http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": "secret"})
	require.Equal(e.t, http.StatusOK, status, string(body))
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(e.t, json.Unmarshal(body, &resp))
	require.NotEmpty(e.t, resp.AccessToken)
	return resp.AccessToken
}

func (e *testEnv) do(method, path, token string, body any) (int, []byte) {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(e.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	return resp.StatusCode, payload
}

func (e *testEnv) doAuth(method, path string, body any) (int, []byte) {
	return e.do(method, path, e.token, body)
}

func (e *testEnv) createConfirmedCard(title string) model.Card {
	e.t.Helper()
	status, body := e.doAuth(http.MethodPost, "/kanban/cards", map[string]any{"title": title, "column_id": 1})
	require.Equal(e.t, http.StatusCreated, status, string(body))
	var suggestion model.CardSuggestion
	require.NoError(e.t, json.Unmarshal(body, &suggestion))

	status, body = e.doAuth(http.MethodPost, fmt.Sprintf("/kanban/cards/%d/validate", suggestion.CardID), map[string]any{
		"title":    title,
		"priority": suggestion.Priority,
		"tags":     suggestion.Tags,
	})
	require.Equal(e.t, http.StatusOK, status, string(body))
	var card model.Card
	require.NoError(e.t, json.Unmarshal(body, &card))
	return card
}

func (e *testEnv) board() model.Board {
	e.t.Helper()
	status, body := e.doAuth(http.MethodGet, "/kanban/board", nil)
	require.Equal(e.t, http.StatusOK, status, string(body))
	var board model.Board
	require.NoError(e.t, json.Unmarshal(body, &board))
	return board
}

func TestRequestLogCarriesSessionUser(t *testing.T) {
	dir := t.TempDir()
	var logs bytes.Buffer
	s, err := sandbox.New(sandbox.Options{
		SQLitePath: filepath.Join(dir, "sandbox.db"),
		UploadDir:  filepath.Join(dir, "uploads"),
		Logger:     slog.New(slog.NewTextHandler(&logs, nil)),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	server := httptest.NewServer(s.Handler())
	t.Cleanup(server.Close)

	env := &testEnv{t: t, server: server}
	env.token = env.login("operador@proteamcare.com.br")

	status, _ := env.doAuth(http.MethodGet, "/kanban/board", nil)
	require.Equal(t, http.StatusOK, status)

	require.Contains(t, logs.String(), "path=/kanban/board")
	require.Contains(t, logs.String(), "user=operador@proteamcare.com.br")
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	status, _ := env.do(http.MethodGet, "/kanban/board", "", nil)
	require.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.do(http.MethodGet, "/kanban/board", "bogus-token", nil)
	require.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.doAuth(http.MethodGet, "/kanban/board", nil)
	require.Equal(t, http.StatusOK, status)
}

func TestProposedCardStaysOffBoardUntilConfirmed(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.doAuth(http.MethodPost, "/kanban/cards", map[string]any{
		"title":     "Sistema parado no faturamento",
		"column_id": 1,
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var suggestion model.CardSuggestion
	require.NoError(t, json.Unmarshal(body, &suggestion))
	require.Equal(t, model.PriorityUrgente, suggestion.Priority)
	require.Contains(t, suggestion.Tags, "faturamento")

	require.Empty(t, env.board().CardsByColumn[1])

	status, body = env.doAuth(http.MethodPost, fmt.Sprintf("/kanban/cards/%d/validate", suggestion.CardID), map[string]any{
		"title":    "Sistema parado no faturamento",
		"priority": "Urgente",
		"tags":     suggestion.Tags,
	})
	require.Equal(t, http.StatusOK, status, string(body))

	board := env.board()
	require.Len(t, board.CardsByColumn[1], 1)
	require.Equal(t, suggestion.CardID, board.CardsByColumn[1][0].ID)

	status, body = env.doAuth(http.MethodGet, fmt.Sprintf("/kanban/cards/%d", suggestion.CardID), nil)
	require.Equal(t, http.StatusOK, status)
	var details model.CardDetails
	require.NoError(t, json.Unmarshal(body, &details))
	require.Len(t, details.Movements, 1)
	require.Equal(t, model.MovementCreated, details.Movements[0].Type)
	require.Contains(t, tagNames(details.Tags), "faturamento")
}

func TestConfirmingAnActiveCardConflicts(t *testing.T) {
	env := newTestEnv(t)
	card := env.createConfirmedCard("Renovar certificado digital")

	status, body := env.doAuth(http.MethodPost, fmt.Sprintf("/kanban/cards/%d/validate", card.ID), map[string]any{
		"title":    "Renovar certificado digital",
		"priority": "Alta",
	})
	require.Equal(t, http.StatusConflict, status, string(body))

	// The second confirm must not append another system movement.
	status, body = env.doAuth(http.MethodGet, fmt.Sprintf("/kanban/cards/%d", card.ID), nil)
	require.Equal(t, http.StatusOK, status)
	var details model.CardDetails
	require.NoError(t, json.Unmarshal(body, &details))
	require.Len(t, details.Movements, 1)
	require.Equal(t, model.MovementCreated, details.Movements[0].Type)
}

func tagNames(tags []model.Tag) []string {
	names := make([]string, 0, len(tags))
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	return names
}

func TestMoveCardRecordsColumnChange(t *testing.T) {
	env := newTestEnv(t)
	first := env.createConfirmedCard("Cadastrar novo paciente")
	second := env.createConfirmedCard("Revisar contrato")

	status, body := env.doAuth(http.MethodPatch, fmt.Sprintf("/kanban/cards/%d/move", first.ID), map[string]any{"column_id": 2})
	require.Equal(t, http.StatusOK, status, string(body))
	var moved model.Card
	require.NoError(t, json.Unmarshal(body, &moved))
	require.Equal(t, int64(2), moved.ColumnID)

	board := env.board()
	require.Len(t, board.CardsByColumn[1], 1)
	require.Equal(t, second.ID, board.CardsByColumn[1][0].ID)
	require.Len(t, board.CardsByColumn[2], 1)

	status, body = env.doAuth(http.MethodGet, fmt.Sprintf("/kanban/cards/%d", first.ID), nil)
	require.Equal(t, http.StatusOK, status)
	var details model.CardDetails
	require.NoError(t, json.Unmarshal(body, &details))
	require.Equal(t, model.MovementColumnChange, details.Movements[len(details.Movements)-1].Type)
}

func TestMovePositionWithinColumn(t *testing.T) {
	env := newTestEnv(t)
	first := env.createConfirmedCard("Primeiro")
	second := env.createConfirmedCard("Segundo")
	third := env.createConfirmedCard("Terceiro")

	position := 0
	status, _ := env.doAuth(http.MethodPatch, fmt.Sprintf("/kanban/cards/%d/move", third.ID), map[string]any{"column_id": 1, "position": position})
	require.Equal(t, http.StatusOK, status)

	cards := env.board().CardsByColumn[1]
	require.Len(t, cards, 3)
	require.Equal(t, third.ID, cards[0].ID)
	require.Equal(t, first.ID, cards[1].ID)
	require.Equal(t, second.ID, cards[2].ID)
}

func TestSystemMovementsAreImmutable(t *testing.T) {
	env := newTestEnv(t)
	card := env.createConfirmedCard("Auditoria de acessos")

	status, body := env.doAuth(http.MethodGet, fmt.Sprintf("/kanban/cards/%d", card.ID), nil)
	require.Equal(t, http.StatusOK, status)
	var details model.CardDetails
	require.NoError(t, json.Unmarshal(body, &details))
	require.NotEmpty(t, details.Movements)
	systemID := details.Movements[0].ID

	status, _ = env.doAuth(http.MethodPut, fmt.Sprintf("/kanban/movements/%d", systemID), map[string]any{"subject": "Alterado"})
	require.Equal(t, http.StatusConflict, status)

	status, _ = env.doAuth(http.MethodDelete, fmt.Sprintf("/kanban/movements/%d", systemID), nil)
	require.Equal(t, http.StatusConflict, status)

	status, body = env.doAuth(http.MethodPost, fmt.Sprintf("/kanban/cards/%d/movements", card.ID), map[string]any{
		"subject":    "Contato telefônico",
		"time_spent": 15,
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var movement model.Movement
	require.NoError(t, json.Unmarshal(body, &movement))
	require.Equal(t, model.MovementNote, movement.Type)

	status, _ = env.doAuth(http.MethodPut, fmt.Sprintf("/kanban/movements/%d", movement.ID), map[string]any{"subject": "Contato por email"})
	require.Equal(t, http.StatusOK, status)
}

func TestCompleteCardMovesToFinalColumn(t *testing.T) {
	env := newTestEnv(t)
	card := env.createConfirmedCard("Entrega de equipamento")

	status, body := env.doAuth(http.MethodPost, fmt.Sprintf("/kanban/cards/%d/complete", card.ID), nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var completed model.Card
	require.NoError(t, json.Unmarshal(body, &completed))
	require.Equal(t, int64(4), completed.ColumnID)
	require.Equal(t, "Concluído", completed.SubStatus)
}

func TestCompanyLifecycleAndValidation(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.doAuth(http.MethodPost, "/companies", map[string]any{
		"name": "Clínica Vida Ltda",
		"cnpj": "12.345.678/0001-90",
		"city": "Campinas", "state": "SP",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var company model.Company
	require.NoError(t, json.Unmarshal(body, &company))
	require.Equal(t, "12345678000190", company.CNPJ)
	require.Equal(t, "pending", company.Status)

	status, body = env.doAuth(http.MethodPost, "/companies/validate", map[string]any{
		"name": "Outra Clínica",
		"cnpj": "12345678000190",
	})
	require.Equal(t, http.StatusOK, status)
	var validation struct {
		Valid  bool     `json:"valid"`
		Issues []string `json:"issues"`
	}
	require.NoError(t, json.Unmarshal(body, &validation))
	require.False(t, validation.Valid)
	require.NotEmpty(t, validation.Issues)

	status, _ = env.doAuth(http.MethodPost, "/companies", map[string]any{"name": "Outra", "cnpj": "12345678000190"})
	require.Equal(t, http.StatusConflict, status)

	status, body = env.doAuth(http.MethodPatch, fmt.Sprintf("/companies/%d/status", company.ID), map[string]string{"status": "active"})
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = env.doAuth(http.MethodPost, "/companies/cleanup-pending", nil)
	require.Equal(t, http.StatusOK, status)
	var cleanup struct {
		Removed int `json:"removed"`
	}
	require.NoError(t, json.Unmarshal(body, &cleanup))
	require.Zero(t, cleanup.Removed)

	status, _ = env.doAuth(http.MethodPatch, fmt.Sprintf("/companies/%d/status", company.ID), map[string]string{"status": "pending"})
	require.Equal(t, http.StatusOK, status)
	status, body = env.doAuth(http.MethodPost, "/companies/cleanup-pending", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &cleanup))
	require.Equal(t, 1, cleanup.Removed)
}

func TestCompanyListPaginationAndSearch(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 12; i++ {
		status, _ := env.doAuth(http.MethodPost, "/companies", map[string]any{
			"name": fmt.Sprintf("Empresa %02d", i),
			"cnpj": fmt.Sprintf("111222330001%02d", i),
		})
		require.Equal(t, http.StatusCreated, status)
	}

	status, body := env.doAuth(http.MethodGet, "/companies?page=2&size=5", nil)
	require.Equal(t, http.StatusOK, status)
	var page model.Page[model.Company]
	require.NoError(t, json.Unmarshal(body, &page))
	require.Equal(t, 12, page.Total)
	require.Equal(t, 3, page.Pages)
	require.Len(t, page.Items, 5)

	status, body = env.doAuth(http.MethodGet, "/companies?search=empresa+03", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &page))
	require.Equal(t, 1, page.Total)
	require.Equal(t, "Empresa 03", page.Items[0].Name)
}

func TestSessionSwitchAndImpersonation(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.doAuth(http.MethodPost, "/companies", map[string]any{"name": "Matriz", "cnpj": "99888777000166"})
	require.Equal(t, http.StatusCreated, status)
	var company model.Company
	require.NoError(t, json.Unmarshal(body, &company))

	status, body = env.doAuth(http.MethodPost, "/secure-session/switch", map[string]any{"company_id": company.ID})
	require.Equal(t, http.StatusOK, status, string(body))
	var session model.SessionContext
	require.NoError(t, json.Unmarshal(body, &session))
	require.Equal(t, company.ID, session.CompanyID)

	status, _ = env.doAuth(http.MethodPost, "/secure-session/switch", map[string]any{"company_id": company.ID + 100})
	require.Equal(t, http.StatusNotFound, status)

	status, body = env.doAuth(http.MethodPost, "/secure-session/impersonate", map[string]string{"user_email": "gestor@clinica.com.br"})
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &session))
	require.True(t, session.Impersonating)
	require.Equal(t, "gestor@clinica.com.br", session.ImpersonatedEmail)

	status, body = env.doAuth(http.MethodDelete, "/secure-session/impersonate", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &session))
	require.False(t, session.Impersonating)
	require.Equal(t, company.ID, session.CompanyID)
}

func TestGeocodingEndpoints(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.doAuth(http.MethodGet, "/geocoding/cep/13015904", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var result model.GeocodeResult
	require.NoError(t, json.Unmarshal(body, &result))
	require.Equal(t, "13015904", result.ZipCode)
	require.NotZero(t, result.Latitude)

	status, _ = env.doAuth(http.MethodGet, "/geocoding/cep/1301", nil)
	require.Equal(t, http.StatusBadRequest, status)

	status, _ = env.doAuth(http.MethodGet, "/geocoding/address?q=Av+Paulista+1000", nil)
	require.Equal(t, http.StatusOK, status)
}

func (e *testEnv) upload(path, filename, contents string) (int, []byte) {
	e.t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(e.t, err)
	_, err = io.Copy(part, strings.NewReader(contents))
	require.NoError(e.t, err)
	require.NoError(e.t, writer.Close())

	req, err := http.NewRequest(http.MethodPost, e.server.URL+path, &buf)
	require.NoError(e.t, err)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+e.token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	require.NoError(e.t, err)
	return resp.StatusCode, payload
}

func TestImportBM(t *testing.T) {
	env := newTestEnv(t)

	csvData := strings.Join([]string{
		"Migrar cadastro;Importado do BM;Alta",
		";sem título;Baixa",
		"Conferir faturas;;Inexistente",
		"Agendar visita",
	}, "\n")

	status, body := env.upload("/kanban/import-bm", "export.csv", csvData)
	require.Equal(t, http.StatusOK, status, string(body))
	var result struct {
		Imported int `json:"imported"`
		Skipped  int `json:"skipped"`
	}
	require.NoError(t, json.Unmarshal(body, &result))
	require.Equal(t, 2, result.Imported)
	require.Equal(t, 2, result.Skipped)

	require.Len(t, env.board().CardsByColumn[1], 2)
}

func TestImportBMXLSXIsRejected(t *testing.T) {
	env := newTestEnv(t)
	status, _ := env.upload("/kanban/import-bm-xlsx", "export.xlsx", "not-really-xlsx")
	require.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestCardImageUpload(t *testing.T) {
	env := newTestEnv(t)
	card := env.createConfirmedCard("Anexar comprovante")

	status, body := env.upload(fmt.Sprintf("/kanban/cards/%d/images", card.ID), "comprovante.png", "png-bytes")
	require.Equal(t, http.StatusCreated, status, string(body))
	var image model.Image
	require.NoError(t, json.Unmarshal(body, &image))
	require.NotNil(t, image.CardImageID)
	require.Equal(t, "comprovante.png", image.FileName)

	status, body = env.doAuth(http.MethodGet, fmt.Sprintf("/kanban/cards/%d", card.ID), nil)
	require.Equal(t, http.StatusOK, status)
	var details model.CardDetails
	require.NoError(t, json.Unmarshal(body, &details))
	require.Len(t, details.Images, 1)
}

func TestWebsocketReceivesCardEvents(t *testing.T) {
	env := newTestEnv(t)
	card := env.createConfirmedCard("Evento de teste")

	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws?topic=card."
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		defer resp.Body.Close()
	}
	defer conn.Close()

	status, _ := env.doAuth(http.MethodPatch, fmt.Sprintf("/kanban/cards/%d/move", card.ID), map[string]any{"column_id": 2})
	require.Equal(t, http.StatusOK, status)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var event model.Event
	require.NoError(t, conn.ReadJSON(&event))
	require.Equal(t, model.EventTypeCardMoved, event.Type)
	require.Equal(t, card.ID, event.CardID)
}
