package console

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jvcardoso/pro-team-care-console/internal/sandbox"
)

type cliEnv struct {
	t      *testing.T
	server *httptest.Server
	env    []string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)

	app, err := sandbox.New(sandbox.Options{
		SQLitePath: filepath.Join(t.TempDir(), "sandbox.db"),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	server := httptest.NewServer(app.Handler())
	t.Cleanup(server.Close)

	return &cliEnv{
		t:      t,
		server: server,
		env:    []string{"PTC_SERVER_URL=" + server.URL, "PTC_OUTPUT=json"},
	}
}

// run executes one command and requires exit code zero.
func (e *cliEnv) run(args ...string) string {
	e.t.Helper()
	var stdout, stderr bytes.Buffer
	code := Run(args, &stdout, &stderr, e.env)
	require.Equal(e.t, 0, code, strings.Join(args, " ")+" stderr="+stderr.String())
	return stdout.String()
}

// runFail executes one command and requires a non-zero exit code.
func (e *cliEnv) runFail(args ...string) string {
	e.t.Helper()
	var stdout, stderr bytes.Buffer
	code := Run(args, &stdout, &stderr, e.env)
	require.Equal(e.t, 1, code, strings.Join(args, " "))
	return stderr.String()
}

func (e *cliEnv) login() {
	e.t.Helper()
	e.run("login", "-e", "operador@empresa.com.br", "-p", "segredo")
}

func decode[T any](t *testing.T, raw string) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal([]byte(raw), &out), raw)
	return out
}

func TestCLICardLifecycle(t *testing.T) {
	env := newCLIEnv(t)
	env.login()

	created := decode[map[string]any](t, env.run(
		"card", "create",
		"-t", "Sistema parado no faturamento",
		"-d", "Cliente relata erro ao emitir nota",
		"-c", "1",
	))
	require.Equal(t, "Urgente", created["priority"])
	cardID := int64(created["card_id"].(float64))
	require.Positive(t, cardID)

	// Unconfirmed cards stay off the board.
	board := decode[map[string]any](t, env.run("board", "show"))
	for _, cards := range board["cards_by_column"].(map[string]any) {
		require.Empty(t, cards)
	}

	env.run("card", "confirm", "-i", "1", "-t", "Sistema parado no faturamento", "--priority", "Urgente", "--tag", "faturamento")

	board = decode[map[string]any](t, env.run("board", "show"))
	require.Len(t, board["cards_by_column"].(map[string]any)["1"], 1)

	env.run("card", "update", "-i", "1", "--sub-status", "Em análise")
	env.run("board", "move", "-i", "1", "--to", "2")

	details := decode[map[string]any](t, env.run("card", "get", "-i", "1"))
	require.Equal(t, float64(2), details["column_id"])
	require.Equal(t, "Em análise", details["sub_status"])

	env.run("card", "complete", "-i", "1")

	// Destructive commands require --yes.
	stderr := env.runFail("card", "rm", "-i", "1")
	require.Contains(t, stderr, "--yes")
	env.run("card", "rm", "-i", "1", "--yes")
}

func TestCLIMovementsAndTags(t *testing.T) {
	env := newCLIEnv(t)
	env.login()

	env.run("card", "create", "-t", "Ajuste menor no cadastro", "-c", "1")
	env.run("card", "confirm", "-i", "1", "-t", "Ajuste menor no cadastro", "--priority", "Baixa")

	movement := decode[map[string]any](t, env.run(
		"movement", "add", "--card", "1",
		"-s", "Contato telefônico", "--time", "10",
	))
	require.Equal(t, float64(2), movement["movement_id"])

	env.run("movement", "edit", "--card", "1", "-i", "2", "-s", "Contato telefônico (retorno)")

	// Movement #1 is the system "Card criado" entry and cannot be edited.
	stderr := env.runFail("movement", "edit", "--card", "1", "-i", "1", "-s", "x")
	require.NotEmpty(t, stderr)

	env.run("card", "tag", "add", "--card", "1", "-n", "cadastro")
	env.run("card", "tag", "rm", "--card", "1", "-i", "1")
	env.run("movement", "rm", "--card", "1", "-i", "2", "--yes")
}

func TestCLICompanyAndSessionFlow(t *testing.T) {
	env := newCLIEnv(t)
	env.login()

	company := decode[map[string]any](t, env.run(
		"company", "create",
		"-n", "Clínica Vida Ltda",
		"--cnpj", "12.345.678/0001-90",
		"--city", "São Paulo", "--state", "SP",
	))
	require.Equal(t, "12345678000190", company["cnpj"])
	require.Equal(t, "pending", company["status"])

	env.run("company", "status", "-i", "1", "--set", "active")

	page := decode[map[string]any](t, env.run("company", "list", "--status", "active"))
	require.Equal(t, float64(1), page["total"])

	env.run("establishment", "create", "--company", "1", "--code", "MATRIZ", "-n", "Unidade Matriz")

	session := decode[map[string]any](t, env.run("session", "switch", "--company", "1", "--establishment", "1"))
	require.Equal(t, float64(1), session["company_id"])
	require.Equal(t, float64(1), session["establishment_id"])

	session = decode[map[string]any](t, env.run("session", "impersonate", "-e", "cliente@clinica.com.br"))
	require.Equal(t, true, session["impersonating"])

	session = decode[map[string]any](t, env.run("session", "end-impersonation"))
	require.Equal(t, false, session["impersonating"])
}

func TestCLIExportCSV(t *testing.T) {
	env := newCLIEnv(t)
	env.login()

	env.run("company", "create", "-n", "Clínica Vida Ltda", "--cnpj", "12345678000190")
	env.run("company", "create", "-n", "Hospital Central SA", "--cnpj", "98765432000110")

	out := env.run("company", "list", "--export", "csv")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "ID,Nome,CNPJ,Status,Cidade,UF", lines[0])
}

func TestCLIGeocode(t *testing.T) {
	env := newCLIEnv(t)
	env.login()

	result := decode[map[string]any](t, env.run("geocode", "cep", "01310100"))
	require.Equal(t, "01310100", result["zip_code"])

	stderr := env.runFail("geocode", "cep", "123")
	require.NotEmpty(t, stderr)
}

func TestCLIRequiresAuthentication(t *testing.T) {
	env := newCLIEnv(t)

	stderr := env.runFail("board", "show")
	require.Contains(t, stderr, "401")
}

func TestCLIRejectsInvalidOutputFlag(t *testing.T) {
	env := newCLIEnv(t)
	stderr := env.runFail("--output", "yaml", "board", "show")
	require.Contains(t, stderr, "invalid --output")
}
