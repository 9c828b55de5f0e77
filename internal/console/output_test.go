package console

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jvcardoso/pro-team-care-console/internal/api"
)

func TestFormatErrorText(t *testing.T) {
	line := FormatError(OutputText, http.StatusNotFound, "card não encontrado")
	require.Equal(t, "erro (404): card não encontrado", line)
}

func TestFormatErrorJSON(t *testing.T) {
	line := FormatError(OutputJSON, http.StatusConflict, "cnpj already registered")

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &payload))
	require.Equal(t, float64(409), payload["status"])
	require.Equal(t, "cnpj already registered", payload["error"])
}

func TestFormatErrorEmptyMessageFallsBackToStatusText(t *testing.T) {
	line := FormatError(OutputText, http.StatusBadGateway, "  ")
	require.Equal(t, "erro (502): Bad Gateway", line)
}

func TestEmitJSONMarshalsPayload(t *testing.T) {
	var out bytes.Buffer
	err := emit("json", &out, map[string]any{"ok": true}, func(io.Writer) error {
		t.Fatal("text renderer must not run for json output")
		return nil
	})
	require.NoError(t, err)
	require.JSONEq(t, `{"ok":true}`, out.String())
}

func TestEmitTextUsesRenderer(t *testing.T) {
	var out bytes.Buffer
	err := emit("text", &out, map[string]any{"ok": true}, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, "tudo certo")
		return err
	})
	require.NoError(t, err)
	require.Equal(t, "tudo certo\n", out.String())
}

func TestEmitTextWithoutRendererFallsBackToJSON(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, emit("text", &out, map[string]int{"n": 1}, nil))
	require.JSONEq(t, `{"n":1}`, out.String())
}

func TestEmitRejectsInvalidOutput(t *testing.T) {
	err := emit("yaml", io.Discard, nil, nil)
	var cErr *cliError
	require.True(t, asCLIError(err, &cErr))
	require.Equal(t, http.StatusBadRequest, cErr.status)
}

func TestWrapServiceErrorUsesAPIStatus(t *testing.T) {
	err := wrapServiceError(&api.Error{Code: api.CodeNotFound, Status: 404, Message: "card not found"})
	var cErr *cliError
	require.True(t, asCLIError(err, &cErr))
	require.Equal(t, 404, cErr.status)
	require.Equal(t, "card not found", cErr.message)
}

func TestWrapServiceErrorMapsCodesWithoutStatus(t *testing.T) {
	cases := map[api.Code]int{
		api.CodeValidation:   http.StatusBadRequest,
		api.CodeNotFound:     http.StatusNotFound,
		api.CodeConflict:     http.StatusConflict,
		api.CodeUnauthorized: http.StatusUnauthorized,
		api.CodeTransport:    http.StatusBadGateway,
	}
	for code, want := range cases {
		err := wrapServiceError(&api.Error{Code: code, Message: "x"})
		var cErr *cliError
		require.True(t, asCLIError(err, &cErr))
		require.Equal(t, want, cErr.status, string(code))
	}
}

func TestWrapServiceErrorUnknownErrorIs500(t *testing.T) {
	err := wrapServiceError(errors.New("boom"))
	var cErr *cliError
	require.True(t, asCLIError(err, &cErr))
	require.Equal(t, http.StatusInternalServerError, cErr.status)
}

func TestFormatWatchLineText(t *testing.T) {
	line, err := FormatWatchLine(OutputText, map[string]any{
		"type":      "card.moved",
		"card_id":   float64(7),
		"column_id": float64(2),
	})
	require.NoError(t, err)
	require.Equal(t, "type=card.moved card_id=7 column_id=2", line)
}

func TestFormatWatchLineJSON(t *testing.T) {
	line, err := FormatWatchLine(OutputJSON, map[string]any{"type": "session.switched"})
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"session.switched"}`, line)
}

func TestFormatWatchLineEmptyEvent(t *testing.T) {
	line, err := FormatWatchLine(OutputText, map[string]any{})
	require.NoError(t, err)
	require.Equal(t, "(event)", line)
}
