package console

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jvcardoso/pro-team-care-console/internal/api"
)

type Output string

const (
	OutputText Output = "text"
	OutputJSON Output = "json"
)

type cliError struct {
	status  int
	message string
}

func (e *cliError) Error() string {
	return e.message
}

func isValidOutput(v string) bool {
	return v == string(OutputText) || v == string(OutputJSON)
}

func FormatError(output Output, status int, message string) string {
	msg := strings.TrimSpace(message)
	if msg == "" {
		msg = http.StatusText(status)
	}

	if output == OutputJSON {
		payload := map[string]any{
			"status": status,
			"error":  msg,
		}
		raw, _ := json.Marshal(payload)
		return string(raw)
	}

	return fmt.Sprintf("erro (%d): %s", status, msg)
}

// emit renders a command result. JSON output marshals the payload as-is;
// text output runs the command's renderer, falling back to indented JSON
// when none is provided.
func emit(output string, stdout io.Writer, payload any, text func(io.Writer) error) error {
	if !isValidOutput(output) {
		return &cliError{status: http.StatusBadRequest, message: fmt.Sprintf("invalid --output: %s", output)}
	}
	if Output(output) == OutputJSON {
		raw, err := json.Marshal(payload)
		if err != nil {
			return &cliError{status: http.StatusInternalServerError, message: err.Error()}
		}
		_, _ = fmt.Fprintln(stdout, string(raw))
		return nil
	}
	if text == nil {
		raw, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return &cliError{status: http.StatusInternalServerError, message: err.Error()}
		}
		_, _ = fmt.Fprintln(stdout, string(raw))
		return nil
	}
	return text(stdout)
}

// wrapServiceError translates API-layer errors into CLI exit presentation.
func wrapServiceError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		status := apiErr.Status
		if status == 0 {
			status = statusForCode(apiErr.Code)
		}
		return &cliError{status: status, message: api.MessageOf(err)}
	}
	return &cliError{status: http.StatusInternalServerError, message: err.Error()}
}

func statusForCode(code api.Code) int {
	switch code {
	case api.CodeValidation:
		return http.StatusBadRequest
	case api.CodeNotFound:
		return http.StatusNotFound
	case api.CodeConflict:
		return http.StatusConflict
	case api.CodeUnauthorized:
		return http.StatusUnauthorized
	case api.CodeTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func wrapCLIError(status int, message string) error {
	return &cliError{status: status, message: message}
}

func asCLIError(err error, target **cliError) bool {
	e, ok := err.(*cliError)
	if !ok {
		return false
	}
	*target = e
	return true
}

func FormatWatchLine(output Output, event map[string]any) (string, error) {
	if output == OutputJSON {
		raw, err := json.Marshal(event)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}

	parts := make([]string, 0, 4)
	if value, ok := event["type"]; ok {
		parts = append(parts, fmt.Sprintf("type=%v", value))
	}
	if value, ok := event["card_id"]; ok {
		parts = append(parts, fmt.Sprintf("card_id=%v", value))
	}
	if value, ok := event["column_id"]; ok {
		parts = append(parts, fmt.Sprintf("column_id=%v", value))
	}
	if value, ok := event["timestamp"]; ok {
		parts = append(parts, fmt.Sprintf("timestamp=%v", value))
	}
	if len(parts) == 0 {
		return "(event)", nil
	}

	return strings.Join(parts, " "), nil
}
