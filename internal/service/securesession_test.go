package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jvcardoso/pro-team-care-console/internal/api"
	"github.com/jvcardoso/pro-team-care-console/internal/model"
)

func sessionHandler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/secure-session/switch":
			var req SwitchRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			_ = json.NewEncoder(w).Encode(model.SessionContext{UserID: 1, UserEmail: "admin@care.com", CompanyID: req.CompanyID})
		case r.URL.Path == "/secure-session/impersonate" && r.Method == http.MethodPost:
			_ = json.NewEncoder(w).Encode(model.SessionContext{UserID: 1, UserEmail: "admin@care.com", Impersonating: true, ImpersonatedEmail: "gerente@care.com"})
		case r.URL.Path == "/secure-session/impersonate" && r.Method == http.MethodDelete:
			_ = json.NewEncoder(w).Encode(model.SessionContext{UserID: 1, UserEmail: "admin@care.com"})
		default:
			_ = json.NewEncoder(w).Encode(model.SessionContext{UserID: 1, UserEmail: "admin@care.com"})
		}
	})
}

func TestSwitchContextNotifiesSubscribersInOrder(t *testing.T) {
	svc := NewSecureSessionService(newServiceClient(t, sessionHandler(t)))

	var order []string
	svc.Subscribe(func(model.SessionContext) { order = append(order, "first") })
	svc.Subscribe(func(model.SessionContext) { order = append(order, "second") })

	sessionContext, err := svc.SwitchContext(context.Background(), SwitchRequest{CompanyID: 42})
	require.NoError(t, err)
	require.Equal(t, int64(42), sessionContext.CompanyID)
	require.Equal(t, []string{"first", "second"}, order)
}

func TestUnsubscribedListenerIsNotCalled(t *testing.T) {
	svc := NewSecureSessionService(newServiceClient(t, sessionHandler(t)))

	var calls int
	unsubscribe := svc.Subscribe(func(model.SessionContext) { calls++ })
	unsubscribe()

	_, err := svc.SwitchContext(context.Background(), SwitchRequest{CompanyID: 7})
	require.NoError(t, err)
	require.Zero(t, calls)
}

func TestImpersonationLifecycle(t *testing.T) {
	svc := NewSecureSessionService(newServiceClient(t, sessionHandler(t)))

	var seen []model.SessionContext
	svc.Subscribe(func(sc model.SessionContext) { seen = append(seen, sc) })

	started, err := svc.StartImpersonation(context.Background(), "gerente@care.com")
	require.NoError(t, err)
	require.True(t, started.Impersonating)

	ended, err := svc.EndImpersonation(context.Background())
	require.NoError(t, err)
	require.False(t, ended.Impersonating)

	require.Len(t, seen, 2)
}

func TestContextChangeDropsCachedLists(t *testing.T) {
	var companyHits int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/companies" {
			companyHits++
			_ = json.NewEncoder(w).Encode(map[string]any{"items": []model.Company{{ID: 1, Name: "Clínica Vida", CNPJ: "12345678000190", Status: "active"}}, "total": 1})
			return
		}
		sessionHandler(t).ServeHTTP(w, r)
	})

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := api.New(api.Options{BaseURL: server.URL, Tokens: recordingTokens{}, CacheTTL: time.Minute})
	require.NoError(t, err)

	companies := NewCompaniesService(client)
	sessions := NewSecureSessionService(client)

	_, err = companies.List(context.Background(), ListParams{})
	require.NoError(t, err)
	_, err = companies.List(context.Background(), ListParams{})
	require.NoError(t, err)
	require.Equal(t, 1, companyHits)

	_, err = sessions.SwitchContext(context.Background(), SwitchRequest{CompanyID: 2})
	require.NoError(t, err)

	// A list after a tenant switch must not be served from the old cache.
	_, err = companies.List(context.Background(), ListParams{})
	require.NoError(t, err)
	require.Equal(t, 2, companyHits)

	_, err = companies.List(context.Background(), ListParams{})
	require.NoError(t, err)
	require.Equal(t, 2, companyHits)

	_, err = sessions.StartImpersonation(context.Background(), "gerente@care.com")
	require.NoError(t, err)
	_, err = companies.List(context.Background(), ListParams{})
	require.NoError(t, err)
	require.Equal(t, 3, companyHits)

	_, err = sessions.EndImpersonation(context.Background())
	require.NoError(t, err)
	_, err = companies.List(context.Background(), ListParams{})
	require.NoError(t, err)
	require.Equal(t, 4, companyHits)
}

func TestStartImpersonationRequiresEmail(t *testing.T) {
	svc := NewSecureSessionService(newServiceClient(t, sessionHandler(t)))
	_, err := svc.StartImpersonation(context.Background(), "  ")
	require.Equal(t, api.CodeValidation, api.CodeOf(err))
}
