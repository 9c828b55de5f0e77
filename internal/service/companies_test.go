package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListNormalizesLegacyEnvelopes(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"typed page", `{"items":[{"company_id":1,"name":"Clínica A","cnpj":"1","status":"active"}],"total":1,"page":1,"size":10,"pages":1}`},
		{"companies wrapper", `{"companies":[{"company_id":1,"name":"Clínica A","cnpj":"1","status":"active"}]}`},
		{"data wrapper", `{"data":[{"company_id":1,"name":"Clínica A","cnpj":"1","status":"active"}]}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newServiceClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))

			page, err := NewCompaniesService(client).List(context.Background(), ListParams{Page: 1, Size: 10})
			require.NoError(t, err)
			require.Len(t, page.Items, 1)
			require.Equal(t, "Clínica A", page.Items[0].Name)
			require.Equal(t, 1, page.Total)
			require.Equal(t, 1, page.Page)
			require.Equal(t, 10, page.Size)
			require.Equal(t, 1, page.Pages)
		})
	}
}

func TestListBuildsQueryParams(t *testing.T) {
	var gotQuery string
	client := newServiceClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"items":[],"total":0,"page":2,"size":25,"pages":0}`))
	}))

	_, err := NewCompaniesService(client).List(context.Background(), ListParams{
		Page:    2,
		Size:    25,
		Search:  "clínica",
		Sort:    "-created_at",
		Filters: map[string]string{"status": "active", "state": ""},
	})
	require.NoError(t, err)
	require.Contains(t, gotQuery, "page=2")
	require.Contains(t, gotQuery, "size=25")
	require.Contains(t, gotQuery, "sort=-created_at")
	require.Contains(t, gotQuery, "status=active")
	require.NotContains(t, gotQuery, "state=")
}

func TestEmptyResultProducesEmptyItemsNotNil(t *testing.T) {
	client := newServiceClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))

	page, err := NewCompaniesService(client).List(context.Background(), ListParams{Page: 1, Size: 10})
	require.NoError(t, err)
	require.NotNil(t, page.Items)
	require.Empty(t, page.Items)
}

func TestCleanupPendingReportsRemovedCount(t *testing.T) {
	var gotMethod, gotPath string
	client := newServiceClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"removed":4}`))
	}))

	result, err := NewCompaniesService(client).CleanupPending(context.Background())
	require.Equal(t, http.MethodPost, gotMethod)
	require.Equal(t, "/companies/cleanup-pending", gotPath)
	require.NoError(t, err)
	require.Equal(t, 4, result.Removed)
}

func TestValidateDoesNotPersist(t *testing.T) {
	var gotPath string
	client := newServiceClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"valid":false,"issues":["CNPJ já cadastrado"]}`))
	}))

	result, err := NewCompaniesService(client).Validate(context.Background(), CompanyDraft{Name: "Clínica B", CNPJ: "123"})
	require.NoError(t, err)
	require.Equal(t, "/companies/validate", gotPath)
	require.False(t, result.Valid)
	require.Equal(t, []string{"CNPJ já cadastrado"}, result.Issues)
}
