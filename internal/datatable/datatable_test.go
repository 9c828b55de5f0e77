package datatable

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jvcardoso/pro-team-care-console/internal/model"
	"github.com/jvcardoso/pro-team-care-console/internal/service"
)

type row struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func rowColumns() []Column[row] {
	return []Column[row]{
		{Title: "ID", Value: func(r row) string { return strconv.FormatInt(r.ID, 10) }},
		{Title: "Nome", Value: func(r row) string { return r.Name }},
	}
}

// pagedFetcher serves 25 rows in pages and records every call.
func pagedFetcher(calls *atomic.Int32, lastParams *service.ListParams) Fetcher[row] {
	return func(_ context.Context, params service.ListParams) (model.Page[row], error) {
		calls.Add(1)
		if lastParams != nil {
			*lastParams = params
		}
		total := 25
		start := (params.Page - 1) * params.Size
		items := make([]row, 0, params.Size)
		for i := start; i < start+params.Size && i < total; i++ {
			items = append(items, row{ID: int64(i + 1), Name: "Empresa " + strconv.Itoa(i+1)})
		}
		pages := (total + params.Size - 1) / params.Size
		return model.Page[row]{Items: items, Total: total, Page: params.Page, Size: params.Size, Pages: pages}, nil
	}
}

func TestSummaryAndNextPage(t *testing.T) {
	var calls atomic.Int32
	var last service.ListParams
	table := New(Config[row]{Columns: rowColumns(), PageSize: 10}, pagedFetcher(&calls, &last))

	require.NoError(t, table.Load(context.Background()))
	require.Equal(t, "Mostrando 1 a 10 de 25", table.Summary())

	require.NoError(t, table.NextPage(context.Background()))
	require.Equal(t, 2, last.Page)
	require.Equal(t, "Mostrando 11 a 20 de 25", table.Summary())

	require.NoError(t, table.NextPage(context.Background()))
	require.Equal(t, "Mostrando 21 a 25 de 25", table.Summary())

	// Already on the last page: no further fetch.
	before := calls.Load()
	require.NoError(t, table.NextPage(context.Background()))
	require.Equal(t, before, calls.Load())
}

func TestFailedFetchKeepsErrorAndRetryIssuesExactlyOneFetch(t *testing.T) {
	var calls atomic.Int32
	fail := errors.New("falha ao listar")
	table := New(Config[row]{Columns: rowColumns()}, func(context.Context, service.ListParams) (model.Page[row], error) {
		calls.Add(1)
		return model.Page[row]{}, fail
	})

	require.Error(t, table.Load(context.Background()))
	require.ErrorIs(t, table.Err(), fail)
	require.Equal(t, int32(1), calls.Load())

	require.Error(t, table.Retry(context.Background()))
	require.Equal(t, int32(2), calls.Load())
}

func TestEmptyResultSummary(t *testing.T) {
	table := New(Config[row]{Columns: rowColumns()}, func(context.Context, service.ListParams) (model.Page[row], error) {
		return model.Page[row]{Items: []row{}, Page: 1, Size: 10}, nil
	})
	require.NoError(t, table.Load(context.Background()))
	require.Empty(t, table.Rows())
	require.Equal(t, "Nenhum registro encontrado", table.Summary())
}

func TestSearchIsDebouncedToASingleFetch(t *testing.T) {
	var calls atomic.Int32
	var last service.ListParams
	table := New(Config[row]{Columns: rowColumns(), SearchDebounce: 30 * time.Millisecond}, pagedFetcher(&calls, &last))

	ctx := context.Background()
	table.SetSearch(ctx, "a")
	table.SetSearch(ctx, "ab")
	table.SetSearch(ctx, "abc")

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, int32(1), calls.Load())
	require.Equal(t, "abc", last.Search)
}

func TestSetSearchTermFetchesOnceWithoutTimer(t *testing.T) {
	var calls atomic.Int32
	var last service.ListParams
	table := New(Config[row]{Columns: rowColumns(), SearchDebounce: 20 * time.Millisecond}, pagedFetcher(&calls, &last))

	// A pending debounce from an earlier SetSearch must not fire later.
	table.SetSearch(context.Background(), "cli")
	table.SetSearchTerm("clinica")
	require.NoError(t, table.SetPage(context.Background(), 1))
	require.Equal(t, int32(1), calls.Load())
	require.Equal(t, "clinica", last.Search)

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, int32(1), calls.Load())
}

func TestFiltersAreNotDebounced(t *testing.T) {
	var calls atomic.Int32
	var last service.ListParams
	table := New(Config[row]{Columns: rowColumns()}, pagedFetcher(&calls, &last))

	require.NoError(t, table.SetFilter(context.Background(), "status", "active"))
	require.Equal(t, int32(1), calls.Load())
	require.Equal(t, "active", last.Filters["status"])

	// Clearing the filter drops the param entirely.
	require.NoError(t, table.SetFilter(context.Background(), "status", ""))
	_, ok := last.Filters["status"]
	require.False(t, ok)
}

func TestSelectionFollowsLoadedRows(t *testing.T) {
	var calls atomic.Int32
	table := New(Config[row]{Columns: rowColumns(), PageSize: 10}, pagedFetcher(&calls, nil))
	require.NoError(t, table.Load(context.Background()))

	table.ToggleSelect(0)
	table.ToggleSelect(2)
	table.ToggleSelect(99)
	require.Len(t, table.Selected(), 2)

	table.ToggleSelect(0)
	require.Len(t, table.Selected(), 1)

	// A reload clears the selection.
	require.NoError(t, table.Load(context.Background()))
	require.Empty(t, table.Selected())
}

func TestExportCSVEscapesEmbeddedQuotesAndSeparators(t *testing.T) {
	table := New(Config[row]{Columns: rowColumns()}, func(context.Context, service.ListParams) (model.Page[row], error) {
		return model.Page[row]{Items: []row{
			{ID: 1, Name: `Clínica "Vida", Ltda`},
			{ID: 2, Name: "Normal"},
		}, Total: 2, Page: 1, Size: 10, Pages: 1}, nil
	})
	require.NoError(t, table.Load(context.Background()))

	var buf bytes.Buffer
	require.NoError(t, table.ExportCSV(&buf))

	out := buf.String()
	require.Contains(t, out, "ID,Nome\n")
	require.Contains(t, out, `"Clínica ""Vida"", Ltda"`)
	require.Contains(t, out, "2,Normal\n")
}

func TestExportJSON(t *testing.T) {
	table := New(Config[row]{Columns: rowColumns()}, func(context.Context, service.ListParams) (model.Page[row], error) {
		return model.Page[row]{Items: []row{{ID: 7, Name: "Empresa 7"}}, Total: 1, Page: 1, Size: 10, Pages: 1}, nil
	})
	require.NoError(t, table.Load(context.Background()))

	var buf bytes.Buffer
	require.NoError(t, table.ExportJSON(&buf))
	require.Contains(t, buf.String(), `"name": "Empresa 7"`)
}
