package datatable

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jvcardoso/pro-team-care-console/internal/model"
	"github.com/jvcardoso/pro-team-care-console/internal/service"
)

const (
	defaultPageSize       = 10
	defaultSearchDebounce = 300 * time.Millisecond
)

// Fetcher loads one page from a list endpoint.
type Fetcher[T any] func(ctx context.Context, params service.ListParams) (model.Page[T], error)

// Column describes how one table column renders a row.
type Column[T any] struct {
	Title string
	Value func(T) string
}

type Config[T any] struct {
	Columns        []Column[T]
	PageSize       int
	SearchDebounce time.Duration
}

// Table owns the pagination/filter/sort/selection state for one entity list
// and re-fetches whenever that state changes. Search term changes are
// debounced; every other change fetches immediately.
type Table[T any] struct {
	config Config[T]
	fetch  Fetcher[T]

	mu          sync.Mutex
	page        int
	pageSize    int
	search      string
	filters     map[string]string
	sort        string
	selection   map[int]struct{}
	current     model.Page[T]
	lastErr     error
	searchTimer *time.Timer
}

func New[T any](config Config[T], fetch Fetcher[T]) *Table[T] {
	if config.PageSize <= 0 {
		config.PageSize = defaultPageSize
	}
	if config.SearchDebounce <= 0 {
		config.SearchDebounce = defaultSearchDebounce
	}
	return &Table[T]{
		config:    config,
		fetch:     fetch,
		page:      1,
		pageSize:  config.PageSize,
		filters:   make(map[string]string),
		selection: make(map[int]struct{}),
	}
}

func (t *Table[T]) params() service.ListParams {
	filters := make(map[string]string, len(t.filters))
	for key, value := range t.filters {
		filters[key] = value
	}
	return service.ListParams{
		Page:    t.page,
		Size:    t.pageSize,
		Search:  t.search,
		Sort:    t.sort,
		Filters: filters,
	}
}

// Load fetches the current page. On failure the error is retained for
// rendering and the previous rows stay in place.
func (t *Table[T]) Load(ctx context.Context) error {
	t.mu.Lock()
	params := t.params()
	t.mu.Unlock()

	page, err := t.fetch(ctx, params)

	t.mu.Lock()
	defer t.mu.Unlock()
	if err != nil {
		t.lastErr = err
		return err
	}
	t.lastErr = nil
	t.current = page
	t.selection = make(map[int]struct{})
	return nil
}

// Retry re-issues exactly one fetch with unchanged parameters.
func (t *Table[T]) Retry(ctx context.Context) error {
	return t.Load(ctx)
}

// Columns exposes the configured columns so renderers and exporters can
// share one definition.
func (t *Table[T]) Columns() []Column[T] {
	return t.config.Columns
}

func (t *Table[T]) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

func (t *Table[T]) Rows() []T {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current.Items
}

func (t *Table[T]) Page() model.Page[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

func (t *Table[T]) SetPage(ctx context.Context, page int) error {
	if page < 1 {
		page = 1
	}
	t.mu.Lock()
	t.page = page
	t.mu.Unlock()
	return t.Load(ctx)
}

func (t *Table[T]) NextPage(ctx context.Context) error {
	t.mu.Lock()
	if t.current.Pages > 0 && t.page >= t.current.Pages {
		t.mu.Unlock()
		return nil
	}
	t.page++
	t.mu.Unlock()
	return t.Load(ctx)
}

func (t *Table[T]) PrevPage(ctx context.Context) error {
	t.mu.Lock()
	if t.page <= 1 {
		t.mu.Unlock()
		return nil
	}
	t.page--
	t.mu.Unlock()
	return t.Load(ctx)
}

func (t *Table[T]) SetPageSize(ctx context.Context, size int) error {
	if size < 1 {
		size = defaultPageSize
	}
	t.mu.Lock()
	t.pageSize = size
	t.page = 1
	t.mu.Unlock()
	return t.Load(ctx)
}

// SetFilter applies immediately: filters are not debounced.
func (t *Table[T]) SetFilter(ctx context.Context, key, value string) error {
	t.mu.Lock()
	if strings.TrimSpace(value) == "" {
		delete(t.filters, key)
	} else {
		t.filters[key] = value
	}
	t.page = 1
	t.mu.Unlock()
	return t.Load(ctx)
}

func (t *Table[T]) SetSort(ctx context.Context, sort string) error {
	t.mu.Lock()
	t.sort = strings.TrimSpace(sort)
	t.page = 1
	t.mu.Unlock()
	return t.Load(ctx)
}

// SetSearch updates the term and schedules a debounced fetch: rapid calls
// collapse into one request for the final term. Fetch errors surface through
// Err on the next render.
func (t *Table[T]) SetSearch(ctx context.Context, term string) {
	t.mu.Lock()
	t.search = strings.TrimSpace(term)
	t.page = 1
	if t.searchTimer != nil {
		t.searchTimer.Stop()
	}
	t.searchTimer = time.AfterFunc(t.config.SearchDebounce, func() {
		_ = t.Load(ctx)
	})
	t.mu.Unlock()
}

// SetSearchTerm applies the term without arming the debounce timer. One-shot
// callers that issue a single fetch themselves use this instead of SetSearch
// so no timer fires after they are done.
func (t *Table[T]) SetSearchTerm(term string) {
	t.mu.Lock()
	t.search = strings.TrimSpace(term)
	t.page = 1
	if t.searchTimer != nil {
		t.searchTimer.Stop()
		t.searchTimer = nil
	}
	t.mu.Unlock()
}

// FlushSearch cancels any pending debounce and fetches now.
func (t *Table[T]) FlushSearch(ctx context.Context) error {
	t.mu.Lock()
	if t.searchTimer != nil {
		t.searchTimer.Stop()
		t.searchTimer = nil
	}
	t.mu.Unlock()
	return t.Load(ctx)
}

func (t *Table[T]) ToggleSelect(index int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if index < 0 || index >= len(t.current.Items) {
		return
	}
	if _, ok := t.selection[index]; ok {
		delete(t.selection, index)
	} else {
		t.selection[index] = struct{}{}
	}
}

func (t *Table[T]) Selected() []T {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]T, 0, len(t.selection))
	for index := range t.selection {
		if index < len(t.current.Items) {
			out = append(out, t.current.Items[index])
		}
	}
	return out
}

// Summary renders the pagination line, e.g. "Mostrando 1 a 10 de 25".
func (t *Table[T]) Summary() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current.Total == 0 {
		return "Nenhum registro encontrado"
	}
	first := (t.current.Page-1)*t.current.Size + 1
	last := first + len(t.current.Items) - 1
	return fmt.Sprintf("Mostrando %d a %d de %d", first, last, t.current.Total)
}
