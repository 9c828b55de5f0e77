package board

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jvcardoso/pro-team-care-console/internal/api"
	"github.com/jvcardoso/pro-team-care-console/internal/model"
	"github.com/jvcardoso/pro-team-care-console/internal/service"
)

type fakeBackend struct {
	board      model.Board
	failMove   bool
	failBoard  bool
	moveCalls  atomic.Int32
	boardCalls atomic.Int32
	lastMove   service.MoveRequest
}

func (f *fakeBackend) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/kanban/board":
			f.boardCalls.Add(1)
			if f.failBoard {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"detail":"banco indisponível"}`))
				return
			}
			_ = json.NewEncoder(w).Encode(f.board)
		case strings.HasSuffix(r.URL.Path, "/move"):
			f.moveCalls.Add(1)
			if f.failMove {
				w.WriteHeader(http.StatusUnprocessableEntity)
				_, _ = w.Write([]byte(`{"detail":"movimento não permitido"}`))
				return
			}
			_ = json.NewDecoder(r.Body).Decode(&f.lastMove)
			_ = json.NewEncoder(w).Encode(model.Card{})
		case strings.HasPrefix(r.URL.Path, "/kanban/cards/"):
			_ = json.NewEncoder(w).Encode(model.CardDetails{Card: model.Card{ID: 1, ColumnID: 10, Priority: model.PriorityBaixa}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

type testTokens struct{}

func (testTokens) Token() (string, error) { return "tok", nil }

func newManager(t *testing.T, backend *fakeBackend) *Manager {
	t.Helper()
	server := httptest.NewServer(backend.handler())
	t.Cleanup(server.Close)
	client, err := api.New(api.Options{BaseURL: server.URL, Tokens: testTokens{}, CacheTTL: -1})
	require.NoError(t, err)
	return NewManager(service.NewKanbanService(client), nil)
}

func twoColumnBoard() model.Board {
	return model.Board{
		Columns: []model.Column{
			{ID: 10, Name: "Backlog", DisplayOrder: 1},
			{ID: 20, Name: "Em Andamento", DisplayOrder: 2},
		},
		CardsByColumn: map[int64][]model.Card{
			10: {
				{ID: 1, Title: "Primeira visita", ColumnID: 10, Priority: model.PriorityAlta},
				{ID: 2, Title: "Contrato", ColumnID: 10, Priority: model.PriorityBaixa},
			},
			20: {
				{ID: 3, Title: "Faturamento", ColumnID: 20, Priority: model.PriorityMedia},
			},
		},
	}
}

func TestLoadKeepsStaleBoardOnFailure(t *testing.T) {
	backend := &fakeBackend{board: twoColumnBoard()}
	manager := newManager(t, backend)

	require.NoError(t, manager.Load(context.Background()))
	backend.failBoard = true
	err := manager.Load(context.Background())
	require.Error(t, err)
	require.Equal(t, "banco indisponível", api.MessageOf(err))

	board, loaded := manager.Board()
	require.True(t, loaded)
	require.Len(t, board.CardsByColumn[10], 2)
}

func TestMoveCardReordersAndIssuesPatch(t *testing.T) {
	backend := &fakeBackend{board: twoColumnBoard()}
	manager := newManager(t, backend)
	require.NoError(t, manager.Load(context.Background()))

	position := 0
	require.NoError(t, manager.MoveCard(context.Background(), 1, 20, &position))

	board, _ := manager.Board()
	require.Len(t, board.CardsByColumn[10], 1)
	require.Len(t, board.CardsByColumn[20], 2)
	require.Equal(t, int64(1), board.CardsByColumn[20][0].ID)
	require.Equal(t, int64(20), board.CardsByColumn[20][0].ColumnID)
	require.NoError(t, manager.CheckInvariant())

	require.Equal(t, int32(1), backend.moveCalls.Load())
	require.Equal(t, int64(20), backend.lastMove.ColumnID)
	require.NotNil(t, backend.lastMove.Position)
	require.Equal(t, 0, *backend.lastMove.Position)
}

func TestMoveCardRollsBackWhenBackendRejects(t *testing.T) {
	backend := &fakeBackend{board: twoColumnBoard(), failMove: true}
	manager := newManager(t, backend)
	require.NoError(t, manager.Load(context.Background()))

	before, _ := manager.Board()
	err := manager.MoveCard(context.Background(), 1, 20, nil)
	require.Error(t, err)
	require.Equal(t, "movimento não permitido", api.MessageOf(err))

	after, _ := manager.Board()
	require.Equal(t, before, after)
	require.NoError(t, manager.CheckInvariant())
}

func TestMoveToSamePositionIsANoOp(t *testing.T) {
	backend := &fakeBackend{board: twoColumnBoard()}
	manager := newManager(t, backend)
	require.NoError(t, manager.Load(context.Background()))

	position := 1
	require.NoError(t, manager.MoveCard(context.Background(), 2, 10, &position))
	require.Equal(t, int32(0), backend.moveCalls.Load())
}

func TestMoveUnknownCardFailsLocally(t *testing.T) {
	backend := &fakeBackend{board: twoColumnBoard()}
	manager := newManager(t, backend)
	require.NoError(t, manager.Load(context.Background()))

	err := manager.MoveCard(context.Background(), 99, 20, nil)
	require.Equal(t, api.CodeNotFound, api.CodeOf(err))
	require.Equal(t, int32(0), backend.moveCalls.Load())
}

func TestMoveWithinColumnToEnd(t *testing.T) {
	backend := &fakeBackend{board: twoColumnBoard()}
	manager := newManager(t, backend)
	require.NoError(t, manager.Load(context.Background()))

	require.NoError(t, manager.MoveCard(context.Background(), 1, 10, nil))

	board, _ := manager.Board()
	require.Equal(t, int64(2), board.CardsByColumn[10][0].ID)
	require.Equal(t, int64(1), board.CardsByColumn[10][1].ID)
	require.NoError(t, manager.CheckInvariant())
}

func TestSubscribersFireOnStateChanges(t *testing.T) {
	backend := &fakeBackend{board: twoColumnBoard()}
	manager := newManager(t, backend)

	var notifications int
	unsubscribe := manager.Subscribe(func() { notifications++ })

	require.NoError(t, manager.Load(context.Background()))
	require.NoError(t, manager.MoveCard(context.Background(), 1, 20, nil))
	require.Equal(t, 2, notifications)

	unsubscribe()
	require.NoError(t, manager.Load(context.Background()))
	require.Equal(t, 2, notifications)
}

func TestOpenCardHoldsDetailSeparateFromBoard(t *testing.T) {
	backend := &fakeBackend{board: twoColumnBoard()}
	manager := newManager(t, backend)
	require.NoError(t, manager.Load(context.Background()))

	details, err := manager.OpenCard(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), details.ID)

	held, ok := manager.OpenCardDetails()
	require.True(t, ok)
	require.Equal(t, details, held)

	manager.CloseCard()
	_, ok = manager.OpenCardDetails()
	require.False(t, ok)
}

func TestConfirmWithoutProposalFails(t *testing.T) {
	backend := &fakeBackend{board: twoColumnBoard()}
	manager := newManager(t, backend)

	_, err := manager.Confirm(context.Background(), service.ValidatedCard{Title: "X", Priority: model.PriorityBaixa})
	require.Equal(t, api.CodeValidation, api.CodeOf(err))
}
