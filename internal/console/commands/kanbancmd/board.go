package kanbancmd

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jvcardoso/pro-team-care-console/internal/console/commands/common"
	"github.com/jvcardoso/pro-team-care-console/internal/model"
)

// NewBoard builds the board command group. Board operations go through the
// board manager, so a rejected move renders the restored board instead of
// a half-applied one.
func NewBoard(runtime common.Runtime, stdout io.Writer, emit common.EmitFunc, wrapSvc common.WrapServiceErrorFunc, wrapErr common.WrapErrorFunc) *cobra.Command {
	boardCmd := &cobra.Command{
		Use:     "board",
		Aliases: []string{"quadro"},
		Short:   "Visualize and operate the kanban board.",
		Long:    "Load the full board aggregate and move cards between columns.",
	}

	showCmd := &cobra.Command{
		Use:     "show",
		Aliases: []string{"ls", "reload"},
		Short:   "Print the whole board.",
		Example: strings.TrimSpace(`ptc board show
ptc --output json board show`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			if err := services.Board.Load(cmd.Context()); err != nil {
				return wrapSvc(err)
			}
			board, _ := services.Board.Board()
			return emit(runtime.Output(), stdout, board, func(w io.Writer) error {
				return renderBoard(w, board)
			})
		},
	}

	moveCmd := &cobra.Command{
		Use:   "move",
		Short: "Move a card to another column.",
		Long:  "Applies the move optimistically and rolls back if the backend rejects it.",
		Example: strings.TrimSpace(`ptc board move --id 7 --to 2
ptc board move -i 7 --to 2 --position 0`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			id, _ := cmd.Flags().GetInt64("id")
			to, _ := cmd.Flags().GetInt64("to")

			var position *int
			if cmd.Flags().Changed("position") {
				value, _ := cmd.Flags().GetInt("position")
				position = &value
			}

			ctx := cmd.Context()
			if err := services.Board.Load(ctx); err != nil {
				return wrapSvc(err)
			}
			if err := services.Board.MoveCard(ctx, id, to, position); err != nil {
				return wrapSvc(err)
			}
			board, _ := services.Board.Board()
			return emit(runtime.Output(), stdout, board, func(w io.Writer) error {
				return renderBoard(w, board)
			})
		},
	}
	moveCmd.Flags().Int64P("id", "i", 0, "Card id")
	moveCmd.Flags().Int64("to", 0, "Target column id")
	moveCmd.Flags().Int("position", 0, "Target position inside the column (default: end)")
	_ = moveCmd.MarkFlagRequired("id")
	_ = moveCmd.MarkFlagRequired("to")

	boardCmd.AddCommand(showCmd, moveCmd)
	return boardCmd
}

func renderBoard(w io.Writer, board model.Board) error {
	for _, column := range board.Columns {
		cards := board.CardsByColumn[column.ID]
		if _, err := fmt.Fprintf(w, "%s (%d)\n", column.Name, len(cards)); err != nil {
			return err
		}
		for _, card := range cards {
			line := fmt.Sprintf("  #%d %s [%s]", card.ID, card.Title, card.Priority)
			if card.SubStatus != "" {
				line += " " + card.SubStatus
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	if _, err := fmt.Fprintf(w, "total: %d cards\n", countBoardCards(board)); err != nil {
		return err
	}
	return nil
}

func countBoardCards(board model.Board) int {
	total := 0
	for _, cards := range board.CardsByColumn {
		total += len(cards)
	}
	return total
}
