package kanbancmd

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jvcardoso/pro-team-care-console/internal/console/commands/common"
	"github.com/jvcardoso/pro-team-care-console/internal/model"
	"github.com/jvcardoso/pro-team-care-console/internal/service"
)

func NewMovement(runtime common.Runtime, stdout io.Writer, emit common.EmitFunc, wrapSvc common.WrapServiceErrorFunc, wrapErr common.WrapErrorFunc) *cobra.Command {
	movementCmd := &cobra.Command{
		Use:     "movement",
		Aliases: []string{"movements", "mov"},
		Short:   "Manage card movements.",
		Long:    "Add, edit and remove operator movements. System generated movements are read only.",
	}

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add an operator movement to a card.",
		Example: strings.TrimSpace(`ptc movement add --card 7 --subject "Ligação com o cliente" --time 15
ptc movement add --card 7 -s "Análise do log" -d "Erro intermitente no faturamento"`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			card, _ := cmd.Flags().GetInt64("card")
			subject, _ := cmd.Flags().GetString("subject")
			description, _ := cmd.Flags().GetString("description")

			draft := service.MovementDraft{
				Subject:     strings.TrimSpace(subject),
				Description: description,
				Type:        model.MovementNote,
			}
			if cmd.Flags().Changed("time") {
				minutes, _ := cmd.Flags().GetInt("time")
				draft.TimeSpent = &minutes
			}

			movement, err := services.Kanban.AddMovement(cmd.Context(), card, draft)
			if err != nil {
				return wrapSvc(err)
			}
			return emit(runtime.Output(), stdout, movement, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "movimento #%d adicionado ao card #%d\n", movement.ID, card)
				return err
			})
		},
	}
	addCmd.Flags().Int64("card", 0, "Card id")
	addCmd.Flags().StringP("subject", "s", "", "Movement subject")
	addCmd.Flags().StringP("description", "d", "", "Movement description")
	addCmd.Flags().Int("time", 0, "Time spent, minutes")
	_ = addCmd.MarkFlagRequired("card")
	_ = addCmd.MarkFlagRequired("subject")

	editCmd := &cobra.Command{
		Use:     "edit",
		Short:   "Edit an operator movement.",
		Example: strings.TrimSpace(`ptc movement edit --card 7 --id 12 --subject "Ligação (retorno)" --time 30`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			card, _ := cmd.Flags().GetInt64("card")
			id, _ := cmd.Flags().GetInt64("id")

			movement, err := findMovement(cmd, services, card, id, wrapSvc, wrapErr)
			if err != nil {
				return err
			}

			draft := service.MovementDraft{
				Subject:     movement.Subject,
				Description: movement.Description,
				TimeSpent:   movement.TimeSpent,
			}
			if cmd.Flags().Changed("subject") {
				subject, _ := cmd.Flags().GetString("subject")
				draft.Subject = strings.TrimSpace(subject)
			}
			if cmd.Flags().Changed("description") {
				description, _ := cmd.Flags().GetString("description")
				draft.Description = description
			}
			if cmd.Flags().Changed("time") {
				minutes, _ := cmd.Flags().GetInt("time")
				draft.TimeSpent = &minutes
			}

			updated, err := services.Kanban.UpdateMovement(cmd.Context(), movement, draft)
			if err != nil {
				return wrapSvc(err)
			}
			return emit(runtime.Output(), stdout, updated, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "movimento #%d atualizado\n", updated.ID)
				return err
			})
		},
	}
	editCmd.Flags().Int64("card", 0, "Card id")
	editCmd.Flags().Int64P("id", "i", 0, "Movement id")
	editCmd.Flags().StringP("subject", "s", "", "New subject")
	editCmd.Flags().StringP("description", "d", "", "New description")
	editCmd.Flags().Int("time", 0, "New time spent, minutes")
	_ = editCmd.MarkFlagRequired("card")
	_ = editCmd.MarkFlagRequired("id")

	rmCmd := &cobra.Command{
		Use:     "rm",
		Aliases: []string{"remove", "delete"},
		Short:   "Remove an operator movement.",
		Example: strings.TrimSpace(`ptc movement rm --card 7 --id 12 --yes`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			if err := common.RequireYes(yes, wrapErr, "excluir o movimento"); err != nil {
				return err
			}
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			card, _ := cmd.Flags().GetInt64("card")
			id, _ := cmd.Flags().GetInt64("id")

			movement, err := findMovement(cmd, services, card, id, wrapSvc, wrapErr)
			if err != nil {
				return err
			}
			if err := services.Kanban.DeleteMovement(cmd.Context(), movement); err != nil {
				return wrapSvc(err)
			}
			return emit(runtime.Output(), stdout, map[string]any{"deleted": true, "movement_id": id}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "movimento #%d excluído\n", id)
				return err
			})
		},
	}
	rmCmd.Flags().Int64("card", 0, "Card id")
	rmCmd.Flags().Int64P("id", "i", 0, "Movement id")
	rmCmd.Flags().Bool("yes", false, "Confirm the destructive operation")
	_ = rmCmd.MarkFlagRequired("card")
	_ = rmCmd.MarkFlagRequired("id")

	movementCmd.AddCommand(addCmd, editCmd, rmCmd)
	return movementCmd
}

// findMovement resolves a movement through the card's details so the
// service layer can apply its editability check before any request is sent.
func findMovement(cmd *cobra.Command, services *common.Services, cardID, movementID int64, wrapSvc common.WrapServiceErrorFunc, wrapErr common.WrapErrorFunc) (model.Movement, error) {
	details, err := services.Kanban.GetCard(cmd.Context(), cardID)
	if err != nil {
		return model.Movement{}, wrapSvc(err)
	}
	for _, movement := range details.Movements {
		if movement.ID == movementID {
			return movement, nil
		}
	}
	return model.Movement{}, wrapErr(http.StatusNotFound, fmt.Sprintf("movimento #%d não encontrado no card #%d", movementID, cardID))
}
