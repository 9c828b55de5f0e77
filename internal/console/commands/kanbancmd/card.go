package kanbancmd

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jvcardoso/pro-team-care-console/internal/console/commands/common"
	"github.com/jvcardoso/pro-team-care-console/internal/model"
	"github.com/jvcardoso/pro-team-care-console/internal/service"
)

func NewCard(runtime common.Runtime, stdout io.Writer, emit common.EmitFunc, wrapSvc common.WrapServiceErrorFunc, wrapErr common.WrapErrorFunc) *cobra.Command {
	cardCmd := &cobra.Command{
		Use:     "card",
		Aliases: []string{"cards"},
		Short:   "Manage cards.",
		Long:    "Create, confirm, inspect, update, complete and delete cards.",
	}

	createCmd := &cobra.Command{
		Use:     "create",
		Aliases: []string{"new"},
		Short:   "Create a card and receive the AI suggestion.",
		Long: strings.TrimSpace(`Creates a card stub and prints the server's suggestion.
The card only appears on the board after "ptc card confirm".
With --auto-confirm the suggested values are accepted immediately.`),
		Example: strings.TrimSpace(`ptc card create --title "Paciente sem autorização" --column 1
ptc card create -t "Erro no faturamento" -c 1 --priority Alta --auto-confirm`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}

			title, _ := cmd.Flags().GetString("title")
			description, _ := cmd.Flags().GetString("description")
			column, _ := cmd.Flags().GetInt64("column")
			priority, _ := cmd.Flags().GetString("priority")
			dueDate, _ := cmd.Flags().GetString("due-date")
			autoConfirm, _ := cmd.Flags().GetBool("auto-confirm")

			draft := service.CardDraft{
				Title:       strings.TrimSpace(title),
				Description: strings.TrimSpace(description),
				ColumnID:    column,
				Priority:    model.Priority(strings.TrimSpace(priority)),
				DueDate:     strings.TrimSpace(dueDate),
			}

			ctx := cmd.Context()
			suggestion, err := services.Board.Propose(ctx, draft)
			if err != nil {
				return wrapSvc(err)
			}

			if !autoConfirm {
				return emit(runtime.Output(), stdout, suggestion, func(w io.Writer) error {
					return renderSuggestion(w, suggestion)
				})
			}

			card, err := services.Board.Confirm(ctx, service.ValidatedCard{
				Title:       draft.Title,
				Description: suggestion.Description,
				Priority:    suggestion.Priority,
				Assignees:   suggestion.Assignees,
				Tags:        suggestion.Tags,
				SubTasks:    suggestion.SubTasks,
			})
			if err != nil {
				return wrapSvc(err)
			}
			return emit(runtime.Output(), stdout, card, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "card #%d confirmado na coluna %d\n", card.ID, card.ColumnID)
				return err
			})
		},
	}
	createCmd.Flags().StringP("title", "t", "", "Card title")
	createCmd.Flags().StringP("description", "d", "", "Card description")
	createCmd.Flags().Int64P("column", "c", 0, "Column id")
	createCmd.Flags().String("priority", "", "Priority (Baixa|Média|Alta|Urgente)")
	createCmd.Flags().String("due-date", "", "Due date, RFC 3339")
	createCmd.Flags().Bool("auto-confirm", false, "Accept the AI suggestion immediately")
	_ = createCmd.MarkFlagRequired("title")
	_ = createCmd.MarkFlagRequired("column")

	confirmCmd := &cobra.Command{
		Use:   "confirm",
		Short: "Confirm a proposed card.",
		Long:  "Validates a proposed card with final values. The card becomes visible on the board.",
		Example: strings.TrimSpace(`ptc card confirm --id 7 --title "Título final" --priority Alta
ptc card confirm -i 7 -t "Título" --priority Média --tag faturamento --tag contratos`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}

			id, _ := cmd.Flags().GetInt64("id")
			title, _ := cmd.Flags().GetString("title")
			description, _ := cmd.Flags().GetString("description")
			priority, _ := cmd.Flags().GetString("priority")
			assignees, _ := cmd.Flags().GetStringArray("assignee")
			tags, _ := cmd.Flags().GetStringArray("tag")

			card, err := services.Kanban.ConfirmCard(cmd.Context(), id, service.ValidatedCard{
				Title:       strings.TrimSpace(title),
				Description: description,
				Priority:    model.Priority(strings.TrimSpace(priority)),
				Assignees:   assignees,
				Tags:        tags,
			})
			if err != nil {
				return wrapSvc(err)
			}
			return emit(runtime.Output(), stdout, card, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "card #%d confirmado na coluna %d\n", card.ID, card.ColumnID)
				return err
			})
		},
	}
	confirmCmd.Flags().Int64P("id", "i", 0, "Card id")
	confirmCmd.Flags().StringP("title", "t", "", "Final title")
	confirmCmd.Flags().StringP("description", "d", "", "Final description")
	confirmCmd.Flags().String("priority", "", "Priority (Baixa|Média|Alta|Urgente)")
	confirmCmd.Flags().StringArray("assignee", nil, "Assignee (repeatable)")
	confirmCmd.Flags().StringArray("tag", nil, "Tag (repeatable)")
	_ = confirmCmd.MarkFlagRequired("id")
	_ = confirmCmd.MarkFlagRequired("title")
	_ = confirmCmd.MarkFlagRequired("priority")

	getCmd := &cobra.Command{
		Use:     "get",
		Aliases: []string{"show"},
		Short:   "Show card details.",
		Long:    "Fetch movements, tags, assignees and attached images of one card.",
		Example: strings.TrimSpace(`ptc card get --id 7
ptc --output json card show -i 7`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			id, _ := cmd.Flags().GetInt64("id")
			details, err := services.Kanban.GetCard(cmd.Context(), id)
			if err != nil {
				return wrapSvc(err)
			}
			return emit(runtime.Output(), stdout, details, func(w io.Writer) error {
				return renderCardDetails(w, details)
			})
		},
	}
	getCmd.Flags().Int64P("id", "i", 0, "Card id")
	_ = getCmd.MarkFlagRequired("id")

	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Update card fields.",
		Long:  "Only the provided flags are sent; omitted fields stay untouched.",
		Example: strings.TrimSpace(`ptc card update --id 7 --priority Urgente
ptc card update -i 7 --title "Novo título" --sub-status "Aguardando retorno"`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			id, _ := cmd.Flags().GetInt64("id")

			update := service.CardUpdate{}
			if cmd.Flags().Changed("title") {
				value, _ := cmd.Flags().GetString("title")
				update.Title = &value
			}
			if cmd.Flags().Changed("description") {
				value, _ := cmd.Flags().GetString("description")
				update.Description = &value
			}
			if cmd.Flags().Changed("priority") {
				value, _ := cmd.Flags().GetString("priority")
				priority := model.Priority(value)
				update.Priority = &priority
			}
			if cmd.Flags().Changed("due-date") {
				value, _ := cmd.Flags().GetString("due-date")
				update.DueDate = &value
			}
			if cmd.Flags().Changed("sub-status") {
				value, _ := cmd.Flags().GetString("sub-status")
				update.SubStatus = &value
			}

			card, err := services.Kanban.UpdateCard(cmd.Context(), id, update)
			if err != nil {
				return wrapSvc(err)
			}
			return emit(runtime.Output(), stdout, card, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "card #%d atualizado\n", card.ID)
				return err
			})
		},
	}
	updateCmd.Flags().Int64P("id", "i", 0, "Card id")
	updateCmd.Flags().StringP("title", "t", "", "New title")
	updateCmd.Flags().StringP("description", "d", "", "New description")
	updateCmd.Flags().String("priority", "", "New priority")
	updateCmd.Flags().String("due-date", "", "New due date (empty clears)")
	updateCmd.Flags().String("sub-status", "", "New sub status")
	_ = updateCmd.MarkFlagRequired("id")

	moveCmd := &cobra.Command{
		Use:   "move",
		Short: "Move a card directly through the API.",
		Long:  "Moves without loading the board first. Use \"ptc board move\" to see the resulting board.",
		Example: strings.TrimSpace(`ptc card move --id 7 --to 2
ptc card move -i 7 --to 2 --position 0`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			id, _ := cmd.Flags().GetInt64("id")
			to, _ := cmd.Flags().GetInt64("to")

			move := service.MoveRequest{ColumnID: to}
			if cmd.Flags().Changed("position") {
				value, _ := cmd.Flags().GetInt("position")
				move.Position = &value
			}

			card, err := services.Kanban.MoveCard(cmd.Context(), id, move)
			if err != nil {
				return wrapSvc(err)
			}
			return emit(runtime.Output(), stdout, card, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "card #%d movido para a coluna %d\n", card.ID, card.ColumnID)
				return err
			})
		},
	}
	moveCmd.Flags().Int64P("id", "i", 0, "Card id")
	moveCmd.Flags().Int64("to", 0, "Target column id")
	moveCmd.Flags().Int("position", 0, "Target position inside the column (default: end)")
	_ = moveCmd.MarkFlagRequired("id")
	_ = moveCmd.MarkFlagRequired("to")

	completeCmd := &cobra.Command{
		Use:     "complete",
		Aliases: []string{"done"},
		Short:   "Complete a card.",
		Example: strings.TrimSpace(`ptc card complete --id 7`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			id, _ := cmd.Flags().GetInt64("id")
			card, err := services.Kanban.CompleteCard(cmd.Context(), id)
			if err != nil {
				return wrapSvc(err)
			}
			return emit(runtime.Output(), stdout, card, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "card #%d concluído\n", card.ID)
				return err
			})
		},
	}
	completeCmd.Flags().Int64P("id", "i", 0, "Card id")
	_ = completeCmd.MarkFlagRequired("id")

	deleteCmd := &cobra.Command{
		Use:     "delete",
		Aliases: []string{"rm", "remove"},
		Short:   "Delete a card permanently.",
		Example: strings.TrimSpace(`ptc card rm --id 7 --yes`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			if err := common.RequireYes(yes, wrapErr, "excluir o card"); err != nil {
				return err
			}
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			id, _ := cmd.Flags().GetInt64("id")
			if err := services.Kanban.DeleteCard(cmd.Context(), id); err != nil {
				return wrapSvc(err)
			}
			return emit(runtime.Output(), stdout, map[string]any{"deleted": true, "card_id": id}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "card #%d excluído\n", id)
				return err
			})
		},
	}
	deleteCmd.Flags().Int64P("id", "i", 0, "Card id")
	deleteCmd.Flags().Bool("yes", false, "Confirm the destructive operation")
	_ = deleteCmd.MarkFlagRequired("id")

	cardCmd.AddCommand(createCmd, confirmCmd, getCmd, updateCmd, moveCmd, completeCmd, deleteCmd)
	cardCmd.AddCommand(newTagCommand(runtime, stdout, emit, wrapSvc, wrapErr))
	cardCmd.AddCommand(newImageCommand(runtime, stdout, emit, wrapSvc, wrapErr))
	cardCmd.AddCommand(NewMovement(runtime, stdout, emit, wrapSvc, wrapErr))
	return cardCmd
}

func newTagCommand(runtime common.Runtime, stdout io.Writer, emit common.EmitFunc, wrapSvc common.WrapServiceErrorFunc, wrapErr common.WrapErrorFunc) *cobra.Command {
	tagCmd := &cobra.Command{
		Use:   "tag",
		Short: "Manage card tags.",
	}

	addCmd := &cobra.Command{
		Use:     "add",
		Short:   "Attach a tag to a card.",
		Example: strings.TrimSpace(`ptc card tag add --card 7 --name faturamento`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			card, _ := cmd.Flags().GetInt64("card")
			name, _ := cmd.Flags().GetString("name")
			tag, err := services.Kanban.AddTag(cmd.Context(), card, strings.TrimSpace(name))
			if err != nil {
				return wrapSvc(err)
			}
			return emit(runtime.Output(), stdout, tag, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "tag #%d %q adicionada ao card #%d\n", tag.ID, tag.Name, card)
				return err
			})
		},
	}
	addCmd.Flags().Int64("card", 0, "Card id")
	addCmd.Flags().StringP("name", "n", "", "Tag name")
	_ = addCmd.MarkFlagRequired("card")
	_ = addCmd.MarkFlagRequired("name")

	rmCmd := &cobra.Command{
		Use:     "rm",
		Aliases: []string{"remove"},
		Short:   "Detach a tag from a card.",
		Example: strings.TrimSpace(`ptc card tag rm --card 7 --id 3`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			card, _ := cmd.Flags().GetInt64("card")
			id, _ := cmd.Flags().GetInt64("id")
			if err := services.Kanban.RemoveTag(cmd.Context(), card, id); err != nil {
				return wrapSvc(err)
			}
			return emit(runtime.Output(), stdout, map[string]any{"deleted": true, "card_tag_id": id}, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "tag #%d removida do card #%d\n", id, card)
				return err
			})
		},
	}
	rmCmd.Flags().Int64("card", 0, "Card id")
	rmCmd.Flags().Int64P("id", "i", 0, "Tag id")
	_ = rmCmd.MarkFlagRequired("card")
	_ = rmCmd.MarkFlagRequired("id")

	tagCmd.AddCommand(addCmd, rmCmd)
	return tagCmd
}

func newImageCommand(runtime common.Runtime, stdout io.Writer, emit common.EmitFunc, wrapSvc common.WrapServiceErrorFunc, wrapErr common.WrapErrorFunc) *cobra.Command {
	imageCmd := &cobra.Command{
		Use:   "image",
		Short: "Manage card images.",
	}

	uploadCmd := &cobra.Command{
		Use:     "upload",
		Short:   "Attach an image file to a card.",
		Example: strings.TrimSpace(`ptc card image upload --card 7 --file ./comprovante.png`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			card, _ := cmd.Flags().GetInt64("card")
			path, _ := cmd.Flags().GetString("file")

			file, err := os.Open(path)
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			defer file.Close()

			image, err := services.Kanban.UploadCardImage(cmd.Context(), card, filepath.Base(path), file)
			if err != nil {
				return wrapSvc(err)
			}
			return emit(runtime.Output(), stdout, image, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "imagem %q anexada ao card #%d\n", image.FileName, card)
				return err
			})
		},
	}
	uploadCmd.Flags().Int64("card", 0, "Card id")
	uploadCmd.Flags().StringP("file", "f", "", "Image file path")
	_ = uploadCmd.MarkFlagRequired("card")
	_ = uploadCmd.MarkFlagRequired("file")

	processCmd := &cobra.Command{
		Use:     "process",
		Short:   "Extract a suggestion from an image without attaching it.",
		Example: strings.TrimSpace(`ptc card image process --card 7 --file ./print-do-chamado.png`),
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := runtime.Services()
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			card, _ := cmd.Flags().GetInt64("card")
			path, _ := cmd.Flags().GetString("file")

			file, err := os.Open(path)
			if err != nil {
				return wrapErr(http.StatusBadRequest, err.Error())
			}
			defer file.Close()

			suggestion, err := services.Kanban.ProcessImage(cmd.Context(), card, filepath.Base(path), file)
			if err != nil {
				return wrapSvc(err)
			}
			return emit(runtime.Output(), stdout, suggestion, func(w io.Writer) error {
				return renderSuggestion(w, suggestion)
			})
		},
	}
	processCmd.Flags().Int64("card", 0, "Card id")
	processCmd.Flags().StringP("file", "f", "", "Image file path")
	_ = processCmd.MarkFlagRequired("card")
	_ = processCmd.MarkFlagRequired("file")

	imageCmd.AddCommand(uploadCmd, processCmd)
	return imageCmd
}

func renderSuggestion(w io.Writer, suggestion model.CardSuggestion) error {
	lines := []string{
		fmt.Sprintf("card proposto: #%d", suggestion.CardID),
		fmt.Sprintf("prioridade sugerida: %s", suggestion.Priority),
	}
	if suggestion.Description != "" {
		lines = append(lines, "descrição sugerida: "+suggestion.Description)
	}
	if len(suggestion.Tags) > 0 {
		lines = append(lines, "tags sugeridas: "+strings.Join(suggestion.Tags, ", "))
	}
	if len(suggestion.SubTasks) > 0 {
		lines = append(lines, "subtarefas sugeridas:")
		for _, task := range suggestion.SubTasks {
			lines = append(lines, "  - "+task)
		}
	}
	lines = append(lines, fmt.Sprintf("confirme com: ptc card confirm --id %d --title \"...\" --priority %s", suggestion.CardID, suggestion.Priority))
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}

func renderCardDetails(w io.Writer, details model.CardDetails) error {
	lines := []string{
		fmt.Sprintf("#%d %s", details.ID, details.Title),
		fmt.Sprintf("coluna: %d  prioridade: %s", details.ColumnID, details.Priority),
	}
	if details.SubStatus != "" {
		lines = append(lines, "sub status: "+details.SubStatus)
	}
	if details.DueDate != nil {
		lines = append(lines, "vencimento: "+details.DueDate.Format("2006-01-02"))
	}
	if details.Description != "" {
		lines = append(lines, "descrição: "+details.Description)
	}
	if len(details.Assignees) > 0 {
		lines = append(lines, "responsáveis: "+strings.Join(details.Assignees, ", "))
	}
	if len(details.Tags) > 0 {
		names := make([]string, 0, len(details.Tags))
		for _, tag := range details.Tags {
			names = append(names, tag.Name)
		}
		lines = append(lines, "tags: "+strings.Join(names, ", "))
	}
	lines = append(lines, fmt.Sprintf("tempo total: %d min", details.TotalTimeSpent))
	lines = append(lines, fmt.Sprintf("movimentos (%d):", len(details.Movements)))
	for _, movement := range details.Movements {
		marker := " "
		if model.IsSystemMovement(movement.Type) {
			marker = "*"
		}
		line := fmt.Sprintf("  %s #%d [%s] %s", marker, movement.ID, movement.Type, movement.Subject)
		if movement.TimeSpent != nil {
			line += fmt.Sprintf(" (%d min)", *movement.TimeSpent)
		}
		lines = append(lines, line)
	}
	if len(details.Images) > 0 {
		lines = append(lines, fmt.Sprintf("imagens: %d", len(details.Images)))
	}
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}
