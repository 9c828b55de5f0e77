package sandbox

import (
	"fmt"
	"strings"

	"github.com/jvcardoso/pro-team-care-console/internal/model"
)

// suggestCard fakes the backend's AI analysis step with deterministic keyword
// heuristics so the confirm flow can be exercised offline.
func suggestCard(card model.Card) model.CardSuggestion {
	text := strings.ToLower(card.Title + " " + card.Description)

	priority := card.Priority
	switch {
	case containsAny(text, "urgente", "crítico", "parado", "bloqueado"):
		priority = model.PriorityUrgente
	case containsAny(text, "erro", "falha", "bug", "incidente"):
		priority = model.PriorityAlta
	case containsAny(text, "dúvida", "documentação", "ajuste menor"):
		priority = model.PriorityBaixa
	}

	tags := make([]string, 0, 4)
	for keyword, tag := range map[string]string{
		"fatura":       "faturamento",
		"contrato":     "contratos",
		"paciente":     "home-care",
		"relatório":    "relatorios",
		"agendamento":  "agenda",
		"cadastro":     "cadastros",
		"integração":   "integracoes",
		"certificado":  "infra",
		"treinamento":  "suporte",
		"autorização":  "convenios",
		"atendimento":  "suporte",
		"equipamento":  "logistica",
		"prescrição":   "clinico",
		"faturamento":  "faturamento",
		"credenciado":  "rede",
		"estabelecime": "cadastros",
	} {
		if strings.Contains(text, keyword) {
			tags = appendUnique(tags, tag)
		}
	}

	description := card.Description
	if description == "" {
		description = fmt.Sprintf("Tratar: %s", card.Title)
	}

	subTasks := []string{"Analisar solicitação", "Executar", "Validar com o solicitante"}
	if priority == model.PriorityUrgente {
		subTasks = append([]string{"Notificar plantão"}, subTasks...)
	}

	return model.CardSuggestion{
		CardID:      card.ID,
		Description: description,
		Priority:    priority,
		Assignees:   []string{},
		Tags:        tags,
		SubTasks:    subTasks,
	}
}

func containsAny(text string, keywords ...string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

func appendUnique(items []string, item string) []string {
	for _, existing := range items {
		if existing == item {
			return items
		}
	}
	return append(items, item)
}
