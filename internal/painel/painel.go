// Package painel filtra, ordena e pagina chamados já carregados no cliente,
// como faz o quadro do balcão.
package painel

import (
	"sort"
	"strings"

	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/chamado"
)

const defaultPageSize = 20

// Campos de ordenação aceitos; prefixo "-" inverte a ordem.
const (
	SortCreatedAt   = "createdAt"
	SortUpdatedAt   = "updatedAt"
	SortPriority    = "priority"
	SortStatus      = "status"
	SortCitizenName = "citizenName"
)

// Query descreve filtros, ordenação e página.
type Query struct {
	Status   []chamado.Status
	Region   string
	Church   string
	Category string
	Priority chamado.Priority
	Search   string
	Sort     string
	Page     int
	PageSize int
}

// Page é uma página de resultados.
type Page struct {
	Items    []chamado.Ticket
	Total    int
	Page     int
	Pages    int
	PageSize int
}

// Stats resume o quadro.
type Stats struct {
	Total      int
	Open       int
	InProgress int
	Waiting    int
	Resolved   int
	Cancelled  int
	Urgent     int
}

var priorityRank = map[chamado.Priority]int{
	chamado.PriorityLow:    0,
	chamado.PriorityMedium: 1,
	chamado.PriorityHigh:   2,
	chamado.PriorityUrgent: 3,
}

var statusRank = map[chamado.Status]int{
	chamado.StatusOpen:             0,
	chamado.StatusInProgress:       1,
	chamado.StatusAwaitingResponse: 2,
	chamado.StatusResolved:         3,
	chamado.StatusCancelled:        4,
}

// Apply devolve a página pedida. A fatia de entrada não é alterada.
func Apply(tickets []chamado.Ticket, q Query) Page {
	filtered := make([]chamado.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if matches(t, q) {
			filtered = append(filtered, t)
		}
	}

	sortTickets(filtered, q.Sort)

	size := q.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	pages := (len(filtered) + size - 1) / size
	page := q.Page
	if page < 1 {
		page = 1
	}
	if pages > 0 && page > pages {
		page = pages
	}

	start := (page - 1) * size
	end := start + size
	if start > len(filtered) {
		start = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}

	return Page{
		Items:    filtered[start:end],
		Total:    len(filtered),
		Page:     page,
		Pages:    pages,
		PageSize: size,
	}
}

// Summarize conta chamados por situação.
func Summarize(tickets []chamado.Ticket) Stats {
	var s Stats
	for _, t := range tickets {
		s.Total++
		switch t.Status {
		case chamado.StatusOpen:
			s.Open++
		case chamado.StatusInProgress:
			s.InProgress++
		case chamado.StatusAwaitingResponse:
			s.Waiting++
		case chamado.StatusResolved:
			s.Resolved++
		case chamado.StatusCancelled:
			s.Cancelled++
		}
		if t.Priority == chamado.PriorityUrgent && !t.Status.Terminal() {
			s.Urgent++
		}
	}
	return s
}

func matches(t chamado.Ticket, q Query) bool {
	if len(q.Status) > 0 {
		found := false
		for _, s := range q.Status {
			if t.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.Region != "" && !strings.EqualFold(t.Region, strings.TrimSpace(q.Region)) {
		return false
	}
	if q.Church != "" && !strings.EqualFold(t.Church, strings.TrimSpace(q.Church)) {
		return false
	}
	if q.Category != "" && !strings.EqualFold(t.Category, strings.TrimSpace(q.Category)) {
		return false
	}
	if q.Priority != "" && t.Priority != q.Priority {
		return false
	}
	if term := strings.ToLower(strings.TrimSpace(q.Search)); term != "" {
		haystack := strings.ToLower(strings.Join([]string{t.ID, t.CitizenName, t.Phone, t.Description}, " "))
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}

func sortTickets(tickets []chamado.Ticket, field string) {
	desc := strings.HasPrefix(field, "-")
	field = strings.TrimPrefix(field, "-")
	if field == "" {
		field, desc = SortCreatedAt, true
	}

	less := func(a, b chamado.Ticket) bool {
		switch field {
		case SortUpdatedAt:
			return a.UpdatedAt.Before(b.UpdatedAt)
		case SortPriority:
			return priorityRank[a.Priority] < priorityRank[b.Priority]
		case SortStatus:
			return statusRank[a.Status] < statusRank[b.Status]
		case SortCitizenName:
			return strings.ToLower(a.CitizenName) < strings.ToLower(b.CitizenName)
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}

	sort.SliceStable(tickets, func(i, j int) bool {
		if desc {
			return less(tickets[j], tickets[i])
		}
		return less(tickets[i], tickets[j])
	})
}
