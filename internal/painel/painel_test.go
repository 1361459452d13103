package painel

import (
	"testing"
	"time"

	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/chamado"
)

func sampleTickets() []chamado.Ticket {
	base := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	return []chamado.Ticket{
		{ID: "CH-A", CitizenName: "Maria", Region: "Zona Norte", Category: "Saúde", Status: chamado.StatusOpen, Priority: chamado.PriorityUrgent, CreatedAt: base},
		{ID: "CH-B", CitizenName: "João", Region: "Zona Sul", Category: "Documentação", Status: chamado.StatusResolved, Priority: chamado.PriorityLow, CreatedAt: base.Add(time.Hour)},
		{ID: "CH-C", CitizenName: "ana", Region: "Zona Norte", Category: "Documentação", Status: chamado.StatusInProgress, Priority: chamado.PriorityHigh, CreatedAt: base.Add(2 * time.Hour), Description: "segunda via do RG"},
		{ID: "CH-D", CitizenName: "Pedro", Region: "Centro", Category: "Jurídico", Status: chamado.StatusAwaitingResponse, Priority: chamado.PriorityMedium, CreatedAt: base.Add(3 * time.Hour)},
	}
}

func TestApplyFiltersAndSorts(t *testing.T) {
	tickets := sampleTickets()

	page := Apply(tickets, Query{Region: "zona norte"})
	if page.Total != 2 || page.Items[0].ID != "CH-C" {
		t.Fatalf("default sort should be newest first, got %+v", page.Items)
	}

	page = Apply(tickets, Query{Sort: "-" + SortPriority})
	if page.Items[0].ID != "CH-A" || page.Items[3].ID != "CH-B" {
		t.Fatalf("unexpected priority order %+v", page.Items)
	}

	page = Apply(tickets, Query{Sort: SortCitizenName})
	if page.Items[0].CitizenName != "ana" {
		t.Fatalf("name sort should ignore case, got %s", page.Items[0].CitizenName)
	}

	page = Apply(tickets, Query{Search: "rg"})
	if page.Total != 1 || page.Items[0].ID != "CH-C" {
		t.Fatalf("unexpected search result %+v", page.Items)
	}

	page = Apply(tickets, Query{Status: []chamado.Status{chamado.StatusOpen, chamado.StatusResolved}, Category: "documentação"})
	if page.Total != 1 || page.Items[0].ID != "CH-B" {
		t.Fatalf("unexpected status/category filter %+v", page.Items)
	}

	if tickets[0].ID != "CH-A" {
		t.Fatal("input slice must not be reordered")
	}
}

func TestApplyPaginates(t *testing.T) {
	tickets := sampleTickets()

	page := Apply(tickets, Query{Sort: SortCreatedAt, PageSize: 3, Page: 2})
	if page.Pages != 2 || page.Page != 2 || len(page.Items) != 1 || page.Items[0].ID != "CH-D" {
		t.Fatalf("unexpected page %+v", page)
	}

	page = Apply(tickets, Query{PageSize: 3, Page: 9})
	if page.Page != 2 {
		t.Fatalf("page should be clamped, got %d", page.Page)
	}

	empty := Apply(nil, Query{Page: 3})
	if empty.Total != 0 || len(empty.Items) != 0 || empty.Pages != 0 {
		t.Fatalf("unexpected empty page %+v", empty)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleTickets())
	if s.Total != 4 || s.Open != 1 || s.Resolved != 1 || s.Waiting != 1 || s.Urgent != 1 {
		t.Fatalf("unexpected stats %+v", s)
	}
}
