package chamado

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/config"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/diretorio"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/util"
)

type stubTicketStore struct {
	tickets      map[string]Ticket
	observations []Observation
	lastFilter   Filter
	report       *Report
}

func newStubTicketStore() *stubTicketStore {
	return &stubTicketStore{tickets: map[string]Ticket{}}
}

func (s *stubTicketStore) CreateTicket(ctx context.Context, t Ticket, obs Observation) error {
	s.tickets[t.ID] = t
	s.observations = append(s.observations, obs)
	return nil
}

func (s *stubTicketStore) GetTicket(ctx context.Context, id string) (*Ticket, error) {
	t, ok := s.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (s *stubTicketStore) UpdateTicket(ctx context.Context, id string, mutate func(t *Ticket) (*Observation, error)) (*Ticket, error) {
	t, ok := s.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	obs, err := mutate(&t)
	if err != nil {
		return nil, err
	}
	s.tickets[id] = t
	if obs != nil {
		s.observations = append(s.observations, *obs)
	}
	return &t, nil
}

func (s *stubTicketStore) DeleteTicket(ctx context.Context, id string, record func(t Ticket) Observation) error {
	t, ok := s.tickets[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.tickets, id)
	s.observations = append(s.observations, record(t))
	return nil
}

func (s *stubTicketStore) ListTickets(ctx context.Context, filter Filter) ([]Ticket, error) {
	s.lastFilter = filter
	out := []Ticket{}
	for _, t := range s.tickets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubTicketStore) ListObservations(ctx context.Context, ticketID string) ([]Observation, error) {
	out := []Observation{}
	for _, o := range s.observations {
		if o.TicketID == ticketID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *stubTicketStore) Report(ctx context.Context, filter ReportFilter) (*Report, error) {
	if s.report == nil {
		return NewReport(), nil
	}
	return s.report, nil
}

type fakeNow struct{ t time.Time }

func (f *fakeNow) now() time.Time { return f.t }

func newTestService() (*Service, *stubTicketStore, *fakeNow) {
	catalog := config.DefaultCatalog()
	store := newStubTicketStore()
	svc := newService(store, diretorio.New(catalog.Regions), catalog)
	clock := &fakeNow{t: time.Date(2024, 5, 10, 14, 0, 0, 0, time.UTC)}
	svc.now = clock.now
	return svc, store, clock
}

var volunteer = Actor{ID: "U1", Name: "Ana", Role: "VOLUNTARIO"}

func validInput() CreateInput {
	return CreateInput{
		CitizenName: "  Maria da Silva ",
		Phone:       "(11) 98765-4321",
		Email:       "Maria@Exemplo.org",
		Church:      "igreja santana",
		Region:      "zona norte",
		Description: "Segunda via do RG",
		Category:    "Documentação",
	}
}

func TestCreateTicket(t *testing.T) {
	svc, store, _ := newTestService()

	ticket, err := svc.Create(context.Background(), validInput(), volunteer)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := util.ValidateTicketID(ticket.ID); err != nil {
		t.Fatalf("unexpected id %q: %v", ticket.ID, err)
	}
	if ticket.Status != StatusOpen || ticket.Priority != PriorityMedium {
		t.Fatalf("unexpected defaults %s/%s", ticket.Status, ticket.Priority)
	}
	if ticket.Phone != "11987654321" || ticket.Email != "maria@exemplo.org" {
		t.Fatalf("contact not normalized: %q %q", ticket.Phone, ticket.Email)
	}
	if ticket.Region != "Zona Norte" || ticket.Church != "Igreja Santana" {
		t.Fatalf("directory names not canonical: %q %q", ticket.Region, ticket.Church)
	}
	if ticket.CreatedBy != "U1" || ticket.CreatedByName != "Ana" {
		t.Fatalf("creator not recorded: %+v", ticket)
	}

	if len(store.observations) != 1 {
		t.Fatalf("expected creation observation, got %d", len(store.observations))
	}
	obs := store.observations[0]
	if obs.Action != ActionCreated || obs.NewStatus != StatusOpen || obs.TicketID != ticket.ID {
		t.Fatalf("unexpected observation %+v", obs)
	}
}

func TestCreateTicketValidation(t *testing.T) {
	svc, store, _ := newTestService()

	cases := map[string]func(in *CreateInput){
		"sem nome":            func(in *CreateInput) { in.CitizenName = " " },
		"telefone inválido":   func(in *CreateInput) { in.Phone = "123" },
		"email inválido":      func(in *CreateInput) { in.Email = "maria@" },
		"categoria":           func(in *CreateInput) { in.Category = "Turismo" },
		"igreja de outra":     func(in *CreateInput) { in.Church = "Igreja Lapa" },
		"prioridade inválida": func(in *CreateInput) { in.Priority = "CRITICA" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validInput()
			mutate(&in)
			_, err := svc.Create(context.Background(), in, volunteer)
			if !errors.Is(err, util.ErrInvalid) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	if len(store.tickets) != 0 {
		t.Fatalf("no ticket should be stored, got %d", len(store.tickets))
	}

	in := validInput()
	in.Church = "Igreja Lapa"
	if _, err := svc.Create(context.Background(), in, volunteer); !errors.Is(err, diretorio.ErrChurchOutsideRegion) {
		t.Fatalf("expected ErrChurchOutsideRegion in chain, got %v", err)
	}
}

func TestUpdateTicketTransitions(t *testing.T) {
	svc, store, clock := newTestService()
	ctx := context.Background()

	ticket, err := svc.Create(ctx, validInput(), volunteer)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	secretary := Actor{ID: "U2", Name: "Beatriz", Role: "SECRETARIA"}
	clock.t = clock.t.Add(90 * time.Minute)
	resolved := "resolvido"
	updated, err := svc.Update(ctx, UpdateInput{ID: ticket.ID, Status: &resolved, Note: "Documento entregue"}, secretary)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != StatusResolved || updated.ResolutionMinutes == nil || *updated.ResolutionMinutes != 90 {
		t.Fatalf("unexpected resolved ticket %+v", updated)
	}

	inProgress := "EM_ANDAMENTO"
	if _, err := svc.Update(ctx, UpdateInput{ID: ticket.ID, Status: &inProgress}, secretary); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	observations, _ := svc.Observations(ctx, ticket.ID)
	if len(observations) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(observations))
	}
	last := observations[1]
	if last.PreviousStatus != StatusOpen || last.NewStatus != StatusResolved || last.ActorName != "Beatriz" {
		t.Fatalf("unexpected update observation %+v", last)
	}

	priority := "alta"
	if _, err := svc.Update(ctx, UpdateInput{ID: ticket.ID, Priority: &priority}, secretary); err != nil {
		t.Fatalf("priority update: %v", err)
	}
	if len(store.observations) != 2 {
		t.Fatalf("priority-only change should not add observation, got %d", len(store.observations))
	}
	if store.tickets[ticket.ID].Priority != PriorityHigh {
		t.Fatalf("priority not stored: %s", store.tickets[ticket.ID].Priority)
	}
}

func TestUpdateUnknownTicket(t *testing.T) {
	svc, _, _ := newTestService()
	status := "RESOLVIDO"
	_, err := svc.Update(context.Background(), UpdateInput{ID: util.NewTicketID(), Status: &status}, volunteer)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteKeepsObservations(t *testing.T) {
	svc, store, _ := newTestService()
	ctx := context.Background()

	ticket, err := svc.Create(ctx, validInput(), volunteer)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(ctx, ticket.ID, "duplicado", Actor{ID: "U9", Name: "Carlos"}); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, ok := store.tickets[ticket.ID]; ok {
		t.Fatal("ticket should be removed")
	}
	observations, _ := svc.Observations(ctx, ticket.ID)
	if len(observations) != 2 || observations[1].Action != ActionDeleted || observations[1].PreviousStatus != StatusOpen {
		t.Fatalf("unexpected history %+v", observations)
	}
}

func TestListNormalizesFilter(t *testing.T) {
	svc, store, _ := newTestService()

	if _, err := svc.List(context.Background(), Filter{Status: []Status{"aberto", "xx"}, Region: "zona sul", Limit: 10000}); err != nil {
		t.Fatalf("list: %v", err)
	}
	f := store.lastFilter
	if len(f.Status) != 1 || f.Status[0] != StatusOpen {
		t.Fatalf("unexpected statuses %v", f.Status)
	}
	if f.Region != "Zona Sul" || f.Limit != maxListLimit {
		t.Fatalf("unexpected filter %+v", f)
	}

	if _, err := svc.List(context.Background(), Filter{Status: []Status{"xx"}}); !errors.Is(err, util.ErrInvalid) {
		t.Fatalf("expected invalid status filter error, got %v", err)
	}
}

func TestReportRejectsUnknownRegion(t *testing.T) {
	svc, store, _ := newTestService()
	store.report = NewReport()
	store.report.ByStatus[StatusResolved] = 1
	store.report.ByStatus[StatusOpen] = 1

	report, err := svc.Report(context.Background(), ReportFilter{Region: "centro"})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Total != 2 || report.ResolutionRate != 50 {
		t.Fatalf("unexpected report %+v", report)
	}

	if _, err := svc.Report(context.Background(), ReportFilter{Region: "Litoral"}); !errors.Is(err, diretorio.ErrUnknownRegion) {
		t.Fatalf("expected ErrUnknownRegion, got %v", err)
	}
}
