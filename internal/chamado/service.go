package chamado

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/config"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/diretorio"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/util"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// ticketStore abstrai a persistência; mutações recebem o chamado já travado.
type ticketStore interface {
	CreateTicket(ctx context.Context, t Ticket, obs Observation) error
	GetTicket(ctx context.Context, id string) (*Ticket, error)
	UpdateTicket(ctx context.Context, id string, mutate func(t *Ticket) (*Observation, error)) (*Ticket, error)
	DeleteTicket(ctx context.Context, id string, record func(t Ticket) Observation) error
	ListTickets(ctx context.Context, filter Filter) ([]Ticket, error)
	ListObservations(ctx context.Context, ticketID string) ([]Observation, error)
	Report(ctx context.Context, filter ReportFilter) (*Report, error)
}

// Service reúne as regras de negócio dos chamados.
type Service struct {
	repo    ticketStore
	dir     *diretorio.Directory
	catalog config.Catalog
	now     func() time.Time
}

// NewService cria o serviço sobre o repositório Postgres.
func NewService(repo *Repository, dir *diretorio.Directory, catalog config.Catalog) *Service {
	return newService(repo, dir, catalog)
}

func newService(repo ticketStore, dir *diretorio.Directory, catalog config.Catalog) *Service {
	return &Service{repo: repo, dir: dir, catalog: catalog, now: time.Now}
}

// Create registra um novo chamado e a observação de abertura.
func (s *Service) Create(ctx context.Context, input CreateInput, actor Actor) (*Ticket, error) {
	input.CitizenName = strings.TrimSpace(input.CitizenName)
	input.Description = strings.TrimSpace(input.Description)
	input.Category = strings.TrimSpace(input.Category)
	input.SubDemand = strings.TrimSpace(input.SubDemand)
	input.Notes = strings.TrimSpace(input.Notes)

	if err := util.RequireString(input.CitizenName, "nome do cidadão"); err != nil {
		return nil, err
	}
	if err := util.ValidatePhone(input.Phone); err != nil {
		return nil, err
	}
	email := util.NormalizeEmail(input.Email)
	if email != "" {
		if err := util.ValidateEmail(email); err != nil {
			return nil, err
		}
	}
	if err := util.RequireString(input.Description, "descrição"); err != nil {
		return nil, err
	}
	if err := util.RequireString(input.Category, "categoria"); err != nil {
		return nil, err
	}
	if !s.catalog.HasCategory(input.Category) {
		return nil, util.Invalid("categoria desconhecida")
	}
	region, church, err := s.dir.Validate(input.Region, input.Church)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", util.ErrInvalid, err)
	}
	priority, err := ParsePriority(input.Priority)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", util.ErrInvalid, err)
	}

	now := s.now().UTC()
	ticket := Ticket{
		ID:            util.NewTicketID(),
		CitizenName:   input.CitizenName,
		Phone:         util.NormalizePhone(input.Phone),
		Email:         email,
		Church:        church,
		Region:        region,
		Description:   input.Description,
		Category:      input.Category,
		SubDemand:     input.SubDemand,
		Priority:      priority,
		Status:        StatusOpen,
		CreatedBy:     actor.ID,
		CreatedByName: actor.Name,
		Notes:         input.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	obs := Observation{
		ID:        uuid.New(),
		TicketID:  ticket.ID,
		At:        now,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		Action:    ActionCreated,
		NewStatus: StatusOpen,
		Note:      "Chamado registrado",
	}

	if err := s.repo.CreateTicket(ctx, ticket, obs); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// Update aplica alterações e registra observação quando o status muda
// ou quando uma nota é informada.
func (s *Service) Update(ctx context.Context, input UpdateInput, actor Actor) (*Ticket, error) {
	if err := util.ValidateTicketID(input.ID); err != nil {
		return nil, err
	}

	var (
		status   *Status
		priority *Priority
	)
	if input.Status != nil {
		parsed, err := ParseStatus(*input.Status)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", util.ErrInvalid, err)
		}
		status = &parsed
	}
	if input.Priority != nil {
		parsed, err := ParsePriority(*input.Priority)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", util.ErrInvalid, err)
		}
		priority = &parsed
	}
	note := strings.TrimSpace(input.Note)
	now := s.now().UTC()

	return s.repo.UpdateTicket(ctx, strings.ToUpper(strings.TrimSpace(input.ID)), func(t *Ticket) (*Observation, error) {
		previous := t.Status
		if status != nil {
			if err := t.ApplyTransition(*status, now); err != nil {
				return nil, fmt.Errorf("%w: %s → %s", err, previous, *status)
			}
		}
		if priority != nil {
			t.Priority = *priority
		}
		if input.AssignedTo != nil {
			t.AssignedTo = strings.TrimSpace(*input.AssignedTo)
			t.AssignedToName = ""
			if input.AssignedToName != nil {
				t.AssignedToName = strings.TrimSpace(*input.AssignedToName)
			}
		}
		if input.Notes != nil {
			t.Notes = strings.TrimSpace(*input.Notes)
		}
		t.UpdatedAt = now

		if t.Status == previous && note == "" {
			return nil, nil
		}
		return &Observation{
			ID:             uuid.New(),
			TicketID:       t.ID,
			At:             now,
			ActorID:        actor.ID,
			ActorName:      actor.Name,
			Action:         ActionUpdated,
			PreviousStatus: previous,
			NewStatus:      t.Status,
			Note:           note,
		}, nil
	})
}

// Delete remove o chamado mantendo o histórico, acrescido da exclusão.
func (s *Service) Delete(ctx context.Context, id, reason string, actor Actor) error {
	if err := util.ValidateTicketID(id); err != nil {
		return err
	}
	now := s.now().UTC()
	return s.repo.DeleteTicket(ctx, strings.ToUpper(strings.TrimSpace(id)), func(t Ticket) Observation {
		return Observation{
			ID:             uuid.New(),
			TicketID:       t.ID,
			At:             now,
			ActorID:        actor.ID,
			ActorName:      actor.Name,
			Action:         ActionDeleted,
			PreviousStatus: t.Status,
			Note:           strings.TrimSpace(reason),
		}
	})
}

// Get recupera um chamado.
func (s *Service) Get(ctx context.Context, id string) (*Ticket, error) {
	if err := util.ValidateTicketID(id); err != nil {
		return nil, err
	}
	return s.repo.GetTicket(ctx, strings.ToUpper(strings.TrimSpace(id)))
}

// List lista chamados dentro do filtro informado.
func (s *Service) List(ctx context.Context, filter Filter) ([]Ticket, error) {
	if len(filter.Status) > 0 {
		normalized := make([]Status, 0, len(filter.Status))
		for _, st := range filter.Status {
			if parsed, err := ParseStatus(string(st)); err == nil {
				normalized = append(normalized, parsed)
			}
		}
		if len(normalized) == 0 {
			return nil, fmt.Errorf("%w: %w", util.ErrInvalid, ErrInvalidStatus)
		}
		filter.Status = normalized
	}
	if filter.Region != "" {
		if canonical, ok := s.dir.CanonicalRegion(filter.Region); ok {
			filter.Region = canonical
		}
	}
	filter.Search = strings.TrimSpace(filter.Search)
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.repo.ListTickets(ctx, filter)
}

// Observations devolve o histórico completo, do mais antigo ao mais recente.
func (s *Service) Observations(ctx context.Context, ticketID string) ([]Observation, error) {
	if err := util.ValidateTicketID(ticketID); err != nil {
		return nil, err
	}
	return s.repo.ListObservations(ctx, strings.ToUpper(strings.TrimSpace(ticketID)))
}

// Report gera o consolidado do período.
func (s *Service) Report(ctx context.Context, filter ReportFilter) (*Report, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, util.Invalid("período inválido")
	}
	if filter.Region != "" {
		canonical, ok := s.dir.CanonicalRegion(filter.Region)
		if !ok {
			return nil, fmt.Errorf("%w: %w", util.ErrInvalid, diretorio.ErrUnknownRegion)
		}
		filter.Region = canonical
	}
	report, err := s.repo.Report(ctx, filter)
	if err != nil {
		return nil, err
	}
	report.Finalize()
	return report, nil
}
