package chamado

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("chamado não encontrado")
	ErrInvalidStatus     = errors.New("status inválido")
	ErrInvalidPriority   = errors.New("prioridade inválida")
	ErrInvalidTransition = errors.New("transição de status não permitida")
)

// Status representa a etapa do atendimento.
type Status string

const (
	StatusOpen             Status = "ABERTO"
	StatusInProgress       Status = "EM_ANDAMENTO"
	StatusAwaitingResponse Status = "AGUARDANDO_RESPOSTA"
	StatusResolved         Status = "RESOLVIDO"
	StatusCancelled        Status = "CANCELADO"
)

// Priority classifica a urgência do chamado.
type Priority string

const (
	PriorityLow    Priority = "BAIXA"
	PriorityMedium Priority = "MEDIA"
	PriorityHigh   Priority = "ALTA"
	PriorityUrgent Priority = "URGENTE"
)

// ObservationAction identifica o evento registrado no histórico.
type ObservationAction string

const (
	ActionCreated ObservationAction = "CRIACAO"
	ActionUpdated ObservationAction = "ATUALIZACAO"
	ActionDeleted ObservationAction = "EXCLUSAO"
)

// ordem do fluxo principal; CANCELADO fica fora dele.
var statusRank = map[Status]int{
	StatusOpen:             0,
	StatusInProgress:       1,
	StatusAwaitingResponse: 2,
	StatusResolved:         3,
}

var validPriorities = map[Priority]struct{}{
	PriorityLow:    {},
	PriorityMedium: {},
	PriorityHigh:   {},
	PriorityUrgent: {},
}

// Ticket representa um chamado registrado no balcão.
type Ticket struct {
	ID                string    `json:"id"`
	CitizenName       string    `json:"citizenName"`
	Phone             string    `json:"phone"`
	Email             string    `json:"email,omitempty"`
	Church            string    `json:"church"`
	Region            string    `json:"region"`
	Description       string    `json:"description"`
	Category          string    `json:"category"`
	SubDemand         string    `json:"subDemand,omitempty"`
	Priority          Priority  `json:"priority"`
	Status            Status    `json:"status"`
	CreatedBy         string    `json:"createdBy"`
	CreatedByName     string    `json:"createdByName"`
	AssignedTo        string    `json:"assignedTo,omitempty"`
	AssignedToName    string    `json:"assignedToName,omitempty"`
	Notes             string    `json:"notes,omitempty"`
	ResolutionMinutes *int64    `json:"resolutionMinutes,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// Observation é uma entrada imutável do histórico do chamado.
type Observation struct {
	ID             uuid.UUID         `json:"id"`
	TicketID       string            `json:"ticketId"`
	At             time.Time         `json:"at"`
	ActorID        string            `json:"actorId"`
	ActorName      string            `json:"actorName"`
	Action         ObservationAction `json:"action"`
	PreviousStatus Status            `json:"previousStatus,omitempty"`
	NewStatus      Status            `json:"newStatus,omitempty"`
	Note           string            `json:"note,omitempty"`
}

// Actor identifica quem executa a operação.
type Actor struct {
	ID   string
	Name string
	Role string
}

// CreateInput encapsula os campos de abertura de chamado.
type CreateInput struct {
	CitizenName string
	Phone       string
	Email       string
	Church      string
	Region      string
	Description string
	Category    string
	SubDemand   string
	Priority    string
	Notes       string
}

// UpdateInput altera status, prioridade, responsável ou observações.
type UpdateInput struct {
	ID             string
	Status         *string
	Priority       *string
	AssignedTo     *string
	AssignedToName *string
	Notes          *string
	Note           string
}

// Filter restringe a listagem de chamados.
type Filter struct {
	Status     []Status
	Region     string
	Church     string
	Category   string
	Priority   Priority
	AssignedTo string
	CreatedBy  string
	Search     string
	Limit      int
	Offset     int
}

// ReportFilter restringe o relatório consolidado.
type ReportFilter struct {
	Region string
	From   *time.Time
	To     *time.Time
}

// Report consolida contagens de chamados.
type Report struct {
	Total                int              `json:"total"`
	Resolved             int              `json:"resolved"`
	ResolutionRate       float64          `json:"resolutionRate"`
	AvgResolutionMinutes float64          `json:"avgResolutionMinutes"`
	ByStatus             map[Status]int   `json:"byStatus"`
	ByRegion             map[string]int   `json:"byRegion"`
	ByCategory           map[string]int   `json:"byCategory"`
	ByPriority           map[Priority]int `json:"byPriority"`
}

// NewReport devolve um relatório vazio com mapas inicializados.
func NewReport() *Report {
	return &Report{
		ByStatus:   map[Status]int{},
		ByRegion:   map[string]int{},
		ByCategory: map[string]int{},
		ByPriority: map[Priority]int{},
	}
}

// Finalize recalcula totais e taxa de resolução (percentual com uma casa).
func (r *Report) Finalize() {
	r.Total = 0
	for _, n := range r.ByStatus {
		r.Total += n
	}
	r.Resolved = r.ByStatus[StatusResolved]
	if r.Total == 0 {
		r.ResolutionRate = 0
		return
	}
	r.ResolutionRate = math.Round(float64(r.Resolved)/float64(r.Total)*1000) / 10
}

// ParseStatus aceita variações de caixa, espaços e hífens.
func ParseStatus(raw string) (Status, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	status := Status(normalized)
	if _, ok := statusRank[status]; ok || status == StatusCancelled {
		return status, nil
	}
	return "", ErrInvalidStatus
}

// ParsePriority devolve MEDIA quando vazio.
func ParsePriority(raw string) (Priority, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	if normalized == "" {
		return PriorityMedium, nil
	}
	normalized = strings.NewReplacer("É", "E", "Á", "A").Replace(normalized)
	priority := Priority(normalized)
	if _, ok := validPriorities[priority]; !ok {
		return "", ErrInvalidPriority
	}
	return priority, nil
}

// Terminal indica estados finais para fins de relatório.
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusCancelled
}

// CanTransition informa se a mudança de status é aceita.
// O fluxo só avança; CANCELADO parte de qualquer estado não terminal e
// RESOLVIDO pode ser reaberto.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	switch {
	case from == StatusCancelled:
		return false
	case to == StatusCancelled:
		return !from.Terminal()
	case from == StatusResolved:
		return to == StatusOpen
	}
	fromRank, okFrom := statusRank[from]
	toRank, okTo := statusRank[to]
	return okFrom && okTo && toRank > fromRank
}

// ApplyTransition muda o status e fixa o tempo de resolução na primeira vez
// em que o chamado chega a RESOLVIDO.
func (t *Ticket) ApplyTransition(to Status, at time.Time) error {
	if !CanTransition(t.Status, to) {
		return ErrInvalidTransition
	}
	if t.Status == to {
		return nil
	}
	t.Status = to
	t.UpdatedAt = at
	if to == StatusResolved && t.ResolutionMinutes == nil {
		minutes := int64(at.Sub(t.CreatedAt) / time.Minute)
		if minutes < 0 {
			minutes = 0
		}
		t.ResolutionMinutes = &minutes
	}
	return nil
}
