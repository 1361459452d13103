// Package protocol define o conjunto fechado de ações trocadas entre o
// orquestrador e o backend, com o formato de cada requisição e resposta.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/util"
)

// Nomes de ação reconhecidos pelo backend.
const (
	ActionLogin                  = "login"
	ActionCreateTicket           = "createTicket"
	ActionUpdateTicket           = "updateTicket"
	ActionDeleteTicket           = "deleteTicket"
	ActionListTickets            = "listTickets"
	ActionListObservations       = "listObservations"
	ActionListUsers              = "listUsers"
	ActionCreateUser             = "createUser"
	ActionListCategories         = "listCategories"
	ActionListRegionsAndChurches = "listRegionsAndChurches"
	ActionGenerateReport         = "generateReport"
)

// Campos de metadados anexados a toda requisição.
const (
	FieldAction       = "action"
	FieldTimestamp    = "timestamp"
	FieldClientOrigin = "clientOrigin"
	FieldVersion      = "version"
	FieldRequestID    = "requestId"
	FieldActorID      = "actorId"
	FieldActorName    = "actorName"
	FieldActorEmail   = "actorEmail"
	FieldActorRole    = "actorRole"
)

// ErrUnknownAction indica nome de ação fora do conjunto conhecido.
var ErrUnknownAction = errors.New("ação desconhecida")

// Request é implementado por todas as requisições tipadas.
type Request interface {
	Action() string
	Validate() error
}

var factories = map[string]func() Request{
	ActionLogin:                  func() Request { return &LoginRequest{} },
	ActionCreateTicket:           func() Request { return &CreateTicketRequest{} },
	ActionUpdateTicket:           func() Request { return &UpdateTicketRequest{} },
	ActionDeleteTicket:           func() Request { return &DeleteTicketRequest{} },
	ActionListTickets:            func() Request { return &ListTicketsRequest{} },
	ActionListObservations:       func() Request { return &ListObservationsRequest{} },
	ActionListUsers:              func() Request { return &ListUsersRequest{} },
	ActionCreateUser:             func() Request { return &CreateUserRequest{} },
	ActionListCategories:         func() Request { return &ListCategoriesRequest{} },
	ActionListRegionsAndChurches: func() Request { return &ListRegionsAndChurchesRequest{} },
	ActionGenerateReport:         func() Request { return &GenerateReportRequest{} },
}

// Known informa se a ação pertence ao conjunto fechado.
func Known(action string) bool {
	_, ok := factories[action]
	return ok
}

// Actions lista as ações conhecidas.
func Actions() []string {
	out := make([]string, 0, len(factories))
	for name := range factories {
		out = append(out, name)
	}
	return out
}

// Payload converte a requisição tipada no mapa enviado ao backend.
func Payload(req Request) (map[string]any, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("serializar %s: %w", req.Action(), err)
	}
	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("serializar %s: %w", req.Action(), err)
	}
	return fields, nil
}

// Decode monta a requisição tipada a partir dos campos recebidos.
// Campos extras (metadados) são ignorados.
func Decode(action string, fields map[string]any) (Request, error) {
	factory, ok := factories[action]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	req := factory()
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, util.Invalid("corpo inválido")
	}
	if err := json.Unmarshal(raw, req); err != nil {
		return nil, util.Invalid("campos inválidos para " + action)
	}
	return req, nil
}

// FlexInt aceita números JSON e números em texto (corpos url-encoded).
type FlexInt int

// UnmarshalJSON implementa json.Unmarshaler.
func (n *FlexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("número inválido: %q", s)
	}
	*n = FlexInt(v)
	return nil
}

// LoginRequest autentica e-mail e senha.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (LoginRequest) Action() string { return ActionLogin }

func (r LoginRequest) Validate() error {
	if err := util.ValidateEmail(r.Email); err != nil {
		return err
	}
	return util.RequireString(r.Password, "senha")
}

// CreateTicketRequest abre um chamado.
type CreateTicketRequest struct {
	CitizenName string `json:"citizenName"`
	Phone       string `json:"phone"`
	Email       string `json:"email,omitempty"`
	Church      string `json:"church"`
	Region      string `json:"region"`
	Description string `json:"description"`
	Category    string `json:"category"`
	SubDemand   string `json:"subDemand,omitempty"`
	Priority    string `json:"priority,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

func (CreateTicketRequest) Action() string { return ActionCreateTicket }

func (r CreateTicketRequest) Validate() error {
	for _, f := range []struct{ value, name string }{
		{r.CitizenName, "nome do cidadão"},
		{r.Description, "descrição"},
		{r.Category, "categoria"},
		{r.Region, "região"},
		{r.Church, "igreja"},
	} {
		if err := util.RequireString(f.value, f.name); err != nil {
			return err
		}
	}
	if err := util.ValidatePhone(r.Phone); err != nil {
		return err
	}
	if strings.TrimSpace(r.Email) != "" {
		return util.ValidateEmail(util.NormalizeEmail(r.Email))
	}
	return nil
}

// UpdateTicketRequest altera um chamado existente; campos nulos não mudam.
type UpdateTicketRequest struct {
	TicketID       string  `json:"ticketId"`
	Status         *string `json:"status,omitempty"`
	Priority       *string `json:"priority,omitempty"`
	AssignedTo     *string `json:"assignedTo,omitempty"`
	AssignedToName *string `json:"assignedToName,omitempty"`
	Notes          *string `json:"notes,omitempty"`
	Note           string  `json:"note,omitempty"`
}

func (UpdateTicketRequest) Action() string { return ActionUpdateTicket }

func (r UpdateTicketRequest) Validate() error {
	if err := util.ValidateTicketID(r.TicketID); err != nil {
		return err
	}
	if r.Status == nil && r.Priority == nil && r.AssignedTo == nil && r.Notes == nil && strings.TrimSpace(r.Note) == "" {
		return util.Invalid("nenhuma alteração informada")
	}
	return nil
}

// DeleteTicketRequest exclui um chamado.
type DeleteTicketRequest struct {
	TicketID string `json:"ticketId"`
	Reason   string `json:"reason,omitempty"`
}

func (DeleteTicketRequest) Action() string { return ActionDeleteTicket }

func (r DeleteTicketRequest) Validate() error { return util.ValidateTicketID(r.TicketID) }

// ListTicketsRequest filtra chamados; Status aceita lista separada por vírgulas.
type ListTicketsRequest struct {
	Status     string  `json:"status,omitempty"`
	Region     string  `json:"region,omitempty"`
	Church     string  `json:"church,omitempty"`
	Category   string  `json:"category,omitempty"`
	Priority   string  `json:"priority,omitempty"`
	AssignedTo string  `json:"assignedTo,omitempty"`
	CreatedBy  string  `json:"createdBy,omitempty"`
	Search     string  `json:"search,omitempty"`
	Limit      FlexInt `json:"limit,omitempty"`
	Offset     FlexInt `json:"offset,omitempty"`
}

func (ListTicketsRequest) Action() string { return ActionListTickets }

func (r ListTicketsRequest) Validate() error {
	if r.Limit < 0 || r.Offset < 0 {
		return util.Invalid("paginação inválida")
	}
	return nil
}

// Statuses separa a lista de status informada.
func (r ListTicketsRequest) Statuses() []string {
	var out []string
	for _, s := range strings.Split(r.Status, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ListObservationsRequest lista o histórico de um chamado.
type ListObservationsRequest struct {
	TicketID string `json:"ticketId"`
}

func (ListObservationsRequest) Action() string { return ActionListObservations }

func (r ListObservationsRequest) Validate() error { return util.ValidateTicketID(r.TicketID) }

// ListUsersRequest filtra usuários.
type ListUsersRequest struct {
	Role   string `json:"role,omitempty"`
	Region string `json:"region,omitempty"`
	Status string `json:"status,omitempty"`
}

func (ListUsersRequest) Action() string { return ActionListUsers }

func (ListUsersRequest) Validate() error { return nil }

// CreateUserRequest cadastra voluntário ou membro da equipe.
type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Church   string `json:"church,omitempty"`
	Region   string `json:"region,omitempty"`
	Status   string `json:"status,omitempty"`
}

func (CreateUserRequest) Action() string { return ActionCreateUser }

func (r CreateUserRequest) Validate() error {
	if err := util.RequireString(r.Name, "nome"); err != nil {
		return err
	}
	if err := util.ValidateEmail(util.NormalizeEmail(r.Email)); err != nil {
		return err
	}
	if err := util.ValidatePassword(r.Password); err != nil {
		return err
	}
	return util.RequireString(r.Role, "papel")
}

// ListCategoriesRequest não tem parâmetros.
type ListCategoriesRequest struct{}

func (ListCategoriesRequest) Action() string { return ActionListCategories }

func (ListCategoriesRequest) Validate() error { return nil }

// ListRegionsAndChurchesRequest não tem parâmetros.
type ListRegionsAndChurchesRequest struct{}

func (ListRegionsAndChurchesRequest) Action() string { return ActionListRegionsAndChurches }

func (ListRegionsAndChurchesRequest) Validate() error { return nil }

// GenerateReportRequest pede o consolidado de um período (datas AAAA-MM-DD).
type GenerateReportRequest struct {
	Region string `json:"region,omitempty"`
	From   string `json:"from,omitempty"`
	To     string `json:"to,omitempty"`
}

func (GenerateReportRequest) Action() string { return ActionGenerateReport }

func (r GenerateReportRequest) Validate() error {
	_, _, err := r.Period()
	return err
}

// Period converte as datas; To é exclusivo (dia seguinte à data informada).
func (r GenerateReportRequest) Period() (*time.Time, *time.Time, error) {
	var from, to *time.Time
	if s := strings.TrimSpace(r.From); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return nil, nil, util.Invalid("data inicial inválida")
		}
		from = &t
	}
	if s := strings.TrimSpace(r.To); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return nil, nil, util.Invalid("data final inválida")
		}
		t = t.AddDate(0, 0, 1)
		to = &t
	}
	if from != nil && to != nil && !to.After(*from) {
		return nil, nil, util.Invalid("período inválido")
	}
	return from, to, nil
}
