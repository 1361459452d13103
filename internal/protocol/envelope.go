package protocol

import (
	"encoding/json"

	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/chamado"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/config"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/usuario"
)

// Códigos de erro devolvidos no campo "code" de respostas com success=false.
const (
	CodeUnknownAction      = "UNKNOWN_ACTION"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeForbidden          = "FORBIDDEN"
	CodeInvalidPayload     = "INVALID_PAYLOAD"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeInvalidTransition  = "INVALID_TRANSITION"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInternal           = "INTERNAL"
)

// Envelope é o objeto JSON devolvido pelo backend para qualquer ação.
type Envelope map[string]any

// Success monta uma resposta de sucesso com os campos informados.
func Success(fields map[string]any) Envelope {
	env := make(Envelope, len(fields)+1)
	for k, v := range fields {
		env[k] = v
	}
	env["success"] = true
	return env
}

// Respond converte uma resposta tipada em envelope de sucesso.
func Respond(v any) Envelope {
	raw, err := json.Marshal(v)
	if err != nil {
		return Failure(CodeInternal, "falha ao serializar resposta")
	}
	fields := map[string]any{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Failure(CodeInternal, "falha ao serializar resposta")
	}
	return Success(fields)
}

// Failure monta uma resposta de negócio com success=false.
func Failure(code, message string) Envelope {
	return Envelope{"success": false, "error": message, "code": code}
}

// OK informa se o envelope representa sucesso.
func (e Envelope) OK() bool {
	ok, _ := e["success"].(bool)
	return ok
}

// Code devolve o código de erro, se houver.
func (e Envelope) Code() string {
	code, _ := e["code"].(string)
	return code
}

// LoginUser é o retrato do usuário devolvido no login.
type LoginUser struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Church string `json:"church,omitempty"`
	Region string `json:"region,omitempty"`
}

// LoginResponse responde à ação login.
type LoginResponse struct {
	User      LoginUser `json:"user"`
	Token     string    `json:"token"`
	ExpiresIn int64     `json:"expiresIn"`
}

// TicketResponse responde à criação, atualização e exclusão de chamados.
type TicketResponse struct {
	TicketID string          `json:"ticketId"`
	Ticket   *chamado.Ticket `json:"ticket,omitempty"`
	Message  string          `json:"message,omitempty"`
}

// TicketListResponse responde a listTickets.
type TicketListResponse struct {
	Tickets []chamado.Ticket `json:"tickets"`
	Count   int              `json:"count"`
}

// ObservationListResponse responde a listObservations.
type ObservationListResponse struct {
	TicketID     string                `json:"ticketId"`
	Observations []chamado.Observation `json:"observations"`
}

// UserListResponse responde a listUsers.
type UserListResponse struct {
	Users []usuario.User `json:"users"`
	Count int            `json:"count"`
}

// UserResponse responde a createUser.
type UserResponse struct {
	User usuario.User `json:"user"`
}

// CategoriesResponse responde a listCategories.
type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

// RegionsResponse responde a listRegionsAndChurches.
type RegionsResponse struct {
	Regions []config.Region `json:"regions"`
}

// ReportResponse responde a generateReport.
type ReportResponse struct {
	Report *chamado.Report `json:"report"`
}
