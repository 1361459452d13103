// Package action resolve as ações do endpoint único: lê o corpo, confere a
// sessão e as permissões do ator, executa a operação e devolve o envelope.
package action

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/auth"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/chamado"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/config"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/diretorio"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/protocol"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/usuario"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/util"
)

const maxBodyBytes = 1 << 20

// TicketService é satisfeito por *chamado.Service.
type TicketService interface {
	Create(ctx context.Context, input chamado.CreateInput, actor chamado.Actor) (*chamado.Ticket, error)
	Update(ctx context.Context, input chamado.UpdateInput, actor chamado.Actor) (*chamado.Ticket, error)
	Delete(ctx context.Context, id, reason string, actor chamado.Actor) error
	Get(ctx context.Context, id string) (*chamado.Ticket, error)
	List(ctx context.Context, filter chamado.Filter) ([]chamado.Ticket, error)
	Observations(ctx context.Context, ticketID string) ([]chamado.Observation, error)
	Report(ctx context.Context, filter chamado.ReportFilter) (*chamado.Report, error)
}

// UserService é satisfeito por *usuario.Service.
type UserService interface {
	Create(ctx context.Context, input usuario.CreateInput) (*usuario.User, error)
	Authenticate(ctx context.Context, email, password string) (*usuario.User, error)
	List(ctx context.Context, filter usuario.Filter) ([]usuario.User, error)
}

// TokenIssuer é satisfeito por *auth.JWTManager.
type TokenIssuer interface {
	GenerateAccessToken(subject, name, email, role string) (string, error)
	TTL() time.Duration
}

// AccessRecorder registra o último acesso de cada usuário.
type AccessRecorder interface {
	Touch(ctx context.Context, userID string, at time.Time) error
}

// Dependencies agrupa os colaboradores do despachante. Access é opcional.
type Dependencies struct {
	Tickets   TicketService
	Users     UserService
	Tokens    TokenIssuer
	Access    AccessRecorder
	Catalog   config.Catalog
	Directory *diretorio.Directory
	Logger    zerolog.Logger
}

type handlerFunc func(ctx context.Context, actor *auth.Claims, req protocol.Request) (protocol.Envelope, error)

type route struct {
	// permission vazia indica ação pública.
	permission string
	handle     handlerFunc
}

// Dispatcher executa ações do protocolo.
type Dispatcher struct {
	deps   Dependencies
	routes map[string]route
	now    func() time.Time
}

// NewDispatcher monta a tabela de ações.
func NewDispatcher(deps Dependencies) *Dispatcher {
	d := &Dispatcher{deps: deps, now: time.Now}
	d.routes = map[string]route{
		protocol.ActionLogin:                  {handle: d.login},
		protocol.ActionListCategories:         {handle: d.listCategories},
		protocol.ActionListRegionsAndChurches: {handle: d.listRegions},
		protocol.ActionCreateTicket:           {permission: config.PermCreateTicket, handle: d.createTicket},
		protocol.ActionUpdateTicket:           {permission: config.PermUpdateTicket, handle: d.updateTicket},
		protocol.ActionDeleteTicket:           {permission: config.PermDeleteTicket, handle: d.deleteTicket},
		protocol.ActionListTickets:            {permission: config.PermViewTickets, handle: d.listTickets},
		protocol.ActionListObservations:       {permission: config.PermViewTickets, handle: d.listObservations},
		protocol.ActionListUsers:              {permission: config.PermViewUsers, handle: d.listUsers},
		protocol.ActionCreateUser:             {permission: config.PermManageUsers, handle: d.createUser},
		protocol.ActionGenerateReport:         {permission: config.PermViewReports, handle: d.generateReport},
	}
	return d
}

// Handle interpreta o corpo (JSON ou url-encoded) e executa a ação.
// Resultados de negócio sempre voltam como envelope, nunca como erro.
func (d *Dispatcher) Handle(ctx context.Context, contentType string, body []byte) protocol.Envelope {
	fields, err := parseBody(contentType, body)
	if err != nil {
		return protocol.Failure(protocol.CodeInvalidPayload, err.Error())
	}
	return d.Dispatch(ctx, fields)
}

// Dispatch executa a ação a partir dos campos já lidos.
func (d *Dispatcher) Dispatch(ctx context.Context, fields map[string]any) protocol.Envelope {
	name, _ := fields[protocol.FieldAction].(string)
	name = strings.TrimSpace(name)
	if name == "" {
		return protocol.Failure(protocol.CodeUnknownAction, "ação não informada")
	}
	rt, ok := d.routes[name]
	if !ok {
		return protocol.Failure(protocol.CodeUnknownAction, "ação desconhecida: "+name)
	}

	requestID, _ := fields[protocol.FieldRequestID].(string)
	logger := d.deps.Logger.With().Str("action", name).Str("request_id", requestID).Logger()

	actor, hasActor := auth.ActorFrom(ctx)
	if rt.permission != "" {
		if !hasActor {
			return protocol.Failure(protocol.CodeUnauthorized, "sessão ausente ou expirada")
		}
		if !d.deps.Catalog.Permissions.Allows(actor.Role, rt.permission) {
			logger.Warn().Str("user_id", actor.Subject).Str("role", actor.Role).Msg("ação negada")
			return protocol.Failure(protocol.CodeForbidden, "sem permissão para esta ação")
		}
	}
	if hasActor && d.deps.Access != nil {
		if err := d.deps.Access.Touch(ctx, actor.Subject, d.now()); err != nil {
			logger.Warn().Err(err).Msg("falha ao registrar acesso")
		}
	}

	req, err := protocol.Decode(name, fields)
	if err != nil {
		return protocol.Failure(protocol.CodeInvalidPayload, validationMessage(err))
	}
	if err := req.Validate(); err != nil {
		return protocol.Failure(protocol.CodeInvalidPayload, validationMessage(err))
	}

	env, err := rt.handle(ctx, actor, req)
	if err != nil {
		code, message := classify(err)
		if code == protocol.CodeInternal {
			logger.Error().Err(err).Msg("falha ao executar ação")
		} else {
			logger.Debug().Err(err).Str("code", code).Msg("ação recusada")
		}
		return protocol.Failure(code, message)
	}
	return env
}

func parseBody(contentType string, body []byte) (map[string]any, error) {
	if len(body) > maxBodyBytes {
		return nil, util.Invalid("corpo excede o limite")
	}
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "application/x-www-form-urlencoded" {
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, errors.New("formulário inválido")
		}
		return FormFields(values), nil
	}

	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil, errors.New("corpo vazio")
	}
	fields := map[string]any{}
	if err := json.Unmarshal([]byte(trimmed), &fields); err != nil {
		return nil, errors.New("corpo deve ser um objeto JSON")
	}
	return fields, nil
}

// FormFields converte valores de formulário ou query string em campos.
func FormFields(values url.Values) map[string]any {
	fields := make(map[string]any, len(values))
	for key, vals := range values {
		if len(vals) > 0 {
			fields[key] = vals[0]
		}
	}
	return fields
}

func classify(err error) (string, string) {
	switch {
	case errors.Is(err, util.ErrInvalid), errors.Is(err, usuario.ErrInvalidRole):
		return protocol.CodeInvalidPayload, validationMessage(err)
	case errors.Is(err, chamado.ErrNotFound), errors.Is(err, usuario.ErrNotFound):
		return protocol.CodeNotFound, err.Error()
	case errors.Is(err, usuario.ErrEmailTaken):
		return protocol.CodeConflict, err.Error()
	case errors.Is(err, chamado.ErrInvalidTransition):
		return protocol.CodeInvalidTransition, err.Error()
	case errors.Is(err, usuario.ErrInvalidCredentials),
		errors.Is(err, usuario.ErrAccountPending),
		errors.Is(err, usuario.ErrAccountDisabled):
		return protocol.CodeInvalidCredentials, err.Error()
	case errors.Is(err, errForbidden):
		return protocol.CodeForbidden, err.Error()
	default:
		return protocol.CodeInternal, "erro interno"
	}
}

func validationMessage(err error) string {
	return strings.TrimPrefix(err.Error(), util.ErrInvalid.Error()+": ")
}
