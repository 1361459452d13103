package action

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/auth"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/chamado"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/config"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/protocol"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/usuario"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/util"
)

var errForbidden = errors.New("sem permissão para esta alteração")

func ticketActor(claims *auth.Claims) chamado.Actor {
	return chamado.Actor{ID: claims.Subject, Name: claims.Name, Role: claims.Role}
}

func (d *Dispatcher) login(ctx context.Context, _ *auth.Claims, req protocol.Request) (protocol.Envelope, error) {
	in := req.(*protocol.LoginRequest)
	user, err := d.deps.Users.Authenticate(ctx, in.Email, in.Password)
	if err != nil {
		return nil, err
	}

	token, err := d.deps.Tokens.GenerateAccessToken(user.ID.String(), user.Name, user.Email, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("emitir token: %w", err)
	}
	if d.deps.Access != nil {
		if err := d.deps.Access.Touch(ctx, user.ID.String(), d.now()); err != nil {
			d.deps.Logger.Warn().Err(err).Msg("falha ao registrar acesso")
		}
	}

	return protocol.Respond(protocol.LoginResponse{
		User: protocol.LoginUser{
			ID:     user.ID.String(),
			Name:   user.Name,
			Email:  user.Email,
			Role:   string(user.Role),
			Church: user.Church,
			Region: user.Region,
		},
		Token:     token,
		ExpiresIn: int64(d.deps.Tokens.TTL().Seconds()),
	}), nil
}

func (d *Dispatcher) listCategories(context.Context, *auth.Claims, protocol.Request) (protocol.Envelope, error) {
	return protocol.Respond(protocol.CategoriesResponse{Categories: d.deps.Catalog.Categories}), nil
}

func (d *Dispatcher) listRegions(context.Context, *auth.Claims, protocol.Request) (protocol.Envelope, error) {
	return protocol.Respond(protocol.RegionsResponse{Regions: d.deps.Directory.Regions()}), nil
}

func (d *Dispatcher) createTicket(ctx context.Context, actor *auth.Claims, req protocol.Request) (protocol.Envelope, error) {
	in := req.(*protocol.CreateTicketRequest)
	ticket, err := d.deps.Tickets.Create(ctx, chamado.CreateInput{
		CitizenName: in.CitizenName,
		Phone:       in.Phone,
		Email:       in.Email,
		Church:      in.Church,
		Region:      in.Region,
		Description: in.Description,
		Category:    in.Category,
		SubDemand:   in.SubDemand,
		Priority:    in.Priority,
		Notes:       in.Notes,
	}, ticketActor(actor))
	if err != nil {
		return nil, err
	}
	return protocol.Respond(protocol.TicketResponse{
		TicketID: ticket.ID,
		Ticket:   ticket,
		Message:  "Chamado registrado",
	}), nil
}

func (d *Dispatcher) updateTicket(ctx context.Context, actor *auth.Claims, req protocol.Request) (protocol.Envelope, error) {
	in := req.(*protocol.UpdateTicketRequest)
	if in.AssignedTo != nil && !d.deps.Catalog.Permissions.Allows(actor.Role, config.PermAssignTicket) {
		return nil, errForbidden
	}
	ticket, err := d.deps.Tickets.Update(ctx, chamado.UpdateInput{
		ID:             in.TicketID,
		Status:         in.Status,
		Priority:       in.Priority,
		AssignedTo:     in.AssignedTo,
		AssignedToName: in.AssignedToName,
		Notes:          in.Notes,
		Note:           in.Note,
	}, ticketActor(actor))
	if err != nil {
		return nil, err
	}
	return protocol.Respond(protocol.TicketResponse{
		TicketID: ticket.ID,
		Ticket:   ticket,
		Message:  "Chamado atualizado",
	}), nil
}

func (d *Dispatcher) deleteTicket(ctx context.Context, actor *auth.Claims, req protocol.Request) (protocol.Envelope, error) {
	in := req.(*protocol.DeleteTicketRequest)
	if err := d.deps.Tickets.Delete(ctx, in.TicketID, in.Reason, ticketActor(actor)); err != nil {
		return nil, err
	}
	return protocol.Respond(protocol.TicketResponse{
		TicketID: strings.ToUpper(strings.TrimSpace(in.TicketID)),
		Message:  "Chamado excluído",
	}), nil
}

func (d *Dispatcher) listTickets(ctx context.Context, actor *auth.Claims, req protocol.Request) (protocol.Envelope, error) {
	in := req.(*protocol.ListTicketsRequest)
	filter := chamado.Filter{
		Region:     in.Region,
		Church:     in.Church,
		Category:   in.Category,
		AssignedTo: in.AssignedTo,
		CreatedBy:  in.CreatedBy,
		Search:     in.Search,
		Limit:      int(in.Limit),
		Offset:     int(in.Offset),
	}
	for _, s := range in.Statuses() {
		filter.Status = append(filter.Status, chamado.Status(s))
	}
	if strings.TrimSpace(in.Priority) != "" {
		priority, err := chamado.ParsePriority(in.Priority)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", util.ErrInvalid, err)
		}
		filter.Priority = priority
	}
	if volunteer(actor) {
		filter.CreatedBy = actor.Subject
	}

	tickets, err := d.deps.Tickets.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if tickets == nil {
		tickets = []chamado.Ticket{}
	}
	return protocol.Respond(protocol.TicketListResponse{Tickets: tickets, Count: len(tickets)}), nil
}

func (d *Dispatcher) listObservations(ctx context.Context, actor *auth.Claims, req protocol.Request) (protocol.Envelope, error) {
	in := req.(*protocol.ListObservationsRequest)
	if volunteer(actor) {
		ticket, err := d.deps.Tickets.Get(ctx, in.TicketID)
		if err != nil {
			return nil, err
		}
		if ticket.CreatedBy != actor.Subject {
			return nil, errForbidden
		}
	}
	observations, err := d.deps.Tickets.Observations(ctx, in.TicketID)
	if err != nil {
		return nil, err
	}
	if observations == nil {
		observations = []chamado.Observation{}
	}
	return protocol.Respond(protocol.ObservationListResponse{
		TicketID:     strings.ToUpper(strings.TrimSpace(in.TicketID)),
		Observations: observations,
	}), nil
}

func (d *Dispatcher) listUsers(ctx context.Context, _ *auth.Claims, req protocol.Request) (protocol.Envelope, error) {
	in := req.(*protocol.ListUsersRequest)
	filter := usuario.Filter{Region: in.Region}
	if strings.TrimSpace(in.Role) != "" {
		role, err := usuario.ParseRole(in.Role)
		if err != nil {
			return nil, err
		}
		filter.Role = role
	}
	if strings.TrimSpace(in.Status) != "" {
		status, ok := usuario.ParseStatus(in.Status)
		if !ok {
			return nil, util.Invalid("status de usuário inválido")
		}
		filter.Status = status
	}

	users, err := d.deps.Users.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []usuario.User{}
	}
	return protocol.Respond(protocol.UserListResponse{Users: users, Count: len(users)}), nil
}

func (d *Dispatcher) createUser(ctx context.Context, actor *auth.Claims, req protocol.Request) (protocol.Envelope, error) {
	in := req.(*protocol.CreateUserRequest)
	role, err := usuario.ParseRole(in.Role)
	if err != nil {
		return nil, err
	}
	// apenas a coordenação geral cria outra coordenação geral
	if role == usuario.RoleCoordinator && !strings.EqualFold(actor.Role, string(usuario.RoleCoordinator)) {
		return nil, errForbidden
	}

	user, err := d.deps.Users.Create(ctx, usuario.CreateInput{
		Name:     in.Name,
		Email:    in.Email,
		Phone:    in.Phone,
		Password: in.Password,
		Role:     in.Role,
		Church:   in.Church,
		Region:   in.Region,
		Status:   in.Status,
	})
	if err != nil {
		return nil, err
	}
	return protocol.Respond(protocol.UserResponse{User: *user}), nil
}

func (d *Dispatcher) generateReport(ctx context.Context, _ *auth.Claims, req protocol.Request) (protocol.Envelope, error) {
	in := req.(*protocol.GenerateReportRequest)
	from, to, err := in.Period()
	if err != nil {
		return nil, err
	}
	report, err := d.deps.Tickets.Report(ctx, chamado.ReportFilter{Region: in.Region, From: from, To: to})
	if err != nil {
		return nil, err
	}
	return protocol.Respond(protocol.ReportResponse{Report: report}), nil
}

// voluntários enxergam apenas os chamados que registraram
func volunteer(actor *auth.Claims) bool {
	return strings.EqualFold(actor.Role, string(usuario.RoleVolunteer))
}
