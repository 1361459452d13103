package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/chamado"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/config"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/painel"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/protocol"
)

func newTicketsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "chamados",
		Aliases: []string{"chamado"},
		Short:   "Cadastro e acompanhamento de chamados",
	}
	cmd.AddCommand(newTicketsListCmd(app))
	cmd.AddCommand(newTicketsCreateCmd(app))
	cmd.AddCommand(newTicketsUpdateCmd(app))
	cmd.AddCommand(newTicketsDeleteCmd(app))
	cmd.AddCommand(newTicketsHistoryCmd(app))
	return cmd
}

func newTicketsListCmd(app *App) *cobra.Command {
	var req protocol.ListTicketsRequest
	var sortField string
	var page int
	var pageSize int
	var summary bool

	cmd := &cobra.Command{
		Use:   "listar",
		Short: "Lista chamados com filtros, ordenação e paginação",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePermission(cmd, app, config.PermViewTickets); err != nil {
				return err
			}

			res := app.client.Send(cmd.Context(), req)
			if !res.OK {
				return result(cmd, app, res, nil)
			}
			var list protocol.TicketListResponse
			if err := res.Decode(&list); err != nil {
				return writeErr(cmd, err)
			}

			if summary {
				return writeOut(cmd, app, painel.Summarize(list.Tickets))
			}

			q := painel.Query{Sort: sortField, Page: page, PageSize: pageSize}
			return writeOut(cmd, app, map[string]any{
				"cached": res.Cached,
				"page":   painel.Apply(list.Tickets, q),
			})
		},
	}

	cmd.Flags().StringVar(&req.Status, "status", "", "Status separados por vírgula (ABERTO,EM_ANDAMENTO,...)")
	cmd.Flags().StringVar(&req.Region, "regiao", "", "Região")
	cmd.Flags().StringVar(&req.Church, "igreja", "", "Igreja")
	cmd.Flags().StringVar(&req.Category, "categoria", "", "Categoria")
	cmd.Flags().StringVar(&req.Priority, "prioridade", "", "Prioridade")
	cmd.Flags().StringVar(&req.AssignedTo, "responsavel", "", "Id do responsável")
	cmd.Flags().StringVar(&req.Search, "busca", "", "Texto livre (nome, telefone, descrição)")
	cmd.Flags().StringVar(&sortField, "ordem", "-"+painel.SortCreatedAt, "Campo de ordenação; prefixo - para decrescente")
	cmd.Flags().IntVar(&page, "pagina", 1, "Página")
	cmd.Flags().IntVar(&pageSize, "por-pagina", 20, "Itens por página")
	cmd.Flags().BoolVar(&summary, "resumo", false, "Mostra apenas a contagem por situação")
	return cmd
}

func newTicketsCreateCmd(app *App) *cobra.Command {
	var req protocol.CreateTicketRequest

	cmd := &cobra.Command{
		Use:   "criar",
		Short: "Abre um chamado",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePermission(cmd, app, config.PermCreateTicket); err != nil {
				return err
			}
			if req.Category != "" && !app.catalog.HasCategory(req.Category) {
				return writeErr(cmd, errUnknown("categoria", req.Category))
			}
			return result(cmd, app, app.client.Send(cmd.Context(), req), &protocol.TicketResponse{})
		},
	}

	cmd.Flags().StringVar(&req.CitizenName, "nome", "", "Nome do cidadão")
	cmd.Flags().StringVar(&req.Phone, "telefone", "", "Telefone com DDD")
	cmd.Flags().StringVar(&req.Email, "email", "", "E-mail do cidadão")
	cmd.Flags().StringVar(&req.Region, "regiao", "", "Região")
	cmd.Flags().StringVar(&req.Church, "igreja", "", "Igreja")
	cmd.Flags().StringVar(&req.Category, "categoria", "", "Categoria")
	cmd.Flags().StringVar(&req.SubDemand, "subdemanda", "", "Subdemanda")
	cmd.Flags().StringVar(&req.Description, "descricao", "", "Descrição da demanda")
	cmd.Flags().StringVar(&req.Priority, "prioridade", string(chamado.PriorityMedium), "Prioridade")
	cmd.Flags().StringVar(&req.Notes, "observacoes", "", "Observações")
	return cmd
}

func newTicketsUpdateCmd(app *App) *cobra.Command {
	var status, priority, assignedTo, assignedToName, notes, note string

	cmd := &cobra.Command{
		Use:   "atualizar <id>",
		Short: "Altera status, prioridade, responsável ou observações",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePermission(cmd, app, config.PermUpdateTicket); err != nil {
				return err
			}

			req := protocol.UpdateTicketRequest{TicketID: strings.TrimSpace(args[0]), Note: note}
			flags := cmd.Flags()
			if flags.Changed("status") {
				req.Status = &status
			}
			if flags.Changed("prioridade") {
				req.Priority = &priority
			}
			if flags.Changed("responsavel") {
				req.AssignedTo = &assignedTo
				req.AssignedToName = &assignedToName
			}
			if flags.Changed("observacoes") {
				req.Notes = &notes
			}
			return result(cmd, app, app.client.Send(cmd.Context(), req), &protocol.TicketResponse{})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Novo status")
	cmd.Flags().StringVar(&priority, "prioridade", "", "Nova prioridade")
	cmd.Flags().StringVar(&assignedTo, "responsavel", "", "Id do responsável")
	cmd.Flags().StringVar(&assignedToName, "responsavel-nome", "", "Nome do responsável")
	cmd.Flags().StringVar(&notes, "observacoes", "", "Substitui as observações")
	cmd.Flags().StringVar(&note, "nota", "", "Nota registrada no histórico")
	return cmd
}

func newTicketsDeleteCmd(app *App) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "excluir <id>",
		Short: "Exclui um chamado",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePermission(cmd, app, config.PermDeleteTicket); err != nil {
				return err
			}
			req := protocol.DeleteTicketRequest{TicketID: strings.TrimSpace(args[0]), Reason: reason}
			return result(cmd, app, app.client.Send(cmd.Context(), req), &protocol.TicketResponse{})
		},
	}

	cmd.Flags().StringVar(&reason, "motivo", "", "Motivo da exclusão")
	return cmd
}

func newTicketsHistoryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "historico <id>",
		Short: "Lista o histórico de observações de um chamado",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePermission(cmd, app, config.PermViewTickets); err != nil {
				return err
			}
			req := protocol.ListObservationsRequest{TicketID: strings.TrimSpace(args[0])}
			return result(cmd, app, app.client.Send(cmd.Context(), req), &protocol.ObservationListResponse{})
		},
	}
}
