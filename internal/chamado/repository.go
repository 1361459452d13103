package chamado

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/db"
)

const ticketColumns = `id, nome_cidadao, telefone, email, igreja, regiao, descricao, categoria, subdemanda,
        prioridade, status, criado_por, criado_por_nome, responsavel, responsavel_nome, observacoes,
        tempo_resolucao_min, criado_em, atualizado_em`

// Repository persiste chamados e observações no Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria o repositório.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateTicket grava o chamado e a observação de abertura na mesma transação.
func (r *Repository) CreateTicket(ctx context.Context, t Ticket, obs Observation) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		const query = `
        INSERT INTO chamados (` + ticketColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
    `
		if _, err := tx.Exec(ctx, query,
			t.ID, t.CitizenName, t.Phone, t.Email, t.Church, t.Region, t.Description, t.Category, t.SubDemand,
			t.Priority, t.Status, t.CreatedBy, t.CreatedByName, t.AssignedTo, t.AssignedToName, t.Notes,
			t.ResolutionMinutes, t.CreatedAt, t.UpdatedAt,
		); err != nil {
			return fmt.Errorf("inserir chamado: %w", err)
		}
		return insertObservation(ctx, tx, obs)
	})
}

// GetTicket busca chamado pelo identificador.
func (r *Repository) GetTicket(ctx context.Context, id string) (*Ticket, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM chamados WHERE id = $1`, id)
	return scanTicket(row)
}

// UpdateTicket trava a linha, aplica a mutação e grava a observação resultante.
func (r *Repository) UpdateTicket(ctx context.Context, id string, mutate func(t *Ticket) (*Observation, error)) (*Ticket, error) {
	var updated *Ticket
	err := db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+ticketColumns+` FROM chamados WHERE id = $1 FOR UPDATE`, id)
		t, err := scanTicket(row)
		if err != nil {
			return err
		}

		obs, err := mutate(t)
		if err != nil {
			return err
		}

		const query = `
        UPDATE chamados
        SET prioridade = $2, status = $3, responsavel = $4, responsavel_nome = $5, observacoes = $6,
            tempo_resolucao_min = $7, atualizado_em = $8
        WHERE id = $1
    `
		if _, err := tx.Exec(ctx, query, t.ID, t.Priority, t.Status, t.AssignedTo, t.AssignedToName, t.Notes,
			t.ResolutionMinutes, t.UpdatedAt); err != nil {
			return fmt.Errorf("atualizar chamado: %w", err)
		}

		if obs != nil {
			if err := insertObservation(ctx, tx, *obs); err != nil {
				return err
			}
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteTicket remove o chamado; as observações permanecem.
func (r *Repository) DeleteTicket(ctx context.Context, id string, record func(t Ticket) Observation) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+ticketColumns+` FROM chamados WHERE id = $1 FOR UPDATE`, id)
		t, err := scanTicket(row)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM chamados WHERE id = $1`, id); err != nil {
			return fmt.Errorf("excluir chamado: %w", err)
		}
		return insertObservation(ctx, tx, record(*t))
	})
}

// ListTickets lista chamados mais recentes primeiro.
func (r *Repository) ListTickets(ctx context.Context, filter Filter) ([]Ticket, error) {
	clauses := []string{}
	args := []any{}
	idx := 1

	add := func(clause string, value any) {
		clauses = append(clauses, fmt.Sprintf(clause, idx))
		args = append(args, value)
		idx++
	}

	if len(filter.Status) > 0 {
		statuses := make([]string, len(filter.Status))
		for i, st := range filter.Status {
			statuses[i] = string(st)
		}
		add("status = ANY($%d)", statuses)
	}
	if filter.Region != "" {
		add("regiao = $%d", filter.Region)
	}
	if filter.Church != "" {
		add("lower(igreja) = lower($%d)", strings.TrimSpace(filter.Church))
	}
	if filter.Category != "" {
		add("lower(categoria) = lower($%d)", strings.TrimSpace(filter.Category))
	}
	if filter.Priority != "" {
		add("prioridade = $%d", filter.Priority)
	}
	if filter.AssignedTo != "" {
		add("responsavel = $%d", filter.AssignedTo)
	}
	if filter.CreatedBy != "" {
		add("criado_por = $%d", filter.CreatedBy)
	}
	if filter.Search != "" {
		clauses = append(clauses, fmt.Sprintf("(nome_cidadao ILIKE $%d OR descricao ILIKE $%d OR telefone LIKE $%d OR id ILIKE $%d)", idx, idx, idx, idx))
		args = append(args, "%"+filter.Search+"%")
		idx++
	}

	query := `SELECT ` + ticketColumns + ` FROM chamados`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY criado_em DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := []Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *t)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return tickets, nil
}

// ListObservations lista o histórico do chamado em ordem cronológica.
func (r *Repository) ListObservations(ctx context.Context, ticketID string) ([]Observation, error) {
	const query = `
        SELECT id, chamado_id, registrado_em, autor_id, autor_nome, acao, status_anterior, status_novo, nota
        FROM observacoes
        WHERE chamado_id = $1
        ORDER BY registrado_em ASC, id ASC
    `

	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	observations := []Observation{}
	for rows.Next() {
		var o Observation
		if err := rows.Scan(&o.ID, &o.TicketID, &o.At, &o.ActorID, &o.ActorName, &o.Action, &o.PreviousStatus, &o.NewStatus, &o.Note); err != nil {
			return nil, err
		}
		observations = append(observations, o)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return observations, nil
}

// Report executa as agregações em paralelo.
func (r *Repository) Report(ctx context.Context, filter ReportFilter) (*Report, error) {
	clauses := []string{}
	args := []any{}
	if filter.Region != "" {
		args = append(args, filter.Region)
		clauses = append(clauses, fmt.Sprintf("regiao = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		clauses = append(clauses, fmt.Sprintf("criado_em >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		clauses = append(clauses, fmt.Sprintf("criado_em < $%d", len(args)))
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	report := NewReport()
	byStatus := map[string]int{}
	byPriority := map[string]int{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.countBy(gctx, "status", where, args, byStatus) })
	g.Go(func() error { return r.countBy(gctx, "regiao", where, args, report.ByRegion) })
	g.Go(func() error { return r.countBy(gctx, "categoria", where, args, report.ByCategory) })
	g.Go(func() error { return r.countBy(gctx, "prioridade", where, args, byPriority) })
	g.Go(func() error {
		query := `SELECT COALESCE(AVG(tempo_resolucao_min), 0)::float8 FROM chamados` + where
		if where == "" {
			query += " WHERE tempo_resolucao_min IS NOT NULL"
		} else {
			query += " AND tempo_resolucao_min IS NOT NULL"
		}
		return r.pool.QueryRow(gctx, query, args...).Scan(&report.AvgResolutionMinutes)
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("relatório: %w", err)
	}

	for k, v := range byStatus {
		report.ByStatus[Status(k)] = v
	}
	for k, v := range byPriority {
		report.ByPriority[Priority(k)] = v
	}
	return report, nil
}

// countBy agrupa por uma coluna fixa (nunca vinda do usuário).
func (r *Repository) countBy(ctx context.Context, column, where string, args []any, into map[string]int) error {
	query := fmt.Sprintf(`SELECT %s, COUNT(*) FROM chamados%s GROUP BY %s`, column, where, column)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key   string
			count int
		)
		if err := rows.Scan(&key, &count); err != nil {
			return err
		}
		into[key] = count
	}
	return rows.Err()
}

func insertObservation(ctx context.Context, tx pgx.Tx, o Observation) error {
	const query = `
        INSERT INTO observacoes (id, chamado_id, registrado_em, autor_id, autor_nome, acao, status_anterior, status_novo, nota)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `
	if _, err := tx.Exec(ctx, query, o.ID, o.TicketID, o.At, o.ActorID, o.ActorName, o.Action, o.PreviousStatus, o.NewStatus, o.Note); err != nil {
		return fmt.Errorf("inserir observação: %w", err)
	}
	return nil
}

func scanTicket(row pgx.Row) (*Ticket, error) {
	var t Ticket
	if err := row.Scan(&t.ID, &t.CitizenName, &t.Phone, &t.Email, &t.Church, &t.Region, &t.Description, &t.Category, &t.SubDemand,
		&t.Priority, &t.Status, &t.CreatedBy, &t.CreatedByName, &t.AssignedTo, &t.AssignedToName, &t.Notes,
		&t.ResolutionMinutes, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}
