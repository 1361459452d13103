package usuario

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provê acesso à tabela de usuários.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria o repositório.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateUser insere usuário; e-mail repetido vira ErrEmailTaken.
func (r *Repository) CreateUser(ctx context.Context, u User) error {
	const query = `
        INSERT INTO usuarios (id, nome, email, telefone, papel, igreja, regiao, status, senha_hash, criado_em)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `
	_, err := r.pool.Exec(ctx, query, u.ID, u.Name, u.Email, u.Phone, u.Role, u.Church, u.Region, u.Status, u.PasswordHash, u.RegisteredAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrEmailTaken
		}
		return fmt.Errorf("inserir usuário: %w", err)
	}
	return nil
}

// GetByEmail busca usuário pelo e-mail normalizado.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	const query = `
        SELECT id, nome, email, telefone, papel, igreja, regiao, status, senha_hash, criado_em, ultimo_acesso_em
        FROM usuarios
        WHERE email = $1
    `

	var u User
	err := r.pool.QueryRow(ctx, query, email).Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.Church, &u.Region,
		&u.Status, &u.PasswordHash, &u.RegisteredAt, &u.LastLoginAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// List lista usuários com contadores derivados dos chamados criados.
func (r *Repository) List(ctx context.Context, filter Filter) ([]User, error) {
	clauses := []string{}
	args := []any{}
	if filter.Role != "" {
		args = append(args, filter.Role)
		clauses = append(clauses, fmt.Sprintf("u.papel = $%d", len(args)))
	}
	if filter.Region != "" {
		args = append(args, filter.Region)
		clauses = append(clauses, fmt.Sprintf("u.regiao = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		clauses = append(clauses, fmt.Sprintf("u.status = $%d", len(args)))
	}

	query := `
        SELECT u.id, u.nome, u.email, u.telefone, u.papel, u.igreja, u.regiao, u.status, u.criado_em, u.ultimo_acesso_em,
               COUNT(c.id), COUNT(c.id) FILTER (WHERE c.status = 'RESOLVIDO')
        FROM usuarios u
        LEFT JOIN chamados c ON c.criado_por = u.id::text`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " GROUP BY u.id ORDER BY u.nome ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.Church, &u.Region, &u.Status,
			&u.RegisteredAt, &u.LastLoginAt, &u.TotalTickets, &u.ResolvedTickets); err != nil {
			return nil, err
		}
		if u.TotalTickets > 0 {
			u.ResolutionRate = math.Round(float64(u.ResolvedTickets)/float64(u.TotalTickets)*1000) / 10
		}
		users = append(users, u)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return users, nil
}

// Count devolve o total de usuários.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM usuarios`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// TouchLastLogin registra o último login.
func (r *Repository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE usuarios SET ultimo_acesso_em = $2 WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
