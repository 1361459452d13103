// Package session mantém a sessão do operador no cliente: login, validade
// de oito horas, permissões por papel e logout.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/config"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/orchestrator"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/protocol"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/util"
)

// UserSnapshot é o retrato do usuário guardado na sessão.
type UserSnapshot struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Church string `json:"church,omitempty"`
	Region string `json:"region,omitempty"`
}

// Record é o formato persistido: {"user": {...}, "issuedAt": <ms>}.
type Record struct {
	User     UserSnapshot `json:"user"`
	IssuedAt int64        `json:"issuedAt"`
	Token    string       `json:"token,omitempty"`
}

// Submitter é satisfeito por *orchestrator.Client.
type Submitter interface {
	Submit(ctx context.Context, action string, payload map[string]any) orchestrator.Result
}

// Manager controla a sessão corrente.
type Manager struct {
	submitter Submitter
	store     Store
	timeout   time.Duration
	perms     config.PermissionTable
	logger    zerolog.Logger
	now       func() time.Time

	mu     sync.Mutex
	record *Record
}

// NewManager cria o gerenciador de sessão.
func NewManager(submitter Submitter, store Store, timeout time.Duration, perms config.PermissionTable, logger zerolog.Logger) *Manager {
	if store == nil {
		store = &MemoryStore{}
	}
	return &Manager{
		submitter: submitter,
		store:     store,
		timeout:   timeout,
		perms:     perms,
		logger:    logger,
		now:       time.Now,
	}
}

// Login autentica via ação login. Em falha a sessão anterior é mantida e o
// erro é um *orchestrator.Error.
func (m *Manager) Login(ctx context.Context, email, password string) (*UserSnapshot, error) {
	email = util.NormalizeEmail(email)
	if err := util.ValidateEmail(email); err != nil {
		return nil, &orchestrator.Error{Kind: orchestrator.ErrInvalidPayload, Message: "e-mail inválido"}
	}
	if password == "" {
		return nil, &orchestrator.Error{Kind: orchestrator.ErrInvalidPayload, Message: "senha obrigatória"}
	}

	res := m.submitter.Submit(ctx, protocol.ActionLogin, map[string]any{
		"email":    email,
		"password": password,
	})
	if !res.OK {
		m.logger.Warn().Str("email", email).Str("kind", string(res.Error)).Msg("login recusado")
		return nil, res.Err()
	}

	var payload protocol.LoginResponse
	if err := res.Decode(&payload); err != nil {
		return nil, err
	}
	if strings.TrimSpace(payload.User.ID) == "" {
		return nil, &orchestrator.Error{Kind: orchestrator.ErrMalformedResponse, Message: "resposta de login sem usuário"}
	}

	rec := Record{
		User: UserSnapshot{
			ID:     payload.User.ID,
			Name:   payload.User.Name,
			Email:  payload.User.Email,
			Role:   strings.ToUpper(payload.User.Role),
			Church: payload.User.Church,
			Region: payload.User.Region,
		},
		IssuedAt: m.now().UnixMilli(),
		Token:    payload.Token,
	}
	if rec.User.Email == "" {
		rec.User.Email = email
	}

	m.mu.Lock()
	m.record = &rec
	m.mu.Unlock()

	if err := m.store.Save(ctx, rec); err != nil {
		m.logger.Error().Err(err).Msg("falha ao persistir sessão")
	}
	m.logger.Info().Str("user_id", rec.User.ID).Str("role", rec.User.Role).Msg("sessão iniciada")

	user := rec.User
	return &user, nil
}

// Restore carrega a sessão persistida, descartando-a se já expirou.
func (m *Manager) Restore(ctx context.Context) error {
	rec, err := m.store.Load(ctx)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}
	if !m.alive(rec) {
		return m.store.Clear(ctx)
	}
	m.mu.Lock()
	m.record = rec
	m.mu.Unlock()
	return nil
}

// CurrentUser devolve o usuário da sessão válida ou nil.
func (m *Manager) CurrentUser() *UserSnapshot {
	rec := m.valid()
	if rec == nil {
		return nil
	}
	user := rec.User
	return &user
}

// IsSessionValid informa se há sessão e now - issuedAt < timeout.
// Sessão expirada é removida da memória e do armazenamento.
func (m *Manager) IsSessionValid() bool {
	return m.valid() != nil
}

// HasPermission consulta a tabela de papéis; falso sem sessão válida.
func (m *Manager) HasPermission(permission string) bool {
	rec := m.valid()
	if rec == nil {
		return false
	}
	return m.perms.Allows(rec.User.Role, permission)
}

// IssuedAt devolve o início da sessão válida.
func (m *Manager) IssuedAt() (time.Time, bool) {
	rec := m.valid()
	if rec == nil {
		return time.Time{}, false
	}
	return time.UnixMilli(rec.IssuedAt), true
}

// Logout encerra a sessão.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.record = nil
	m.mu.Unlock()
	return m.store.Clear(ctx)
}

// Identity implementa orchestrator.IdentitySource.
func (m *Manager) Identity() (orchestrator.Identity, bool) {
	rec := m.valid()
	if rec == nil {
		return orchestrator.Identity{}, false
	}
	return orchestrator.Identity{
		ID:    rec.User.ID,
		Name:  rec.User.Name,
		Email: rec.User.Email,
		Role:  rec.User.Role,
		Token: rec.Token,
	}, true
}

func (m *Manager) valid() *Record {
	m.mu.Lock()
	rec := m.record
	if rec == nil {
		m.mu.Unlock()
		return nil
	}
	if m.alive(rec) {
		m.mu.Unlock()
		return rec
	}
	m.record = nil
	m.mu.Unlock()

	if err := m.store.Clear(context.Background()); err != nil {
		m.logger.Error().Err(err).Msg("falha ao remover sessão expirada")
	}
	m.logger.Info().Str("user_id", rec.User.ID).Msg("sessão expirada")
	return nil
}

func (m *Manager) alive(rec *Record) bool {
	return m.now().UnixMilli()-rec.IssuedAt < m.timeout.Milliseconds()
}
