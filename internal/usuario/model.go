package usuario

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("usuário não encontrado")
	ErrEmailTaken         = errors.New("e-mail já cadastrado")
	ErrInvalidRole        = errors.New("papel inválido")
	ErrInvalidCredentials = errors.New("credenciais inválidas")
	ErrAccountPending     = errors.New("cadastro aguardando aprovação")
	ErrAccountDisabled    = errors.New("conta desativada")
)

// Role define o papel do usuário na rede de voluntários.
type Role string

const (
	RoleVolunteer        Role = "VOLUNTARIO"
	RoleSecretariat      Role = "SECRETARIA"
	RoleLocalCoordinator Role = "COORDENADOR_LOCAL"
	RoleCoordinator      Role = "COORDENADOR_GERAL"
)

// AccountStatus indica se a conta pode acessar o sistema.
type AccountStatus string

const (
	StatusActive   AccountStatus = "ATIVO"
	StatusPending  AccountStatus = "PENDENTE"
	StatusInactive AccountStatus = "INATIVO"
)

var validRoles = map[Role]struct{}{
	RoleVolunteer:        {},
	RoleSecretariat:      {},
	RoleLocalCoordinator: {},
	RoleCoordinator:      {},
}

var validStatuses = map[AccountStatus]struct{}{
	StatusActive:   {},
	StatusPending:  {},
	StatusInactive: {},
}

// User representa voluntário ou membro da equipe.
type User struct {
	ID              uuid.UUID     `json:"id"`
	Name            string        `json:"name"`
	Email           string        `json:"email"`
	Phone           string        `json:"phone,omitempty"`
	Role            Role          `json:"role"`
	Church          string        `json:"church,omitempty"`
	Region          string        `json:"region,omitempty"`
	Status          AccountStatus `json:"status"`
	PasswordHash    string        `json:"-"`
	RegisteredAt    time.Time     `json:"registeredAt"`
	LastLoginAt     *time.Time    `json:"lastLoginAt,omitempty"`
	TotalTickets    int           `json:"totalTickets"`
	ResolvedTickets int           `json:"resolvedTickets"`
	ResolutionRate  float64       `json:"resolutionRate"`
}

// CreateInput encapsula cadastro de usuário.
type CreateInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
	Role     string
	Church   string
	Region   string
	Status   string
}

// Filter restringe a listagem de usuários.
type Filter struct {
	Role   Role
	Region string
	Status AccountStatus
}

// ParseRole normaliza o papel informado.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(raw)))
	if _, ok := validRoles[role]; !ok {
		return "", ErrInvalidRole
	}
	return role, nil
}

// ParseStatus devolve ATIVO quando vazio.
func ParseStatus(raw string) (AccountStatus, bool) {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if raw == "" {
		return StatusActive, true
	}
	status := AccountStatus(raw)
	_, ok := validStatuses[status]
	return status, ok
}
