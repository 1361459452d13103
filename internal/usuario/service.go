package usuario

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/auth"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/config"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/diretorio"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/util"
)

type userStore interface {
	CreateUser(ctx context.Context, u User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, filter Filter) ([]User, error)
	Count(ctx context.Context) (int, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Service concentra cadastro e autenticação de usuários.
type Service struct {
	repo   userStore
	dir    *diretorio.Directory
	hash   func(string) (string, error)
	verify func(string, string) (bool, error)
	now    func() time.Time
}

// NewService cria o serviço sobre o repositório Postgres.
func NewService(repo *Repository, dir *diretorio.Directory) *Service {
	return newService(repo, dir)
}

func newService(repo userStore, dir *diretorio.Directory) *Service {
	return &Service{repo: repo, dir: dir, hash: auth.Hash, verify: auth.Verify, now: time.Now}
}

// Create cadastra um usuário com senha Argon2id.
func (s *Service) Create(ctx context.Context, input CreateInput) (*User, error) {
	input.Name = strings.TrimSpace(input.Name)
	email := util.NormalizeEmail(input.Email)

	if err := util.RequireString(input.Name, "nome"); err != nil {
		return nil, err
	}
	if err := util.ValidateEmail(email); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Phone) != "" {
		if err := util.ValidatePhone(input.Phone); err != nil {
			return nil, err
		}
	}
	if err := util.ValidatePassword(input.Password); err != nil {
		return nil, err
	}
	role, err := ParseRole(input.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", util.ErrInvalid, err)
	}
	status, ok := ParseStatus(input.Status)
	if !ok {
		return nil, util.Invalid("status de conta inválido")
	}

	var region, church string
	if strings.TrimSpace(input.Region) != "" || strings.TrimSpace(input.Church) != "" {
		region, church, err = s.dir.Validate(input.Region, input.Church)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", util.ErrInvalid, err)
		}
	} else if role != RoleCoordinator {
		return nil, util.Invalid("região e igreja obrigatórias")
	}

	if existing, err := s.repo.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, ErrEmailTaken
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hash, err := s.hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash de senha: %w", err)
	}

	user := User{
		ID:           uuid.New(),
		Name:         input.Name,
		Email:        email,
		Phone:        util.NormalizePhone(input.Phone),
		Role:         role,
		Church:       church,
		Region:       region,
		Status:       status,
		PasswordHash: hash,
		RegisteredAt: s.now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Authenticate valida credenciais e registra o último login.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = util.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := s.verify(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}

	switch user.Status {
	case StatusPending:
		return nil, ErrAccountPending
	case StatusInactive:
		return nil, ErrAccountDisabled
	}

	now := s.now().UTC()
	if err := s.repo.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLoginAt = &now
	return user, nil
}

// List devolve usuários com contadores recalculados.
func (s *Service) List(ctx context.Context, filter Filter) ([]User, error) {
	if filter.Region != "" {
		if canonical, ok := s.dir.CanonicalRegion(filter.Region); ok {
			filter.Region = canonical
		}
	}
	return s.repo.List(ctx, filter)
}

// EnsureBootstrap cria a coordenação geral quando não há usuários cadastrados.
func (s *Service) EnsureBootstrap(ctx context.Context, admin config.BootstrapAdmin) (bool, error) {
	if !admin.Enabled() {
		return false, nil
	}
	count, err := s.repo.Count(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	_, err = s.Create(ctx, CreateInput{
		Name:     admin.Name,
		Email:    admin.Email,
		Password: admin.Password,
		Role:     string(RoleCoordinator),
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
