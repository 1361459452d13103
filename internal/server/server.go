// Package server monta as dependências do backend a partir da configuração.
// É compartilhado pelo servidor HTTP e pelo adaptador serverless.
package server

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/action"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/auth"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/chamado"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/config"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/db"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/diretorio"
	internalhttp "github.com/wgnrfrancis/ArimateiaService-sub000/internal/http"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/usuario"
)

const accessRetention = 30 * 24 * time.Hour

// Backend reúne o despachante e os recursos que precisam ser fechados.
type Backend struct {
	Dispatcher *action.Dispatcher
	JWT        *auth.JWTManager
	Checks     map[string]internalhttp.Check

	pool  *pgxpool.Pool
	redis *redis.Client
}

// New conecta ao Postgres (aplicando migrações), ao Redis quando
// configurado, e monta os serviços de domínio.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Backend, error) {
	catalog, err := config.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		return nil, err
	}
	directory := diretorio.New(catalog.Regions)

	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	if err := db.Migrate(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	b := &Backend{
		JWT:    auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTTL),
		Checks: map[string]internalhttp.Check{"postgres": pool.Ping},
		pool:   pool,
	}

	var access action.AccessRecorder
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("redis parse: %w", err)
		}
		b.redis = redis.NewClient(opts)
		b.Checks["redis"] = func(ctx context.Context) error {
			return b.redis.Ping(ctx).Err()
		}
		access = usuario.NewAccessTracker(b.redis, accessRetention)
	} else {
		logger.Warn().Msg("REDIS_URL ausente: último acesso não será registrado")
	}

	users := usuario.NewService(usuario.NewRepository(pool), directory)
	created, err := users.EnsureBootstrap(ctx, cfg.Bootstrap)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	if created {
		logger.Info().Str("email", cfg.Bootstrap.Email).Msg("coordenação geral inicial criada")
	}

	b.Dispatcher = action.NewDispatcher(action.Dependencies{
		Tickets:   chamado.NewService(chamado.NewRepository(pool), directory, catalog),
		Users:     users,
		Tokens:    b.JWT,
		Access:    access,
		Catalog:   catalog,
		Directory: directory,
		Logger:    logger,
	})
	return b, nil
}

// Close libera conexões.
func (b *Backend) Close() {
	if b.redis != nil {
		_ = b.redis.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
}
