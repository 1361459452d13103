// Package cli implementa o terminal de operação do balcão: login, cadastro e
// acompanhamento de chamados, usuários e relatórios pelo orquestrador.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/config"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/deadletter"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/orchestrator"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/session"
)

// App guarda o estado montado para um comando.
type App struct {
	PrettyJSON bool
	Verbose    bool

	cfg         *config.ClientConfig
	logger      zerolog.Logger
	client      *orchestrator.Client
	monitor     *orchestrator.Monitor
	session     *session.Manager
	deadLetters *deadletter.Store
	catalog     config.Catalog
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "balcao",
		Short:        "Terminal de atendimento do Balcão da Cidadania",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Entrar com a conta da secretaria
  balcao login --email secretaria@balcao.org.br

  # Abrir um chamado
  balcao chamados criar --nome "Maria" --telefone 11987654321 --regiao Centro \
    --igreja "Catedral da Fé" --categoria Saúde --descricao "Consulta"

  # Quadro de chamados abertos, por prioridade
  balcao chamados listar --status ABERTO --ordem -priority
`),
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.open(cmd.Context())
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return app.close(cmd.Context())
	}

	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", envOr("BALCAO_PRETTY", "") != "", "Indenta a saída JSON")
	cmd.PersistentFlags().BoolVarP(&app.Verbose, "verbose", "v", false, "Mostra logs de depuração")

	cmd.AddCommand(newLoginCmd(app))
	cmd.AddCommand(newLogoutCmd(app))
	cmd.AddCommand(newWhoamiCmd(app))
	cmd.AddCommand(newTicketsCmd(app))
	cmd.AddCommand(newUsersCmd(app))
	cmd.AddCommand(newCatalogCmd(app))
	cmd.AddCommand(newReportCmd(app))
	cmd.AddCommand(newQueueCmd(app))

	return cmd
}

// open monta orquestrador, sessão e monitor a partir do ambiente.
func (a *App) open(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	level := zerolog.WarnLevel
	if a.Verbose {
		level = zerolog.DebugLevel
	}
	a.logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).With().Timestamp().Logger()

	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}
	a.cfg = cfg

	catalog, err := config.LoadCatalog(envOr("CATALOG_FILE", ""))
	if err != nil {
		return err
	}
	a.catalog = catalog

	opts := []orchestrator.Option{orchestrator.WithLogger(a.logger)}
	if cfg.DeadLetterPath != "" {
		store, err := deadletter.Open(ctx, cfg.DeadLetterPath)
		if err != nil {
			return err
		}
		a.deadLetters = store
		opts = append(opts, orchestrator.WithDeadLetterSink(store))
	}
	a.client = orchestrator.New(*cfg, orchestrator.NewHTTPTransport(*cfg, nil), opts...)

	store, err := session.NewStore(*cfg)
	if err != nil {
		return err
	}
	a.session = session.NewManager(a.client, store, cfg.SessionTimeout, catalog.Permissions, a.logger)
	if err := a.session.Restore(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("sessão local ignorada")
	}
	a.client.SetIdentitySource(a.session)

	probe := &http.Client{Timeout: 5 * time.Second}
	a.monitor = orchestrator.NewMonitor(a.client, cfg.HealthURL, cfg.ProbeInterval, probe, a.logger)
	a.monitor.Start(ctx)
	return nil
}

// close tenta uma última drenagem e, se ainda houver itens, guarda-os como
// dead-letter antes de sair.
func (a *App) close(ctx context.Context) error {
	if a.client == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	a.monitor.Stop()

	if len(a.client.Pending()) > 0 {
		a.monitor.RunOnce(ctx)
	}

	pending := a.client.TakePending()
	if len(pending) > 0 {
		if a.deadLetters == nil {
			a.logger.Error().Int("itens", len(pending)).Msg("itens pendentes descartados: BALCAO_DEADLETTER_PATH não configurado")
		}
		for _, call := range pending {
			if a.deadLetters == nil {
				break
			}
			dl := orchestrator.DeadLetterOf(call, orchestrator.Result{
				Error:   orchestrator.ErrConnectionFailure,
				Message: "pendente ao encerrar",
			}, time.Now())
			if err := a.deadLetters.Store(ctx, dl); err != nil {
				a.logger.Error().Err(err).Str("request_id", call.RequestID).Msg("falha ao gravar dead-letter")
			}
		}
	}

	if a.deadLetters != nil {
		return a.deadLetters.Close()
	}
	return nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if app.PrettyJSON {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}

// result converte o Result em saída; itens enfileirados não são erro.
func result(cmd *cobra.Command, app *App, res orchestrator.Result, v any) error {
	if res.Queued {
		return writeOut(cmd, app, map[string]any{"queued": true, "message": res.Message})
	}
	if !res.OK {
		return writeErr(cmd, res.Err())
	}
	if v == nil {
		return writeOut(cmd, app, res.Data)
	}
	if err := res.Decode(v); err != nil {
		return writeErr(cmd, err)
	}
	return writeOut(cmd, app, v)
}

// requireSession falha cedo quando não há sessão válida.
func requireSession(cmd *cobra.Command, app *App) error {
	if !app.session.IsSessionValid() {
		return writeErr(cmd, &orchestrator.Error{Kind: orchestrator.ErrSessionExpired, Message: "faça login novamente"})
	}
	return nil
}

// requirePermission confere a tabela de papéis antes de ir ao backend.
func requirePermission(cmd *cobra.Command, app *App, permission string) error {
	if err := requireSession(cmd, app); err != nil {
		return err
	}
	if !app.session.HasPermission(permission) {
		return writeErr(cmd, fmt.Errorf("permissão negada: %s", permission))
	}
	return nil
}
