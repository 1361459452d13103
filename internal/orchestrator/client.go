package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/config"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/protocol"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/util"
)

// Identity é o retrato do usuário autenticado anexado às requisições.
type Identity struct {
	ID    string
	Name  string
	Email string
	Role  string
	Token string
}

// IdentitySource fornece a identidade da sessão válida, se houver.
type IdentitySource interface {
	Identity() (Identity, bool)
}

// Client é o orquestrador de requisições. Seguro para uso concorrente.
type Client struct {
	cfg         config.ClientConfig
	transport   Transport
	backoff     Backoff
	clock       Clock
	policies    map[string]Policy
	deadLetters DeadLetterSink
	logger      zerolog.Logger
	cache       *responseCache

	mu       sync.Mutex
	identity IdentitySource
	online   bool
	queue    []QueuedCall

	drainMu sync.Mutex
}

// Option ajusta o Client na construção.
type Option func(*Client)

// WithClock troca o relógio, útil em testes.
func WithClock(clock Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// WithBackoff substitui a política derivada da configuração.
func WithBackoff(b Backoff) Option {
	return func(c *Client) { c.backoff = b }
}

// WithLogger define o logger do componente.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithIdentity define a fonte de identidade.
func WithIdentity(src IdentitySource) Option {
	return func(c *Client) { c.identity = src }
}

// WithDeadLetterSink recebe itens da fila que falharam em todas as tentativas.
func WithDeadLetterSink(sink DeadLetterSink) Option {
	return func(c *Client) { c.deadLetters = sink }
}

// WithPolicy sobrescreve a política de uma ação.
func WithPolicy(action string, p Policy) Option {
	return func(c *Client) { c.policies[action] = p }
}

// New cria o orquestrador. O cliente começa online.
func New(cfg config.ClientConfig, transport Transport, opts ...Option) *Client {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	c := &Client{
		cfg:       cfg,
		transport: transport,
		backoff:   NewBackoff(cfg.Backoff),
		clock:     SystemClock{},
		policies:  DefaultPolicies(),
		logger:    zerolog.Nop(),
		cache:     newResponseCache(cfg.CacheTTL),
		online:    true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetIdentitySource liga a sessão ao cliente depois da construção.
func (c *Client) SetIdentitySource(src IdentitySource) {
	c.mu.Lock()
	c.identity = src
	c.mu.Unlock()
}

// Send valida a requisição tipada e a submete.
func (c *Client) Send(ctx context.Context, req protocol.Request) Result {
	if err := req.Validate(); err != nil {
		return failure(ErrInvalidPayload, strings.TrimPrefix(err.Error(), util.ErrInvalid.Error()+": "))
	}
	payload, err := protocol.Payload(req)
	if err != nil {
		return failure(ErrInvalidPayload, err.Error())
	}
	return c.Submit(ctx, req.Action(), payload)
}

// Submit envia a ação ao backend e devolve sempre um Result.
func (c *Client) Submit(ctx context.Context, action string, payload map[string]any) Result {
	action = strings.TrimSpace(action)
	if action == "" {
		return failure(ErrUnrecognizedAction, "ação não informada")
	}

	policy := c.policies[action]
	ident, hasIdent := c.currentIdentity()
	if policy.RequiresSession && !hasIdent {
		return failure(ErrSessionExpired, "sessão expirada, faça login novamente")
	}

	var key string
	if policy.Cache != "" {
		if k, ok := cacheKey(action, payload, ident.ID); ok {
			key = k
			if data, hit := c.cache.get(key, c.clock.Now()); hit {
				return Result{OK: true, Cached: true, Data: data}
			}
		}
	}

	call, err := c.newCall(action, payload, ident, hasIdent)
	if err != nil {
		return failure(ErrInvalidPayload, err.Error())
	}

	if !c.Online() {
		if policy.NoQueue {
			return failure(ErrConnectionFailure, "sem conexão com o servidor")
		}
		c.enqueue(call)
		return queuedResult()
	}

	res, unreach := c.execute(ctx, call)
	if !res.OK {
		if unreach && c.cfg.QueueOnUnreachable && ctx.Err() == nil {
			c.goOffline()
			if policy.NoQueue {
				return res
			}
			c.enqueue(call)
			c.logger.Warn().Str("action", action).Str("request_id", call.RequestID).Msg("servidor inacessível, requisição enfileirada")
			return queuedResult()
		}
		return res
	}

	c.settle(policy, key, res)
	return res
}

// Invalidate remove do cache as respostas dos tipos informados.
func (c *Client) Invalidate(kinds ...DataKind) {
	c.cache.invalidate(kinds...)
}

// Purge esvazia o cache.
func (c *Client) Purge() {
	c.cache.purge()
}

func (c *Client) currentIdentity() (Identity, bool) {
	c.mu.Lock()
	src := c.identity
	c.mu.Unlock()
	if src == nil {
		return Identity{}, false
	}
	return src.Identity()
}

func (c *Client) newCall(action string, payload map[string]any, ident Identity, hasIdent bool) (QueuedCall, error) {
	// cópia profunda via JSON: o chamador pode reutilizar o mapa
	fields := map[string]any{}
	if len(payload) > 0 {
		raw, err := json.Marshal(payload)
		if err != nil {
			return QueuedCall{}, fmt.Errorf("payload não serializável: %w", err)
		}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return QueuedCall{}, fmt.Errorf("payload não serializável: %w", err)
		}
	}

	body := make(map[string]any, len(fields)+9)
	for k, v := range fields {
		body[k] = v
	}
	now := c.clock.Now().UTC()
	requestID := util.NewULID()
	body[protocol.FieldAction] = action
	body[protocol.FieldTimestamp] = now.Format(time.RFC3339)
	body[protocol.FieldClientOrigin] = c.cfg.ClientOrigin
	body[protocol.FieldVersion] = c.cfg.Version
	body[protocol.FieldRequestID] = requestID

	call := QueuedCall{
		RequestID:  requestID,
		Action:     action,
		Payload:    fields,
		Body:       body,
		EnqueuedAt: now,
	}
	if hasIdent {
		body[protocol.FieldActorID] = ident.ID
		body[protocol.FieldActorName] = ident.Name
		body[protocol.FieldActorEmail] = ident.Email
		body[protocol.FieldActorRole] = ident.Role
		call.Token = ident.Token
	}
	return call, nil
}

// execute roda o ciclo de tentativas. O segundo retorno indica que a
// última falha foi de servidor inacessível.
func (c *Client) execute(ctx context.Context, call QueuedCall) (Result, bool) {
	var (
		last      Result
		lastUnrch bool
	)
	for n := 1; n <= c.cfg.Attempts; n++ {
		if n > 1 {
			if err := c.clock.Sleep(ctx, c.backoff.Delay(n-1)); err != nil {
				return cancelled(ctx), false
			}
		}

		res, retry, unreach := c.attempt(ctx, call)
		if !retry {
			return res, false
		}
		if ctx.Err() != nil {
			return cancelled(ctx), false
		}
		last, lastUnrch = res, unreach

		c.logger.Debug().
			Str("action", call.Action).
			Str("request_id", call.RequestID).
			Int("attempt", n).
			Str("kind", string(res.Error)).
			Str("message", res.Message).
			Msg("tentativa falhou")
	}

	c.logger.Warn().
		Str("action", call.Action).
		Str("request_id", call.RequestID).
		Int("attempts", c.cfg.Attempts).
		Str("kind", string(last.Error)).
		Msg("tentativas esgotadas")
	return last, lastUnrch
}

func (c *Client) attempt(ctx context.Context, call QueuedCall) (res Result, retry bool, unreach bool) {
	if ctx.Err() != nil {
		return cancelled(ctx), false, false
	}

	attemptCtx := ctx
	if c.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, c.cfg.AttemptTimeout)
		defer cancel()
	}

	resp, err := c.transport.Do(attemptCtx, call.request())
	if err != nil {
		if ctx.Err() != nil {
			return cancelled(ctx), false, false
		}
		if isTimeout(err) || errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return failure(ErrTimeout, "tempo limite da tentativa excedido"), true, false
		}
		return failure(ErrConnectionFailure, err.Error()), true, unreachable(err)
	}
	if resp == nil {
		return failure(ErrMalformedResponse, "resposta ausente"), true, false
	}

	if resp.Opaque {
		return Result{OK: true, Data: map[string]any{"success": true, "submitted": true}, opaque: true}, false, false
	}
	if resp.Status < 200 || resp.Status >= 300 {
		return failure(ErrConnectionFailure, fmt.Sprintf("HTTP %d", resp.Status)), true, false
	}

	res = decodeResponse(resp.Body)
	return res, !res.OK && res.Error.Retryable(), false
}

// decodeResponse aplica as regras de leitura do corpo.
func decodeResponse(body []byte) Result {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return failure(ErrMalformedResponse, "resposta vazia")
	}
	if trimmed[0] != '{' {
		return failure(ErrMalformedResponse, "resposta não é um objeto JSON")
	}

	data := map[string]any{}
	if err := json.Unmarshal(trimmed, &data); err != nil {
		return failure(ErrMalformedResponse, "JSON inválido: "+err.Error())
	}

	success, ok := data["success"].(bool)
	if !ok || success {
		return Result{OK: true, Data: data}
	}

	message, _ := data["error"].(string)
	if message == "" {
		message, _ = data["message"].(string)
	}
	if message == "" {
		message = "requisição recusada pelo servidor"
	}

	kind := ErrServerRejected
	switch code, _ := data["code"].(string); code {
	case protocol.CodeUnknownAction:
		kind = ErrUnrecognizedAction
	case protocol.CodeUnauthorized:
		kind = ErrSessionExpired
	}
	return Result{Error: kind, Message: message, Data: data}
}

func (c *Client) settle(policy Policy, key string, res Result) {
	if key != "" && policy.Cache != "" && !res.opaque {
		c.cache.put(key, policy.Cache, res.Data, c.clock.Now())
	}
	if len(policy.Invalidates) > 0 {
		c.cache.invalidate(policy.Invalidates...)
	}
}

func cancelled(ctx context.Context) Result {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return failure(ErrTimeout, "prazo da requisição excedido")
	}
	return failure(ErrConnectionFailure, "requisição cancelada")
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func (q QueuedCall) request() *Request {
	header := http.Header{}
	if q.Token != "" {
		header.Set("Authorization", "Bearer "+q.Token)
	}
	return &Request{Action: q.Action, Body: q.Body, Header: header}
}
