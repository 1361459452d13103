package orchestrator

import (
	"context"
	"time"
)

// QueuedCall é uma chamada aguardando conexão. Body já contém os metadados.
type QueuedCall struct {
	RequestID  string
	Action     string
	Payload    map[string]any
	Body       map[string]any
	Token      string
	EnqueuedAt time.Time
}

// DeadLetter é a forma persistida de um item da fila que não foi entregue.
type DeadLetter struct {
	RequestID  string
	Action     string
	Payload    map[string]any
	Kind       ErrorKind
	Message    string
	EnqueuedAt time.Time
	FailedAt   time.Time
}

// DeadLetterSink guarda itens descartados da fila.
type DeadLetterSink interface {
	Store(ctx context.Context, dl DeadLetter) error
}

// DrainOutcome registra o resultado de um item drenado.
type DrainOutcome struct {
	Call   QueuedCall
	Result Result
}

// DrainReport resume uma drenagem da fila.
type DrainReport struct {
	Sent      int
	Failed    int
	Remaining int
	// Busy indica que outra drenagem já estava em curso.
	Busy     bool
	Outcomes []DrainOutcome
}

// Online informa o estado de conectividade atual.
func (c *Client) Online() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

// Pending devolve uma cópia da fila em ordem de chegada.
func (c *Client) Pending() []QueuedCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]QueuedCall, len(c.queue))
	copy(out, c.queue)
	return out
}

// TakePending esvazia a fila e devolve os itens que estavam nela.
func (c *Client) TakePending() []QueuedCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.queue
	c.queue = nil
	return out
}

// SetOnline registra o estado de conectividade. A transição de offline
// para online drena a fila de forma síncrona.
func (c *Client) SetOnline(ctx context.Context, online bool) DrainReport {
	c.mu.Lock()
	was := c.online
	c.online = online
	remaining := len(c.queue)
	c.mu.Unlock()

	if online && !was {
		c.logger.Info().Int("pending", remaining).Msg("conexão restabelecida")
		return c.Drain(ctx)
	}
	if !online && was {
		c.logger.Warn().Msg("sem conexão, novas requisições serão enfileiradas")
	}
	return DrainReport{Remaining: remaining}
}

// Drain reenvia a fila em ordem, um item por vez, com a mesma política de
// tentativas. Apenas uma drenagem roda por vez.
func (c *Client) Drain(ctx context.Context) DrainReport {
	if !c.drainMu.TryLock() {
		return DrainReport{Busy: true, Remaining: len(c.Pending())}
	}
	defer c.drainMu.Unlock()

	var report DrainReport
	for {
		if ctx.Err() != nil || !c.Online() {
			break
		}
		call, ok := c.popFront()
		if !ok {
			break
		}

		res, unreach := c.execute(ctx, call)
		if res.OK {
			c.settle(c.policies[call.Action], "", res)
			report.Sent++
			report.Outcomes = append(report.Outcomes, DrainOutcome{Call: call, Result: res})
			continue
		}

		if ctx.Err() != nil || (unreach && c.cfg.QueueOnUnreachable) {
			c.pushFront(call)
			if unreach {
				c.goOffline()
			}
			break
		}

		report.Failed++
		report.Outcomes = append(report.Outcomes, DrainOutcome{Call: call, Result: res})
		c.discard(ctx, call, res)
	}

	report.Remaining = len(c.Pending())
	return report
}

// Replay reenvia um item guardado como dead-letter.
func (c *Client) Replay(ctx context.Context, dl DeadLetter) Result {
	return c.Submit(ctx, dl.Action, dl.Payload)
}

// credentialFields nunca chegam ao armazenamento de dead-letters.
var credentialFields = []string{"password", "senha", "token"}

// DeadLetterOf converte um item da fila em dead-letter sem credenciais.
func DeadLetterOf(call QueuedCall, res Result, at time.Time) DeadLetter {
	return DeadLetter{
		RequestID:  call.RequestID,
		Action:     call.Action,
		Payload:    withoutCredentials(call.Payload),
		Kind:       res.Error,
		Message:    res.Message,
		EnqueuedAt: call.EnqueuedAt,
		FailedAt:   at,
	}
}

func withoutCredentials(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	for _, k := range credentialFields {
		delete(out, k)
	}
	return out
}

func (c *Client) discard(ctx context.Context, call QueuedCall, res Result) {
	c.logger.Error().
		Str("action", call.Action).
		Str("request_id", call.RequestID).
		Str("kind", string(res.Error)).
		Str("message", res.Message).
		Msg("item da fila descartado após falha")

	if c.deadLetters == nil {
		return
	}
	if err := c.deadLetters.Store(ctx, DeadLetterOf(call, res, c.clock.Now())); err != nil {
		c.logger.Error().Err(err).Str("request_id", call.RequestID).Msg("falha ao gravar dead-letter")
	}
}

func (c *Client) enqueue(call QueuedCall) {
	c.mu.Lock()
	c.queue = append(c.queue, call)
	size := len(c.queue)
	c.mu.Unlock()
	c.logger.Info().Str("action", call.Action).Str("request_id", call.RequestID).Int("pending", size).Msg("requisição enfileirada")
}

func (c *Client) popFront() (QueuedCall, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return QueuedCall{}, false
	}
	call := c.queue[0]
	c.queue = c.queue[1:]
	return call, true
}

func (c *Client) pushFront(call QueuedCall) {
	c.mu.Lock()
	c.queue = append([]QueuedCall{call}, c.queue...)
	c.mu.Unlock()
}

func (c *Client) goOffline() {
	c.mu.Lock()
	c.online = false
	c.mu.Unlock()
}
