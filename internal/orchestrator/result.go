// Package orchestrator media todas as chamadas do cliente ao backend:
// anexa metadados, repete tentativas com espera, enfileira sem conexão,
// guarda respostas em cache e normaliza tudo em um Result.
package orchestrator

import (
	"encoding/json"
	"fmt"
)

// ErrorKind classifica falhas devolvidas em Result.
type ErrorKind string

const (
	ErrConnectionFailure  ErrorKind = "CONNECTION_FAILURE"
	ErrTimeout            ErrorKind = "TIMEOUT"
	ErrMalformedResponse  ErrorKind = "MALFORMED_RESPONSE"
	ErrUnrecognizedAction ErrorKind = "UNRECOGNIZED_ACTION"
	ErrServerRejected     ErrorKind = "SERVER_REJECTED"
	ErrSessionExpired     ErrorKind = "SESSION_EXPIRED"
	ErrInvalidPayload     ErrorKind = "INVALID_PAYLOAD"
)

// Retryable informa se a falha é repetida localmente antes de ser devolvida.
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrConnectionFailure, ErrTimeout, ErrMalformedResponse:
		return true
	default:
		return false
	}
}

// Error é a forma de erro Go de um Result sem sucesso.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is permite errors.Is(err, &Error{Kind: ...}) comparar apenas o tipo de falha.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Result é o contrato único devolvido por Submit.
type Result struct {
	OK     bool
	Queued bool
	Cached bool
	Data   map[string]any
	Error  ErrorKind
	// Message é legível e em português; vazio em sucessos.
	Message string

	opaque bool
}

// Err devolve nil em sucesso ou *Error com o tipo da falha.
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	return &Error{Kind: r.Error, Message: r.Message}
}

// String lê um campo textual dos dados da resposta.
func (r Result) String(key string) string {
	s, _ := r.Data[key].(string)
	return s
}

// Decode converte os dados da resposta em uma estrutura tipada.
func (r Result) Decode(v any) error {
	if !r.OK {
		return r.Err()
	}
	raw, err := json.Marshal(r.Data)
	if err != nil {
		return &Error{Kind: ErrMalformedResponse, Message: err.Error()}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &Error{Kind: ErrMalformedResponse, Message: err.Error()}
	}
	return nil
}

func failure(kind ErrorKind, message string) Result {
	return Result{Error: kind, Message: message}
}

func queuedResult() Result {
	return Result{
		Queued:  true,
		Error:   ErrConnectionFailure,
		Message: "sem conexão: requisição enfileirada",
	}
}
