package util

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

// TicketIDPrefix antecede o ULID dos chamados.
const TicketIDPrefix = "CH-"

// NewULID gera um ULID monotônico, ordenável por tempo de criação.
func NewULID() string {
	return ulid.Make().String()
}

// NewTicketID gera o identificador público de um chamado.
func NewTicketID() string {
	return TicketIDPrefix + NewULID()
}

// ParseTicketID valida o formato e devolve o ULID contido no identificador.
func ParseTicketID(id string) (ulid.ULID, error) {
	id = strings.ToUpper(strings.TrimSpace(id))
	if !strings.HasPrefix(id, TicketIDPrefix) {
		return ulid.ULID{}, Invalid("identificador de chamado inválido")
	}
	parsed, err := ulid.ParseStrict(strings.TrimPrefix(id, TicketIDPrefix))
	if err != nil {
		return ulid.ULID{}, Invalid("identificador de chamado inválido")
	}
	return parsed, nil
}
