package util

import (
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/config"
)

// ErrInvalid marca falhas de validação de entrada.
var ErrInvalid = errors.New("dados inválidos")

// Invalid cria um erro de validação com mensagem legível.
func Invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalid, msg)
}

// Validator aplica os padrões do catálogo a telefones, e-mails e identificadores.
type Validator struct {
	phone    *regexp.Regexp
	email    *regexp.Regexp
	ticketID *regexp.Regexp
}

// NewValidator compila os padrões informados.
func NewValidator(p config.Patterns) (*Validator, error) {
	phone, err := regexp.Compile(p.Phone)
	if err != nil {
		return nil, fmt.Errorf("padrão de telefone: %w", err)
	}
	email, err := regexp.Compile(p.Email)
	if err != nil {
		return nil, fmt.Errorf("padrão de e-mail: %w", err)
	}
	ticketID, err := regexp.Compile(p.TicketID)
	if err != nil {
		return nil, fmt.Errorf("padrão de chamado: %w", err)
	}
	return &Validator{phone: phone, email: email, ticketID: ticketID}, nil
}

var defaultValidator = mustValidator(config.DefaultCatalog().Patterns)

func mustValidator(p config.Patterns) *Validator {
	v, err := NewValidator(p)
	if err != nil {
		panic(err)
	}
	return v
}

// NormalizePhone mantém apenas dígitos e remove o código do país.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if strings.HasPrefix(digits, "55") && (len(digits) == 12 || len(digits) == 13) {
		digits = digits[2:]
	}
	return digits
}

// ValidatePhone exige DDD e número com 10 ou 11 dígitos.
func (v *Validator) ValidatePhone(phone string) error {
	if strings.TrimSpace(phone) == "" {
		return Invalid("telefone obrigatório")
	}
	if !v.phone.MatchString(NormalizePhone(phone)) {
		return Invalid("telefone inválido")
	}
	return nil
}

// FormatPhone formata como (11) 98765-4321; valores inválidos voltam sem alteração.
func (v *Validator) FormatPhone(phone string) string {
	digits := NormalizePhone(phone)
	if !v.phone.MatchString(digits) {
		return phone
	}
	switch len(digits) {
	case 11:
		return fmt.Sprintf("(%s) %s-%s", digits[:2], digits[2:7], digits[7:])
	case 10:
		return fmt.Sprintf("(%s) %s-%s", digits[:2], digits[2:6], digits[6:])
	}
	return digits
}

// ValidateEmail retorna erro para e-mails inválidos.
func (v *Validator) ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return Invalid("email obrigatório")
	}
	if !v.email.MatchString(email) {
		return Invalid("email inválido")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return Invalid("email inválido")
	}
	return nil
}

// ValidateTicketID confere o formato do identificador de chamado.
func (v *Validator) ValidateTicketID(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return Invalid("identificador do chamado obrigatório")
	}
	if !v.ticketID.MatchString(strings.ToUpper(id)) {
		return Invalid("identificador de chamado inválido")
	}
	return nil
}

// NormalizeEmail padroniza e-mail em minúsculas.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidatePhone usa os padrões embutidos.
func ValidatePhone(phone string) error { return defaultValidator.ValidatePhone(phone) }

// FormatPhone usa os padrões embutidos.
func FormatPhone(phone string) string { return defaultValidator.FormatPhone(phone) }

// ValidateEmail usa os padrões embutidos.
func ValidateEmail(email string) error { return defaultValidator.ValidateEmail(email) }

// ValidateTicketID usa os padrões embutidos.
func ValidateTicketID(id string) error { return defaultValidator.ValidateTicketID(id) }

// ValidatePassword verifica requisitos mínimos de senha.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return Invalid("senha deve ter pelo menos 8 caracteres")
	}
	return nil
}

// RequireString garante string não vazia.
func RequireString(value, field string) error {
	if strings.TrimSpace(value) == "" {
		return Invalid(field + " obrigatório")
	}
	return nil
}
