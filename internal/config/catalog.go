package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Permissões reconhecidas pela tabela de papéis.
const (
	PermCreateTicket = "criar_chamado"
	PermViewTickets  = "ver_chamados"
	PermUpdateTicket = "atualizar_chamado"
	PermAssignTicket = "atribuir_chamado"
	PermDeleteTicket = "excluir_chamado"
	PermViewReports  = "ver_relatorios"
	PermViewUsers    = "ver_usuarios"
	PermManageUsers  = "gerenciar_usuarios"
)

// Catalog agrupa os dados estáticos consumidos por formulários e validações.
type Catalog struct {
	Regions     []Region        `json:"regions"`
	Categories  []string        `json:"categories"`
	Permissions PermissionTable `json:"permissions"`
	Patterns    Patterns        `json:"patterns"`
}

// Region associa uma região às igrejas atendidas, em ordem de exibição.
type Region struct {
	Name     string   `json:"name"`
	Churches []string `json:"churches"`
}

// Patterns guarda as expressões de validação de formulários.
type Patterns struct {
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	TicketID string `json:"ticketId"`
}

// PermissionTable mapeia papel para o conjunto de permissões.
type PermissionTable map[string][]string

// Allows informa se o papel possui a permissão.
func (t PermissionTable) Allows(role, permission string) bool {
	role = strings.ToUpper(strings.TrimSpace(role))
	for _, p := range t[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// DefaultCatalog devolve o catálogo embutido.
func DefaultCatalog() Catalog {
	volunteer := []string{PermCreateTicket, PermViewTickets}
	secretariat := append(append([]string{}, volunteer...), PermUpdateTicket, PermAssignTicket, PermViewReports, PermViewUsers)
	local := append(append([]string{}, secretariat...), PermManageUsers)
	general := append(append([]string{}, local...), PermDeleteTicket)

	return Catalog{
		Regions: []Region{
			{Name: "Centro", Churches: []string{"Catedral da Fé", "Igreja da Sé", "Igreja República"}},
			{Name: "Zona Norte", Churches: []string{"Igreja Santana", "Igreja Tucuruvi", "Igreja Casa Verde"}},
			{Name: "Zona Sul", Churches: []string{"Igreja Santo Amaro", "Igreja Jabaquara", "Igreja Capão Redondo"}},
			{Name: "Zona Leste", Churches: []string{"Igreja Itaquera", "Igreja Penha", "Igreja São Mateus"}},
			{Name: "Zona Oeste", Churches: []string{"Igreja Lapa", "Igreja Pinheiros", "Igreja Butantã"}},
		},
		Categories: []string{
			"Documentação",
			"Saúde",
			"Assistência Social",
			"Jurídico",
			"Educação",
			"Emprego e Renda",
			"Habitação",
			"Outros",
		},
		Permissions: PermissionTable{
			"VOLUNTARIO":        volunteer,
			"SECRETARIA":        secretariat,
			"COORDENADOR_LOCAL": local,
			"COORDENADOR_GERAL": general,
		},
		Patterns: Patterns{
			Phone:    `^\d{10,11}$`,
			Email:    `^[^\s@]+@[^\s@]+\.[^\s@]+$`,
			TicketID: `^CH-[0-9A-HJKMNP-TV-Z]{26}$`,
		},
	}
}

// LoadCatalog lê o catálogo de um arquivo JSON. Campos ausentes mantêm o padrão.
func LoadCatalog(path string) (Catalog, error) {
	catalog := DefaultCatalog()
	if strings.TrimSpace(path) == "" {
		return catalog, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("ler catálogo: %w", err)
	}

	var override Catalog
	if err := json.Unmarshal(raw, &override); err != nil {
		return Catalog{}, fmt.Errorf("parse catálogo: %w", err)
	}

	if len(override.Regions) > 0 {
		catalog.Regions = override.Regions
	}
	if len(override.Categories) > 0 {
		catalog.Categories = override.Categories
	}
	if len(override.Permissions) > 0 {
		catalog.Permissions = make(PermissionTable, len(override.Permissions))
		for role, perms := range override.Permissions {
			catalog.Permissions[strings.ToUpper(strings.TrimSpace(role))] = perms
		}
	}
	if override.Patterns.Phone != "" {
		catalog.Patterns.Phone = override.Patterns.Phone
	}
	if override.Patterns.Email != "" {
		catalog.Patterns.Email = override.Patterns.Email
	}
	if override.Patterns.TicketID != "" {
		catalog.Patterns.TicketID = override.Patterns.TicketID
	}

	return catalog, nil
}

// HasCategory verifica se a categoria consta no catálogo.
func (c Catalog) HasCategory(category string) bool {
	category = strings.TrimSpace(category)
	for _, item := range c.Categories {
		if strings.EqualFold(item, category) {
			return true
		}
	}
	return false
}
