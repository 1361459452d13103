package orchestrator

import "github.com/wgnrfrancis/ArimateiaService-sub000/internal/protocol"

// DataKind agrupa respostas em cache que uma mutação invalida.
type DataKind string

const (
	KindTickets      DataKind = "tickets"
	KindObservations DataKind = "observations"
	KindUsers        DataKind = "users"
	KindCatalog      DataKind = "catalog"
	KindReport       DataKind = "report"
)

var allKinds = []DataKind{KindTickets, KindObservations, KindUsers, KindCatalog, KindReport}

// Policy descreve como uma ação é tratada pelo cliente. Com NoQueue a ação
// falha de imediato sem conexão em vez de entrar na fila.
type Policy struct {
	RequiresSession bool
	NoQueue         bool
	Cache           DataKind
	Invalidates     []DataKind
}

// DefaultPolicies devolve a tabela padrão por ação. Ações fora da tabela
// usam a política zero: enviadas sem sessão obrigatória e nunca guardadas.
func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		protocol.ActionLogin:                  {NoQueue: true, Invalidates: allKinds},
		protocol.ActionCreateTicket:           {RequiresSession: true, Invalidates: []DataKind{KindTickets, KindReport}},
		protocol.ActionUpdateTicket:           {RequiresSession: true, Invalidates: []DataKind{KindTickets, KindObservations, KindReport}},
		protocol.ActionDeleteTicket:           {RequiresSession: true, Invalidates: []DataKind{KindTickets, KindObservations, KindReport}},
		protocol.ActionListTickets:            {RequiresSession: true, Cache: KindTickets},
		protocol.ActionListObservations:       {RequiresSession: true, Cache: KindObservations},
		protocol.ActionListUsers:              {RequiresSession: true, Cache: KindUsers},
		protocol.ActionCreateUser:             {RequiresSession: true, Invalidates: []DataKind{KindUsers}},
		protocol.ActionListCategories:         {Cache: KindCatalog},
		protocol.ActionListRegionsAndChurches: {Cache: KindCatalog},
		protocol.ActionGenerateReport:         {RequiresSession: true, Cache: KindReport},
	}
}
