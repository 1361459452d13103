package protocol

import (
	"errors"
	"testing"

	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/util"
)

func TestDecodeKnownActions(t *testing.T) {
	for _, action := range Actions() {
		req, err := Decode(action, map[string]any{})
		if err != nil {
			t.Fatalf("decode %s: %v", action, err)
		}
		if req.Action() != action {
			t.Fatalf("expected %s, got %s", action, req.Action())
		}
	}
}

func TestDecodeUnknownAction(t *testing.T) {
	if _, err := Decode("apagarTudo", nil); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
	if Known("apagarTudo") {
		t.Fatal("apagarTudo não deveria ser conhecida")
	}
}

func TestDecodeIgnoresMetadataAndAcceptsFormNumbers(t *testing.T) {
	req, err := Decode(ActionListTickets, map[string]any{
		FieldAction:    ActionListTickets,
		FieldTimestamp: "2026-01-01T00:00:00Z",
		"status":       "ABERTO, EM_ANDAMENTO",
		"limit":        "25",
		"offset":       10,
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	list := req.(*ListTicketsRequest)
	if list.Limit != 25 || list.Offset != 10 {
		t.Fatalf("unexpected pagination %+v", list)
	}
	if got := list.Statuses(); len(got) != 2 || got[1] != "EM_ANDAMENTO" {
		t.Fatalf("unexpected statuses %v", got)
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	status := "RESOLVIDO"
	in := UpdateTicketRequest{TicketID: util.NewTicketID(), Status: &status, Note: "atendido"}

	fields, err := Payload(in)
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	if _, ok := fields["priority"]; ok {
		t.Fatal("campos nulos não deveriam ser enviados")
	}

	out, err := Decode(ActionUpdateTicket, fields)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got := out.(*UpdateTicketRequest)
	if got.TicketID != in.TicketID || got.Status == nil || *got.Status != status || got.Note != in.Note {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name  string
		req   Request
		valid bool
	}{
		{"login ok", LoginRequest{Email: "ana@balcao.org.br", Password: "segredo123"}, true},
		{"login sem senha", LoginRequest{Email: "ana@balcao.org.br"}, false},
		{"chamado ok", CreateTicketRequest{
			CitizenName: "José", Phone: "(11) 98765-4321", Church: "Igreja Penha",
			Region: "Zona Leste", Description: "2ª via RG", Category: "Documentação",
		}, true},
		{"chamado telefone curto", CreateTicketRequest{
			CitizenName: "José", Phone: "1234", Church: "Igreja Penha",
			Region: "Zona Leste", Description: "2ª via RG", Category: "Documentação",
		}, false},
		{"atualização vazia", UpdateTicketRequest{TicketID: util.NewTicketID()}, false},
		{"exclusão id inválido", DeleteTicketRequest{TicketID: "123"}, false},
		{"relatório datas invertidas", GenerateReportRequest{From: "2026-02-10", To: "2026-02-01"}, false},
		{"relatório mesmo dia", GenerateReportRequest{From: "2026-02-10", To: "2026-02-10"}, true},
		{"usuário senha curta", CreateUserRequest{Name: "Ana", Email: "ana@balcao.org.br", Password: "123", Role: "SECRETARIA"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.valid && err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if !tc.valid && !errors.Is(err, util.ErrInvalid) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestEnvelopes(t *testing.T) {
	env := Respond(TicketResponse{TicketID: "CH-1", Message: "ok"})
	if !env.OK() || env["ticketId"] != "CH-1" {
		t.Fatalf("unexpected envelope %v", env)
	}

	fail := Failure(CodeForbidden, "sem permissão")
	if fail.OK() || fail.Code() != CodeForbidden || fail["error"] != "sem permissão" {
		t.Fatalf("unexpected failure %v", fail)
	}
}
