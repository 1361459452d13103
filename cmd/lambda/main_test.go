package main

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/auth"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/protocol"
)

type echoDispatcher struct {
	body   string
	fields map[string]any
	actor  string
}

func (d *echoDispatcher) Handle(ctx context.Context, _ string, body []byte) protocol.Envelope {
	d.body = string(body)
	if claims, ok := auth.ActorFrom(ctx); ok {
		d.actor = claims.Subject
	}
	return protocol.Success(nil)
}

func (d *echoDispatcher) Dispatch(_ context.Context, fields map[string]any) protocol.Envelope {
	d.fields = fields
	return protocol.Success(nil)
}

func request(method, body string) events.APIGatewayV2HTTPRequest {
	req := events.APIGatewayV2HTTPRequest{Body: body, Headers: map[string]string{}}
	req.RequestContext.HTTP.Method = method
	return req
}

func TestHandlerDecodesBase64Body(t *testing.T) {
	jwt := auth.NewJWTManager("0123456789abcdef0123456789abcdef", time.Hour)
	token, err := jwt.GenerateAccessToken("user-9", "Ana", "ana@balcao.org.br", "VOLUNTARIO")
	if err != nil {
		t.Fatal(err)
	}
	dispatcher := &echoDispatcher{}
	app := &App{dispatcher: dispatcher, jwt: jwt}

	req := request(http.MethodPost, base64.StdEncoding.EncodeToString([]byte(`{"action":"listCategories"}`)))
	req.IsBase64Encoded = true
	req.Headers["authorization"] = "Bearer " + token

	resp, err := app.handler(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || !strings.Contains(resp.Body, `"success":true`) {
		t.Fatalf("unexpected response %+v", resp)
	}
	if dispatcher.body != `{"action":"listCategories"}` || dispatcher.actor != "user-9" {
		t.Fatalf("unexpected dispatch body=%q actor=%q", dispatcher.body, dispatcher.actor)
	}
	if resp.Headers["Access-Control-Allow-Origin"] != "*" {
		t.Fatalf("unexpected cors headers %v", resp.Headers)
	}
}

func TestHandlerRejectsInvalidBase64(t *testing.T) {
	app := &App{dispatcher: &echoDispatcher{}, jwt: auth.NewJWTManager("0123456789abcdef0123456789abcdef", time.Hour)}

	req := request(http.MethodPost, "%%%")
	req.IsBase64Encoded = true
	resp, _ := app.handler(context.Background(), req)
	if resp.StatusCode != http.StatusBadRequest || !strings.Contains(resp.Body, protocol.CodeInvalidPayload) {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestHandlerQueryAndOrigins(t *testing.T) {
	dispatcher := &echoDispatcher{}
	app := &App{
		dispatcher: dispatcher,
		jwt:        auth.NewJWTManager("0123456789abcdef0123456789abcdef", time.Hour),
		origins:    []string{"*.balcao.org.br"},
	}

	req := request(http.MethodGet, "")
	req.RawQueryString = "action=listTickets&status=ABERTO"
	req.Headers["Origin"] = "https://painel.balcao.org.br"
	resp, _ := app.handler(context.Background(), req)
	if dispatcher.fields["status"] != "ABERTO" {
		t.Fatalf("unexpected fields %v", dispatcher.fields)
	}
	if resp.Headers["Access-Control-Allow-Origin"] != "https://painel.balcao.org.br" {
		t.Fatalf("unexpected cors headers %v", resp.Headers)
	}

	req.Headers["Origin"] = "https://outro.org"
	resp, _ = app.handler(context.Background(), req)
	if _, ok := resp.Headers["Access-Control-Allow-Origin"]; ok {
		t.Fatalf("foreign origin should not be allowed: %v", resp.Headers)
	}
}
