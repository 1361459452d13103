// Comando lambda expõe o endpoint de ações atrás do API Gateway (HTTP API).
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/action"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/auth"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/config"
	internalhttp "github.com/wgnrfrancis/ArimateiaService-sub000/internal/http"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/protocol"
	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/server"
)

// App guarda o despachante entre invocações.
type App struct {
	dispatcher internalhttp.Dispatcher
	jwt        *auth.JWTManager
	origins    []string
}

// header busca um cabeçalho sem diferenciar maiúsculas.
func header(h map[string]string, key string) string {
	lk := strings.ToLower(key)
	for k, v := range h {
		if strings.ToLower(k) == lk {
			return v
		}
	}
	return ""
}

// allowOrigin devolve o valor de Access-Control-Allow-Origin para a origem
// da requisição; sem ALLOW_ORIGINS qualquer origem é aceita.
func (a *App) allowOrigin(origin string) string {
	if len(a.origins) == 0 {
		return "*"
	}
	if origin == "" {
		return ""
	}
	host := origin
	if u, err := url.Parse(origin); err == nil && u.Hostname() != "" {
		host = strings.ToLower(u.Hostname())
	}
	for _, allowed := range a.origins {
		switch {
		case allowed == "*", allowed == origin:
			return origin
		case strings.HasPrefix(allowed, "*.") && strings.HasSuffix(host, strings.ToLower(allowed[1:])):
			return origin
		}
	}
	return ""
}

func (a *App) handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	origin := a.allowOrigin(header(req.Headers, "Origin"))
	respond := func(status int, env protocol.Envelope) (events.APIGatewayV2HTTPResponse, error) {
		return response(status, origin, env), nil
	}

	method := req.RequestContext.HTTP.Method
	if method == http.MethodOptions {
		return respond(http.StatusNoContent, nil)
	}

	ctx = a.jwt.ContextFromHeader(ctx, header(req.Headers, "Authorization"))

	switch method {
	case http.MethodGet:
		values, err := url.ParseQuery(req.RawQueryString)
		if err != nil {
			return respond(http.StatusBadRequest, protocol.Failure(protocol.CodeInvalidPayload, "query inválida"))
		}
		return respond(http.StatusOK, a.dispatcher.Dispatch(ctx, action.FormFields(values)))
	case http.MethodPost:
		body := []byte(req.Body)
		if req.IsBase64Encoded {
			decoded, err := base64.StdEncoding.DecodeString(req.Body)
			if err != nil {
				return respond(http.StatusBadRequest, protocol.Failure(protocol.CodeInvalidPayload, "corpo base64 inválido"))
			}
			body = decoded
		}
		return respond(http.StatusOK, a.dispatcher.Handle(ctx, header(req.Headers, "Content-Type"), body))
	default:
		return respond(http.StatusMethodNotAllowed, protocol.Failure(protocol.CodeUnknownAction, "método não suportado"))
	}
}

func response(status int, origin string, env protocol.Envelope) events.APIGatewayV2HTTPResponse {
	resp := events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
	if origin != "" {
		resp.Headers["Access-Control-Allow-Origin"] = origin
		resp.Headers["Access-Control-Allow-Headers"] = "Authorization, Content-Type, X-Requested-With"
		resp.Headers["Access-Control-Allow-Methods"] = "GET,POST,OPTIONS"
	}
	if env != nil {
		b, _ := json.Marshal(env)
		resp.Body = string(b)
	}
	return resp
}

func main() {
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Str("runtime", "lambda").Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}

	backend, err := server.New(context.Background(), cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("backend")
	}

	app := &App{dispatcher: backend.Dispatcher, jwt: backend.JWT, origins: cfg.AllowOrigins}
	lambda.Start(app.handler)
}
