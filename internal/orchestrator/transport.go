package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/config"
)

const maxResponseBytes = 4 << 20

// ErrUnreachable marca falhas em que o servidor nem foi alcançado.
var ErrUnreachable = errors.New("servidor inacessível")

// Request é a chamada já montada, pronta para o transporte.
type Request struct {
	Action string
	Body   map[string]any
	Header http.Header
}

// Response é o retorno bruto do transporte. Opaque indica que status e
// corpo não puderam ser inspecionados.
type Response struct {
	Status int
	Body   []byte
	Opaque bool
}

// Transport entrega uma requisição ao backend.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// HTTPTransport envia POST para o endpoint único de ações.
type HTTPTransport struct {
	endpoint string
	encoding string
	opaque   bool
	client   *http.Client
}

// NewHTTPTransport cria o transporte HTTP. O timeout por tentativa é
// aplicado pelo contexto, então o client não precisa de Timeout próprio.
func NewHTTPTransport(cfg config.ClientConfig, client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				DialContext:         (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		}
	}
	encoding := cfg.Encoding
	if encoding == "" {
		encoding = config.EncodingJSON
	}
	return &HTTPTransport{
		endpoint: cfg.EndpointURL,
		encoding: encoding,
		opaque:   cfg.Opaque,
		client:   client,
	}
}

func (t *HTTPTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	body, contentType, err := encodeBody(t.encoding, req.Body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if t.opaque {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &Response{Opaque: true}, nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("ler resposta: %w", err)
	}
	return &Response{Status: resp.StatusCode, Body: data}, nil
}

func encodeBody(encoding string, fields map[string]any) ([]byte, string, error) {
	if encoding != config.EncodingForm {
		raw, err := json.Marshal(fields)
		if err != nil {
			return nil, "", fmt.Errorf("serializar corpo: %w", err)
		}
		return raw, "application/json", nil
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	form := url.Values{}
	for _, k := range keys {
		switch v := fields[k].(type) {
		case nil:
		case string:
			form.Set(k, v)
		default:
			raw, err := json.Marshal(v)
			if err != nil {
				return nil, "", fmt.Errorf("serializar campo %s: %w", k, err)
			}
			form.Set(k, string(raw))
		}
	}
	return []byte(form.Encode()), "application/x-www-form-urlencoded", nil
}

// unreachable reconhece falhas de discagem ou DNS.
func unreachable(err error) bool {
	if errors.Is(err, ErrUnreachable) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
