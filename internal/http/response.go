package http

import (
	"encoding/json"
	"net/http"

	"github.com/wgnrfrancis/ArimateiaService-sub000/internal/protocol"
)

// WriteEnvelope escreve o envelope de uma ação. Resultados de negócio usam
// sempre 200; o cliente distingue sucesso pelo campo success.
func WriteEnvelope(w http.ResponseWriter, status int, env protocol.Envelope) {
	WriteJSON(w, status, env)
}

// WriteJSON escreve qualquer valor como JSON.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError escreve um envelope de falha.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteEnvelope(w, status, protocol.Failure(code, message))
}
