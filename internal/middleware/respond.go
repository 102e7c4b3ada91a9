package middleware

import (
	"encoding/json"
	"net/http"

	"mediagen/internal/domain"
	"mediagen/internal/i18n"
)

// ErrorBody is the envelope every failure is rendered into.
type ErrorBody struct {
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details,omitempty"`
}

// WriteJSON encodes v with the given status code.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError renders de in the request locale. Details are only attached when
// the upstream supplied them.
func WriteError(w http.ResponseWriter, r *http.Request, de *domain.Error) {
	body := ErrorBody{Error: i18n.Message(LocaleFromContext(r.Context()), de.Code)}
	if len(de.Detail) > 0 {
		body.Details = de.Detail
	}
	WriteJSON(w, de.HTTPStatus(), body)
}
