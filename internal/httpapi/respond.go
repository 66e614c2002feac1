// Package httpapi exposes the ledger's actor services as a JSON contract
// over HTTP, per the external interface surface.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/attaboy/ledger/internal/domain"
)

// envelope wraps every response body so callers can branch on isSuccess
// without inspecting the HTTP status line.
type envelope struct {
	IsSuccess    bool        `json:"isSuccess"`
	Data         interface{} `json:"data,omitempty"`
	ErrorCode    string      `json:"errorCode,omitempty"`
	ErrorMessage string      `json:"errorMessage,omitempty"`
}

// RespondJSON writes data wrapped in a successful envelope.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope{IsSuccess: true, Data: data})
}

// RespondError writes err wrapped in a failed envelope, translating a
// domain.AppError into its declared HTTP status and code.
func RespondError(w http.ResponseWriter, err error) {
	appErr := domain.AsAppError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.Status)
	json.NewEncoder(w).Encode(envelope{
		IsSuccess:    false,
		ErrorCode:    appErr.Code,
		ErrorMessage: appErr.Message,
	})
}

// DecodeJSON reads and decodes a JSON request body into dst. Bodies larger
// than 1 MiB are rejected.
func DecodeJSON(r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20)
	return json.NewDecoder(r.Body).Decode(dst)
}
