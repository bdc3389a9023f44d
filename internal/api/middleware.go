package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
)

// EnvelopeVersion is the response envelope format version. Clients reject
// versions they do not know.
const EnvelopeVersion = 1

// APIEnvelope wraps every success response and simple error responses.
type APIEnvelope struct { //nolint:revive // API prefix is intentional for clarity
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// APIErrorEnvelope wraps coded errors.
type APIErrorEnvelope struct { //nolint:revive // API prefix is intentional for clarity
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// EnvelopeTransformer is a huma transformer wrapping bodies in the envelope.
// Coded errors keep their code and details; any other error becomes a simple
// error string. Non-error bodies are marked successful below status 400.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	code, _ := strconv.Atoi(status)

	var apiErr *APIError
	if e, ok := v.(*APIError); ok {
		apiErr = e
	}
	if apiErr != nil && apiErr.Code != "" {
		return APIErrorEnvelope{
			Version: EnvelopeVersion,
			Success: false,
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Details: apiErr.Details,
		}, nil
	}
	if apiErr != nil {
		return APIEnvelope{Version: EnvelopeVersion, Success: false, Error: apiErr.Message}, nil
	}

	if err, ok := v.(error); ok {
		return APIEnvelope{Version: EnvelopeVersion, Success: false, Error: err.Error()}, nil
	}

	return APIEnvelope{Version: EnvelopeVersion, Success: code < 400, Data: v}, nil
}

// writeError renders a coded error envelope outside of huma, for middleware.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIErrorEnvelope{
		Version: EnvelopeVersion,
		Code:    code,
		Message: message,
	})
}
