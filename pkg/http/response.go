package http

import (
	"encoding/json"
	"net/http"

	apperrors "carrierhub/pkg/errors"
)

// Envelope is the JSON shape the callback server answers with, matching
// what the backend returns to the client.
type Envelope struct {
	Success bool                    `json:"success"`
	Data    any                     `json:"data,omitempty"`
	Message string                  `json:"message,omitempty"`
	Error   string                  `json:"error,omitempty"`
	Details []apperrors.FieldDetail `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

func WriteSuccess(w http.ResponseWriter, statusCode int, data any) error {
	return WriteJSON(w, statusCode, Envelope{Success: true, Data: data})
}

func WriteFailure(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, Envelope{Success: false, Error: message})
}

// WriteError maps an AppError's kind onto a status code when the error
// carries none.
func WriteError(w http.ResponseWriter, err error) error {
	appErr := apperrors.Classify(err, false)

	status := appErr.StatusCode()
	if status == 0 {
		status = statusForKind(appErr.Kind)
	}

	return WriteJSON(w, status, Envelope{
		Success: false,
		Error:   appErr.Message,
		Details: appErr.Fields,
	})
}

func statusForKind(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindAuth:
		return http.StatusUnauthorized
	case apperrors.KindPayment:
		return http.StatusPaymentRequired
	case apperrors.KindNetwork:
		return http.StatusBadGateway
	case apperrors.KindClient:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// DecodeJSON reads a request body into v. An empty body leaves v untouched.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperrors.Validation("Malformed request body", nil).WithDetails(map[string]any{"cause": err.Error()})
	}
	return nil
}
